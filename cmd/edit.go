package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fwdctl/internal/config"
)

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a port-forward configuration",
		Long: `Edits a configuration in place. Only the fields given as flags change.
If the session is currently running it is stopped with its pre-edit routing,
the edit is persisted, and the session is started again with the new values.
A failed stop aborts the edit; nothing is persisted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid configuration id %q", args[0])
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			cfg, ok := a.reg.Get(id)
			if !ok {
				return fmt.Errorf("no configuration with id %d", id)
			}

			flags := cmd.Flags()
			setString := func(name string, dst *string) {
				if flags.Changed(name) {
					v, _ := flags.GetString(name)
					*dst = v
				}
			}
			setString("service", &cfg.Service)
			setString("namespace", &cfg.Namespace)
			setString("context", &cfg.Context)
			setString("remote-address", &cfg.RemoteAddress)
			setString("local-address", &cfg.LocalAddress)
			setString("alias", &cfg.Alias)
			setString("kubeconfig", &cfg.Kubeconfig)
			setString("target", &cfg.Target)
			if flags.Changed("workload") {
				v, _ := flags.GetString("workload")
				cfg.WorkloadType = config.WorkloadType(v)
			}
			if flags.Changed("protocol") {
				v, _ := flags.GetString("protocol")
				cfg.Protocol = config.Protocol(v)
			}
			if flags.Changed("local-port") {
				v, _ := flags.GetUint16("local-port")
				cfg.LocalPort = v
			}
			if flags.Changed("remote-port") {
				v, _ := flags.GetUint16("remote-port")
				cfg.RemotePort = v
			}

			if err := a.orch.SaveEdit(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved configuration %d (%s)\n", cfg.ID, cfg.DisplayName())
			return nil
		},
	}

	cmd.Flags().String("service", "", "Service name to forward to")
	cmd.Flags().String("namespace", "", "Namespace of the target")
	cmd.Flags().String("context", "", "Cluster context")
	cmd.Flags().Uint16("local-port", 0, "Local port to listen on")
	cmd.Flags().Uint16("remote-port", 0, "Remote port to forward to")
	cmd.Flags().String("workload", "", "Workload type: service, pod or proxy")
	cmd.Flags().String("protocol", "", "Protocol: tcp or udp")
	cmd.Flags().String("remote-address", "", "Remote address for proxy workloads")
	cmd.Flags().String("local-address", "", "Local address to bind")
	cmd.Flags().String("alias", "", "Short name for the configuration")
	cmd.Flags().String("kubeconfig", "", "Kubeconfig path")
	cmd.Flags().String("target", "", "Pod name for pod workloads")

	return cmd
}
