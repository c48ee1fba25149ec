package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"fwdctl/internal/config"
)

func newAddCmd() *cobra.Command {
	var cfg config.Config
	var workloadType, protocol string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a port-forward configuration",
		Long: `Adds a configuration to the inventory. Service and pod workloads carry
TCP traffic over a direct forward; UDP traffic and proxy workloads go
through a relay pod in the cluster.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.WorkloadType = config.WorkloadType(workloadType)
			cfg.Protocol = config.Protocol(protocol)
			if cfg.LocalAddress == "" {
				cfg.LocalAddress = "127.0.0.1"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.Insert(&cfg); err != nil {
				return err
			}
			a.reg.Upsert(cfg)
			fmt.Fprintf(cmd.OutOrStdout(), "Added configuration %d (%s)\n", cfg.ID, cfg.DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Service, "service", "", "Service name to forward to")
	cmd.Flags().StringVar(&cfg.Namespace, "namespace", "", "Namespace of the target")
	cmd.Flags().StringVar(&cfg.Context, "context", "", "Cluster context")
	cmd.Flags().Uint16Var(&cfg.LocalPort, "local-port", 0, "Local port to listen on")
	cmd.Flags().Uint16Var(&cfg.RemotePort, "remote-port", 0, "Remote port to forward to")
	cmd.Flags().StringVar(&workloadType, "workload", "service", "Workload type: service, pod or proxy")
	cmd.Flags().StringVar(&protocol, "protocol", "tcp", "Protocol: tcp or udp")
	cmd.Flags().StringVar(&cfg.RemoteAddress, "remote-address", "", "Remote address for proxy workloads")
	cmd.Flags().StringVar(&cfg.LocalAddress, "local-address", "127.0.0.1", "Local address to bind")
	cmd.Flags().StringVar(&cfg.Alias, "alias", "", "Short name for the configuration")
	cmd.Flags().StringVar(&cfg.Kubeconfig, "kubeconfig", "", "Kubeconfig path; the default loading rules apply when empty")
	cmd.Flags().StringVar(&cfg.Target, "target", "", "Pod name for pod workloads")

	return cmd
}
