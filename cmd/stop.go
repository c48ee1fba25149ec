package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"fwdctl/internal/config"
)

func newStopCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "stop [id|alias]...",
		Short: "Stop port-forward sessions",
		Long: `Stops the sessions for the given configurations, addressed by id or
alias. With --all, every running session is stopped. Stopping a session that
is not running is a no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("specify configuration ids or aliases, or --all")
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			var targets []config.Config
			if all {
				snap := a.reg.Snapshot()
				for _, c := range snap.Configs {
					if snap.Running[c.ID] {
						targets = append(targets, c)
					}
				}
			} else {
				targets, err = resolveConfigs(a, args)
				if err != nil {
					return err
				}
			}

			if len(targets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to stop.")
				return nil
			}

			if len(targets) == 1 {
				cfg := targets[0]
				if err := a.orch.Stop(cmd.Context(), cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stopped %s (config %d)\n", cfg.DisplayName(), cfg.ID)
				return nil
			}

			report := a.orch.StopMany(cmd.Context(), targets)
			fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
			if report.Failed() {
				return fmt.Errorf("%d of %d sessions failed to stop", len(report.Failures), len(targets))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Stop every running session")
	return cmd
}
