package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fwdctl/pkg/logging"
)

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete port-forward configurations",
		Long: `Deletes configurations from the inventory. A running session is stopped
first; its session state is purged together with the configuration.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid configuration id %q", arg)
				}

				cfg, ok := a.reg.Get(id)
				if !ok {
					return fmt.Errorf("no configuration with id %d", id)
				}

				if a.reg.IsRunning(id) {
					if err := a.orch.Stop(cmd.Context(), cfg); err != nil {
						logging.Warn("CLI", "Failed to stop config %d before deletion: %v", id, err)
					}
				}

				if err := a.store.Delete(id); err != nil {
					return err
				}
				a.orch.HandleConfigDeleted(id)
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted configuration %d (%s)\n", id, cfg.DisplayName())
			}
			return nil
		},
	}
	return cmd
}
