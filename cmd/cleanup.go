package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fwdctl/internal/gateway"
)

func newCleanupCmd() *cobra.Command {
	var (
		clusterContext string
		all            bool
		yes            bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete cluster resources created by fwdctl",
		Long: `Deletes fwdctl-created cluster resources in bulk. By default only
orphaned resources are removed; --all also removes resources backing
currently-running forwards. The exact set of resources is listed and
confirmed before anything is deleted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			mode := gateway.CleanupOrphaned
			if all {
				mode = gateway.CleanupAll
			}

			contexts := a.reg.Contexts()
			if clusterContext != "" {
				contexts = []string{clusterContext}
			}
			if len(contexts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No contexts known; nothing to clean up.")
				return nil
			}

			plan, err := a.sweep.PlanCleanup(cmd.Context(), contexts, mode)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plan.Describe())
			if len(plan.Resources) == 0 {
				return nil
			}

			if !yes {
				fmt.Fprint(cmd.OutOrStdout(), "\nProceed? [y/N]: ")
				reader := bufio.NewReader(cmd.InOrStdin())
				answer, _ := reader.ReadString('\n')
				answer = strings.ToLower(strings.TrimSpace(answer))
				if answer != "y" && answer != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			report := a.sweep.ExecuteCleanup(cmd.Context(), contexts, mode)
			fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
			if report.Failed() {
				return fmt.Errorf("cleanup failed for %d context(s)", len(report.Failures))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&clusterContext, "context", "", "Clean a single cluster context")
	cmd.Flags().BoolVar(&all, "all", false, "Also delete resources backing running forwards")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
