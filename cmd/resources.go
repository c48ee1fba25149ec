package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fwdctl/internal/cli"
	"fwdctl/internal/gateway"
	"fwdctl/internal/sweeper"
)

func renderGroups(cmd *cobra.Command, clusterContext string, groups []gateway.NamespaceGroup) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.ContextHeading(clusterContext))

	count := 0
	for _, group := range groups {
		count += len(group.Resources)
	}
	if count == 0 {
		fmt.Fprintln(out, "  no resources")
		return
	}

	table := cli.NewTable("NAMESPACE", "TYPE", "NAME", "CONFIG", "AGE", "STATUS", "STATE")
	for _, group := range groups {
		for _, res := range group.Resources {
			configCol := "-"
			if res.ConfigID != nil {
				configCol = strconv.FormatInt(*res.ConfigID, 10)
			}
			state := cli.StatusActive()
			if res.Orphaned {
				state = cli.StatusOrphaned()
			}
			table.AddRow(group.Namespace, res.ResourceType, res.Name, configCol, res.Age, res.Status, state)
		}
	}
	table.Render(out)
}

func newResourcesCmd() *cobra.Command {
	var clusterContext string

	cmd := &cobra.Command{
		Use:   "resources",
		Short: "List cluster resources created by fwdctl",
		Long: `Lists the relay pods and other resources fwdctl created, grouped by
context and namespace. Resources whose configuration no longer exists are
marked orphaned. Contexts are swept concurrently; a context that does not
answer within the timeout is skipped with a warning.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if clusterContext != "" {
				groups, err := a.sweep.SweepContext(cmd.Context(), clusterContext)
				if err != nil {
					return err
				}
				renderGroups(cmd, clusterContext, groups)
				return nil
			}

			contexts := a.reg.Contexts()
			if len(contexts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No contexts known. Add a configuration first.")
				return nil
			}

			results, err := a.sweep.SweepAll(cmd.Context(), func(res sweeper.ContextResult, progress sweeper.Progress) {
				if res.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "context %s skipped: %v (%d/%d)\n",
						res.Context, res.Err, progress.Completed, progress.Total)
				}
			})
			if err != nil {
				return err
			}

			for _, cc := range contexts {
				groups, ok := results[cc]
				if !ok {
					continue
				}
				renderGroups(cmd, cc, groups)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&clusterContext, "context", "", "List a single cluster context")
	return cmd
}
