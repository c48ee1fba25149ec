package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fwdctl/internal/cli"
)

// runningState renders the per-context footer state: none, partial or all
// sessions in the group running.
func runningState(running, total int) string {
	switch {
	case total == 0 || running == 0:
		return "none"
	case running == total:
		return "all"
	default:
		return "partial"
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List port-forward configurations and their session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			snap := a.reg.Snapshot()
			if len(snap.Configs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No configurations defined. Add one with 'fwdctl add'.")
				return nil
			}

			table := cli.NewTable("ID", "NAME", "CONTEXT", "NAMESPACE", "TARGET", "PORTS", "TYPE", "STATUS")
			for _, c := range snap.Configs {
				status := cli.StatusStopped()
				if snap.Running[c.ID] {
					status = cli.StatusRunning()
				}
				ports := fmt.Sprintf("%d->%d", c.LocalPort, c.RemotePort)
				kind := fmt.Sprintf("%s/%s", c.WorkloadType, c.Protocol)
				table.AddRow(strconv.FormatInt(c.ID, 10), c.DisplayName(), c.Context,
					c.Namespace, c.TargetName(), ports, kind, status)
			}
			table.Render(cmd.OutOrStdout())

			fmt.Fprintln(cmd.OutOrStdout())
			for _, cc := range a.reg.Contexts() {
				running, total := 0, 0
				for _, c := range snap.Configs {
					if c.Context != cc {
						continue
					}
					total++
					if snap.Running[c.ID] {
						running++
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d running (%s)\n",
					cc, running, total, runningState(running, total))
			}
			return nil
		},
	}
}
