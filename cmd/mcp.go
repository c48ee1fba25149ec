package cmd

import (
	"github.com/spf13/cobra"

	"fwdctl/internal/mcpserver"
	"fwdctl/pkg/logging"
)

func newServeMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the fwdctl tool set over the Model Context Protocol",
		Long: `Runs an MCP server on stdio exposing configuration, forward and
resource-cleanup tools. Logs go to stderr so they never corrupt the
protocol stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			logging.Info("CLI", "Starting MCP server (version %s)", rootCmd.Version)
			srv := mcpserver.New(a.orch, a.reg, a.sweep, rootCmd.Version)
			return srv.ServeStdio()
		},
	}
}
