package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"fwdctl/pkg/logging"
)

var (
	logLevelFlag string
	dbPathFlag   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fwdctl",
	Short: "Manage Kubernetes port-forward sessions",
	Long: `fwdctl keeps a local inventory of port-forward configurations and
manages their sessions: direct SPDY forwards for TCP traffic and relay-pod
forwards for UDP or arbitrary remote addresses. It can also reconcile the
cluster resources it created against the inventory and clean up orphans.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid arguments, failed connections)
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.InitForCLI(logging.ParseLevel(logLevelFlag), os.Stderr)
	},
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "fwdctl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Path to the configuration database (default ~/.config/fwdctl/fwdctl.db)")

	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newStopCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newEditCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newResourcesCmd())
	rootCmd.AddCommand(newCleanupCmd())
	rootCmd.AddCommand(newServeMCPCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
