package cmd

import (
	"context"
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"fwdctl/pkg/logging"
)

const githubRepoSlug = "fwdctl/fwdctl"

func newSelfUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "self-update",
		Short: "Update fwdctl to the latest release",
		Long: `Checks for the latest release on GitHub and, if the running binary is
older, downloads it and replaces the binary in place.`,
		RunE: runSelfUpdate,
	}
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	version := rootCmd.Version
	if version == "" || version == "dev" {
		return fmt.Errorf("cannot self-update a development version; install a released build first")
	}

	ctx := context.Background()
	if cmd != nil {
		ctx = cmd.Context()
	}

	logging.Info("SelfUpdate", "Checking %s for releases newer than %s", githubRepoSlug, version)
	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(githubRepoSlug))
	if err != nil {
		return fmt.Errorf("failed to detect the latest release: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s", githubRepoSlug)
	}

	if latest.LessOrEqual(version) {
		fmt.Printf("fwdctl %s is already the latest version\n", version)
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("failed to locate the running executable: %w", err)
	}

	fmt.Printf("Updating fwdctl %s -> %s\n", version, latest.Version())
	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("failed to update to %s: %w", latest.Version(), err)
	}

	fmt.Printf("Successfully updated to fwdctl %s\n", latest.Version())
	return nil
}
