package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fwdctl/internal/config"
)

func newExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export configurations as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			configs, err := a.store.GetAll()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}

			if err := config.ExportYAML(out, configs); err != nil {
				return err
			}
			if outPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d configuration(s) to %s\n", len(configs), outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import configurations from YAML",
		Long: `Imports configurations from a YAML export. Imported entries get fresh
ids; existing configurations are left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			configs, err := config.ImportYAML(f)
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			for i := range configs {
				if err := a.store.Insert(&configs[i]); err != nil {
					return fmt.Errorf("failed to import %q: %w", configs[i].DisplayName(), err)
				}
				a.reg.Upsert(configs[i])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d configuration(s)\n", len(configs))
			return nil
		},
	}
	return cmd
}
