package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Veraticus/catalog-bridge/internal/cli"
	"github.com/Veraticus/catalog-bridge/internal/pricing"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Show or initialize the unit pricing rules",
	}

	cmd.AddCommand(rulesShowCmd())
	cmd.AddCommand(rulesInitCmd())

	return cmd
}

func rulesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the rules in effect",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			rules, err := pricing.LoadRules(afero.NewOsFs(), settings.Rules.Path)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(rules)
			if err != nil {
				return fmt.Errorf("failed to encode rules: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", settings.Rules.Path, data)
			return nil
		},
	}
}

func rulesInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default rules to the rules file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			fs := afero.NewOsFs()
			path := settings.Rules.Path

			force, _ := cmd.Flags().GetBool("force")
			if exists, _ := afero.Exists(fs, path); exists && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := fs.MkdirAll(filepath.Dir(path), 0o750); err != nil && !os.IsExist(err) {
				return fmt.Errorf("failed to create rules directory: %w", err)
			}
			if err := pricing.WriteRules(fs, path, pricing.DefaultRules()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Wrote default rules to "+path))
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing rules file")
	return cmd
}
