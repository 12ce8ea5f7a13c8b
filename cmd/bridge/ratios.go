package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Veraticus/catalog-bridge/internal/cli"
	"github.com/Veraticus/catalog-bridge/internal/ratio"
)

func ratiosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratios",
		Short: "Manage manual price ratios",
		Long: `A manual ratio says how many catalog units one store product holds, for labels
the weight and length rules cannot read. The expected store price becomes the
catalog unit price times the ratio.`,
	}

	cmd.AddCommand(ratiosListCmd())
	cmd.AddCommand(ratiosSetCmd())
	cmd.AddCommand(ratiosRemoveCmd())

	return cmd
}

func openRatios() (*ratio.Store, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	store, err := ratio.Open(afero.NewOsFs(), settings.Ratios.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ratio file: %w", err)
	}
	return store, nil
}

func ratiosListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List manual ratios",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openRatios()
			if err != nil {
				return err
			}
			return cli.RenderRatios(cmd.OutOrStdout(), store.List())
		},
	}
}

func ratiosSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <sku> <ratio>",
		Short: "Create or replace a manual ratio",
		Example: `  bridge ratios set AG900 25 --note "box of 25 rods"
  bridge ratios set W1 0,5`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := decimal.NewFromString(strings.ReplaceAll(args[1], ",", "."))
			if err != nil {
				return fmt.Errorf("invalid ratio %q: %w", args[1], err)
			}
			note, _ := cmd.Flags().GetString("note")

			store, err := openRatios()
			if err != nil {
				return err
			}
			if err := store.Set(args[0], r, note); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Ratio for %s set to %s", args[0], r)))
			return nil
		},
	}
	cmd.Flags().String("note", "", "Why this ratio applies")
	return cmd
}

func ratiosRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <sku>",
		Short: "Remove a manual ratio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRatios()
			if err != nil {
				return err
			}
			if err := store.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Ratio for %s removed", args[0])))
			return nil
		},
	}
}
