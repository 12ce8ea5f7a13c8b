package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/catalog-bridge/internal/cli"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the journal of passes, prices and applied actions",
	}

	cmd.AddCommand(historyPricesCmd())
	cmd.AddCommand(historyActionsCmd())
	cmd.AddCommand(historyPassesCmd())

	return cmd
}

func historyPricesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prices <sku>",
		Short: "Show the recorded store and catalog prices of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, settings.Database.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			points, err := store.GetPriceHistory(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get price history: %w", err)
			}
			return cli.RenderPriceHistory(cmd.OutOrStdout(), points)
		},
	}
}

func historyActionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions [sku]",
		Short: "Show applied actions, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			limit, _ := cmd.Flags().GetInt("limit")
			sku := ""
			if len(args) == 1 {
				sku = args[0]
			}

			settings, err := loadSettings()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, settings.Database.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.GetActionLog(ctx, sku, limit)
			if err != nil {
				return fmt.Errorf("failed to get action log: %w", err)
			}
			return cli.RenderActionLog(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().Int("limit", 50, "Maximum entries to show (0 for all)")
	return cmd
}

func historyPassesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passes",
		Short: "Show recent reconciliation passes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			limit, _ := cmd.Flags().GetInt("limit")

			settings, err := loadSettings()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, settings.Database.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			passes, err := store.GetRecentPasses(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to get passes: %w", err)
			}
			return cli.RenderPasses(cmd.OutOrStdout(), passes)
		},
	}
	cmd.Flags().Int("limit", 10, "Maximum passes to show")
	return cmd
}
