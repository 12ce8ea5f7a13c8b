package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/catalog-bridge/internal/cli"
	"github.com/Veraticus/catalog-bridge/internal/match"
	"github.com/Veraticus/catalog-bridge/internal/model"
)

func matchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "Manage confirmed store/catalog pairings",
		Long: `Confirmed pairings override automatic matching on every later pass. Use them
for products whose store SKU cannot be matched to a catalog code automatically.`,
	}

	cmd.AddCommand(matchesListCmd())
	cmd.AddCommand(matchesConfirmCmd())
	cmd.AddCommand(matchesRemoveCmd())
	cmd.AddCommand(matchesSuggestCmd())

	return cmd
}

func matchesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List confirmed pairings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			matches, err := sess.storage.GetConfirmedMatches(ctx)
			if err != nil {
				return fmt.Errorf("failed to get confirmed matches: %w", err)
			}
			return cli.RenderConfirmedMatches(cmd.OutOrStdout(), matches)
		},
	}
}

func matchesConfirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "confirm <catalog-sku> <store-sku>",
		Short:   "Pair a catalog item with a store product",
		Example: `  bridge matches confirm 123 00123-OLD`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			ref, _ := cmd.Flags().GetString("ref")
			m := model.ConfirmedMatch{
				CatalogIdentifier: args[0],
				StoreIdentifier:   args[1],
				StoreRef:          ref,
				MatchedBy:         operatorName(),
				MatchedAt:         time.Now(),
				Provenance:        model.ProvenanceManual,
				Confidence:        1,
			}
			if err := sess.storage.SaveConfirmedMatch(ctx, m); err != nil {
				return fmt.Errorf("failed to save match: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Paired catalog %s with store %s", args[0], args[1])))
			return nil
		},
	}
	cmd.Flags().String("ref", "", "Store product id, when the SKU is empty or shared")
	return cmd
}

func matchesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <catalog-sku>",
		Short: "Forget a confirmed pairing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.storage.DeleteConfirmedMatch(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to remove match: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Removed pairing for catalog %s", args[0])))
			return nil
		},
	}
}

func matchesSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest pairings for unmatched records by name similarity",
		Long: `Run a pass and list the best fuzzy candidate for each unmatched store product.
With --save-above, candidates scoring at or above the given value are stored as
confirmed pairings.`,
		Example: `  bridge matches suggest
  bridge matches suggest --save-above 0.92`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			saveAbove, _ := cmd.Flags().GetFloat64("save-above")
			if saveAbove < 0 || saveAbove > 1 {
				return fmt.Errorf("--save-above must be between 0 and 1, got %v", saveAbove)
			}

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			result, err := sess.runPass(ctx)
			if err != nil {
				return err
			}

			best := match.BestPerStore(result.Candidates)
			if len(best) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No candidates above the fuzzy threshold"))
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SCORE\tNAME\tID\tSTORE\tCATALOG\tSTORE NAME\tCATALOG NAME")
			for _, c := range best {
				fmt.Fprintf(tw, "%.2f\t%.2f\t%.2f\t%s\t%s\t%s\t%s\n", c.Score, c.NameSimilarity, c.IDSimilarity,
					c.Store.Identifier, c.Catalog.Identifier, c.Store.Name, c.Catalog.Name)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if saveAbove == 0 {
				return nil
			}
			saved := 0
			for _, c := range best {
				if c.Score < saveAbove {
					continue
				}
				if err := sess.storage.SaveConfirmedMatch(ctx, candidateMatch(c, time.Now())); err != nil {
					return fmt.Errorf("failed to save match for %s: %w", c.Catalog.Identifier, err)
				}
				saved++
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Saved %d pairings scoring %.2f or more", saved, saveAbove)))
			return nil
		},
	}
	cmd.Flags().Float64("save-above", 0, "Save candidates scoring at or above this value (0 saves none)")
	return cmd
}

// candidateMatch records an accepted fuzzy candidate.
func candidateMatch(c match.Candidate, at time.Time) model.ConfirmedMatch {
	rec := match.Confirm(c)
	return model.ConfirmedMatch{
		CatalogIdentifier: rec.Catalog.Identifier,
		StoreIdentifier:   rec.Store.Identifier,
		StoreRef:          rec.Store.ExternalRef,
		MatchedBy:         operatorName(),
		MatchedAt:         at,
		Provenance:        rec.Provenance,
		Confidence:        rec.Similarity,
	}
}

func operatorName() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "operator"
}
