package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/catalog-bridge/internal/anomaly"
	"github.com/Veraticus/catalog-bridge/internal/cli"
	"github.com/Veraticus/catalog-bridge/internal/engine"
	"github.com/Veraticus/catalog-bridge/internal/model"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run a reconciliation pass",
		Long: `Load both exports, pair store products with catalog items, evaluate prices and
report what is wrong. Nothing is changed in the store; use 'bridge apply' to act.`,
		Example: `  bridge reconcile --store woo.json --catalog capital.json
  bridge reconcile --show-unmatched --show-candidates`,
		RunE: runReconcile,
	}

	cmd.Flags().Bool("show-unmatched", false, "List unmatched store and catalog records")
	cmd.Flags().Bool("show-candidates", false, "List fuzzy match candidates awaiting confirmation")
	cmd.Flags().Bool("show-warnings", false, "List data quality warnings")

	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	result, err := sess.runPass(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s Pass %s", cli.BridgeIcon, result.ID)))
	if err := cli.RenderPassSummary(out, result.PassSummary(), result.Summary); err != nil {
		return err
	}

	if show, _ := cmd.Flags().GetBool("show-warnings"); show {
		if err := renderWarnings(out, result.Match.Warnings); err != nil {
			return err
		}
	}
	if show, _ := cmd.Flags().GetBool("show-unmatched"); show {
		if err := renderUnmatched(out, result); err != nil {
			return err
		}
	}
	if show, _ := cmd.Flags().GetBool("show-candidates"); show {
		if err := renderCandidates(out, result); err != nil {
			return err
		}
	}

	if result.Summary.Total > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, cli.FormatInfo("Run 'bridge anomalies' for details or 'bridge apply' to fix them"))
	}
	return nil
}

func renderWarnings(w io.Writer, warnings []model.DataQualityWarning) error {
	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.FormatTitle("Data quality warnings"))
	if len(warnings) == 0 {
		fmt.Fprintln(w, cli.FormatSuccess("None"))
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tSKU\tDETAIL")
	for _, warn := range warnings {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", warn.Kind, warn.Identifier, warn.Detail)
	}
	return tw.Flush()
}

func renderUnmatched(w io.Writer, result *engine.PassResult) error {
	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.FormatTitle("Unmatched records"))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SIDE\tSKU\tNAME\tPRICE")
	for _, s := range result.Match.UnmatchedStore {
		fmt.Fprintf(tw, "store\t%s\t%s\t%s\n", s.Identifier, s.Name, s.RegularPrice.StringFixed(2))
	}
	for _, c := range result.Match.UnmatchedCatalog {
		fmt.Fprintf(tw, "catalog\t%s\t%s\t%s\n", c.Identifier, c.Name, c.RetailPrice.StringFixed(2))
	}
	return tw.Flush()
}

func renderCandidates(w io.Writer, result *engine.PassResult) error {
	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.FormatTitle("Fuzzy candidates"))
	if len(result.Candidates) == 0 {
		fmt.Fprintln(w, cli.FormatInfo("No candidates above the threshold"))
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tSTORE\tCATALOG\tSTORE NAME\tCATALOG NAME")
	for _, c := range result.Candidates {
		fmt.Fprintf(tw, "%.2f\t%s\t%s\t%s\t%s\n",
			c.Score, c.Store.Identifier, c.Catalog.Identifier, c.Store.Name, c.Catalog.Name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w, cli.FormatInfo("Confirm a pairing with 'bridge matches confirm CATALOG_SKU STORE_SKU'"))
	return nil
}

func anomaliesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "List detected anomalies by severity",
		Long:  `Run a pass and list its anomalies, most severe first.`,
		Example: `  bridge anomalies --severity high
  bridge anomalies --auto-only`,
		RunE: runAnomalies,
	}

	cmd.Flags().String("severity", "low", "Minimum severity to show (low, medium, high)")
	cmd.Flags().Bool("auto-only", false, "Show only auto-fixable anomalies")

	return cmd
}

func runAnomalies(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	severityFlag, _ := cmd.Flags().GetString("severity")
	minSeverity, err := parseSeverity(severityFlag)
	if err != nil {
		return err
	}
	autoOnly, _ := cmd.Flags().GetBool("auto-only")

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	result, err := sess.runPass(ctx)
	if err != nil {
		return err
	}

	return cli.RenderAnomalies(cmd.OutOrStdout(), anomaly.Filter(result.Anomalies, minSeverity, autoOnly))
}

func parseSeverity(s string) (model.Severity, error) {
	sev := model.Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev.Rank() == 0 {
		return "", fmt.Errorf("unknown severity %q: expected low, medium or high", s)
	}
	return sev, nil
}
