package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Veraticus/catalog-bridge/internal/model"
	"github.com/Veraticus/catalog-bridge/internal/service"
)

const timeLayout = "2006-01-02 15:04"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// RenderPassSummary prints the counts of one pass.
func RenderPassSummary(w io.Writer, s service.PassSummary, summary model.AnomalySummary) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Pass\t%s\n", s.ID)
	fmt.Fprintf(tw, "Store records\t%d\n", s.StoreCount)
	fmt.Fprintf(tw, "Catalog records\t%d\n", s.CatalogCount)
	fmt.Fprintf(tw, "Matched\t%s\n", SuccessStyle.Render(fmt.Sprint(s.Matched)))
	fmt.Fprintf(tw, "Unmatched store / catalog\t%d / %d\n", s.UnmatchedStore, s.UnmatchedCatalog)
	fmt.Fprintf(tw, "Skipped containers\t%d\n", s.Skipped)
	fmt.Fprintf(tw, "Data quality warnings\t%d\n", s.Warnings)
	fmt.Fprintf(tw, "Anomalies\t%d (high %d, medium %d, low %d)\n", s.Anomalies,
		summary.BySeverity[model.SeverityHigh], summary.BySeverity[model.SeverityMedium], summary.BySeverity[model.SeverityLow])
	fmt.Fprintf(tw, "Auto-fixable\t%d\n", s.AutoFixable)
	return tw.Flush()
}

// RenderAnomalies prints anomalies in the order given.
func RenderAnomalies(w io.Writer, anomalies []model.Anomaly) error {
	if len(anomalies) == 0 {
		_, err := fmt.Fprintln(w, FormatSuccess("No anomalies found"))
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "SEVERITY\tSKU\tTYPE\tDESCRIPTION\tFIX")
	for _, a := range anomalies {
		fix := a.SuggestedFix
		if a.AutoFixable {
			fix += " (auto)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", FormatSeverity(a.Severity), a.Identifier, a.Type, a.Description, fix)
	}
	return tw.Flush()
}

// RenderResults prints the outcome of applied actions and returns the number that failed.
func RenderResults(w io.Writer, results []model.ActionResult) (int, error) {
	failed := 0
	tw := newTable(w)
	fmt.Fprintln(tw, "STATUS\tSKU\tFIX\tDETAIL")
	for _, r := range results {
		detail := ""
		switch {
		case r.Err != nil:
			detail = r.Err.Error()
		case len(r.Changes) > 0:
			c := r.Changes[0]
			detail = fmt.Sprintf("%s: %q → %q", c.Field, c.OldValue, c.NewValue)
			if len(r.Changes) > 1 {
				detail += fmt.Sprintf(" (+%d)", len(r.Changes)-1)
			}
		}
		if r.Status == model.ActionFailed {
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", FormatStatus(r.Status), r.Identifier, r.Kind, detail)
	}
	return failed, tw.Flush()
}

// RenderRatios prints manual ratios.
func RenderRatios(w io.Writer, ratios []model.ManualRatio) error {
	if len(ratios) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No manual ratios defined"))
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "SKU\tRATIO\tUPDATED\tNOTE")
	for _, r := range ratios {
		updated := ""
		if !r.UpdatedAt.IsZero() {
			updated = r.UpdatedAt.Local().Format(timeLayout)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Identifier, r.Ratio.String(), updated, r.Note)
	}
	return tw.Flush()
}

// RenderConfirmedMatches prints operator-confirmed pairings.
func RenderConfirmedMatches(w io.Writer, matches []model.ConfirmedMatch) error {
	if len(matches) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No confirmed matches"))
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "CATALOG\tSTORE\tPROVENANCE\tCONFIDENCE\tBY\tMATCHED")
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			m.CatalogIdentifier, m.StoreIdentifier, m.Provenance, m.Confidence, m.MatchedBy, m.MatchedAt.Local().Format(timeLayout))
	}
	return tw.Flush()
}

// RenderActionLog prints journaled actions.
func RenderActionLog(w io.Writer, entries []service.ActionLogEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No actions recorded"))
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "APPLIED\tSKU\tFIX\tSTATUS\tCHANGES\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.AppliedAt.Local().Format(timeLayout), e.Identifier, e.Kind, e.Status, len(e.Changes), e.Error)
	}
	return tw.Flush()
}

// RenderPriceHistory prints the recorded prices of one identifier.
func RenderPriceHistory(w io.Writer, points []service.PricePoint) error {
	if len(points) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No price history"))
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "RECORDED\tREGULAR\tSALE\tCATALOG\tPASS")
	for _, p := range points {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.RecordedAt.Local().Format(timeLayout), p.RegularPrice, p.SalePrice, p.CatalogPrice, p.PassID)
	}
	return tw.Flush()
}

// RenderPasses prints recent pass summaries.
func RenderPasses(w io.Writer, passes []service.PassSummary) error {
	if len(passes) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No passes recorded"))
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "STARTED\tPASS\tMATCHED\tUNMATCHED\tANOMALIES\tAUTO")
	for _, p := range passes {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d/%d\t%d\t%d\n",
			p.StartedAt.Local().Format(timeLayout), p.ID, p.Matched, p.UnmatchedStore, p.UnmatchedCatalog, p.Anomalies, p.AutoFixable)
	}
	return tw.Flush()
}
