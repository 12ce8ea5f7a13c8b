// Package report renders reconciliation passes as spreadsheet reports.
package report

import (
	"context"
	"fmt"

	"github.com/Veraticus/catalog-bridge/internal/engine"
	"github.com/Veraticus/catalog-bridge/internal/match"
	"github.com/Veraticus/catalog-bridge/internal/model"
)

// Sheet names, in output order.
const (
	SheetSummary   = "Summary"
	SheetMatched   = "Matched"
	SheetUnmatched = "Unmatched"
	SheetAnomalies = "Anomalies"
)

// Table is one sheet of a report. Cells hold strings, ints or float64 so
// every writer can pass them through unchanged.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Values returns the header followed by the rows.
func (t Table) Values() [][]any {
	values := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	values = append(values, header)
	return append(values, t.Rows...)
}

// Report is a rendered pass.
type Report struct {
	PassID string
	Tables []Table
}

// Writer publishes a report.
type Writer interface {
	Write(ctx context.Context, r *Report) error
}

// Build renders a pass result.
func Build(result *engine.PassResult) *Report {
	return &Report{
		PassID: result.ID,
		Tables: []Table{
			summaryTable(result),
			matchedTable(result.Records),
			unmatchedTable(result.Match),
			anomalyTable(result.Anomalies),
		},
	}
}

func summaryTable(result *engine.PassResult) Table {
	s := result.PassSummary()
	rows := [][]any{
		{"Pass", s.ID},
		{"Started", s.StartedAt.Format("2006-01-02 15:04:05")},
		{"Store records", s.StoreCount},
		{"Catalog records", s.CatalogCount},
		{"Matched", s.Matched},
		{"Unmatched store", s.UnmatchedStore},
		{"Unmatched catalog", s.UnmatchedCatalog},
		{"Skipped containers", s.Skipped},
		{"Data quality warnings", s.Warnings},
		{"Fuzzy candidates", len(result.Candidates)},
		{"Anomalies", s.Anomalies},
		{"Auto-fixable", s.AutoFixable},
	}
	for _, sev := range []model.Severity{model.SeverityHigh, model.SeverityMedium, model.SeverityLow} {
		rows = append(rows, []any{fmt.Sprintf("Severity %s", sev), result.Summary.BySeverity[sev]})
	}
	return Table{Name: SheetSummary, Header: []string{"Metric", "Value"}, Rows: rows}
}

func matchedTable(records []model.ReconciledRecord) Table {
	t := Table{
		Name: SheetMatched,
		Header: []string{
			"SKU", "Store Name", "Catalog Name", "Provenance", "Store Price", "Sale Price",
			"Catalog Price", "Rule", "Expected", "Difference %", "Within Tolerance",
		},
	}
	for _, r := range records {
		sale := ""
		if r.Store.SalePrice.Valid {
			sale = r.Store.SalePrice.Decimal.StringFixed(2)
		}
		rule, expected, diffPct, within := "", "", "", ""
		if v := r.Verdict; v != nil {
			rule = string(v.Rule)
			if v.Expected.Valid {
				expected = v.Expected.Decimal.StringFixed(2)
			}
			diffPct = v.DifferencePercent.StringFixed(1)
			within = yesNo(v.WithinTolerance)
		}
		t.Rows = append(t.Rows, []any{
			r.Identifier, r.Store.Name, r.Catalog.Name, string(r.Provenance),
			r.Store.RegularPrice.InexactFloat64(), sale, r.Catalog.RetailPrice.InexactFloat64(),
			rule, expected, diffPct, within,
		})
	}
	return t
}

func unmatchedTable(m match.Result) Table {
	t := Table{Name: SheetUnmatched, Header: []string{"Side", "Identifier", "Name", "Price"}}
	for _, s := range m.UnmatchedStore {
		t.Rows = append(t.Rows, []any{"store", s.Identifier, s.Name, s.RegularPrice.InexactFloat64()})
	}
	for _, c := range m.UnmatchedCatalog {
		t.Rows = append(t.Rows, []any{"catalog", c.Identifier, c.Name, c.RetailPrice.InexactFloat64()})
	}
	return t
}

func anomalyTable(anoms []model.Anomaly) Table {
	t := Table{
		Name:   SheetAnomalies,
		Header: []string{"Severity", "SKU", "Type", "Description", "Suggested Fix", "Auto-fixable", "Source"},
	}
	for _, a := range anoms {
		t.Rows = append(t.Rows, []any{
			string(a.Severity), a.Identifier, string(a.Type), a.Description, a.SuggestedFix,
			yesNo(a.AutoFixable), a.Source,
		})
	}
	return t
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
