// Package anomaly detects pricing, content and stock problems in reconciled records.
package anomaly

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Veraticus/catalog-bridge/internal/model"
)

// Source produces anomalies for a set of reconciled records. The rule-based
// source is always present; model-backed sources can be registered alongside.
type Source interface {
	Name() string
	Detect(ctx context.Context, records []model.ReconciledRecord) ([]model.Anomaly, error)
}

// RuleSource runs the built-in deterministic rules.
type RuleSource struct{}

// Name identifies the source in anomaly output.
func (RuleSource) Name() string { return ruleSourceName }

// Detect never fails.
func (RuleSource) Detect(_ context.Context, records []model.ReconciledRecord) ([]model.Anomaly, error) {
	return runRules(records), nil
}

func runRules(records []model.ReconciledRecord) []model.Anomaly {
	var out []model.Anomaly
	for _, group := range ruleGroups {
		for _, rec := range records {
			for _, r := range group {
				if a, ok := r(rec); ok {
					out = append(out, a)
				}
			}
		}
	}
	return out
}

// Detector merges anomalies from all registered sources.
type Detector struct {
	sources []Source
}

// NewDetector creates a detector with the rule source followed by extra sources.
func NewDetector(extra ...Source) *Detector {
	sources := make([]Source, 0, len(extra)+1)
	sources = append(sources, RuleSource{})
	sources = append(sources, extra...)
	return &Detector{sources: sources}
}

// Detect runs every source, then deduplicates and ranks. A failing source is
// logged and skipped so the rule results still come through.
func (d *Detector) Detect(ctx context.Context, records []model.ReconciledRecord) []model.Anomaly {
	var all []model.Anomaly
	for _, src := range d.sources {
		found, err := src.Detect(ctx, records)
		if err != nil {
			slog.Warn("Anomaly source failed, skipping", "source", src.Name(), "error", err)
			continue
		}
		for i := range found {
			if found[i].Source == "" {
				found[i].Source = src.Name()
			}
		}
		all = append(all, found...)
	}
	return Rank(Deduplicate(all))
}

// DetectAll runs the built-in rules only. It is pure and idempotent.
func DetectAll(records []model.ReconciledRecord) []model.Anomaly {
	return Rank(Deduplicate(runRules(records)))
}

// Deduplicate keeps the first anomaly per (identifier, type).
func Deduplicate(anomalies []model.Anomaly) []model.Anomaly {
	seen := make(map[string]bool, len(anomalies))
	out := make([]model.Anomaly, 0, len(anomalies))
	for _, a := range anomalies {
		key := a.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

// Rank sorts by severity, most severe first, preserving detection order on ties.
func Rank(anomalies []model.Anomaly) []model.Anomaly {
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Severity.Rank() > anomalies[j].Severity.Rank()
	})
	return anomalies
}

// Summarize counts anomalies by severity and type.
func Summarize(anomalies []model.Anomaly) model.AnomalySummary {
	s := model.AnomalySummary{
		Total: len(anomalies),
		BySeverity: map[model.Severity]int{
			model.SeverityHigh:   0,
			model.SeverityMedium: 0,
			model.SeverityLow:    0,
		},
		ByType: make(map[model.AnomalyType]int),
	}
	for _, a := range anomalies {
		s.BySeverity[a.Severity]++
		s.ByType[a.Type]++
		if a.AutoFixable {
			s.AutoFixable++
		}
	}
	s.NeedsReview = s.Total - s.AutoFixable
	return s
}

// Filter returns anomalies at or above minSeverity, optionally auto-fixable only.
func Filter(anomalies []model.Anomaly, minSeverity model.Severity, autoFixableOnly bool) []model.Anomaly {
	out := make([]model.Anomaly, 0, len(anomalies))
	for _, a := range anomalies {
		if a.Severity.Rank() < minSeverity.Rank() {
			continue
		}
		if autoFixableOnly && !a.AutoFixable {
			continue
		}
		out = append(out, a)
	}
	return out
}
