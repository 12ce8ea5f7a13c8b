// Package engine runs reconciliation passes: matching, price evaluation,
// anomaly detection and the hand-off to the approval workflow.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/catalog-bridge/internal/anomaly"
	"github.com/Veraticus/catalog-bridge/internal/approval"
	"github.com/Veraticus/catalog-bridge/internal/match"
	"github.com/Veraticus/catalog-bridge/internal/model"
	"github.com/Veraticus/catalog-bridge/internal/pricing"
	"github.com/Veraticus/catalog-bridge/internal/service"
)

// ErrNilSnapshot is returned when Run is called without input data.
var ErrNilSnapshot = errors.New("snapshot is nil")

// MatchStore supplies operator-confirmed pairings.
type MatchStore interface {
	GetConfirmedMatches(ctx context.Context) ([]model.ConfirmedMatch, error)
}

// Config holds configuration options for the engine.
type Config struct {
	Fuzzy        match.Options
	FuzzyEnabled bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Fuzzy:        match.DefaultOptions(),
		FuzzyEnabled: true,
	}
}

// Engine orchestrates one reconciliation pass over immutable snapshots.
type Engine struct {
	pricing   *pricing.Engine
	ratios    pricing.RatioLookup
	detector  *anomaly.Detector
	matches   MatchStore
	now       func() time.Time
	observers []PassObserver
	config    Config
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMatchStore makes Reconcile apply confirmed pairings from ms.
func WithMatchStore(ms MatchStore) Option {
	return func(e *Engine) { e.matches = ms }
}

// WithDetector replaces the rule-only anomaly detector.
func WithDetector(d *anomaly.Detector) Option {
	return func(e *Engine) { e.detector = d }
}

// WithObserver registers a pass observer.
func WithObserver(o PassObserver) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine. ratios may be nil when no manual ratios exist.
func New(prices *pricing.Engine, ratios pricing.RatioLookup, config Config, opts ...Option) *Engine {
	e := &Engine{
		pricing:  prices,
		ratios:   ratios,
		detector: anomaly.NewDetector(),
		now:      time.Now,
		config:   config,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile pairs the two catalogs, applying confirmed pairings first when a
// match store is configured.
func (e *Engine) Reconcile(ctx context.Context, store []model.StoreRecord, catalog []model.CatalogRecord) (match.Result, error) {
	var confirmed []model.ConfirmedMatch
	if e.matches != nil {
		var err error
		confirmed, err = e.matches.GetConfirmedMatches(ctx)
		if err != nil {
			return match.Result{}, fmt.Errorf("failed to load confirmed matches: %w", err)
		}
	}

	result := match.MatchWithOverrides(store, catalog, confirmed)
	for _, w := range result.Warnings {
		slog.Warn("Data quality warning", "kind", w.Kind, "identifier", w.Identifier, "detail", w.Detail)
	}
	return result, nil
}

// EvaluatePrices attaches a price verdict to every record.
func (e *Engine) EvaluatePrices(records []model.ReconciledRecord) []model.ReconciledRecord {
	return e.pricing.EvaluateAll(records, e.ratios)
}

// DetectAnomalies runs every anomaly source over the records.
func (e *Engine) DetectAnomalies(ctx context.Context, records []model.ReconciledRecord) []model.Anomaly {
	return e.detector.Detect(ctx, records)
}

// Run executes a full pass and notifies observers. Observer failures are
// logged and do not fail the pass.
func (e *Engine) Run(ctx context.Context, snap *Snapshot) (*PassResult, error) {
	if snap == nil {
		return nil, ErrNilSnapshot
	}

	result := &PassResult{
		ID:           uuid.NewString(),
		StartedAt:    e.now(),
		StoreCount:   len(snap.Store),
		CatalogCount: len(snap.Catalog),
	}
	slog.Info("Starting reconciliation pass",
		"pass_id", result.ID,
		"store_records", result.StoreCount,
		"catalog_records", result.CatalogCount)

	matched, err := e.Reconcile(ctx, snap.Store, snap.Catalog)
	if err != nil {
		return nil, err
	}
	result.Match = matched

	if e.config.FuzzyEnabled && len(matched.UnmatchedStore) > 0 && len(matched.UnmatchedCatalog) > 0 {
		candidates, err := match.FuzzyMatch(ctx, matched.UnmatchedStore, matched.UnmatchedCatalog, e.config.Fuzzy)
		if err != nil {
			return nil, fmt.Errorf("fuzzy matching interrupted: %w", err)
		}
		result.Candidates = candidates
	}

	result.Records = e.EvaluatePrices(matched.Matched)
	result.Anomalies = e.DetectAnomalies(ctx, result.Records)
	result.Summary = anomaly.Summarize(result.Anomalies)
	result.FinishedAt = e.now()

	slog.Info("Reconciliation pass complete",
		"pass_id", result.ID,
		"matched", len(matched.Matched),
		"unmatched_store", len(matched.UnmatchedStore),
		"unmatched_catalog", len(matched.UnmatchedCatalog),
		"fuzzy_candidates", len(result.Candidates),
		"anomalies", result.Summary.Total)

	for _, o := range e.observers {
		if err := o.PassCompleted(ctx, result); err != nil {
			slog.Warn("Pass observer failed", "pass_id", result.ID, "error", err)
		}
	}
	return result, nil
}

// Plan binds a pass's records to a new approval workflow loaded with the
// pass's fixable anomalies. writer may be nil to keep changes local.
func (e *Engine) Plan(result *PassResult, writer approval.StoreWriter, generator approval.Generator, retry service.RetryOptions, opts approval.Options) *ActionPlan {
	records := approval.NewRecordSet(result.Records)
	wf := approval.NewWorkflow(approval.NewRecordExecutor(records, writer, generator, retry), opts)
	wf.Load(result.Anomalies)
	return &ActionPlan{Workflow: wf, Records: records}
}

// ApplyApproved executes the plan's approved actions.
func (e *Engine) ApplyApproved(ctx context.Context, plan *ActionPlan) ([]model.ActionResult, error) {
	results, err := plan.Workflow.ApplyApproved(ctx)
	if err != nil {
		return nil, err
	}

	var applied, failed int
	for _, r := range results {
		switch r.Status {
		case model.ActionApplied:
			applied++
		case model.ActionFailed:
			failed++
		}
	}
	slog.Info("Applied approved actions", "applied", applied, "failed", failed, "total", len(results))
	return results, nil
}
