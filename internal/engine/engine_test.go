package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/catalog-bridge/internal/approval"
	"github.com/Veraticus/catalog-bridge/internal/model"
	"github.com/Veraticus/catalog-bridge/internal/pricing"
	"github.com/Veraticus/catalog-bridge/internal/service"
	"github.com/Veraticus/catalog-bridge/internal/storage"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(i int) *int {
	return &i
}

type staticMatches []model.ConfirmedMatch

func (s staticMatches) GetConfirmedMatches(context.Context) ([]model.ConfirmedMatch, error) {
	return s, nil
}

type failingMatches struct{}

func (failingMatches) GetConfirmedMatches(context.Context) ([]model.ConfirmedMatch, error) {
	return nil, errors.New("database locked")
}

func storeItem(id, name, price string) model.StoreRecord {
	return model.StoreRecord{
		Identifier:       id,
		Name:             name,
		ExternalRef:      "woo-" + id,
		RegularPrice:     d(price),
		Description:      "A perfectly adequate product description.",
		ShortDescription: "Adequate product",
		StockStatus:      model.StockInStock,
		StockQuantity:    intPtr(20),
	}
}

func catalogItem(id, name, price string) model.CatalogRecord {
	return model.CatalogRecord{Identifier: id, Name: name, RetailPrice: d(price)}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	prices, err := pricing.NewEngine(pricing.DefaultRules())
	require.NoError(t, err)
	clock := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	opts = append([]Option{WithClock(func() time.Time { return clock })}, opts...)
	return New(prices, nil, DefaultConfig(), opts...)
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		Store: []model.StoreRecord{
			storeItem("00123", "Welding helmet", "10"),
			storeItem("W1", "ΣΥΡΜΑ ΚΟΛΛΗΣΗΣ 15KG", "157.50"),
			storeItem("Z1", "Grinding disc", "0"),
			storeItem("", "Mystery item", "5"),
			storeItem("AG900", "Angle grinder 900W", "80"),
		},
		Catalog: []model.CatalogRecord{
			catalogItem("123", "ΚΡΑΝΟΣ", "10"),
			catalogItem("W1", "ΣΥΡΜΑ", "10.50"),
			catalogItem("Z1", "ΔΙΣΚΟΣ", "2.40"),
			catalogItem("AG-900", "Angle grinder 900W", "80"),
		},
	}
}

func TestRun(t *testing.T) {
	var observed *PassResult
	e := newTestEngine(t, WithObserver(ObserverFunc(func(_ context.Context, r *PassResult) error {
		observed = r
		return nil
	})))

	result, err := e.Run(context.Background(), testSnapshot())

	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Same(t, result, observed)
	assert.Equal(t, 5, result.StoreCount)
	assert.Equal(t, 4, result.CatalogCount)

	require.Len(t, result.Records, 3)
	byID := make(map[string]model.ReconciledRecord)
	for _, r := range result.Records {
		require.NotNil(t, r.Verdict)
		byID[r.Identifier] = r
	}
	assert.Equal(t, model.ProvenanceNormalized, byID["123"].Provenance)
	assert.Equal(t, model.RuleWeight, byID["W1"].Verdict.Rule)
	assert.True(t, byID["W1"].Verdict.WithinTolerance)

	require.Len(t, result.Match.UnmatchedStore, 2)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "AG-900", result.Candidates[0].Catalog.Identifier)

	require.NotEmpty(t, result.Anomalies)
	assert.Equal(t, model.AnomalyPriceZero, result.Anomalies[0].Type)
	assert.Equal(t, "Z1", result.Anomalies[0].Identifier)
	assert.Equal(t, result.Summary.Total, len(result.Anomalies))

	summary := result.PassSummary()
	assert.Equal(t, 3, summary.Matched)
	assert.Equal(t, 2, summary.UnmatchedStore)
	assert.Equal(t, 1, summary.UnmatchedCatalog)
	assert.Equal(t, 1, summary.Warnings)
}

func TestRun_NilSnapshot(t *testing.T) {
	_, err := newTestEngine(t).Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilSnapshot)
}

func TestRun_ObserverFailureDoesNotFailPass(t *testing.T) {
	e := newTestEngine(t, WithObserver(ObserverFunc(func(context.Context, *PassResult) error {
		return errors.New("disk full")
	})))
	_, err := e.Run(context.Background(), testSnapshot())
	assert.NoError(t, err)
}

func TestRun_CancelledDuringFuzzy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestEngine(t).Run(ctx, testSnapshot())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReconcile_AppliesConfirmedMatches(t *testing.T) {
	e := newTestEngine(t, WithMatchStore(staticMatches{
		{CatalogIdentifier: "AG-900", StoreIdentifier: "AG900", Confidence: 0.9},
	}))
	snap := testSnapshot()

	result, err := e.Reconcile(context.Background(), snap.Store, snap.Catalog)

	require.NoError(t, err)
	var manual []model.ReconciledRecord
	for _, r := range result.Matched {
		if r.Provenance == model.ProvenanceManual {
			manual = append(manual, r)
		}
	}
	require.Len(t, manual, 1)
	assert.Equal(t, "AG900", manual[0].Store.Identifier)
	assert.Empty(t, result.UnmatchedCatalog)
}

func TestReconcile_MatchStoreError(t *testing.T) {
	e := newTestEngine(t, WithMatchStore(failingMatches{}))
	_, err := e.Reconcile(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestPlanAndApply(t *testing.T) {
	e := newTestEngine(t)
	result, err := e.Run(context.Background(), testSnapshot())
	require.NoError(t, err)

	plan := e.Plan(result, nil, nil, service.RetryOptions{}, approval.Options{})
	require.Positive(t, plan.Workflow.ApproveAutoFixable())

	results, err := e.ApplyApproved(context.Background(), plan)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, model.ActionApplied, r.Status, "action %s on %s", r.Kind, r.Identifier)
	}

	fixed, ok := plan.Records.Get("Z1")
	require.True(t, ok)
	assert.True(t, fixed.Store.RegularPrice.Equal(d("2.40")))

	// The fixed records no longer trip the price rules on a re-check.
	again := e.DetectAnomalies(context.Background(), e.EvaluatePrices(plan.Records.Records()))
	for _, a := range again {
		assert.NotEqual(t, model.AnomalyPriceZero, a.Type)
	}
}

func TestJournal_PersistsPass(t *testing.T) {
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	e := newTestEngine(t, WithObserver(NewJournal(store)))
	result, err := e.Run(ctx, testSnapshot())
	require.NoError(t, err)

	passes, err := store.GetRecentPasses(ctx, 1)
	require.NoError(t, err)
	require.Len(t, passes, 1)
	assert.Equal(t, result.ID, passes[0].ID)
	assert.Equal(t, 3, passes[0].Matched)

	history, err := store.GetPriceHistory(ctx, "W1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "157.5", history[0].RegularPrice)
}
