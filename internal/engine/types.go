package engine

import (
	"context"
	"time"

	"github.com/Veraticus/catalog-bridge/internal/approval"
	"github.com/Veraticus/catalog-bridge/internal/match"
	"github.com/Veraticus/catalog-bridge/internal/model"
	"github.com/Veraticus/catalog-bridge/internal/service"
)

// Snapshot is the pair of catalogs captured at pass start.
type Snapshot struct {
	TakenAt time.Time
	Store   []model.StoreRecord
	Catalog []model.CatalogRecord
}

// PassResult is everything one pass produced.
type PassResult struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	Summary      model.AnomalySummary
	ID           string
	Match        match.Result
	Records      []model.ReconciledRecord
	Candidates   []match.Candidate
	Anomalies    []model.Anomaly
	StoreCount   int
	CatalogCount int
}

// PassSummary condenses the result for the pass log.
func (r *PassResult) PassSummary() service.PassSummary {
	return service.PassSummary{
		ID:               r.ID,
		StartedAt:        r.StartedAt,
		FinishedAt:       r.FinishedAt,
		StoreCount:       r.StoreCount,
		CatalogCount:     r.CatalogCount,
		Matched:          len(r.Match.Matched),
		UnmatchedStore:   len(r.Match.UnmatchedStore),
		UnmatchedCatalog: len(r.Match.UnmatchedCatalog),
		Skipped:          len(r.Match.Skipped),
		Warnings:         len(r.Match.Warnings),
		Anomalies:        r.Summary.Total,
		AutoFixable:      r.Summary.AutoFixable,
	}
}

// PassObserver is notified after every completed pass.
type PassObserver interface {
	PassCompleted(ctx context.Context, result *PassResult) error
}

// ObserverFunc adapts a function to PassObserver.
type ObserverFunc func(ctx context.Context, result *PassResult) error

// PassCompleted calls f.
func (f ObserverFunc) PassCompleted(ctx context.Context, result *PassResult) error {
	return f(ctx, result)
}

// ActionPlan is a pass's mutable record set with its approval workflow.
type ActionPlan struct {
	Workflow *approval.Workflow
	Records  *approval.RecordSet
}
