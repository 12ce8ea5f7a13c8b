// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/catalog-bridge/internal/model"
)

// PassSummary is the persisted outline of one reconciliation pass.
type PassSummary struct {
	StartedAt        time.Time
	FinishedAt       time.Time
	ID               string
	StoreCount       int
	CatalogCount     int
	Matched          int
	UnmatchedStore   int
	UnmatchedCatalog int
	Skipped          int
	Warnings         int
	Anomalies        int
	AutoFixable      int
}

// ActionLogEntry is one journaled action outcome.
type ActionLogEntry struct {
	AppliedAt  time.Time
	ActionID   string
	Identifier string
	Kind       model.FixKind
	Status     model.ActionStatus
	Error      string
	Changes    []model.Change
}

// PricePoint is one recorded storefront price for an identifier.
type PricePoint struct {
	RecordedAt   time.Time
	PassID       string
	RegularPrice string
	SalePrice    string
	CatalogPrice string
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Confirmed match operations
	SaveConfirmedMatch(ctx context.Context, match model.ConfirmedMatch) error
	GetConfirmedMatches(ctx context.Context) ([]model.ConfirmedMatch, error)
	DeleteConfirmedMatch(ctx context.Context, catalogIdentifier string) error

	// Action journal
	RecordAction(ctx context.Context, action model.PendingAction, result model.ActionResult) error
	GetActionLog(ctx context.Context, identifier string, limit int) ([]ActionLogEntry, error)

	// Price history
	RecordPrices(ctx context.Context, passID string, records []model.ReconciledRecord, at time.Time) error
	GetPriceHistory(ctx context.Context, identifier string) ([]PricePoint, error)

	// Pass log
	SavePass(ctx context.Context, pass PassSummary) error
	GetRecentPasses(ctx context.Context, limit int) ([]PassSummary, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// RetryOptions configures retry behavior for remote writes.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
