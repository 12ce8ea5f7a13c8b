package engine

import (
	"context"
	"fmt"

	"github.com/Veraticus/catalog-bridge/internal/service"
)

// Journal persists pass summaries and price snapshots.
type Journal struct {
	storage service.Storage
}

// NewJournal creates a pass observer backed by storage.
func NewJournal(storage service.Storage) *Journal {
	return &Journal{storage: storage}
}

// PassCompleted writes the pass summary and the matched prices in one transaction.
func (j *Journal) PassCompleted(ctx context.Context, result *PassResult) error {
	tx, err := j.storage.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.SavePass(ctx, result.PassSummary()); err != nil {
		return fmt.Errorf("failed to save pass %s: %w", result.ID, err)
	}
	if len(result.Records) > 0 {
		if err := tx.RecordPrices(ctx, result.ID, result.Records, result.FinishedAt); err != nil {
			return fmt.Errorf("failed to record prices for pass %s: %w", result.ID, err)
		}
	}
	return tx.Commit()
}
