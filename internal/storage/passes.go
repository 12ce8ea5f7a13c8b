package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/catalog-bridge/internal/service"
)

// SavePass stores the summary of a finished reconciliation pass.
func (s *SQLiteStorage) SavePass(ctx context.Context, pass service.PassSummary) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePass(pass); err != nil {
		return err
	}
	return s.savePassTx(ctx, s.db, pass)
}

func (s *SQLiteStorage) savePassTx(ctx context.Context, q queryable, p service.PassSummary) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO passes (id, started_at, finished_at, store_count, catalog_count, matched,
			unmatched_store, unmatched_catalog, skipped, warnings, anomalies, auto_fixable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.StartedAt, p.FinishedAt, p.StoreCount, p.CatalogCount, p.Matched,
		p.UnmatchedStore, p.UnmatchedCatalog, p.Skipped, p.Warnings, p.Anomalies, p.AutoFixable)
	if err != nil {
		return fmt.Errorf("failed to save pass: %w", err)
	}
	return nil
}

// GetRecentPasses returns up to limit passes, newest first. A zero limit
// returns every pass.
func (s *SQLiteStorage) GetRecentPasses(ctx context.Context, limit int) ([]service.PassSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getRecentPassesTx(ctx, s.db, limit)
}

func (s *SQLiteStorage) getRecentPassesTx(ctx context.Context, q queryable, limit int) ([]service.PassSummary, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	query := `
		SELECT id, started_at, finished_at, store_count, catalog_count, matched,
			unmatched_store, unmatched_catalog, skipped, warnings, anomalies, auto_fixable
		FROM passes
		ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query passes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var passes []service.PassSummary
	for rows.Next() {
		var p service.PassSummary
		if err := rows.Scan(&p.ID, &p.StartedAt, &p.FinishedAt, &p.StoreCount, &p.CatalogCount, &p.Matched,
			&p.UnmatchedStore, &p.UnmatchedCatalog, &p.Skipped, &p.Warnings, &p.Anomalies, &p.AutoFixable); err != nil {
			return nil, fmt.Errorf("failed to scan pass: %w", err)
		}
		passes = append(passes, p)
	}
	return passes, rows.Err()
}
