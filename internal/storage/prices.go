package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/catalog-bridge/internal/model"
	"github.com/Veraticus/catalog-bridge/internal/service"
)

// RecordPrices snapshots the storefront and catalog prices of every matched
// record for a pass.
func (s *SQLiteStorage) RecordPrices(ctx context.Context, passID string, records []model.ReconciledRecord, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(passID, "passID"); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.recordPricesTx(ctx, tx, passID, records, at)
	})
}

func (s *SQLiteStorage) recordPricesTx(ctx context.Context, q queryable, passID string, records []model.ReconciledRecord, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	for _, rec := range records {
		sale := ""
		if rec.Store.SalePrice.Valid {
			sale = rec.Store.SalePrice.Decimal.String()
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO price_history (identifier, pass_id, regular_price, sale_price, catalog_price, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, rec.Identifier, passID, rec.Store.RegularPrice.String(), sale, rec.Catalog.RetailPrice.String(), at); err != nil {
			return fmt.Errorf("failed to record price for %s: %w", rec.Identifier, err)
		}
	}
	return nil
}

// GetPriceHistory returns the recorded prices of an identifier, oldest first.
func (s *SQLiteStorage) GetPriceHistory(ctx context.Context, identifier string) ([]service.PricePoint, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(identifier, "identifier"); err != nil {
		return nil, err
	}
	return s.getPriceHistoryTx(ctx, s.db, identifier)
}

func (s *SQLiteStorage) getPriceHistoryTx(ctx context.Context, q queryable, identifier string) ([]service.PricePoint, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT pass_id, regular_price, sale_price, catalog_price, recorded_at
		FROM price_history
		WHERE identifier = ?
		ORDER BY recorded_at, id
	`, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var points []service.PricePoint
	for rows.Next() {
		var p service.PricePoint
		if err := rows.Scan(&p.PassID, &p.RegularPrice, &p.SalePrice, &p.CatalogPrice, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
