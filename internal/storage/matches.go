package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/catalog-bridge/internal/common"
	"github.com/Veraticus/catalog-bridge/internal/model"
)

// SaveConfirmedMatch stores an operator-confirmed pairing. A catalog identifier
// or store identifier that was already paired is re-pointed, so pairs stay
// one-to-one on both sides.
func (s *SQLiteStorage) SaveConfirmedMatch(ctx context.Context, match model.ConfirmedMatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateConfirmedMatch(match); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.saveConfirmedMatchTx(ctx, tx, match)
	})
}

func (s *SQLiteStorage) saveConfirmedMatchTx(ctx context.Context, q queryable, match model.ConfirmedMatch) error {
	if match.MatchedAt.IsZero() {
		match.MatchedAt = time.Now()
	}
	if match.Provenance == "" {
		match.Provenance = model.ProvenanceManual
	}

	if _, err := q.ExecContext(ctx, `
		DELETE FROM confirmed_matches
		WHERE store_identifier = ? AND catalog_identifier != ?
	`, match.StoreIdentifier, match.CatalogIdentifier); err != nil {
		return fmt.Errorf("failed to release previous pairing: %w", err)
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO confirmed_matches (catalog_identifier, store_identifier, store_ref, provenance, confidence, matched_by, matched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(catalog_identifier) DO UPDATE SET
			store_identifier = excluded.store_identifier,
			store_ref = excluded.store_ref,
			provenance = excluded.provenance,
			confidence = excluded.confidence,
			matched_by = excluded.matched_by,
			matched_at = excluded.matched_at
	`, match.CatalogIdentifier, match.StoreIdentifier, match.StoreRef, string(match.Provenance),
		match.Confidence, match.MatchedBy, match.MatchedAt)
	if err != nil {
		return fmt.Errorf("failed to save confirmed match: %w", err)
	}
	return nil
}

// GetConfirmedMatches returns every confirmed pairing, oldest first.
func (s *SQLiteStorage) GetConfirmedMatches(ctx context.Context) ([]model.ConfirmedMatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getConfirmedMatchesTx(ctx, s.db)
}

func (s *SQLiteStorage) getConfirmedMatchesTx(ctx context.Context, q queryable) ([]model.ConfirmedMatch, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT catalog_identifier, store_identifier, store_ref, provenance, confidence, matched_by, matched_at
		FROM confirmed_matches
		ORDER BY matched_at, catalog_identifier
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query confirmed matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []model.ConfirmedMatch
	for rows.Next() {
		var m model.ConfirmedMatch
		var provenance string
		if err := rows.Scan(&m.CatalogIdentifier, &m.StoreIdentifier, &m.StoreRef, &provenance,
			&m.Confidence, &m.MatchedBy, &m.MatchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan confirmed match: %w", err)
		}
		m.Provenance = model.Provenance(provenance)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// DeleteConfirmedMatch forgets the pairing of a catalog identifier.
func (s *SQLiteStorage) DeleteConfirmedMatch(ctx context.Context, catalogIdentifier string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(catalogIdentifier, "catalogIdentifier"); err != nil {
		return err
	}
	return s.deleteConfirmedMatchTx(ctx, s.db, catalogIdentifier)
}

func (s *SQLiteStorage) deleteConfirmedMatchTx(ctx context.Context, q queryable, catalogIdentifier string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM confirmed_matches WHERE catalog_identifier = ?`, catalogIdentifier)
	if err != nil {
		return fmt.Errorf("failed to delete confirmed match: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("confirmed match %s: %w", catalogIdentifier, common.ErrNotFound)
	}
	return nil
}
