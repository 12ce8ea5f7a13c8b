package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS confirmed_matches (
					catalog_identifier TEXT PRIMARY KEY,
					store_identifier TEXT NOT NULL,
					store_ref TEXT NOT NULL DEFAULT '',
					provenance TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					matched_by TEXT NOT NULL DEFAULT '',
					matched_at DATETIME NOT NULL
				)`,
				`CREATE UNIQUE INDEX idx_confirmed_matches_store ON confirmed_matches(store_identifier)`,

				`CREATE TABLE IF NOT EXISTS action_log (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					action_id TEXT NOT NULL,
					identifier TEXT NOT NULL,
					kind TEXT NOT NULL,
					status TEXT NOT NULL,
					error TEXT NOT NULL DEFAULT '',
					changes TEXT NOT NULL DEFAULT '[]',
					applied_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_action_log_identifier ON action_log(identifier)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Add price history",
		Up: func(tx *sql.Tx) error {
			// Prices are stored as decimal strings to avoid float rounding.
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS price_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					identifier TEXT NOT NULL,
					pass_id TEXT NOT NULL,
					regular_price TEXT NOT NULL,
					sale_price TEXT NOT NULL DEFAULT '',
					catalog_price TEXT NOT NULL,
					recorded_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_price_history_identifier ON price_history(identifier, recorded_at)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Add pass log",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS passes (
					id TEXT PRIMARY KEY,
					started_at DATETIME NOT NULL,
					finished_at DATETIME NOT NULL,
					store_count INTEGER NOT NULL DEFAULT 0,
					catalog_count INTEGER NOT NULL DEFAULT 0,
					matched INTEGER NOT NULL DEFAULT 0,
					unmatched_store INTEGER NOT NULL DEFAULT 0,
					unmatched_catalog INTEGER NOT NULL DEFAULT 0,
					skipped INTEGER NOT NULL DEFAULT 0,
					warnings INTEGER NOT NULL DEFAULT 0,
					anomalies INTEGER NOT NULL DEFAULT 0,
					auto_fixable INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_passes_started_at ON passes(started_at)`,
			})
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
