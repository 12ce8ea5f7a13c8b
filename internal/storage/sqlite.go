package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/catalog-bridge/internal/model"
	"github.com/Veraticus/catalog-bridge/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// queryable is satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; one connection also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// inTx runs fn inside a transaction and commits when it succeeds.
func (s *SQLiteStorage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTransaction) SaveConfirmedMatch(ctx context.Context, match model.ConfirmedMatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateConfirmedMatch(match); err != nil {
		return err
	}
	return t.storage.saveConfirmedMatchTx(ctx, t.tx, match)
}

func (t *sqliteTransaction) GetConfirmedMatches(ctx context.Context) ([]model.ConfirmedMatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getConfirmedMatchesTx(ctx, t.tx)
}

func (t *sqliteTransaction) DeleteConfirmedMatch(ctx context.Context, catalogIdentifier string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(catalogIdentifier, "catalogIdentifier"); err != nil {
		return err
	}
	return t.storage.deleteConfirmedMatchTx(ctx, t.tx, catalogIdentifier)
}

func (t *sqliteTransaction) RecordAction(ctx context.Context, action model.PendingAction, result model.ActionResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateActionResult(result); err != nil {
		return err
	}
	return t.storage.recordActionTx(ctx, t.tx, action, result)
}

func (t *sqliteTransaction) GetActionLog(ctx context.Context, identifier string, limit int) ([]service.ActionLogEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getActionLogTx(ctx, t.tx, identifier, limit)
}

func (t *sqliteTransaction) RecordPrices(ctx context.Context, passID string, records []model.ReconciledRecord, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(passID, "passID"); err != nil {
		return err
	}
	return t.storage.recordPricesTx(ctx, t.tx, passID, records, at)
}

func (t *sqliteTransaction) GetPriceHistory(ctx context.Context, identifier string) ([]service.PricePoint, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(identifier, "identifier"); err != nil {
		return nil, err
	}
	return t.storage.getPriceHistoryTx(ctx, t.tx, identifier)
}

func (t *sqliteTransaction) SavePass(ctx context.Context, pass service.PassSummary) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePass(pass); err != nil {
		return err
	}
	return t.storage.savePassTx(ctx, t.tx, pass)
}

func (t *sqliteTransaction) GetRecentPasses(ctx context.Context, limit int) ([]service.PassSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getRecentPassesTx(ctx, t.tx, limit)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}
