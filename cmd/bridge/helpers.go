package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/Veraticus/catalog-bridge/internal/common"
	"github.com/Veraticus/catalog-bridge/internal/config"
	"github.com/Veraticus/catalog-bridge/internal/engine"
	"github.com/Veraticus/catalog-bridge/internal/pricing"
	"github.com/Veraticus/catalog-bridge/internal/ratio"
	"github.com/Veraticus/catalog-bridge/internal/service"
	"github.com/Veraticus/catalog-bridge/internal/source"
	"github.com/Veraticus/catalog-bridge/internal/storage"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// errMissingSources is returned when a pass is requested without both exports.
var errMissingSources = fmt.Errorf("%w: both --store and --catalog (or sources.store_path and sources.catalog_path) are required", common.ErrMissingConfig)

// loadSettings reads the typed settings from the global viper instance.
func loadSettings() (*config.Settings, error) {
	return config.Load(viper.GetViper())
}

// initStorage opens the journal database and brings its schema up to date.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// session is the set of long-lived collaborators a command works with.
type session struct {
	settings *config.Settings
	fs       afero.Fs
	storage  *storage.SQLiteStorage
	ratios   *ratio.Store
	engine   *engine.Engine
}

// openSession loads settings, the journal, the ratio file and the pricing
// rules, and wires them into a reconciliation engine.
func openSession(ctx context.Context) (*session, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}

	fs := afero.NewOsFs()

	ratios, err := ratio.Open(fs, settings.Ratios.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ratio file: %w", err)
	}

	rules, err := pricing.LoadRules(fs, settings.Rules.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing rules: %w", err)
	}
	prices, err := pricing.NewEngine(rules)
	if err != nil {
		return nil, err
	}

	store, err := initStorage(ctx, settings.Database.Path)
	if err != nil {
		return nil, err
	}

	eng := engine.New(prices, ratios, engine.Config{
		Fuzzy:        settings.Matching.FuzzyOptions(),
		FuzzyEnabled: settings.Matching.FuzzyEnabled,
	},
		engine.WithMatchStore(store),
		engine.WithObserver(engine.NewJournal(store)),
	)

	return &session{
		settings: settings,
		fs:       fs,
		storage:  store,
		ratios:   ratios,
		engine:   eng,
	}, nil
}

// Close releases the journal database.
func (s *session) Close() {
	if err := s.storage.Close(); err != nil {
		slog.Warn("Failed to close storage", "error", err)
	}
}

// runPass loads both exports and runs one reconciliation pass over them.
func (s *session) runPass(ctx context.Context) (*engine.PassResult, error) {
	src := s.settings.Sources
	if src.StorePath == "" || src.CatalogPath == "" {
		return nil, common.NewUserError("Nothing to reconcile", errMissingSources)
	}

	snap, err := source.LoadSnapshot(ctx,
		source.NewStoreFile(s.fs, src.StorePath),
		source.NewCatalogFile(s.fs, src.CatalogPath),
	)
	if err != nil {
		return nil, err
	}

	return s.engine.Run(ctx, snap)
}

// retryOptions is the retry policy for store writes issued by the CLI.
func retryOptions() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
	}
}

// parsePair splits "KEY=VALUE" arguments such as "AG900=12.50".
func parsePair(arg string) (key, value string, err error) {
	key, value, ok := strings.Cut(arg, "=")
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if !ok || key == "" || value == "" {
		return "", "", fmt.Errorf("invalid pair %q: expected KEY=VALUE", arg)
	}
	return key, value, nil
}

// parsePrice parses a non-negative euro amount, accepting a decimal comma.
func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid price %q: must not be negative", s)
	}
	return d, nil
}
