// Package source loads storefront and ERP catalog snapshots.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/catalog-bridge/internal/engine"
	"github.com/Veraticus/catalog-bridge/internal/model"
)

// StoreSource supplies storefront records. API clients and export files both
// satisfy it.
type StoreSource interface {
	Name() string
	FetchStore(ctx context.Context) ([]model.StoreRecord, error)
}

// CatalogSource supplies ERP catalog records.
type CatalogSource interface {
	Name() string
	FetchCatalog(ctx context.Context) ([]model.CatalogRecord, error)
}

// LoadSnapshot fetches both catalogs concurrently. Either failure cancels the
// other fetch and fails the load.
func LoadSnapshot(ctx context.Context, store StoreSource, catalog CatalogSource) (*engine.Snapshot, error) {
	snap := &engine.Snapshot{TakenAt: time.Now()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := store.FetchStore(gctx)
		if err != nil {
			return fmt.Errorf("store source %s: %w", store.Name(), err)
		}
		snap.Store = records
		return nil
	})
	g.Go(func() error {
		records, err := catalog.FetchCatalog(gctx)
		if err != nil {
			return fmt.Errorf("catalog source %s: %w", catalog.Name(), err)
		}
		snap.Catalog = records
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Info("Loaded snapshot",
		"store_source", store.Name(),
		"store_records", len(snap.Store),
		"catalog_source", catalog.Name(),
		"catalog_records", len(snap.Catalog))
	return snap, nil
}
