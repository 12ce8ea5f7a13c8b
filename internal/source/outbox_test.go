package source

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/catalog-bridge/internal/model"
)

func TestOutbox(t *testing.T) {
	fs := afero.NewMemMapFs()
	o := NewOutbox(fs, "spool/outbox.jsonl")
	o.now = func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	require.NoError(t, o.UpdateProduct(ctx, "101", []model.Change{{Field: "regular_price", OldValue: "0", NewValue: "2.40"}}))
	require.NoError(t, o.DeleteProduct(ctx, "202"))

	entries, err := ReadOutbox(fs, "spool/outbox.jsonl")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, OpUpdate, entries[0].Op)
	assert.Equal(t, "101", entries[0].Ref)
	assert.Equal(t, "2.40", entries[0].Changes[0].NewValue)
	assert.Equal(t, OpDelete, entries[1].Op)
	assert.Empty(t, entries[1].Changes)
	assert.Equal(t, 2026, entries[1].QueuedAt.Year())
}

func TestOutbox_ConcurrentWriters(t *testing.T) {
	fs := afero.NewMemMapFs()
	o := NewOutbox(fs, "outbox.jsonl")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, o.DeleteProduct(context.Background(), "ref"))
		}()
	}
	wg.Wait()

	entries, err := ReadOutbox(fs, "outbox.jsonl")
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestOutbox_Errors(t *testing.T) {
	o := NewOutbox(afero.NewMemMapFs(), "outbox.jsonl")
	assert.Error(t, o.DeleteProduct(context.Background(), ""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, o.DeleteProduct(ctx, "1"), context.Canceled)

	ro := NewOutbox(afero.NewReadOnlyFs(afero.NewMemMapFs()), "outbox.jsonl")
	assert.Error(t, ro.DeleteProduct(context.Background(), "1"))

	_, err := ReadOutbox(afero.NewMemMapFs(), "missing.jsonl")
	assert.Error(t, err)
}
