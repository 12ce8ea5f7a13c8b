package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/Veraticus/catalog-bridge/internal/model"
)

// Outbox operations.
const (
	OpUpdate = "update"
	OpDelete = "delete"
)

// OutboxEntry is one storefront mutation waiting to be pushed.
type OutboxEntry struct {
	QueuedAt time.Time      `json:"queued_at"`
	Op       string         `json:"op"`
	Ref      string         `json:"ref"`
	Changes  []model.Change `json:"changes,omitempty"`
}

// Outbox records storefront writes as JSON lines for a sync job to push. It
// stands in for the storefront API client.
type Outbox struct {
	fs   afero.Fs
	now  func() time.Time
	path string
	mu   sync.Mutex
}

// NewOutbox creates an outbox appending to path on fs.
func NewOutbox(fs afero.Fs, path string) *Outbox {
	return &Outbox{fs: fs, path: path, now: time.Now}
}

// UpdateProduct queues field changes for the product with the given storefront ref.
func (o *Outbox) UpdateProduct(ctx context.Context, ref string, changes []model.Change) error {
	return o.append(ctx, OutboxEntry{Op: OpUpdate, Ref: ref, Changes: changes})
}

// DeleteProduct queues a deletion.
func (o *Outbox) DeleteProduct(ctx context.Context, ref string) error {
	return o.append(ctx, OutboxEntry{Op: OpDelete, Ref: ref})
}

func (o *Outbox) append(ctx context.Context, e OutboxEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.Ref == "" {
		return fmt.Errorf("outbox %s: empty product ref", e.Op)
	}
	e.QueuedAt = o.now().UTC()
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode outbox entry: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if dir := filepath.Dir(o.path); dir != "." {
		if err := o.fs.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create outbox directory: %w", err)
		}
	}
	f, err := o.fs.OpenFile(o.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open outbox: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append to outbox: %w", err)
	}
	return f.Close()
}

// ReadOutbox returns every queued entry in order.
func ReadOutbox(fs afero.Fs, path string) ([]OutboxEntry, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var entries []OutboxEntry
	dec := json.NewDecoder(f)
	for dec.More() {
		var e OutboxEntry
		if err := dec.Decode(&e); err != nil {
			return entries, fmt.Errorf("failed to decode outbox entry %d: %w", len(entries), err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
