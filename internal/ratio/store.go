// Package ratio persists operator-entered price multipliers per identifier.
package ratio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"

	"github.com/Veraticus/catalog-bridge/internal/common"
	"github.com/Veraticus/catalog-bridge/internal/model"
	"github.com/Veraticus/catalog-bridge/internal/normalize"
)

// entry is the on-disk shape: {"ID": {"ratio": 2.5, "description": "..."}}.
type entry struct {
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
	Ratio       json.Number `json:"ratio"`
	Description string      `json:"description"`
}

// Store is a file-backed ratio table. Every mutation rewrites the whole file
// through a temp file and rename, so readers never see a partial write.
type Store struct {
	fs     afero.Fs
	ratios map[string]model.ManualRatio
	now    func() time.Time
	path   string
	mu     sync.RWMutex
}

// Open loads the table at path. A missing file is an empty table.
func Open(fs afero.Fs, path string) (*Store, error) {
	s := &Store{
		fs:     fs,
		path:   path,
		ratios: make(map[string]model.ManualRatio),
		now:    time.Now,
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read ratios file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	raw := make(map[string]entry)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse ratios file %s: %w", path, err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		e := raw[k]
		r, err := decimal.NewFromString(e.Ratio.String())
		if err != nil || !r.IsPositive() {
			return nil, model.NewValidationError("ratio", k+"="+e.Ratio.String(), "ratio must be a positive number")
		}
		id := normalize.Normalize(k)
		if _, dup := s.ratios[id]; dup {
			slog.Warn("Duplicate ratio identifier after normalization, keeping last", "identifier", id, "raw", k)
		}
		mr := model.ManualRatio{Identifier: id, Ratio: r, Note: e.Description}
		if e.UpdatedAt != nil {
			mr.UpdatedAt = *e.UpdatedAt
		}
		s.ratios[id] = mr
	}

	slog.Debug("Loaded manual ratios", "path", path, "count", len(s.ratios))
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the ratio for an identifier.
func (s *Store) Get(identifier string) (model.ManualRatio, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.ratios[normalize.Normalize(identifier)]
	return r, ok
}

// Set creates or replaces a ratio. Zero and negative ratios are rejected.
func (s *Store) Set(identifier string, r decimal.Decimal, note string) error {
	id := normalize.Normalize(identifier)
	if id == "" {
		return model.NewValidationError("identifier", identifier, "must not be empty")
	}
	if !r.IsPositive() {
		return model.NewValidationError("ratio", r.String(), "must be strictly positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.ratios[id]
	s.ratios[id] = model.ManualRatio{Identifier: id, Ratio: r, Note: note, UpdatedAt: s.now().UTC()}
	if err := s.persistLocked(); err != nil {
		if had {
			s.ratios[id] = prev
		} else {
			delete(s.ratios, id)
		}
		return err
	}
	return nil
}

// Remove deletes a ratio. Removing an unknown identifier returns ErrNotFound.
func (s *Store) Remove(identifier string) error {
	id := normalize.Normalize(identifier)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.ratios[id]
	if !ok {
		return fmt.Errorf("ratio for %s: %w", id, common.ErrNotFound)
	}
	delete(s.ratios, id)
	if err := s.persistLocked(); err != nil {
		s.ratios[id] = prev
		return err
	}
	return nil
}

// List returns all ratios sorted by identifier.
func (s *Store) List() []model.ManualRatio {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ManualRatio, 0, len(s.ratios))
	for _, r := range s.ratios {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

func (s *Store) persistLocked() error {
	raw := make(map[string]entry, len(s.ratios))
	for id, r := range s.ratios {
		e := entry{Ratio: json.Number(r.Ratio.String()), Description: r.Note}
		if !r.UpdatedAt.IsZero() {
			t := r.UpdatedAt
			e.UpdatedAt = &t
		}
		raw[id] = e
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(raw); err != nil {
		return fmt.Errorf("failed to encode ratios: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create ratios directory: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, dir, ".ratios-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp ratios file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write temp ratios file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to sync temp ratios file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to close temp ratios file: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace ratios file: %w", err)
	}
	return nil
}
