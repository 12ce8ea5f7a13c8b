package approval

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Veraticus/catalog-bridge/internal/common"
	"github.com/Veraticus/catalog-bridge/internal/model"
	"github.com/Veraticus/catalog-bridge/internal/service"
)

// StoreWriter pushes changes to the storefront. Implementations wrap the
// storefront API client; a nil writer keeps changes local to the record set.
type StoreWriter interface {
	UpdateProduct(ctx context.Context, ref string, changes []model.Change) error
	DeleteProduct(ctx context.Context, ref string) error
}

// Generator writes product copy for description fixes.
type Generator interface {
	Generate(ctx context.Context, rec model.ReconciledRecord, kind model.FixKind) (string, error)
}

// RecordSet is the mutable reconciled record set for a pass. Mutations of
// one identifier are serialized; different identifiers proceed in parallel.
type RecordSet struct {
	records map[string]*model.ReconciledRecord
	locks   map[string]*sync.Mutex
	order   []string
	mu      sync.Mutex
}

// NewRecordSet copies records into a set keyed by identifier.
func NewRecordSet(records []model.ReconciledRecord) *RecordSet {
	s := &RecordSet{
		records: make(map[string]*model.ReconciledRecord, len(records)),
		locks:   make(map[string]*sync.Mutex, len(records)),
	}
	for i := range records {
		rec := records[i]
		if _, dup := s.records[rec.Identifier]; !dup {
			s.order = append(s.order, rec.Identifier)
		}
		s.records[rec.Identifier] = &rec
	}
	return s
}

// Get returns a copy of the record for identifier.
func (s *RecordSet) Get(identifier string) (model.ReconciledRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[identifier]
	if !ok {
		return model.ReconciledRecord{}, false
	}
	return *rec, true
}

// Records returns copies of all live records in their original order.
func (s *RecordSet) Records() []model.ReconciledRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ReconciledRecord, 0, len(s.records))
	for _, id := range s.order {
		if rec, ok := s.records[id]; ok {
			out = append(out, *rec)
		}
	}
	return out
}

func (s *RecordSet) lockFor(identifier string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[identifier]
	if !ok {
		l = &sync.Mutex{}
		s.locks[identifier] = l
	}
	return l
}

// Mutate runs fn on a copy of the record while holding the identifier's lock.
// The copy replaces the stored record only if fn succeeds. When fn reports
// deleted, the record is removed instead.
func (s *RecordSet) Mutate(identifier string, fn func(rec *model.ReconciledRecord) (deleted bool, err error)) error {
	l := s.lockFor(identifier)
	l.Lock()
	defer l.Unlock()

	cur, ok := s.Get(identifier)
	if !ok {
		return fmt.Errorf("record %s: %w", identifier, common.ErrNotFound)
	}
	deleted, err := fn(&cur)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if deleted {
		delete(s.records, identifier)
		return nil
	}
	s.records[identifier] = &cur
	return nil
}

// RecordExecutor applies fixes to a RecordSet and, when configured, the storefront.
type RecordExecutor struct {
	records   *RecordSet
	writer    StoreWriter
	generator Generator
	retry     service.RetryOptions
}

// NewRecordExecutor creates an executor. writer may be nil; generator defaults
// to TextGenerator.
func NewRecordExecutor(records *RecordSet, writer StoreWriter, generator Generator, retry service.RetryOptions) *RecordExecutor {
	if generator == nil {
		generator = TextGenerator{}
	}
	return &RecordExecutor{records: records, writer: writer, generator: generator, retry: retry}
}

// Execute performs one action.
func (e *RecordExecutor) Execute(ctx context.Context, action model.PendingAction) ([]model.Change, error) {
	var changes []model.Change
	err := e.records.Mutate(action.Identifier, func(rec *model.ReconciledRecord) (bool, error) {
		if action.Fix.Kind == model.FixDeleteProduct {
			if err := e.push(ctx, func() error { return e.writer.DeleteProduct(ctx, rec.Store.ExternalRef) }); err != nil {
				return false, err
			}
			changes = []model.Change{{Field: "product", OldValue: rec.Store.ExternalRef, NewValue: ""}}
			return true, nil
		}

		c, err := e.applyFix(ctx, rec, action.Fix)
		if err != nil {
			return false, err
		}
		if len(c) == 0 {
			return false, nil
		}
		if err := e.push(ctx, func() error { return e.writer.UpdateProduct(ctx, rec.Store.ExternalRef, c) }); err != nil {
			return false, err
		}
		changes = c
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

func (e *RecordExecutor) push(ctx context.Context, op func() error) error {
	if e.writer == nil {
		return nil
	}
	return common.WithRetry(ctx, op, e.retry)
}

// applyFix mutates rec in place and returns the field-level changes.
func (e *RecordExecutor) applyFix(ctx context.Context, rec *model.ReconciledRecord, fix model.Fix) ([]model.Change, error) {
	s := &rec.Store
	switch fix.Kind {
	case model.FixSetRegularPrice:
		if !fix.Price.Valid {
			return nil, model.NewValidationError("price", "", "fix carries no price")
		}
		old := s.RegularPrice
		s.RegularPrice = fix.Price.Decimal
		return []model.Change{{Field: "regular_price", OldValue: old.StringFixed(2), NewValue: fix.Price.Decimal.StringFixed(2)}}, nil

	case model.FixClearSalePrice:
		if !s.SalePrice.Valid {
			return nil, nil
		}
		old := s.SalePrice.Decimal.StringFixed(2)
		s.SalePrice.Valid = false
		return []model.Change{{Field: "sale_price", OldValue: old, NewValue: ""}}, nil

	case model.FixSetStockStatus:
		old := s.StockStatus
		s.StockStatus = fix.StockStatus
		return []model.Change{{Field: "stock_status", OldValue: string(old), NewValue: string(fix.StockStatus)}}, nil

	case model.FixChangeIdentifier:
		old := s.Identifier
		s.Identifier = fix.NewIdentifier
		return []model.Change{{Field: "sku", OldValue: old, NewValue: fix.NewIdentifier}}, nil

	case model.FixGenerateDescription, model.FixGenerateShortDescription:
		text, err := e.generator.Generate(ctx, *rec, fix.Kind)
		if err != nil {
			return nil, fmt.Errorf("failed to generate text: %w", err)
		}
		if fix.Kind == model.FixGenerateDescription {
			old := s.Description
			s.Description = text
			return []model.Change{{Field: "description", OldValue: old, NewValue: text}}, nil
		}
		old := s.ShortDescription
		s.ShortDescription = text
		return []model.Change{{Field: "short_description", OldValue: old, NewValue: text}}, nil

	default:
		return nil, fmt.Errorf("unsupported fix kind %q", fix.Kind)
	}
}

// TextGenerator builds descriptions from the record's own fields.
type TextGenerator struct{}

// Generate never fails.
func (TextGenerator) Generate(_ context.Context, rec model.ReconciledRecord, kind model.FixKind) (string, error) {
	name := strings.TrimSpace(rec.Store.Name)
	if name == "" {
		name = strings.TrimSpace(rec.Catalog.Name)
	}

	if kind == model.FixGenerateShortDescription {
		return fmt.Sprintf("%s (code %s)", name, rec.Identifier), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s, product code %s.", name, rec.Identifier)
	if len(rec.Store.Categories) > 0 {
		fmt.Fprintf(&b, " Category: %s.", strings.Join(rec.Store.Categories, ", "))
	}
	if rec.Catalog.Name != "" && rec.Catalog.Name != name {
		fmt.Fprintf(&b, " Catalog description: %s.", rec.Catalog.Name)
	}
	return b.String(), nil
}
