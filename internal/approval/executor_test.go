package approval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/catalog-bridge/internal/common"
	"github.com/Veraticus/catalog-bridge/internal/model"
	"github.com/Veraticus/catalog-bridge/internal/service"
)

type fakeWriter struct {
	updateErrs []error
	updates    map[string][]model.Change
	deleted    []string
	mu         sync.Mutex
}

func (w *fakeWriter) UpdateProduct(_ context.Context, ref string, changes []model.Change) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.updateErrs) > 0 {
		err := w.updateErrs[0]
		w.updateErrs = w.updateErrs[1:]
		if err != nil {
			return err
		}
	}
	if w.updates == nil {
		w.updates = make(map[string][]model.Change)
	}
	w.updates[ref] = append(w.updates[ref], changes...)
	return nil
}

func (w *fakeWriter) DeleteProduct(_ context.Context, ref string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deleted = append(w.deleted, ref)
	return nil
}

var fastRetry = service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func storeRecord(id string) model.ReconciledRecord {
	return model.ReconciledRecord{
		Identifier: id,
		Catalog:    model.CatalogRecord{Identifier: id, Name: "ΣΥΡΜΑ ΚΟΛΛΗΣΗΣ", RetailPrice: decimal.RequireFromString("45.50")},
		Store: model.StoreRecord{
			Identifier:   id,
			Name:         "Welding wire",
			ExternalRef:  "woo-" + id,
			RegularPrice: decimal.Zero,
			SalePrice:    decimal.NewNullDecimal(decimal.RequireFromString("3")),
			StockStatus:  model.StockInStock,
			Categories:   []string{"Welding"},
		},
	}
}

func action(id string, fix model.Fix) model.PendingAction {
	return model.PendingAction{ID: "act-" + id, Identifier: id, Fix: fix, State: model.ApprovalApproved}
}

func TestRecordExecutor_AppliesFixes(t *testing.T) {
	price := decimal.NewNullDecimal(decimal.RequireFromString("45.5"))
	tests := []struct {
		name   string
		fix    model.Fix
		field  string
		newVal string
		check  func(t *testing.T, rec model.ReconciledRecord)
	}{
		{
			name: "regular price", fix: model.Fix{Kind: model.FixSetRegularPrice, Price: price, PriceSource: model.PriceFromCatalog},
			field: "regular_price", newVal: "45.50",
			check: func(t *testing.T, rec model.ReconciledRecord) {
				assert.True(t, rec.Store.RegularPrice.Equal(price.Decimal))
			},
		},
		{
			name: "clear sale price", fix: model.Fix{Kind: model.FixClearSalePrice},
			field: "sale_price", newVal: "",
			check: func(t *testing.T, rec model.ReconciledRecord) {
				assert.False(t, rec.Store.HasSalePrice())
			},
		},
		{
			name: "stock status", fix: model.Fix{Kind: model.FixSetStockStatus, StockStatus: model.StockOutOfStock},
			field: "stock_status", newVal: "out_of_stock",
			check: func(t *testing.T, rec model.ReconciledRecord) {
				assert.Equal(t, model.StockOutOfStock, rec.Store.StockStatus)
			},
		},
		{
			name: "sku change", fix: model.Fix{Kind: model.FixChangeIdentifier, NewIdentifier: "00123"},
			field: "sku", newVal: "00123",
			check: func(t *testing.T, rec model.ReconciledRecord) {
				assert.Equal(t, "00123", rec.Store.Identifier)
			},
		},
		{
			name: "short description", fix: model.Fix{Kind: model.FixGenerateShortDescription},
			field: "short_description", newVal: "Welding wire (code 123)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := NewRecordSet([]model.ReconciledRecord{storeRecord("123")})
			writer := &fakeWriter{}
			exec := NewRecordExecutor(set, writer, nil, fastRetry)

			changes, err := exec.Execute(context.Background(), action("123", tt.fix))

			require.NoError(t, err)
			require.Len(t, changes, 1)
			assert.Equal(t, tt.field, changes[0].Field)
			assert.Equal(t, tt.newVal, changes[0].NewValue)
			assert.Equal(t, changes, writer.updates["woo-123"])

			rec, ok := set.Get("123")
			require.True(t, ok)
			if tt.check != nil {
				tt.check(t, rec)
			}
		})
	}
}

func TestRecordExecutor_Delete(t *testing.T) {
	set := NewRecordSet([]model.ReconciledRecord{storeRecord("1"), storeRecord("2")})
	writer := &fakeWriter{}
	exec := NewRecordExecutor(set, writer, nil, fastRetry)

	_, err := exec.Execute(context.Background(), action("1", model.Fix{Kind: model.FixDeleteProduct}))

	require.NoError(t, err)
	assert.Equal(t, []string{"woo-1"}, writer.deleted)
	_, ok := set.Get("1")
	assert.False(t, ok)
	assert.Len(t, set.Records(), 1)
}

func TestRecordExecutor_RetriesTransientWrites(t *testing.T) {
	set := NewRecordSet([]model.ReconciledRecord{storeRecord("1")})
	writer := &fakeWriter{updateErrs: []error{common.ErrStoreUnavailable, nil}}
	exec := NewRecordExecutor(set, writer, nil, fastRetry)

	_, err := exec.Execute(context.Background(), action("1", model.Fix{Kind: model.FixClearSalePrice}))

	require.NoError(t, err)
	assert.Len(t, writer.updates["woo-1"], 1)
}

func TestRecordExecutor_FailedWriteLeavesRecordUntouched(t *testing.T) {
	set := NewRecordSet([]model.ReconciledRecord{storeRecord("1")})
	writer := &fakeWriter{updateErrs: []error{errors.New("forbidden")}}
	exec := NewRecordExecutor(set, writer, nil, fastRetry)

	_, err := exec.Execute(context.Background(), action("1", model.Fix{Kind: model.FixClearSalePrice}))

	require.Error(t, err)
	rec, _ := set.Get("1")
	assert.True(t, rec.Store.HasSalePrice())
}

func TestRecordExecutor_UnknownIdentifier(t *testing.T) {
	exec := NewRecordExecutor(NewRecordSet(nil), nil, nil, fastRetry)
	_, err := exec.Execute(context.Background(), action("nope", model.Fix{Kind: model.FixClearSalePrice}))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRecordExecutor_LocalOnlyWithoutWriter(t *testing.T) {
	set := NewRecordSet([]model.ReconciledRecord{storeRecord("1")})
	exec := NewRecordExecutor(set, nil, nil, fastRetry)

	changes, err := exec.Execute(context.Background(), action("1", model.Fix{Kind: model.FixGenerateDescription}))

	require.NoError(t, err)
	require.Len(t, changes, 1)
	rec, _ := set.Get("1")
	assert.Equal(t, "Welding wire, product code 1. Category: Welding. Catalog description: ΣΥΡΜΑ ΚΟΛΛΗΣΗΣ.", rec.Store.Description)
}

func TestWorkflowWithRecordExecutor(t *testing.T) {
	set := NewRecordSet([]model.ReconciledRecord{storeRecord("1"), storeRecord("2")})
	w := NewWorkflow(NewRecordExecutor(set, nil, nil, fastRetry), Options{})
	w.Load([]model.Anomaly{
		{Identifier: "1", Type: model.AnomalyInvalidSalePrice, AutoFixable: true, Fix: &model.Fix{Kind: model.FixClearSalePrice}},
		{Identifier: "2", Type: model.AnomalyPriceZero, AutoFixable: true, Fix: &model.Fix{
			Kind: model.FixSetRegularPrice, PriceSource: model.PriceFromCatalog,
			Price: decimal.NewNullDecimal(decimal.RequireFromString("45.50")),
		}},
	})
	require.Equal(t, 2, w.ApproveAutoFixable())

	results, err := w.ApplyApproved(context.Background())

	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, model.ActionApplied, r.Status)
	}
	one, _ := set.Get("1")
	two, _ := set.Get("2")
	assert.False(t, one.Store.HasSalePrice())
	assert.Equal(t, "45.50", two.Store.RegularPrice.StringFixed(2))
}
