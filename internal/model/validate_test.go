package model

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain decimal", raw: "12.50", want: "12.5"},
		{name: "decimal comma", raw: "12,50", want: "12.5"},
		{name: "surrounding whitespace", raw: "  7 ", want: "7"},
		{name: "zero", raw: "0", want: "0"},
		{name: "empty", raw: "", wantErr: true},
		{name: "letters", raw: "abc", wantErr: true},
		{name: "negative", raw: "-1", wantErr: true},
		{name: "comma and dot", raw: "1.234,56", wantErr: true},
		{name: "two commas", raw: "1,2,3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice("regular_price", tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "regular_price", ve.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseOptionalPrice(t *testing.T) {
	got, err := ParseOptionalPrice("sale_price", "  ")
	require.NoError(t, err)
	assert.False(t, got.Valid)

	got, err = ParseOptionalPrice("sale_price", "3,20")
	require.NoError(t, err)
	assert.True(t, got.Valid)
	assert.Equal(t, "3.2", got.Decimal.String())

	_, err = ParseOptionalPrice("sale_price", "x")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCatalogRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  CatalogRecord
		wantErr bool
	}{
		{
			name:   "valid",
			record: CatalogRecord{Identifier: "A1", RetailPrice: decimal.RequireFromString("9.99")},
		},
		{
			name:    "missing identifier",
			record:  CatalogRecord{RetailPrice: decimal.NewFromInt(1)},
			wantErr: true,
		},
		{
			name:    "negative price",
			record:  CatalogRecord{Identifier: "A1", RetailPrice: decimal.NewFromInt(-1)},
			wantErr: true,
		},
		{
			name: "discount above 100",
			record: CatalogRecord{
				Identifier:      "A1",
				DiscountPercent: decimal.NewFromInt(150),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStoreRecord_Validate(t *testing.T) {
	valid := StoreRecord{
		Identifier:   "A1",
		RegularPrice: decimal.NewFromInt(10),
		StockStatus:  StockInStock,
	}
	require.NoError(t, valid.Validate())

	noStatus := valid
	noStatus.StockStatus = "maybe"
	assert.ErrorIs(t, noStatus.Validate(), ErrValidation)

	badSale := valid
	badSale.SalePrice = decimal.NullDecimal{Decimal: decimal.NewFromInt(-2), Valid: true}
	assert.ErrorIs(t, badSale.Validate(), ErrValidation)

	// An empty identifier is legal on the store side.
	noID := valid
	noID.Identifier = ""
	assert.NoError(t, noID.Validate())
}

func TestStoreRecord_DiscountPercent(t *testing.T) {
	rec := StoreRecord{
		RegularPrice: decimal.NewFromInt(100),
		SalePrice:    decimal.NullDecimal{Decimal: decimal.NewFromInt(25), Valid: true},
	}
	assert.Equal(t, "75", rec.DiscountPercent().String())

	rec.SalePrice = decimal.NullDecimal{}
	assert.True(t, rec.DiscountPercent().IsZero())

	rec.SalePrice = decimal.NullDecimal{Decimal: decimal.NewFromInt(5), Valid: true}
	rec.RegularPrice = decimal.Zero
	assert.True(t, rec.DiscountPercent().IsZero())
}

func TestFix_Destructive(t *testing.T) {
	assert.True(t, Fix{Kind: FixDeleteProduct}.Destructive())
	assert.True(t, Fix{Kind: FixChangeIdentifier}.Destructive())
	assert.True(t, Fix{Kind: FixSetRegularPrice, PriceSource: PriceFromOperator}.Destructive())
	assert.False(t, Fix{Kind: FixSetRegularPrice, PriceSource: PriceFromCatalog}.Destructive())
	assert.False(t, Fix{Kind: FixClearSalePrice}.Destructive())
}

func TestReconciledRecord_PriceMatches(t *testing.T) {
	rec := ReconciledRecord{
		Catalog: CatalogRecord{RetailPrice: decimal.RequireFromString("10.00")},
		Store:   StoreRecord{RegularPrice: decimal.RequireFromString("10.005")},
	}
	assert.True(t, rec.PriceMatches())

	rec.Store.RegularPrice = decimal.RequireFromString("10.02")
	assert.False(t, rec.PriceMatches())
}
