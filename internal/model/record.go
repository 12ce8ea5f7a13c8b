// Package model defines the core domain models used throughout the application.
package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// StockStatus is the storefront's availability flag.
type StockStatus string

// Stock status constants.
const (
	StockInStock    StockStatus = "in_stock"
	StockOutOfStock StockStatus = "out_of_stock"
)

// ProductKind distinguishes purchasable records from variant containers.
type ProductKind string

// Product kind constants.
const (
	KindSimple    ProductKind = "simple"
	KindVariable  ProductKind = "variable"
	KindVariation ProductKind = "variation"
)

// CatalogRecord is an ERP inventory row. It is never mutated during a pass.
type CatalogRecord struct {
	Identifier      string          `json:"identifier" validate:"required"`
	Name            string          `json:"name"`
	RetailPrice     decimal.Decimal `json:"retail_price" validate:"gte=0"`
	WholesalePrice  decimal.Decimal `json:"wholesale_price" validate:"gte=0"`
	DiscountPercent decimal.Decimal `json:"discount_percent" validate:"gte=0,lte=100"`
	Quantity        decimal.Decimal `json:"quantity"`
}

// StoreRecord is a storefront product. Identifier may be empty.
type StoreRecord struct {
	SalePrice        decimal.NullDecimal `json:"sale_price" validate:"omitempty,gte=0"`
	StockQuantity    *int                `json:"stock_quantity,omitempty"`
	Identifier       string              `json:"identifier"`
	Name             string              `json:"name"`
	StockStatus      StockStatus         `json:"stock_status" validate:"oneof=in_stock out_of_stock"`
	Description      string              `json:"description"`
	ShortDescription string              `json:"short_description"`
	ExternalRef      string              `json:"external_ref"`
	ParentRef        string              `json:"parent_ref,omitempty"`
	Kind             ProductKind         `json:"kind" validate:"omitempty,oneof=simple variable variation"`
	Categories       []string            `json:"categories"`
	RegularPrice     decimal.Decimal     `json:"regular_price" validate:"gte=0"`
	UnitsSold        int                 `json:"units_sold" validate:"gte=0"`
}

// IsContainer reports whether the record only groups variations and cannot be sold itself.
func (s StoreRecord) IsContainer() bool {
	return s.Kind == KindVariable
}

// HasSalePrice reports whether a positive sale price is set.
func (s StoreRecord) HasSalePrice() bool {
	return s.SalePrice.Valid && s.SalePrice.Decimal.IsPositive()
}

// CategoryLabel joins category labels into the free text used for keyword rules.
func (s StoreRecord) CategoryLabel() string {
	return strings.Join(s.Categories, " ")
}

// DiscountPercent returns the store-side discount implied by the sale price,
// rounded to two decimals. It is zero when either price is not positive.
func (s StoreRecord) DiscountPercent() decimal.Decimal {
	if !s.HasSalePrice() || !s.RegularPrice.IsPositive() {
		return decimal.Zero
	}
	ratio := s.SalePrice.Decimal.Div(s.RegularPrice)
	return decimal.NewFromInt(1).Sub(ratio).Mul(decimal.NewFromInt(100)).Round(2)
}
