package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Severity ranks how urgently an anomaly needs attention.
type Severity string

const (
	// SeverityHigh indicates a problem that loses money or breaks the listing.
	SeverityHigh Severity = "high"
	// SeverityMedium indicates a problem worth reviewing soon.
	SeverityMedium Severity = "medium"
	// SeverityLow indicates cosmetic or content gaps.
	SeverityLow Severity = "low"
)

// Rank orders severities for sorting; higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AnomalyType is the fixed set of detected problem kinds.
type AnomalyType string

const (
	// AnomalyPriceZero flags a zero store price while the catalog has a positive one.
	AnomalyPriceZero AnomalyType = "price_zero"
	// AnomalyPriceMismatch flags store and catalog prices that disagree.
	AnomalyPriceMismatch AnomalyType = "price_mismatch"
	// AnomalyInvalidSalePrice flags a sale price above the regular price.
	AnomalyInvalidSalePrice AnomalyType = "invalid_sale_price"
	// AnomalyExtremeDiscount flags discounts above 70 percent.
	AnomalyExtremeDiscount AnomalyType = "extreme_discount"
	// AnomalyMissingName flags empty or very short product names.
	AnomalyMissingName AnomalyType = "missing_name"
	// AnomalyMissingDescription flags empty or very short long descriptions.
	AnomalyMissingDescription AnomalyType = "missing_description"
	// AnomalyMissingShortDescription flags empty or very short short descriptions.
	AnomalyMissingShortDescription AnomalyType = "missing_short_description"
	// AnomalyStockStatusMismatch flags a stock flag that contradicts the quantity.
	AnomalyStockStatusMismatch AnomalyType = "stock_status_mismatch"
	// AnomalyLowStockPopular flags best sellers running out.
	AnomalyLowStockPopular AnomalyType = "low_stock_popular"
	// AnomalyManualRatioRequired flags piece-sold items with no conversion ratio.
	AnomalyManualRatioRequired AnomalyType = "manual_ratio_required"
)

// FixKind names the side effect a fix performs.
type FixKind string

// Fix kind constants.
const (
	FixSetRegularPrice          FixKind = "set_regular_price"
	FixClearSalePrice           FixKind = "clear_sale_price"
	FixSetStockStatus           FixKind = "set_stock_status"
	FixGenerateDescription      FixKind = "generate_description"
	FixGenerateShortDescription FixKind = "generate_short_description"
	FixChangeIdentifier         FixKind = "change_sku"
	FixDeleteProduct            FixKind = "delete_product"
)

// PriceSource says where a price in a fix came from.
type PriceSource string

// Price source constants.
const (
	PriceFromCatalog  PriceSource = "catalog"
	PriceFromOperator PriceSource = "operator"
)

// Fix is the machine-readable side effect attached to an anomaly or operator action.
type Fix struct {
	Price         decimal.NullDecimal `json:"price,omitempty"`
	Kind          FixKind             `json:"kind"`
	PriceSource   PriceSource         `json:"price_source,omitempty"`
	StockStatus   StockStatus         `json:"stock_status,omitempty"`
	NewIdentifier string              `json:"new_identifier,omitempty"`
}

// Destructive reports whether the fix always requires operator confirmation.
func (f Fix) Destructive() bool {
	switch f.Kind {
	case FixDeleteProduct, FixChangeIdentifier:
		return true
	case FixSetRegularPrice:
		return f.PriceSource != PriceFromCatalog
	default:
		return false
	}
}

// Anomaly is one detected problem for one identifier.
type Anomaly struct {
	Fix          *Fix        `json:"fix,omitempty"`
	Identifier   string      `json:"identifier"`
	Type         AnomalyType `json:"type"`
	Severity     Severity    `json:"severity"`
	Description  string      `json:"description"`
	SuggestedFix string      `json:"suggested_fix"`
	Source       string      `json:"source"`
	AutoFixable  bool        `json:"auto_fixable"`
}

// Key identifies an anomaly for deduplication.
func (a Anomaly) Key() string {
	return fmt.Sprintf("%s|%s", a.Identifier, a.Type)
}

// AnomalySummary aggregates a detection run.
type AnomalySummary struct {
	BySeverity  map[Severity]int    `json:"by_severity"`
	ByType      map[AnomalyType]int `json:"by_type"`
	Total       int                 `json:"total"`
	AutoFixable int                 `json:"auto_fixable"`
	NeedsReview int                 `json:"needs_review"`
}
