package anomaly

import (
	"fmt"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/catalog-bridge/internal/model"
)

// Detection thresholds.
const (
	MismatchPercent        = 20
	HighMismatchPercent    = 50
	ExtremeDiscountPercent = 70
	MinNameLength          = 5
	MinDescriptionLength   = 20
	MinShortDescLength     = 10
	PopularUnitsSold       = 10
	LowStockQuantity       = 5
)

const ruleSourceName = "rules"

var (
	mismatchThreshold     = decimal.NewFromInt(MismatchPercent)
	highMismatchThreshold = decimal.NewFromInt(HighMismatchPercent)
	extremeDiscount       = decimal.NewFromInt(ExtremeDiscountPercent)
	hundred               = decimal.NewFromInt(100)
)

// rule inspects one record. It must treat absent optional fields as not applicable.
type rule func(rec model.ReconciledRecord) (model.Anomaly, bool)

// ruleGroups run group by group over all records, matching the order in which
// problems are reported: pricing first, then content, then stock.
var ruleGroups = [][]rule{
	{priceZero, priceMismatch, manualRatioRequired, invalidSalePrice, extremeDiscountRule},
	{missingName, missingDescription, missingShortDescription},
	{stockStatusMismatch, lowStockPopular},
}

func euro(d decimal.Decimal) string {
	return "€" + d.StringFixed(2)
}

func newAnomaly(rec model.ReconciledRecord, t model.AnomalyType, sev model.Severity) model.Anomaly {
	return model.Anomaly{
		Identifier: rec.Identifier,
		Type:       t,
		Severity:   sev,
		Source:     ruleSourceName,
	}
}

func ruleDriven(v *model.PriceVerdict) bool {
	if v == nil {
		return false
	}
	switch v.Rule {
	case model.RuleWeight, model.RuleLength, model.RuleManualRatio, model.RuleUnresolvedPiece:
		return true
	default:
		return false
	}
}

func mismatchSeverity(pct decimal.Decimal) model.Severity {
	if pct.LessThan(highMismatchThreshold) {
		return model.SeverityMedium
	}
	return model.SeverityHigh
}

func priceZero(rec model.ReconciledRecord) (model.Anomaly, bool) {
	catalogPrice := rec.Catalog.RetailPrice
	if !rec.Store.RegularPrice.IsZero() || !catalogPrice.IsPositive() {
		return model.Anomaly{}, false
	}

	a := newAnomaly(rec, model.AnomalyPriceZero, model.SeverityHigh)
	a.Description = fmt.Sprintf("Store price is €0.00 but catalog has %s", euro(catalogPrice))

	target := catalogPrice
	if v := rec.Verdict; v != nil {
		if !v.Resolved() {
			a.SuggestedFix = "Set a manual ratio before syncing the price"
			return a, true
		}
		if v.Expected.Decimal.IsPositive() {
			target = v.Expected.Decimal
		}
	}

	a.SuggestedFix = fmt.Sprintf("Sync price from catalog (%s)", euro(target))
	a.AutoFixable = true
	a.Fix = &model.Fix{
		Kind:        model.FixSetRegularPrice,
		Price:       decimal.NewNullDecimal(target),
		PriceSource: model.PriceFromCatalog,
	}
	return a, true
}

// priceMismatch is the coarse 20% check for direct comparisons. When a unit
// rule produced a resolved verdict, the verdict decides instead.
func priceMismatch(rec model.ReconciledRecord) (model.Anomaly, bool) {
	store := rec.Store.RegularPrice
	if !store.IsPositive() {
		return model.Anomaly{}, false
	}

	v := rec.Verdict
	if ruleDriven(v) {
		if !v.Resolved() || v.WithinTolerance || !v.Expected.Decimal.IsPositive() {
			return model.Anomaly{}, false
		}
		expected := v.Expected.Decimal
		a := newAnomaly(rec, model.AnomalyPriceMismatch, mismatchSeverity(v.DifferencePercent))
		a.Description = fmt.Sprintf("Price difference: %s%% under %s rule (store: %s, expected: %s)",
			v.DifferencePercent.StringFixed(1), v.Rule, euro(store), euro(expected))
		a.SuggestedFix = fmt.Sprintf("Review pricing or sync to expected price (%s)", euro(expected))
		a.Fix = &model.Fix{
			Kind:        model.FixSetRegularPrice,
			Price:       decimal.NewNullDecimal(expected),
			PriceSource: model.PriceFromCatalog,
		}
		return a, true
	}

	catalogPrice := rec.Catalog.RetailPrice
	if !catalogPrice.IsPositive() {
		return model.Anomaly{}, false
	}
	pct := store.Sub(catalogPrice).Abs().Div(catalogPrice).Mul(hundred)
	if !pct.GreaterThan(mismatchThreshold) {
		return model.Anomaly{}, false
	}

	a := newAnomaly(rec, model.AnomalyPriceMismatch, mismatchSeverity(pct))
	a.Description = fmt.Sprintf("Price difference: %s%% (store: %s, catalog: %s)",
		pct.StringFixed(1), euro(store), euro(catalogPrice))
	a.SuggestedFix = fmt.Sprintf("Review pricing or sync to catalog (%s)", euro(catalogPrice))
	a.Fix = &model.Fix{
		Kind:        model.FixSetRegularPrice,
		Price:       decimal.NewNullDecimal(catalogPrice),
		PriceSource: model.PriceFromCatalog,
	}
	return a, true
}

func manualRatioRequired(rec model.ReconciledRecord) (model.Anomaly, bool) {
	if rec.Verdict == nil || !rec.Verdict.RequiresManualRatio {
		return model.Anomaly{}, false
	}
	a := newAnomaly(rec, model.AnomalyManualRatioRequired, model.SeverityLow)
	a.Description = fmt.Sprintf("Sold by piece; catalog price %s is per unit and no conversion ratio is set",
		euro(rec.Catalog.RetailPrice))
	a.SuggestedFix = "Set a manual price ratio for this identifier"
	return a, true
}

func invalidSalePrice(rec model.ReconciledRecord) (model.Anomaly, bool) {
	s := rec.Store
	if !s.HasSalePrice() || !s.SalePrice.Decimal.GreaterThan(s.RegularPrice) {
		return model.Anomaly{}, false
	}
	a := newAnomaly(rec, model.AnomalyInvalidSalePrice, model.SeverityHigh)
	a.Description = fmt.Sprintf("Sale price (%s) higher than regular price (%s)",
		euro(s.SalePrice.Decimal), euro(s.RegularPrice))
	a.SuggestedFix = "Remove sale price or fix regular price"
	a.AutoFixable = true
	a.Fix = &model.Fix{Kind: model.FixClearSalePrice}
	return a, true
}

func extremeDiscountRule(rec model.ReconciledRecord) (model.Anomaly, bool) {
	discount := rec.Store.DiscountPercent()
	if !discount.GreaterThan(extremeDiscount) {
		return model.Anomaly{}, false
	}
	a := newAnomaly(rec, model.AnomalyExtremeDiscount, model.SeverityMedium)
	a.Description = fmt.Sprintf("Unusually high discount: %s%%", discount.StringFixed(1))
	a.SuggestedFix = "Verify discount is intentional"
	a.Fix = &model.Fix{Kind: model.FixClearSalePrice}
	return a, true
}

func missingName(rec model.ReconciledRecord) (model.Anomaly, bool) {
	if utf8.RuneCountInString(rec.Store.Name) >= MinNameLength {
		return model.Anomaly{}, false
	}
	a := newAnomaly(rec, model.AnomalyMissingName, model.SeverityHigh)
	a.Description = "Product name is missing or too short"
	a.SuggestedFix = "Add descriptive product name"
	return a, true
}

func missingDescription(rec model.ReconciledRecord) (model.Anomaly, bool) {
	if utf8.RuneCountInString(rec.Store.Description) >= MinDescriptionLength {
		return model.Anomaly{}, false
	}
	a := newAnomaly(rec, model.AnomalyMissingDescription, model.SeverityLow)
	a.Description = "Product description is missing or very short"
	a.SuggestedFix = "Add product description (can be generated)"
	a.AutoFixable = true
	a.Fix = &model.Fix{Kind: model.FixGenerateDescription}
	return a, true
}

func missingShortDescription(rec model.ReconciledRecord) (model.Anomaly, bool) {
	if utf8.RuneCountInString(rec.Store.ShortDescription) >= MinShortDescLength {
		return model.Anomaly{}, false
	}
	a := newAnomaly(rec, model.AnomalyMissingShortDescription, model.SeverityLow)
	a.Description = "Short description is missing"
	a.SuggestedFix = "Add short description (can be generated)"
	a.AutoFixable = true
	a.Fix = &model.Fix{Kind: model.FixGenerateShortDescription}
	return a, true
}

func stockStatusMismatch(rec model.ReconciledRecord) (model.Anomaly, bool) {
	s := rec.Store
	if s.StockQuantity == nil || *s.StockQuantity != 0 || s.StockStatus != model.StockInStock {
		return model.Anomaly{}, false
	}
	a := newAnomaly(rec, model.AnomalyStockStatusMismatch, model.SeverityMedium)
	a.Description = "Stock quantity is 0 but status is in_stock"
	a.SuggestedFix = "Update stock status to out_of_stock"
	a.AutoFixable = true
	a.Fix = &model.Fix{Kind: model.FixSetStockStatus, StockStatus: model.StockOutOfStock}
	return a, true
}

func lowStockPopular(rec model.ReconciledRecord) (model.Anomaly, bool) {
	s := rec.Store
	if s.UnitsSold <= PopularUnitsSold || s.StockQuantity == nil || *s.StockQuantity >= LowStockQuantity {
		return model.Anomaly{}, false
	}
	a := newAnomaly(rec, model.AnomalyLowStockPopular, model.SeverityMedium)
	a.Description = fmt.Sprintf("Popular product (sold %d) but low stock (%d)", s.UnitsSold, *s.StockQuantity)
	a.SuggestedFix = "Consider restocking"
	return a, true
}
