package model

import "github.com/shopspring/decimal"

// PriceRule names the rule that produced a verdict.
type PriceRule string

// Price rule constants.
const (
	RuleNone            PriceRule = "none"
	RuleWeight          PriceRule = "weight"
	RuleLength          PriceRule = "length"
	RuleManualRatio     PriceRule = "manual-ratio"
	RuleUnresolvedPiece PriceRule = "unresolved-piece"
)

// PriceVerdict is the outcome of comparing a store price to a catalog unit price.
// Expected is absent only for RuleUnresolvedPiece.
type PriceVerdict struct {
	Expected            decimal.NullDecimal
	PackageSize         decimal.NullDecimal
	Ratio               decimal.NullDecimal
	Rule                PriceRule
	Difference          decimal.Decimal
	DifferencePercent   decimal.Decimal
	WithinTolerance     bool
	RequiresManualRatio bool
}

// Resolved reports whether the verdict carries an expected price.
func (v PriceVerdict) Resolved() bool {
	return v.Expected.Valid
}
