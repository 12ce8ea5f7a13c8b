package pricing

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/catalog-bridge/internal/model"
	"github.com/Veraticus/catalog-bridge/internal/normalize"
)

// Size tokens must not be followed by a letter, so "2.5MM" is not a length
// and "2KG" is a weight. Labels are folded before matching.
var (
	weightPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:KG|ΚΙΛΑ|ΚΓ)(?:[^\p{L}]|$)`)
	lengthPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:METERS|METER|ΜΕΤΡΑ|M|Μ)(?:[^\p{L}]|$)`)

	hundred = decimal.NewFromInt(100)
	epsilon = decimal.New(1, -2)
)

// RatioLookup resolves manual ratios by identifier.
type RatioLookup interface {
	Get(identifier string) (model.ManualRatio, bool)
}

// Engine evaluates price verdicts under a fixed rule configuration.
type Engine struct {
	weightKeywords []string
	lengthKeywords []string
	pieceKeywords  []string
	rules          Rules
}

// NewEngine creates an engine. Keywords are folded once up front.
func NewEngine(rules Rules) (*Engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		rules:          rules,
		weightKeywords: foldKeywords(rules.Weight),
		lengthKeywords: foldKeywords(rules.Length),
		pieceKeywords:  foldKeywords(rules.Piece),
	}, nil
}

// Rules returns the configuration the engine was built with.
func (e *Engine) Rules() Rules {
	return e.rules
}

func foldKeywords(rule Rule) []string {
	if !rule.Enabled {
		return nil
	}
	out := make([]string, 0, len(rule.Keywords))
	for _, kw := range rule.Keywords {
		out = append(out, normalize.Label(kw))
	}
	return out
}

// Evaluate compares a store price to a catalog unit price. Precedence is
// manual ratio, weight, length, unresolved piece, then direct comparison.
func (e *Engine) Evaluate(identifier string, storePrice, catalogUnitPrice decimal.Decimal, label string, ratios RatioLookup) model.PriceVerdict {
	if ratios != nil {
		if ratio, ok := ratios.Get(identifier); ok {
			v := toleranceVerdict(model.RuleManualRatio, storePrice, catalogUnitPrice.Mul(ratio.Ratio), e.rules.ManualRatioTolerancePercent)
			v.Ratio = decimal.NewNullDecimal(ratio.Ratio)
			return v
		}
	}

	folded := normalize.Label(label)

	if containsAny(folded, e.weightKeywords) {
		if size, ok := ExtractWeight(folded); ok {
			v := toleranceVerdict(model.RuleWeight, storePrice, catalogUnitPrice.Mul(size), e.rules.Weight.TolerancePercent)
			v.PackageSize = decimal.NewNullDecimal(size)
			return v
		}
	}

	if containsAny(folded, e.lengthKeywords) {
		if size, ok := ExtractLength(folded); ok {
			v := toleranceVerdict(model.RuleLength, storePrice, catalogUnitPrice.Mul(size), e.rules.Length.TolerancePercent)
			v.PackageSize = decimal.NewNullDecimal(size)
			return v
		}
	}

	diff := storePrice.Sub(catalogUnitPrice).Abs()
	pct := percentOf(diff, catalogUnitPrice)

	if containsAny(folded, e.pieceKeywords) {
		return model.PriceVerdict{
			Rule:                model.RuleUnresolvedPiece,
			Difference:          diff,
			DifferencePercent:   pct,
			RequiresManualRatio: true,
		}
	}

	return model.PriceVerdict{
		Rule:              model.RuleNone,
		Expected:          decimal.NewNullDecimal(catalogUnitPrice),
		Difference:        diff,
		DifferencePercent: pct,
		WithinTolerance:   diff.LessThan(epsilon),
	}
}

// EvaluateAll returns a copy of records with verdicts attached. The store name
// is the label; the catalog name stands in when the store name is empty.
func (e *Engine) EvaluateAll(records []model.ReconciledRecord, ratios RatioLookup) []model.ReconciledRecord {
	out := make([]model.ReconciledRecord, len(records))
	for i, rec := range records {
		label := rec.Store.Name
		if strings.TrimSpace(label) == "" {
			label = rec.Catalog.Name
		}
		verdict := e.Evaluate(rec.Identifier, rec.Store.RegularPrice, rec.Catalog.RetailPrice, label, ratios)
		rec.Verdict = &verdict
		out[i] = rec
	}
	return out
}

// ExtractWeight finds a package weight in KG within a folded label.
func ExtractWeight(label string) (decimal.Decimal, bool) {
	return extractSize(weightPattern, label)
}

// ExtractLength finds a package length in meters within a folded label.
func ExtractLength(label string) (decimal.Decimal, bool) {
	return extractSize(lengthPattern, label)
}

func extractSize(re *regexp.Regexp, label string) (decimal.Decimal, bool) {
	for _, m := range re.FindAllStringSubmatch(label, -1) {
		size, err := decimal.NewFromString(strings.Replace(m[1], ",", ".", 1))
		if err != nil || !size.IsPositive() {
			continue
		}
		return size, true
	}
	return decimal.Zero, false
}

func toleranceVerdict(rule model.PriceRule, storePrice, expected decimal.Decimal, tolerancePercent float64) model.PriceVerdict {
	diff := storePrice.Sub(expected).Abs()
	v := model.PriceVerdict{
		Rule:              rule,
		Expected:          decimal.NewNullDecimal(expected),
		Difference:        diff,
		DifferencePercent: percentOf(diff, expected),
	}
	if expected.IsPositive() {
		v.WithinTolerance = v.DifferencePercent.LessThanOrEqual(decimal.NewFromFloat(tolerancePercent))
	}
	return v
}

func percentOf(diff, base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	return diff.Div(base).Mul(hundred)
}

func containsAny(label string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(label, kw) {
			return true
		}
	}
	return false
}
