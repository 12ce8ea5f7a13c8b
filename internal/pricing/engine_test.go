package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/catalog-bridge/internal/common"
	"github.com/Veraticus/catalog-bridge/internal/model"
)

type mapRatios map[string]decimal.Decimal

func (m mapRatios) Get(id string) (model.ManualRatio, bool) {
	r, ok := m[id]
	if !ok {
		return model.ManualRatio{}, false
	}
	return model.ManualRatio{Identifier: id, Ratio: r}, true
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultRules())
	require.NoError(t, err)
	return e
}

func TestEvaluate_WeightRule(t *testing.T) {
	e := newTestEngine(t)

	v := e.Evaluate("W1", d("21.00"), d("10.50"), "WIRE GALV 2KG", nil)

	assert.Equal(t, model.RuleWeight, v.Rule)
	require.True(t, v.Expected.Valid)
	assert.True(t, v.Expected.Decimal.Equal(d("21")))
	assert.True(t, v.DifferencePercent.IsZero())
	assert.True(t, v.WithinTolerance)
	assert.True(t, v.PackageSize.Decimal.Equal(d("2")))
}

func TestEvaluate_ManualRatioOverridesLabel(t *testing.T) {
	e := newTestEngine(t)
	ratios := mapRatios{"R1": d("2.5")}

	v := e.Evaluate("R1", d("10.00"), d("4.00"), "ΣΥΡΜΑ 15KG", ratios)

	assert.Equal(t, model.RuleManualRatio, v.Rule)
	assert.True(t, v.Expected.Decimal.Equal(d("10")))
	assert.True(t, v.WithinTolerance)
	assert.True(t, v.Ratio.Decimal.Equal(d("2.5")))
}

func TestEvaluate_Precedence(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name     string
		label    string
		store    string
		catalog  string
		wantRule model.PriceRule
		within   bool
	}{
		{
			name:     "greek weight with decimal comma",
			label:    "Σύρμα συγκόλλησης 2,5KG",
			store:    "25.00",
			catalog:  "10.00",
			wantRule: model.RuleWeight,
			within:   true,
		},
		{
			name:     "weight beats length when both keywords match",
			label:    "STEEL PIPE 5KG 6M",
			store:    "50",
			catalog:  "10",
			wantRule: model.RuleWeight,
			within:   true,
		},
		{
			name:     "length rule",
			label:    "CABLE NYM 3X1.5 100M",
			store:    "80",
			catalog:  "0.75",
			wantRule: model.RuleLength,
			within:   false,
		},
		{
			name:     "weight keyword without size falls through to length",
			label:    "STEEL PIPE 6 METERS",
			store:    "60",
			catalog:  "10",
			wantRule: model.RuleLength,
			within:   true,
		},
		{
			name:     "millimetres are not meters",
			label:    "CABLE 2.5MM",
			store:    "3",
			catalog:  "3",
			wantRule: model.RuleNone,
			within:   true,
		},
		{
			name:     "piece keyword is unresolved",
			label:    "ΗΛΕΚΤΡΟΔΙΑ RUTILE 2.5MM",
			store:    "0.40",
			catalog:  "6.50",
			wantRule: model.RuleUnresolvedPiece,
			within:   false,
		},
		{
			name:     "direct comparison inside one cent",
			label:    "HAMMER 500G",
			store:    "12.005",
			catalog:  "12.00",
			wantRule: model.RuleNone,
			within:   true,
		},
		{
			name:     "direct comparison outside one cent",
			label:    "HAMMER 500G",
			store:    "12.02",
			catalog:  "12.00",
			wantRule: model.RuleNone,
			within:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := e.Evaluate("X", d(tt.store), d(tt.catalog), tt.label, nil)
			assert.Equal(t, tt.wantRule, v.Rule)
			assert.Equal(t, tt.within, v.WithinTolerance)
		})
	}
}

func TestEvaluate_UnresolvedPieceHasNoExpected(t *testing.T) {
	e := newTestEngine(t)

	v := e.Evaluate("E1", d("5"), d("10"), "ELECTRODES E6013", nil)

	assert.Equal(t, model.RuleUnresolvedPiece, v.Rule)
	assert.False(t, v.Expected.Valid)
	assert.False(t, v.Resolved())
	assert.True(t, v.RequiresManualRatio)
	assert.False(t, v.WithinTolerance)
	assert.True(t, v.DifferencePercent.Equal(d("50")))
}

func TestEvaluate_ZeroExpectedIsNeverWithin(t *testing.T) {
	e := newTestEngine(t)

	v := e.Evaluate("W0", d("0"), d("0"), "WIRE 2KG", nil)

	assert.Equal(t, model.RuleWeight, v.Rule)
	assert.False(t, v.WithinTolerance)
	assert.True(t, v.DifferencePercent.IsZero())
}

func TestEvaluate_DisabledRule(t *testing.T) {
	rules := DefaultRules()
	rules.Weight.Enabled = false
	e, err := NewEngine(rules)
	require.NoError(t, err)

	v := e.Evaluate("W1", d("21"), d("10.50"), "WIRE 2KG", nil)
	assert.Equal(t, model.RuleNone, v.Rule)
}

func TestExtractSizes(t *testing.T) {
	tests := []struct {
		label  string
		weight string
		length string
	}{
		{label: "ΣΥΡΜΑ 2KG", weight: "2"},
		{label: "ΣΥΡΜΑ 2,5KG", weight: "2.5"},
		{label: "WIRE 5 KG", weight: "5"},
		{label: "ΣΥΡΜΑ 3 ΚΙΛΑ", weight: "3"},
		{label: "ΚΑΛΩΔΙΟ 10M", length: "10"},
		{label: "CABLE 25 METERS", length: "25"},
		{label: "ΣΩΛΗΝΑΣ 50 ΜΕΤΡΑ", length: "50"},
		{label: "WIRE 0KG"},
		{label: "TUBE 4MM"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			w, ok := ExtractWeight(tt.label)
			if tt.weight == "" {
				assert.False(t, ok)
			} else {
				require.True(t, ok)
				assert.True(t, w.Equal(d(tt.weight)))
			}

			l, ok := ExtractLength(tt.label)
			if tt.length == "" {
				assert.False(t, ok)
			} else {
				require.True(t, ok)
				assert.True(t, l.Equal(d(tt.length)))
			}
		})
	}
}

func TestEvaluateAll(t *testing.T) {
	e := newTestEngine(t)
	records := []model.ReconciledRecord{
		{
			Identifier: "A",
			Catalog:    model.CatalogRecord{Identifier: "A", Name: "WIRE 2KG", RetailPrice: d("10")},
			Store:      model.StoreRecord{Identifier: "A", RegularPrice: d("20")},
		},
		{
			Identifier: "B",
			Catalog:    model.CatalogRecord{Identifier: "B", RetailPrice: d("3")},
			Store:      model.StoreRecord{Identifier: "B", Name: "GLOVES", RegularPrice: d("3")},
		},
	}

	out := e.EvaluateAll(records, nil)

	require.Len(t, out, 2)
	assert.Nil(t, records[0].Verdict, "input must not be mutated")
	assert.Equal(t, model.RuleWeight, out[0].Verdict.Rule, "catalog name is used when store name is empty")
	assert.Equal(t, model.RuleNone, out[1].Verdict.Rule)
	assert.True(t, out[1].Verdict.WithinTolerance)
}

func TestLoadRules(t *testing.T) {
	fs := afero.NewMemMapFs()

	rules, err := LoadRules(fs, "/missing.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)

	content := []byte("weight_based:\n  enabled: true\n  keywords: [\"ROPE\"]\n  tolerance_percent: 10\n")
	require.NoError(t, afero.WriteFile(fs, "/rules.yaml", content, 0o644))

	rules, err = LoadRules(fs, "/rules.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"ROPE"}, rules.Weight.Keywords)
	assert.InDelta(t, 10.0, rules.Weight.TolerancePercent, 0.0001)
	assert.Equal(t, DefaultRules().Length, rules.Length)

	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("piece_based:\n  tolerance_percent: -1\n"), 0o644))
	_, err = LoadRules(fs, "/bad.yaml")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestWriteRulesRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, WriteRules(fs, "/out.yaml", DefaultRules()))

	rules, err := LoadRules(fs, "/out.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}
