// Package pricing decides whether a storefront price is equivalent to an ERP
// unit price once package sizes and manual ratios are taken into account.
package pricing

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"

	"github.com/Veraticus/catalog-bridge/internal/common"
)

// Rule configures one keyword-driven unit conversion.
type Rule struct {
	Description      string   `yaml:"description"`
	Keywords         []string `yaml:"keywords"`
	TolerancePercent float64  `yaml:"tolerance_percent"`
	Enabled          bool     `yaml:"enabled"`
}

// Rules is the full rule configuration. Weight is checked before length, and
// length before piece, when a label matches several keyword lists.
type Rules struct {
	Weight                      Rule    `yaml:"weight_based"`
	Length                      Rule    `yaml:"length_based"`
	Piece                       Rule    `yaml:"piece_based"`
	ManualRatioTolerancePercent float64 `yaml:"manual_ratio_tolerance_percent"`
}

// DefaultRules returns the built-in keyword lists for welding and hardware stock.
func DefaultRules() Rules {
	return Rules{
		Weight: Rule{
			Enabled:          true,
			Keywords:         []string{"ΣΥΡΜΑ", "ΣΙΔΗΡΟΣ", "ΧΑΛΥΒΑΣ", "WIRE", "STEEL"},
			TolerancePercent: 5,
			Description:      "ERP price is per KG, storefront price is per package",
		},
		Length: Rule{
			Enabled:          true,
			Keywords:         []string{"ΚΑΛΩΔΙΟ", "ΣΩΛΗΝΑΣ", "CABLE", "PIPE", "TUBE"},
			TolerancePercent: 5,
			Description:      "ERP price is per meter, storefront price is per roll",
		},
		Piece: Rule{
			Enabled:          true,
			Keywords:         []string{"ΗΛΕΚΤΡΟΔΙΟ", "ΗΛΕΚΤΡΟΔΙΑ", "ΒΕΡΓΑ", "ELECTRODE", "ELECTRODES", "RODS"},
			TolerancePercent: 5,
			Description:      "ERP price is per KG, storefront price is per piece; needs a manual ratio",
		},
		ManualRatioTolerancePercent: 5,
	}
}

// Validate checks tolerances and keyword lists.
func (r Rules) Validate() error {
	named := map[string]Rule{"weight_based": r.Weight, "length_based": r.Length, "piece_based": r.Piece}
	for name, rule := range named {
		if rule.TolerancePercent < 0 {
			return fmt.Errorf("%w: %s tolerance_percent must not be negative", common.ErrInvalidConfig, name)
		}
		for i, kw := range rule.Keywords {
			if kw == "" {
				return fmt.Errorf("%w: %s keyword %d is empty", common.ErrInvalidConfig, name, i)
			}
		}
	}
	if r.ManualRatioTolerancePercent < 0 {
		return fmt.Errorf("%w: manual_ratio_tolerance_percent must not be negative", common.ErrInvalidConfig)
	}
	return nil
}

// LoadRules reads a YAML rules file over the defaults. A missing file yields
// the defaults unchanged.
func LoadRules(fs afero.Fs, path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Price rules file not found, using defaults", "path", path)
			return rules, nil
		}
		return rules, fmt.Errorf("failed to read price rules: %w", err)
	}

	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("failed to parse price rules %s: %w", path, err)
	}
	if err := rules.Validate(); err != nil {
		return rules, err
	}
	return rules, nil
}

// WriteRules writes rules as YAML, replacing any existing file.
func WriteRules(fs afero.Fs, path string, rules Rules) error {
	data, err := yaml.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to encode price rules: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write price rules: %w", err)
	}
	return nil
}
