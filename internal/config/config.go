// Package config loads bridge settings from viper, config files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Veraticus/catalog-bridge/internal/approval"
	"github.com/Veraticus/catalog-bridge/internal/common"
	"github.com/Veraticus/catalog-bridge/internal/match"
)

// EnvPrefix namespaces environment overrides, e.g. BRIDGE_DATABASE_PATH.
const EnvPrefix = "BRIDGE"

// Settings is the typed view of the bridge configuration.
type Settings struct {
	Database DatabaseSettings `mapstructure:"database"`
	Ratios   PathSettings     `mapstructure:"ratios"`
	Rules    PathSettings     `mapstructure:"rules"`
	Sources  SourceSettings   `mapstructure:"sources"`
	Export   ExportSettings   `mapstructure:"export"`
	Logging  LoggingSettings  `mapstructure:"logging"`
	Matching MatchSettings    `mapstructure:"matching"`
	Approval ApprovalSettings `mapstructure:"approval"`
}

// DatabaseSettings locates the SQLite journal.
type DatabaseSettings struct {
	Path string `mapstructure:"path" validate:"required"`
}

// PathSettings locates a single file.
type PathSettings struct {
	Path string `mapstructure:"path" validate:"required"`
}

// SourceSettings locates the two snapshot exports.
type SourceSettings struct {
	StorePath   string `mapstructure:"store_path"`
	CatalogPath string `mapstructure:"catalog_path"`
}

// ExportSettings controls report output.
type ExportSettings struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format" validate:"oneof=xlsx sheets"`
}

// LoggingSettings mirrors the --log-level and --log-format flags.
type LoggingSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"oneof=console text json"`
}

// MatchSettings tunes the fuzzy matcher.
type MatchSettings struct {
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold" validate:"gt=0,lte=1"`
	FuzzyEnabled   bool    `mapstructure:"fuzzy_enabled"`
	Blocking       bool    `mapstructure:"blocking"`
}

// ApprovalSettings tunes the approval workflow.
type ApprovalSettings struct {
	BulkThreshold int `mapstructure:"bulk_threshold" validate:"gte=1"`
	Workers       int `mapstructure:"workers" validate:"gte=1,lte=64"`
}

// FuzzyOptions converts the match settings.
func (m MatchSettings) FuzzyOptions() match.Options {
	return match.Options{Threshold: m.FuzzyThreshold, Blocking: m.Blocking}
}

// SetDefaults registers the default for every setting on v.
func SetDefaults(v *viper.Viper) {
	fuzzy := match.DefaultOptions()
	v.SetDefault("database.path", "~/.local/share/bridge/bridge.db")
	v.SetDefault("ratios.path", "~/.config/bridge/price_ratios.json")
	v.SetDefault("rules.path", "~/.config/bridge/price_rules.yaml")
	v.SetDefault("sources.store_path", "")
	v.SetDefault("sources.catalog_path", "")
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.format", "xlsx")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("matching.fuzzy_enabled", true)
	v.SetDefault("matching.fuzzy_threshold", fuzzy.Threshold)
	v.SetDefault("matching.blocking", fuzzy.Blocking)
	v.SetDefault("approval.bulk_threshold", approval.DefaultBulkThreshold)
	v.SetDefault("approval.workers", approval.DefaultWorkers)
}

// Load unmarshals and validates the settings held by v and expands every path.
func Load(v *viper.Viper) (*Settings, error) {
	SetDefaults(v)

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	s.Database.Path = ExpandPath(s.Database.Path)
	s.Ratios.Path = ExpandPath(s.Ratios.Path)
	s.Rules.Path = ExpandPath(s.Rules.Path)
	s.Sources.StorePath = ExpandPath(s.Sources.StorePath)
	s.Sources.CatalogPath = ExpandPath(s.Sources.CatalogPath)
	s.Export.Dir = ExpandPath(s.Export.Dir)

	if err := validator.New().Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return nil, fmt.Errorf("%w: %s failed %s check (got %v)",
				common.ErrInvalidConfig, strings.ToLower(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	return &s, nil
}

// LoadEnvFiles loads .env.local and then .env from the working directory.
// Variables already present in the environment win, so .env.local takes
// precedence over .env.
func LoadEnvFiles(dir string) []string {
	var loaded []string
	for _, name := range []string{".env.local", ".env"} {
		path := filepath.Join(dir, name)
		if err := godotenv.Load(path); err == nil {
			loaded = append(loaded, path)
		}
	}
	return loaded
}

// ExpandPath expands a leading ~ and any $VAR references in path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}
