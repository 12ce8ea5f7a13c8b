package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/catalog-bridge/internal/match"
	"github.com/Veraticus/catalog-bridge/internal/model"
	"github.com/Veraticus/catalog-bridge/internal/source"
)

func TestParsePair(t *testing.T) {
	tests := []struct {
		arg       string
		wantKey   string
		wantValue string
		wantErr   bool
	}{
		{arg: "AG900=12.50", wantKey: "AG900", wantValue: "12.50"},
		{arg: " 00123 = 123 ", wantKey: "00123", wantValue: "123"},
		{arg: "A=B=C", wantKey: "A", wantValue: "B=C"},
		{arg: "AG900", wantErr: true},
		{arg: "=12", wantErr: true},
		{arg: "AG900=", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			key, value, err := parsePair(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestParsePrice(t *testing.T) {
	p, err := parsePrice("12,90")
	require.NoError(t, err)
	assert.Equal(t, "12.9", p.String())

	p, err = parsePrice(" 0 ")
	require.NoError(t, err)
	assert.True(t, p.IsZero())

	_, err = parsePrice("-1")
	assert.Error(t, err)
	_, err = parsePrice("twelve")
	assert.Error(t, err)
}

func TestParseSeverity(t *testing.T) {
	sev, err := parseSeverity(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, model.SeverityHigh, sev)

	_, err = parseSeverity("critical")
	assert.Error(t, err)
}

func TestSkuDrift(t *testing.T) {
	records := []model.ReconciledRecord{
		{Identifier: "1", Provenance: model.ProvenanceExact, Store: model.StoreRecord{Identifier: "1"}, Catalog: model.CatalogRecord{Identifier: "1"}},
		{Identifier: "2", Provenance: model.ProvenanceNormalized, Store: model.StoreRecord{Identifier: "002"}, Catalog: model.CatalogRecord{Identifier: "2"}},
		{Identifier: "3", Provenance: model.ProvenanceManual, Store: model.StoreRecord{Identifier: "OLD-3"}, Catalog: model.CatalogRecord{Identifier: "3"}},
		{Identifier: "4", Provenance: model.ProvenanceFuzzy, Store: model.StoreRecord{Identifier: "4"}, Catalog: model.CatalogRecord{Identifier: "4"}},
	}

	drift := skuDrift(records)

	require.Len(t, drift, 1)
	assert.Equal(t, "3", drift[0].Identifier)
}

func TestCandidateMatch(t *testing.T) {
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	c := match.Candidate{
		Store:   model.StoreRecord{Identifier: "HLM-1", ExternalRef: "101", Name: "Welding helmet"},
		Catalog: model.CatalogRecord{Identifier: "123", Name: "WELDING HELMET"},
		Score:   0.91,
	}

	m := candidateMatch(c, at)

	assert.Equal(t, "123", m.CatalogIdentifier)
	assert.Equal(t, "HLM-1", m.StoreIdentifier)
	assert.Equal(t, "101", m.StoreRef)
	assert.Equal(t, model.ProvenanceFuzzy, m.Provenance)
	assert.InDelta(t, 0.91, m.Confidence, 1e-9)
	assert.Equal(t, at, m.MatchedAt)
}

const storeExport = `[
  {"id": 101, "sku": "00123", "name": "Welding helmet", "type": "simple",
   "regular_price": "45.50", "stock_quantity": 7, "stock_status": "instock", "total_sales": 2,
   "description": "Auto-darkening welding helmet with adjustable shade", "short_description": "Helmet"},
  {"id": 102, "sku": "Z1", "name": "Brass rod", "type": "simple",
   "regular_price": "0", "stock_quantity": 4, "stock_status": "instock", "total_sales": 0,
   "description": "Brass brazing rod for copper and steel joints", "short_description": "Rod"},
  {"id": 103, "sku": "ORPHAN", "name": "Discontinued clamp", "type": "simple",
   "regular_price": "9", "stock_status": "outofstock"}
]`

const catalogExport = `{"STOCKITEMS": [
  {"CODE": "123", "DESCR": "ΚΡΑΝΟΣ ΗΛΕΚΤΡΟΝΙΚΟ", "RTLPRICE": 45.5, "BALANCEQTY": 7},
  {"CODE": "Z1", "DESCR": "ΒΕΡΓΑ ΟΡΕΙΧΑΛΚΟΥ", "RTLPRICE": "2,40", "BALANCEQTY": 4}
]}`

type cliEnv struct {
	dir     string
	store   string
	catalog string
	config  string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := cliEnv{
		dir:     dir,
		store:   filepath.Join(dir, "woo.json"),
		catalog: filepath.Join(dir, "capital.json"),
		config:  filepath.Join(dir, "config.yaml"),
	}
	require.NoError(t, os.WriteFile(env.store, []byte(storeExport), 0o600))
	require.NoError(t, os.WriteFile(env.catalog, []byte(catalogExport), 0o600))
	require.NoError(t, os.WriteFile(env.config, []byte(`
database:
  path: `+filepath.Join(dir, "bridge.db")+`
ratios:
  path: `+filepath.Join(dir, "ratios.json")+`
rules:
  path: `+filepath.Join(dir, "rules.yaml")+`
export:
  dir: `+dir+`
logging:
  level: error
`), 0o600))
	return env
}

// run executes the CLI with a fresh viper instance and returns stdout.
func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	cfgFile = ""
	t.Cleanup(viper.Reset)

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(bytes.NewReader(nil))
	cmd.SetArgs(append([]string{"--config", e.config}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestReconcileCommand(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "reconcile", "--store", env.store, "--catalog", env.catalog, "--show-unmatched")

	require.NoError(t, err)
	assert.Contains(t, out, "Matched")
	assert.Contains(t, out, "ORPHAN")
	assert.Contains(t, out, "bridge apply")

	passes, err := env.run(t, "history", "passes")
	require.NoError(t, err)
	assert.NotContains(t, passes, "No passes recorded")
}

func TestReconcileCommand_MissingSources(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "reconcile")

	require.Error(t, err)
	assert.ErrorIs(t, err, errMissingSources)
}

func TestAnomaliesCommand(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "anomalies", "--store", env.store, "--catalog", env.catalog, "--severity", "high")

	require.NoError(t, err)
	assert.Contains(t, out, "Z1")
	assert.Contains(t, out, "price_zero")
	assert.NotContains(t, out, "missing_short_description")

	_, err = env.run(t, "anomalies", "--store", env.store, "--catalog", env.catalog, "--severity", "urgent")
	assert.Error(t, err)
}

func TestApplyCommand_AutoQueuesOutbox(t *testing.T) {
	env := newCLIEnv(t)
	outbox := filepath.Join(env.dir, "out", "outbox.jsonl")

	out, err := env.run(t, "apply", "--store", env.store, "--catalog", env.catalog,
		"--auto", "--yes", "--outbox", outbox)

	require.NoError(t, err)
	assert.Contains(t, out, "Approved")

	entries, err := source.ReadOutbox(afero.NewOsFs(), outbox)
	require.NoError(t, err)
	var refs []string
	for _, e := range entries {
		refs = append(refs, e.Ref)
	}
	assert.Contains(t, refs, "102", "zero price synced from the catalog")

	log, err := env.run(t, "history", "actions", "Z1")
	require.NoError(t, err)
	assert.Contains(t, log, "set_regular_price")
}

func TestApplyCommand_NothingApproved(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "apply", "--store", env.store, "--catalog", env.catalog, "--dry-run")

	require.NoError(t, err)
	assert.Contains(t, out, "none approved")
}

func TestApplyCommand_OperatorActionNeedsConfirmation(t *testing.T) {
	env := newCLIEnv(t)
	outbox := filepath.Join(env.dir, "outbox.jsonl")

	out, err := env.run(t, "apply", "--store", env.store, "--catalog", env.catalog,
		"--delete", "Z1", "--outbox", outbox)

	require.NoError(t, err)
	assert.Contains(t, out, "confirmation declined")
	exists, _ := afero.Exists(afero.NewOsFs(), outbox)
	assert.False(t, exists, "nothing reaches the store without confirmation")

	_, err = env.run(t, "apply", "--store", env.store, "--catalog", env.catalog, "--delete", "NOPE")
	assert.Error(t, err)
}

func TestRatiosCommands(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "ratios", "set", "AG900", "25", "--note", "box of 25")
	require.NoError(t, err)

	out, err := env.run(t, "ratios", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "AG900")
	assert.Contains(t, out, "box of 25")

	_, err = env.run(t, "ratios", "remove", "AG900")
	require.NoError(t, err)
	_, err = env.run(t, "ratios", "remove", "AG900")
	assert.Error(t, err)

	_, err = env.run(t, "ratios", "set", "AG900", "0")
	assert.Error(t, err)
}

func TestMatchesCommands(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "matches", "confirm", "123", "HLM-OLD")
	require.NoError(t, err)

	out, err := env.run(t, "matches", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "HLM-OLD")

	_, err = env.run(t, "matches", "remove", "123")
	require.NoError(t, err)

	_, err = env.run(t, "matches", "suggest", "--save-above", "1.5")
	assert.Error(t, err)
}

func TestRulesCommands(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "rules", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "weight_based")

	_, err = env.run(t, "rules", "init")
	require.NoError(t, err)
	_, err = env.run(t, "rules", "init")
	assert.Error(t, err, "refuses to overwrite without --force")
	_, err = env.run(t, "rules", "init", "--force")
	assert.NoError(t, err)
}

func TestExportCommand_XLSX(t *testing.T) {
	env := newCLIEnv(t)
	target := filepath.Join(env.dir, "report.xlsx")

	out, err := env.run(t, "export", "--store", env.store, "--catalog", env.catalog, "--output", target)

	require.NoError(t, err)
	assert.Contains(t, out, target)
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	_, err = env.run(t, "export", "--store", env.store, "--catalog", env.catalog, "--format", "csv")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "bridge dev")
}
