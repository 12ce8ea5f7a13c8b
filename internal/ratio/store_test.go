package ratio

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/catalog-bridge/internal/common"
	"github.com/Veraticus/catalog-bridge/internal/model"
)

const ratiosPath = "/cfg/price_ratios.json"

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	s, err := Open(afero.NewMemMapFs(), ratiosPath)
	require.NoError(t, err)
	assert.Empty(t, s.List())
}

func TestOpen_ReadsFlatMapping(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := `{"el-2.5": {"ratio": 0.05, "description": "20 electrodes per kg"}, "W1": {"ratio": 2, "description": ""}}`
	require.NoError(t, afero.WriteFile(fs, ratiosPath, []byte(content), 0o644))

	s, err := Open(fs, ratiosPath)
	require.NoError(t, err)

	r, ok := s.Get("EL-2.5")
	require.True(t, ok)
	assert.True(t, r.Ratio.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, "20 electrodes per kg", r.Note)

	_, ok = s.Get(" w1 ")
	assert.True(t, ok)
}

func TestOpen_RejectsNonPositiveRatio(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, ratiosPath, []byte(`{"A": {"ratio": 0, "description": ""}}`), 0o644))

	_, err := Open(fs, ratiosPath)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestOpen_RejectsMalformedJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, ratiosPath, []byte(`{not json`), 0o644))

	_, err := Open(fs, ratiosPath)
	assert.Error(t, err)
}

func TestSet_PersistsAndRoundTrips(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, ratiosPath)
	require.NoError(t, err)

	require.NoError(t, s.Set("e6013", decimal.RequireFromString("2.5"), "pack of 25"))

	data, err := afero.ReadFile(fs, ratiosPath)
	require.NoError(t, err)
	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw, "E6013")
	assert.InDelta(t, 2.5, raw["E6013"]["ratio"], 1e-9)
	assert.Equal(t, "pack of 25", raw["E6013"]["description"])

	reopened, err := Open(fs, ratiosPath)
	require.NoError(t, err)
	assert.Equal(t, len(s.List()), len(reopened.List()))
	r, ok := reopened.Get("E6013")
	require.True(t, ok)
	assert.True(t, r.Ratio.Equal(decimal.RequireFromString("2.5")))
}

func TestSet_Validation(t *testing.T) {
	s, err := Open(afero.NewMemMapFs(), ratiosPath)
	require.NoError(t, err)

	tests := []struct {
		name  string
		id    string
		ratio decimal.Decimal
	}{
		{name: "zero", id: "A", ratio: decimal.Zero},
		{name: "negative", id: "A", ratio: decimal.NewFromInt(-3)},
		{name: "empty identifier", id: "  ", ratio: decimal.NewFromInt(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Set(tt.id, tt.ratio, "")
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
	assert.Empty(t, s.List())
}

func TestSet_RevertsWhenPersistFails(t *testing.T) {
	mem := afero.NewMemMapFs()
	s, err := Open(afero.NewReadOnlyFs(mem), ratiosPath)
	require.NoError(t, err)

	err = s.Set("A", decimal.NewFromInt(2), "")
	require.Error(t, err)

	_, ok := s.Get("A")
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, ratiosPath)
	require.NoError(t, err)
	require.NoError(t, s.Set("A", decimal.NewFromInt(2), ""))
	require.NoError(t, s.Set("B", decimal.NewFromInt(3), ""))

	require.NoError(t, s.Remove("a"))
	_, ok := s.Get("A")
	assert.False(t, ok)

	err = s.Remove("missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	reopened, err := Open(fs, ratiosPath)
	require.NoError(t, err)
	list := reopened.List()
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].Identifier)
}

func TestList_Sorted(t *testing.T) {
	s, err := Open(afero.NewMemMapFs(), ratiosPath)
	require.NoError(t, err)
	for _, id := range []string{"C", "A", "B"} {
		require.NoError(t, s.Set(id, decimal.NewFromInt(1), ""))
	}

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "A", list[0].Identifier)
	assert.Equal(t, "B", list[1].Identifier)
	assert.Equal(t, "C", list[2].Identifier)
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, ratiosPath)
	require.NoError(t, err)
	require.NoError(t, s.Set("A", decimal.NewFromInt(1), ""))
	require.NoError(t, s.Set("B", decimal.NewFromInt(1), ""))

	entries, err := afero.ReadDir(fs, "/cfg")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "price_ratios.json", entries[0].Name())
}
