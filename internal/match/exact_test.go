package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/catalog-bridge/internal/model"
)

func storeRec(id, ref string) model.StoreRecord {
	return model.StoreRecord{Identifier: id, ExternalRef: ref, Name: "item " + id, Kind: model.KindSimple}
}

func catRec(id string) model.CatalogRecord {
	return model.CatalogRecord{Identifier: id, Name: "item " + id}
}

// assertPartition checks every input lands in exactly one output bucket.
func assertPartition(t *testing.T, res Result, storeCount, catalogCount int) {
	t.Helper()
	assert.Equal(t, storeCount, len(res.Matched)+len(res.UnmatchedStore)+len(res.Skipped))
	assert.Equal(t, catalogCount, len(res.Matched)+len(res.UnmatchedCatalog))

	seenStore := make(map[string]bool)
	seenCatalog := make(map[string]bool)
	for _, m := range res.Matched {
		assert.False(t, seenStore[m.Store.ExternalRef], "store record %s matched twice", m.Store.ExternalRef)
		assert.False(t, seenCatalog[m.Catalog.Identifier], "catalog record %s matched twice", m.Catalog.Identifier)
		seenStore[m.Store.ExternalRef] = true
		seenCatalog[m.Catalog.Identifier] = true
	}
}

func TestMatch_ExactAndNormalized(t *testing.T) {
	store := []model.StoreRecord{storeRec(" abc ", "s1"), storeRec("007", "s2"), storeRec("NOPE", "s3")}
	catalog := []model.CatalogRecord{catRec("ABC"), catRec("7"), catRec("LEFT")}

	res := Match(store, catalog)

	require.Len(t, res.Matched, 2)
	assert.Equal(t, model.ProvenanceExact, res.Matched[0].Provenance)
	assert.Equal(t, "ABC", res.Matched[0].Identifier)
	assert.Equal(t, model.ProvenanceNormalized, res.Matched[1].Provenance)
	assert.Equal(t, "7", res.Matched[1].Identifier)

	require.Len(t, res.UnmatchedStore, 1)
	assert.Equal(t, "s3", res.UnmatchedStore[0].ExternalRef)
	require.Len(t, res.UnmatchedCatalog, 1)
	assert.Equal(t, "LEFT", res.UnmatchedCatalog[0].Identifier)
	assertPartition(t, res, 3, 3)
}

func TestMatch_ExactAlwaysBeatsZeroStripped(t *testing.T) {
	// "07" would reach "7" through zero stripping, but a later store record
	// carries "7" verbatim and must keep it.
	store := []model.StoreRecord{storeRec("07", "s1"), storeRec("7", "s2")}
	catalog := []model.CatalogRecord{catRec("7")}

	res := Match(store, catalog)

	require.Len(t, res.Matched, 1)
	assert.Equal(t, "s2", res.Matched[0].Store.ExternalRef)
	assert.Equal(t, model.ProvenanceExact, res.Matched[0].Provenance)
	require.Len(t, res.UnmatchedStore, 1)
	assert.Equal(t, "s1", res.UnmatchedStore[0].ExternalRef)
}

func TestMatch_ZeroPaddedCodesStayDistinct(t *testing.T) {
	store := []model.StoreRecord{storeRec("007", "s1"), storeRec("7", "s2")}
	catalog := []model.CatalogRecord{catRec("7"), catRec("007")}

	res := Match(store, catalog)

	require.Len(t, res.Matched, 2)
	for _, m := range res.Matched {
		assert.Equal(t, model.ProvenanceExact, m.Provenance)
		assert.Equal(t, m.Catalog.Identifier, m.Store.Identifier)
	}
}

func TestMatch_SkipsContainersAndEmptyIdentifiers(t *testing.T) {
	parent := storeRec("P1", "parent")
	parent.Kind = model.KindVariable
	variation := storeRec("P1-RED", "child")
	variation.Kind = model.KindVariation
	variation.ParentRef = "parent"
	empty := storeRec("   ", "blank")

	res := Match([]model.StoreRecord{parent, variation, empty}, []model.CatalogRecord{catRec("P1"), catRec("P1-RED")})

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "parent", res.Skipped[0].ExternalRef)
	require.Len(t, res.Matched, 1)
	assert.Equal(t, "child", res.Matched[0].Store.ExternalRef)
	require.Len(t, res.UnmatchedStore, 1)
	assert.Equal(t, "blank", res.UnmatchedStore[0].ExternalRef)
	require.Len(t, res.UnmatchedCatalog, 1)
	assert.Equal(t, "P1", res.UnmatchedCatalog[0].Identifier)

	require.NotEmpty(t, res.Warnings)
	assert.Equal(t, model.WarningEmptyIdentifier, res.Warnings[0].Kind)
	assertPartition(t, res, 3, 2)
}

func TestMatch_DuplicateKeys(t *testing.T) {
	first := catRec("dup")
	first.Name = "first"
	second := catRec("DUP")
	second.Name = "second"

	store := []model.StoreRecord{storeRec("DUP", "s1"), storeRec("dup", "s2")}
	res := Match(store, []model.CatalogRecord{first, second})

	require.Len(t, res.Matched, 1)
	assert.Equal(t, "second", res.Matched[0].Catalog.Name, "last write wins")
	assert.Equal(t, "s1", res.Matched[0].Store.ExternalRef)

	require.Len(t, res.UnmatchedCatalog, 1)
	assert.Equal(t, "first", res.UnmatchedCatalog[0].Name)
	require.Len(t, res.UnmatchedStore, 1)
	assert.Equal(t, "s2", res.UnmatchedStore[0].ExternalRef)

	kinds := make(map[model.WarningKind]int)
	for _, w := range res.Warnings {
		kinds[w.Kind]++
	}
	assert.Equal(t, 1, kinds[model.WarningDuplicateCatalogKey])
	assert.Equal(t, 1, kinds[model.WarningDuplicateStoreKey])
	assertPartition(t, res, 2, 2)
}

func TestMatch_ShadowedCatalogRowStaysUnmatched(t *testing.T) {
	first := catRec("A")
	first.Name = "first"
	second := catRec("a")
	second.Name = "second"

	// "0A" reaches the shadowed row only through zero stripping.
	store := []model.StoreRecord{storeRec("A", "s1"), storeRec("0A", "s2")}
	res := Match(store, []model.CatalogRecord{first, second})

	require.Len(t, res.Matched, 1)
	assert.Equal(t, "second", res.Matched[0].Catalog.Name)
	assert.Equal(t, "s1", res.Matched[0].Store.ExternalRef)
	assert.Equal(t, model.ProvenanceExact, res.Matched[0].Provenance)

	require.Len(t, res.UnmatchedCatalog, 1)
	assert.Equal(t, "first", res.UnmatchedCatalog[0].Name)
	require.Len(t, res.UnmatchedStore, 1)
	assert.Equal(t, "s2", res.UnmatchedStore[0].ExternalRef)

	ids := make(map[string]int)
	for _, m := range res.Matched {
		ids[m.Identifier]++
	}
	for id, n := range ids {
		assert.Equal(t, 1, n, "identifier %s matched more than once", id)
	}
	assertPartition(t, res, 2, 2)
}

func TestMatch_Deterministic(t *testing.T) {
	store := []model.StoreRecord{storeRec("01", "a"), storeRec("2", "b"), storeRec("003", "c"), storeRec("x", "d")}
	catalog := []model.CatalogRecord{catRec("1"), catRec("02"), catRec("3"), catRec("Y")}

	first := Match(store, catalog)
	for range 5 {
		assert.Equal(t, first, Match(store, catalog))
	}
}

func TestMatchWithOverrides(t *testing.T) {
	store := []model.StoreRecord{storeRec("WOO-1", "101"), storeRec("", "102"), storeRec("C3", "103")}
	catalog := []model.CatalogRecord{catRec("ERP-1"), catRec("ERP-2"), catRec("C3")}
	confirmed := []model.ConfirmedMatch{
		{CatalogIdentifier: "erp-1", StoreIdentifier: "WOO-1", Confidence: 0.82},
		{CatalogIdentifier: "ERP-2", StoreRef: "102"},
		{CatalogIdentifier: "GONE", StoreRef: "103"},
	}

	res := MatchWithOverrides(store, catalog, confirmed)

	require.Len(t, res.Matched, 3)
	assert.Equal(t, model.ProvenanceManual, res.Matched[0].Provenance)
	assert.Equal(t, "ERP-1", res.Matched[0].Identifier)
	assert.InDelta(t, 0.82, res.Matched[0].Similarity, 1e-9)
	assert.Equal(t, model.ProvenanceManual, res.Matched[1].Provenance)
	assert.Equal(t, "102", res.Matched[1].Store.ExternalRef)
	assert.Equal(t, model.ProvenanceExact, res.Matched[2].Provenance)
	assert.Empty(t, res.UnmatchedStore)
	assert.Empty(t, res.UnmatchedCatalog)
}
