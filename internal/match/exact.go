// Package match pairs storefront records with ERP catalog records.
package match

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/Veraticus/catalog-bridge/internal/model"
	"github.com/Veraticus/catalog-bridge/internal/normalize"
)

// Result is the outcome of a matching pass. Every input record appears in
// exactly one of Matched, UnmatchedStore, UnmatchedCatalog or Skipped.
type Result struct {
	Matched          []model.ReconciledRecord
	UnmatchedStore   []model.StoreRecord
	UnmatchedCatalog []model.CatalogRecord
	Skipped          []model.StoreRecord
	Warnings         []model.DataQualityWarning
}

type storeState int

const (
	statePending storeState = iota
	stateMatched
	stateSkipped
	stateUnmatched
)

type pairing struct {
	record     model.ReconciledRecord
	storeIndex int
}

type matcher struct {
	store      []model.StoreRecord
	catalog    []model.CatalogRecord
	states     []storeState
	consumed   []bool
	exactIndex map[string]int
	pairs      []pairing
	warnings   []model.DataQualityWarning
}

// Match pairs records by normalized identifier, falling back to the
// zero-stripped identifier. Exact matches are resolved for every store record
// before any zero-stripped lookup, so the fallback never takes a catalog record
// an exact match would have claimed.
func Match(store []model.StoreRecord, catalog []model.CatalogRecord) Result {
	return MatchWithOverrides(store, catalog, nil)
}

// MatchWithOverrides applies operator-confirmed pairs first, then matches the
// rest as Match does.
func MatchWithOverrides(store []model.StoreRecord, catalog []model.CatalogRecord, confirmed []model.ConfirmedMatch) Result {
	m := &matcher{
		store:    store,
		catalog:  catalog,
		states:   make([]storeState, len(store)),
		consumed: make([]bool, len(catalog)),
	}

	m.buildExactIndex()
	m.screenStore()
	m.applyOverrides(confirmed)
	m.routeEmptyIdentifiers()
	m.exactPhase()
	m.zeroStrippedPhase()

	return m.result()
}

func (m *matcher) warn(kind model.WarningKind, id, detail string) {
	m.warnings = append(m.warnings, model.DataQualityWarning{Kind: kind, Identifier: id, Detail: detail})
	slog.Warn("Data quality issue during matching", "kind", kind, "identifier", id, "detail", detail)
}

func (m *matcher) buildExactIndex() {
	m.exactIndex = make(map[string]int, len(m.catalog))
	for i, c := range m.catalog {
		key := normalize.Normalize(c.Identifier)
		if key == "" {
			m.warn(model.WarningEmptyIdentifier, "", fmt.Sprintf("catalog record %q has no identifier", c.Name))
			continue
		}
		if prev, dup := m.exactIndex[key]; dup {
			m.warn(model.WarningDuplicateCatalogKey, key,
				fmt.Sprintf("catalog rows %d and %d share an identifier, keeping the later one", prev, i))
		}
		m.exactIndex[key] = i
	}
}

// screenStore skips containers and routes duplicate store identifiers to unmatched.
func (m *matcher) screenStore() {
	seen := make(map[string]int, len(m.store))
	for i, s := range m.store {
		if s.IsContainer() {
			m.states[i] = stateSkipped
			continue
		}
		key := normalize.Normalize(s.Identifier)
		if key == "" {
			continue
		}
		if first, dup := seen[key]; dup {
			m.states[i] = stateUnmatched
			m.warn(model.WarningDuplicateStoreKey, key,
				fmt.Sprintf("store record %s repeats the identifier of record %s", s.ExternalRef, m.store[first].ExternalRef))
			continue
		}
		seen[key] = i
	}
}

func (m *matcher) applyOverrides(confirmed []model.ConfirmedMatch) {
	if len(confirmed) == 0 {
		return
	}

	byRef := make(map[string]int)
	byID := make(map[string]int)
	for i, s := range m.store {
		if m.states[i] != statePending {
			continue
		}
		if s.ExternalRef != "" {
			byRef[s.ExternalRef] = i
		}
		if key := normalize.Normalize(s.Identifier); key != "" {
			byID[key] = i
		}
	}

	for _, cm := range confirmed {
		ci, ok := m.exactIndex[normalize.Normalize(cm.CatalogIdentifier)]
		if !ok || m.consumed[ci] {
			continue
		}
		si, ok := byRef[cm.StoreRef]
		if !ok || cm.StoreRef == "" {
			si, ok = byID[normalize.Normalize(cm.StoreIdentifier)]
		}
		if !ok || m.states[si] != statePending {
			continue
		}
		m.pair(si, ci, model.ProvenanceManual, cm.Confidence)
	}
}

func (m *matcher) routeEmptyIdentifiers() {
	for i, s := range m.store {
		if m.states[i] != statePending || normalize.Normalize(s.Identifier) != "" {
			continue
		}
		m.states[i] = stateUnmatched
		m.warn(model.WarningEmptyIdentifier, "", fmt.Sprintf("store record %s (%q) has no identifier", s.ExternalRef, s.Name))
	}
}

func (m *matcher) exactPhase() {
	for i, s := range m.store {
		if m.states[i] != statePending {
			continue
		}
		ci, ok := m.exactIndex[normalize.Normalize(s.Identifier)]
		if !ok || m.consumed[ci] {
			continue
		}
		m.pair(i, ci, model.ProvenanceExact, 0)
	}
}

func (m *matcher) zeroStrippedPhase() {
	zeroIndex := make(map[string]int)
	for i, c := range m.catalog {
		if m.consumed[i] {
			continue
		}
		key := normalize.Normalize(c.Identifier)
		if key == "" {
			continue
		}
		// A row shadowed by a later duplicate stays unmatched.
		if m.exactIndex[key] != i {
			continue
		}
		zkey := normalize.StripLeadingZeros(key)
		if prev, dup := zeroIndex[zkey]; dup {
			m.warn(model.WarningDuplicateCatalogKey, zkey,
				fmt.Sprintf("catalog identifiers %s and %s collapse without leading zeros, keeping the later one",
					normalize.Normalize(m.catalog[prev].Identifier), key))
		}
		zeroIndex[zkey] = i
	}

	for i, s := range m.store {
		if m.states[i] != statePending {
			continue
		}
		_, zkey := normalize.Key(s.Identifier)
		if ci, ok := zeroIndex[zkey]; ok && !m.consumed[ci] {
			m.pair(i, ci, model.ProvenanceNormalized, 0)
			continue
		}
		m.states[i] = stateUnmatched
	}
}

func (m *matcher) pair(si, ci int, provenance model.Provenance, similarity float64) {
	m.states[si] = stateMatched
	m.consumed[ci] = true
	m.pairs = append(m.pairs, pairing{
		storeIndex: si,
		record: model.ReconciledRecord{
			Identifier: normalize.Normalize(m.catalog[ci].Identifier),
			Provenance: provenance,
			Catalog:    m.catalog[ci],
			Store:      m.store[si],
			Similarity: similarity,
		},
	})
}

func (m *matcher) result() Result {
	sort.SliceStable(m.pairs, func(i, j int) bool { return m.pairs[i].storeIndex < m.pairs[j].storeIndex })

	res := Result{
		Matched:  make([]model.ReconciledRecord, 0, len(m.pairs)),
		Warnings: m.warnings,
	}
	for _, p := range m.pairs {
		res.Matched = append(res.Matched, p.record)
	}
	for i, s := range m.store {
		switch m.states[i] {
		case stateSkipped:
			res.Skipped = append(res.Skipped, s)
		case stateUnmatched, statePending:
			res.UnmatchedStore = append(res.UnmatchedStore, s)
		case stateMatched:
		}
	}
	for i, c := range m.catalog {
		if !m.consumed[i] {
			res.UnmatchedCatalog = append(res.UnmatchedCatalog, c)
		}
	}
	return res
}
