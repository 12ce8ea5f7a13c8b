package match

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/Veraticus/catalog-bridge/internal/model"
	"github.com/Veraticus/catalog-bridge/internal/normalize"
)

// DefaultThreshold is the minimum combined score for a fuzzy candidate.
const DefaultThreshold = 0.7

const (
	nameWeight = 0.6
	idWeight   = 0.4
)

// Options tunes fuzzy matching.
type Options struct {
	// Threshold is the minimum combined score. Zero means DefaultThreshold.
	Threshold float64
	// Blocking restricts scoring to pairs whose names share a first token.
	// Partial identifier matches are always scored.
	Blocking bool
}

// DefaultOptions returns the standard fuzzy matching options.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold}
}

// Candidate is an advisory pairing. It becomes a reconciled record only
// through Confirm.
type Candidate struct {
	Store          model.StoreRecord
	Catalog        model.CatalogRecord
	Score          float64
	NameSimilarity float64
	IDSimilarity   float64
	StoreIndex     int
	CatalogIndex   int
	PartialID      bool
}

type fuzzyItem struct {
	name  string
	id    string
	zero  string
	token string
}

func prepare(name, id string) fuzzyItem {
	folded := normalize.Label(strings.TrimSpace(name))
	item := fuzzyItem{name: folded}
	if fields := strings.Fields(folded); len(fields) > 0 {
		item.token = fields[0]
	}
	item.id = normalize.Normalize(id)
	if item.id != "" {
		item.zero = normalize.StripLeadingZeros(item.id)
	}
	return item
}

// FuzzyMatch scores every store/catalog pair and returns candidates sorted by
// score. Inputs are never modified. The context is checked between pairs.
func FuzzyMatch(ctx context.Context, store []model.StoreRecord, catalog []model.CatalogRecord, opts Options) ([]Candidate, error) {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	catItems := make([]fuzzyItem, len(catalog))
	for j, c := range catalog {
		catItems[j] = prepare(c.Name, c.Identifier)
	}

	var out []Candidate
	for i, s := range store {
		si := prepare(s.Name, s.Identifier)
		if si.name == "" {
			continue
		}
		for j, ci := range catItems {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if ci.name == "" {
				continue
			}

			partial := si.zero != "" && si.zero == ci.zero
			if opts.Blocking && !partial && si.token != ci.token {
				continue
			}

			nameSim := Similarity(si.name, ci.name)
			idSim := 0.0
			switch {
			case partial:
				idSim = 1.0
			case si.id != "" && ci.id != "":
				idSim = Similarity(si.id, ci.id)
			}

			score := nameWeight*nameSim + idWeight*idSim
			if score < threshold && !partial {
				continue
			}
			out = append(out, Candidate{
				Store:          s,
				Catalog:        catalog[j],
				Score:          score,
				NameSimilarity: nameSim,
				IDSimilarity:   idSim,
				StoreIndex:     i,
				CatalogIndex:   j,
				PartialID:      partial,
			})
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		ca, cb := out[a], out[b]
		if ca.Score != cb.Score {
			return ca.Score > cb.Score
		}
		da, db := ca.lengthDiff(), cb.lengthDiff()
		if da != db {
			return da < db
		}
		if ca.StoreIndex != cb.StoreIndex {
			return ca.StoreIndex < cb.StoreIndex
		}
		return ca.CatalogIndex < cb.CatalogIndex
	})

	return out, nil
}

func (c Candidate) lengthDiff() int {
	d := utf8.RuneCountInString(normalize.Normalize(c.Store.Identifier)) -
		utf8.RuneCountInString(normalize.Normalize(c.Catalog.Identifier))
	if d < 0 {
		return -d
	}
	return d
}

// Similarity is 1 - levenshtein(a, b) / max(len(a), len(b)) over runes.
// Two empty strings are identical.
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// Confirm turns a candidate into a reconciled record.
func Confirm(c Candidate) model.ReconciledRecord {
	return model.ReconciledRecord{
		Identifier: normalize.Normalize(c.Catalog.Identifier),
		Provenance: model.ProvenanceFuzzy,
		Catalog:    c.Catalog,
		Store:      c.Store,
		Similarity: c.Score,
	}
}

// BestPerStore greedily selects a one-to-one subset from sorted candidates:
// each store and catalog record appears at most once.
func BestPerStore(candidates []Candidate) []Candidate {
	usedStore := make(map[int]bool)
	usedCatalog := make(map[int]bool)
	var out []Candidate
	for _, c := range candidates {
		if usedStore[c.StoreIndex] || usedCatalog[c.CatalogIndex] {
			continue
		}
		usedStore[c.StoreIndex] = true
		usedCatalog[c.CatalogIndex] = true
		out = append(out, c)
	}
	return out
}
