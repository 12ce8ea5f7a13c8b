package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provenance records how a catalog/store pair was established.
type Provenance string

// Provenance constants.
const (
	ProvenanceExact      Provenance = "auto-exact"
	ProvenanceNormalized Provenance = "auto-normalized"
	ProvenanceFuzzy      Provenance = "auto-fuzzy"
	ProvenanceManual     Provenance = "manual"
)

// ReconciledRecord pairs one catalog record with one store record.
type ReconciledRecord struct {
	Verdict    *PriceVerdict
	Identifier string
	Provenance Provenance
	Catalog    CatalogRecord
	Store      StoreRecord
	Similarity float64
}

// PriceMatches reports whether the store's regular price equals the catalog retail
// price to the cent. Unit-aware equivalence lives in Verdict.
func (r ReconciledRecord) PriceMatches() bool {
	return r.Store.RegularPrice.Sub(r.Catalog.RetailPrice).Abs().LessThan(decimal.New(1, -2))
}

// WarningKind classifies data quality problems found while matching.
type WarningKind string

// Warning kind constants.
const (
	WarningDuplicateCatalogKey WarningKind = "duplicate_catalog_key"
	WarningDuplicateStoreKey   WarningKind = "duplicate_store_key"
	WarningEmptyIdentifier     WarningKind = "empty_identifier"
)

// DataQualityWarning is a non-fatal input problem. The affected record is routed
// to the unmatched lists rather than failing the pass.
type DataQualityWarning struct {
	Kind       WarningKind
	Identifier string
	Detail     string
}

// ConfirmedMatch is an operator-confirmed pairing persisted across passes.
type ConfirmedMatch struct {
	MatchedAt         time.Time
	CatalogIdentifier string
	StoreIdentifier   string
	StoreRef          string
	MatchedBy         string
	Provenance        Provenance
	Confidence        float64
}

// ManualRatio is an operator-entered multiplier from catalog unit price to store price.
type ManualRatio struct {
	UpdatedAt  time.Time
	Identifier string
	Note       string
	Ratio      decimal.Decimal
}
