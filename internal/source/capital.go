package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"

	"github.com/Veraticus/catalog-bridge/internal/model"
)

// capitalItem is one STOCKITEMS row from the Capital ERP getdata service.
type capitalItem struct {
	Code        flexString `json:"CODE"`
	Descr       string     `json:"DESCR"`
	RetailPrice flexValue  `json:"RTLPRICE"`
	Wholesale   flexValue  `json:"WHSPRICE"`
	Discount    flexValue  `json:"DISCOUNT"`
	Balance     flexValue  `json:"BALANCEQTY"`
}

// capitalResponse is the getdata envelope. Depending on the server version the
// rows arrive under data, STOCKITEMS or rows.
type capitalResponse struct {
	Message    string        `json:"message"`
	Data       []capitalItem `json:"data"`
	StockItems []capitalItem `json:"STOCKITEMS"`
	Rows       []capitalItem `json:"rows"`
	Success    *bool         `json:"success"`
}

func (r capitalResponse) items() []capitalItem {
	switch {
	case len(r.Data) > 0:
		return r.Data
	case len(r.StockItems) > 0:
		return r.StockItems
	default:
		return r.Rows
	}
}

// optionalAmount parses a numeric field where absence means zero.
func optionalAmount(field string, v flexValue) (decimal.Decimal, error) {
	if !v.valid {
		return decimal.Zero, nil
	}
	return model.ParsePrice(field, v.String())
}

func (c capitalItem) toRecord() (model.CatalogRecord, error) {
	rec := model.CatalogRecord{
		Identifier: strings.TrimSpace(string(c.Code)),
		Name:       strings.TrimSpace(c.Descr),
	}
	// Rows without a code cannot take part in matching.
	if rec.Identifier == "" {
		return rec, fmt.Errorf("%w: empty CODE", errSkipRecord)
	}

	var err error
	if rec.RetailPrice, err = optionalAmount("RTLPRICE", c.RetailPrice); err != nil {
		return rec, err
	}
	if rec.WholesalePrice, err = optionalAmount("WHSPRICE", c.Wholesale); err != nil {
		return rec, err
	}
	if rec.DiscountPercent, err = optionalAmount("DISCOUNT", c.Discount); err != nil {
		return rec, err
	}

	// Stock balances may be negative after oversell, so they bypass ParsePrice.
	if c.Balance.valid {
		qty, err := decimal.NewFromString(strings.Replace(strings.TrimSpace(c.Balance.String()), ",", ".", 1))
		if err != nil {
			return rec, model.NewValidationError("BALANCEQTY", c.Balance.String(), "not a number")
		}
		rec.Quantity = qty
	}

	return rec, rec.Validate()
}

// CatalogFile reads a Capital ERP STOCKITEMS export: either the raw getdata
// response or a bare JSON array of rows.
type CatalogFile struct {
	fs   afero.Fs
	path string
}

// NewCatalogFile creates a catalog source reading path from fs.
func NewCatalogFile(fs afero.Fs, path string) *CatalogFile {
	return &CatalogFile{fs: fs, path: path}
}

// Name identifies the source in logs.
func (c *CatalogFile) Name() string {
	return "capital:" + c.path
}

// FetchCatalog decodes and validates every row. Invalid rows fail the load.
func (c *CatalogFile) FetchCatalog(ctx context.Context) ([]model.CatalogRecord, error) {
	data, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog export: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := decodeCapital(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode catalog export %s: %w", c.path, err)
	}
	return convertAll(items, func(it capitalItem) (model.CatalogRecord, string, error) {
		rec, err := it.toRecord()
		return rec, recordLabel(string(it.Code), ""), err
	})
}

func decodeCapital(data []byte) ([]capitalItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []capitalItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var resp capitalResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, err
	}
	if resp.Success != nil && !*resp.Success {
		return nil, fmt.Errorf("export reports failure: %s", resp.Message)
	}
	return resp.items(), nil
}
