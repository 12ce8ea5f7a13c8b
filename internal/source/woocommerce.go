package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"

	"github.com/Veraticus/catalog-bridge/internal/model"
)

// wooProduct is the subset of a WooCommerce REST product or variation the
// bridge reads.
type wooProduct struct {
	ID               flexString    `json:"id"`
	ParentID         flexString    `json:"parent_id"`
	SKU              string        `json:"sku"`
	Name             string        `json:"name"`
	Type             string        `json:"type"`
	RegularPrice     flexValue     `json:"regular_price"`
	SalePrice        flexValue     `json:"sale_price"`
	StockQuantity    flexValue     `json:"stock_quantity"`
	StockStatus      string        `json:"stock_status"`
	TotalSales       flexValue     `json:"total_sales"`
	Description      string        `json:"description"`
	ShortDescription string        `json:"short_description"`
	Categories       []wooCategory `json:"categories"`
	IsVariation      bool          `json:"is_variation"`
}

type wooCategory struct {
	Name string `json:"name"`
}

func (p wooProduct) kind() model.ProductKind {
	switch {
	case p.IsVariation || p.Type == "variation":
		return model.KindVariation
	case p.Type == "variable":
		return model.KindVariable
	default:
		return model.KindSimple
	}
}

// wooStockStatus maps WooCommerce's flags onto the two-state model. Backorders
// remain purchasable.
func wooStockStatus(s string) (model.StockStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "instock", "in_stock", "onbackorder", "":
		return model.StockInStock, nil
	case "outofstock", "out_of_stock":
		return model.StockOutOfStock, nil
	default:
		return "", model.NewValidationError("stock_status", s, "unknown stock status")
	}
}

func (p wooProduct) toRecord() (model.StoreRecord, error) {
	rec := model.StoreRecord{
		Identifier:       strings.TrimSpace(p.SKU),
		Name:             strings.TrimSpace(p.Name),
		Description:      p.Description,
		ShortDescription: p.ShortDescription,
		ExternalRef:      string(p.ID),
		ParentRef:        string(p.ParentID),
		Kind:             p.kind(),
	}
	if rec.ParentRef == "0" {
		rec.ParentRef = ""
	}
	for _, c := range p.Categories {
		if name := strings.TrimSpace(c.Name); name != "" {
			rec.Categories = append(rec.Categories, name)
		}
	}

	var err error
	if rec.StockStatus, err = wooStockStatus(p.StockStatus); err != nil {
		return rec, err
	}

	// Variable containers carry no price of their own.
	if p.RegularPrice.valid {
		if rec.RegularPrice, err = model.ParsePrice("regular_price", p.RegularPrice.String()); err != nil {
			return rec, err
		}
	}
	if rec.SalePrice, err = model.ParseOptionalPrice("sale_price", p.SalePrice.String()); err != nil {
		return rec, err
	}

	qty, ok, err := p.StockQuantity.Int()
	if err != nil {
		return rec, model.NewValidationError("stock_quantity", p.StockQuantity.String(), err.Error())
	}
	if ok {
		rec.StockQuantity = &qty
	}

	sold, _, err := p.TotalSales.Int()
	if err != nil {
		return rec, model.NewValidationError("total_sales", p.TotalSales.String(), err.Error())
	}
	rec.UnitsSold = sold

	return rec, rec.Validate()
}

// StoreFile reads a WooCommerce product export: a JSON array of products and
// variations as returned by /wp-json/wc/v3/products.
type StoreFile struct {
	fs   afero.Fs
	path string
}

// NewStoreFile creates a store source reading path from fs.
func NewStoreFile(fs afero.Fs, path string) *StoreFile {
	return &StoreFile{fs: fs, path: path}
}

// Name identifies the source in logs.
func (s *StoreFile) Name() string {
	return "woocommerce:" + s.path
}

// FetchStore decodes and validates every product. Invalid records fail the load.
func (s *StoreFile) FetchStore(ctx context.Context) ([]model.StoreRecord, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read store export: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var products []wooProduct
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode store export %s: %w", s.path, err)
	}
	return convertAll(products, func(p wooProduct) (model.StoreRecord, string, error) {
		rec, err := p.toRecord()
		return rec, recordLabel(p.SKU, string(p.ID)), err
	})
}

// errSkipRecord drops a record from a load without failing it.
var errSkipRecord = errors.New("record skipped")

// convertAll converts every item and joins all conversion errors.
func convertAll[T, R any](items []T, convert func(T) (R, string, error)) ([]R, error) {
	out := make([]R, 0, len(items))
	var errs []error
	for i, item := range items {
		rec, label, err := convert(item)
		if errors.Is(err, errSkipRecord) {
			slog.Warn("Skipping export record", "index", i, "record", label, "reason", err)
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d (%s): %w", i, label, err))
			continue
		}
		out = append(out, rec)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func recordLabel(identifier, ref string) string {
	if strings.TrimSpace(identifier) != "" {
		return identifier
	}
	if ref != "" {
		return "id " + ref
	}
	return "no identifier"
}
