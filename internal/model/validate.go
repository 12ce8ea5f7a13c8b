package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		switch d := field.Interface().(type) {
		case decimal.Decimal:
			f, _ := d.Float64()
			return f
		case decimal.NullDecimal:
			if !d.Valid {
				return nil
			}
			f, _ := d.Decimal.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{}, decimal.NullDecimal{})
	return v
}

// Validate checks a catalog record at the ingestion boundary.
func (c CatalogRecord) Validate() error {
	return toValidationError(validate.Struct(c))
}

// Validate checks a storefront record at the ingestion boundary.
func (s StoreRecord) Validate() error {
	return toValidationError(validate.Struct(s))
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return NewValidationError(fe.Field(), fmt.Sprint(fe.Value()), "failed "+fe.Tag()+" check")
}

// ParsePrice parses a price string as delivered by either source. A single
// decimal comma is accepted; anything else that is not a non-negative decimal
// is rejected.
func ParsePrice(field, raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, NewValidationError(field, raw, "empty price")
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") || strings.Count(s, ",") > 1 {
			return decimal.Zero, NewValidationError(field, raw, "ambiguous decimal separator")
		}
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewValidationError(field, raw, "not a number")
	}
	if d.IsNegative() {
		return decimal.Zero, NewValidationError(field, raw, "negative price")
	}
	return d, nil
}

// ParseOptionalPrice is ParsePrice for fields where an empty string means absent.
func ParseOptionalPrice(field, raw string) (decimal.NullDecimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := ParsePrice(field, raw)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}
