// Package storage provides the SQLite journal for confirmed matches, applied
// actions, price history and reconciliation passes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/catalog-bridge/internal/model"
	"github.com/Veraticus/catalog-bridge/internal/service"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrInvalidMatch  = errors.New("invalid confirmed match")
	ErrInvalidResult = errors.New("invalid action result")
	ErrInvalidPass   = errors.New("invalid pass summary")
	ErrInvalidLimit  = errors.New("limit must not be negative")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateLimit(limit int) error {
	if limit < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	return nil
}

func validateConfirmedMatch(m model.ConfirmedMatch) error {
	if strings.TrimSpace(m.CatalogIdentifier) == "" {
		return fmt.Errorf("%w: missing catalog identifier", ErrInvalidMatch)
	}
	if strings.TrimSpace(m.StoreIdentifier) == "" && strings.TrimSpace(m.StoreRef) == "" {
		return fmt.Errorf("%w: missing store identifier and reference", ErrInvalidMatch)
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidMatch)
	}
	return nil
}

func validateActionResult(r model.ActionResult) error {
	if r.ActionID == "" {
		return fmt.Errorf("%w: missing action ID", ErrInvalidResult)
	}
	switch r.Status {
	case model.ActionApplied, model.ActionFailed, model.ActionSkipped:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidResult, r.Status)
	}
	return nil
}

func validatePass(p service.PassSummary) error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidPass)
	}
	if p.StartedAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidPass)
	}
	if p.FinishedAt.Before(p.StartedAt) {
		return fmt.Errorf("%w: finished before it started", ErrInvalidPass)
	}
	return nil
}
