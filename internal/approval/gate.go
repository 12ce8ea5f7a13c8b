package approval

import (
	"context"
	"fmt"

	"github.com/Veraticus/catalog-bridge/internal/model"
)

// DefaultBulkThreshold is the largest batch that may run without confirmation.
const DefaultBulkThreshold = 10

// ConfirmationRequest describes why a batch needs operator confirmation.
type ConfirmationRequest struct {
	Actions []model.PendingAction
	Reasons []string
}

// Confirmer asks the operator to allow a gated batch.
type Confirmer interface {
	Confirm(ctx context.Context, req ConfirmationRequest) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, req ConfirmationRequest) (bool, error)

// Confirm calls f.
func (f ConfirmerFunc) Confirm(ctx context.Context, req ConfirmationRequest) (bool, error) {
	return f(ctx, req)
}

// GateReasons lists every reason a batch requires confirmation. An empty
// result means the batch may run directly.
func GateReasons(actions []model.PendingAction, bulkThreshold int) []string {
	if bulkThreshold <= 0 {
		bulkThreshold = DefaultBulkThreshold
	}

	var reasons []string
	if len(actions) > bulkThreshold {
		reasons = append(reasons, fmt.Sprintf("%d actions exceed the bulk threshold of %d", len(actions), bulkThreshold))
	}
	for _, a := range actions {
		switch {
		case a.Fix.Kind == model.FixDeleteProduct:
			reasons = append(reasons, fmt.Sprintf("deletes product %s", a.Identifier))
		case a.Fix.Kind == model.FixChangeIdentifier:
			reasons = append(reasons, fmt.Sprintf("changes SKU of %s to %s", a.Identifier, a.Fix.NewIdentifier))
		case a.Fix.Destructive():
			reasons = append(reasons, fmt.Sprintf("sets a %s-sourced price on %s", priceSourceLabel(a.Fix.PriceSource), a.Identifier))
		}
	}
	return reasons
}

func priceSourceLabel(src model.PriceSource) string {
	if src == "" {
		return "unknown"
	}
	return string(src)
}
