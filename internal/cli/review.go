package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/catalog-bridge/internal/model"
)

// ReviewQueue is the part of the approval workflow a reviewer drives.
type ReviewQueue interface {
	Actions() []model.PendingAction
	Approve(id string) error
	Reject(id string) error
}

// ReviewStats counts the decisions taken in one review session.
type ReviewStats struct {
	Approved int
	Rejected int
	Skipped  int
}

// Reviewer walks pending actions one at a time on a line terminal.
type Reviewer struct {
	reader *LineReader
	writer io.Writer
}

// NewReviewer creates a line-based reviewer.
func NewReviewer(r io.Reader, w io.Writer) *Reviewer {
	return &Reviewer{reader: NewLineReader(r), writer: w}
}

// Review prompts for every pending action. "A" approves the current and every
// remaining auto-fixable action; "q" or end of input stops, leaving the rest pending.
func (r *Reviewer) Review(ctx context.Context, queue ReviewQueue) (ReviewStats, error) {
	var stats ReviewStats
	var pending []model.PendingAction
	for _, a := range queue.Actions() {
		if a.State == model.ApprovalPending {
			pending = append(pending, a)
		}
	}

	approveAuto := false
	for i, a := range pending {
		if approveAuto && a.AutoFixable() {
			if err := queue.Approve(a.ID); err != nil {
				return stats, err
			}
			stats.Approved++
			continue
		}

		if _, err := fmt.Fprintln(r.writer, RenderBox(fmt.Sprintf("Action %d of %d", i+1, len(pending)), describeAction(a))); err != nil {
			return stats, err
		}
		if _, err := fmt.Fprint(r.writer, FormatPrompt("[a]pprove [r]eject [s]kip [A]pprove all auto-fixable [q]uit")); err != nil {
			return stats, err
		}

		answer, err := r.reader.ReadLine(ctx)
		if errors.Is(err, ErrInputCancelled) {
			return stats, ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			stats.Skipped += len(pending) - i
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read answer: %w", err)
		}

		switch strings.TrimSpace(answer) {
		case "a", "y":
			err = queue.Approve(a.ID)
			stats.Approved++
		case "A":
			approveAuto = true
			err = queue.Approve(a.ID)
			stats.Approved++
		case "r", "n":
			err = queue.Reject(a.ID)
			stats.Rejected++
		case "q":
			stats.Skipped += len(pending) - i
			return stats, nil
		default:
			stats.Skipped++
		}
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func describeAction(a model.PendingAction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", BoldStyle.Render(a.Identifier), a.Summary)
	if an := a.Anomaly; an != nil {
		fmt.Fprintf(&b, "%s  %s\n", FormatSeverity(an.Severity), an.Description)
	}
	fmt.Fprintf(&b, "fix: %s", a.Fix.Kind)
	if a.Fix.Price.Valid {
		fmt.Fprintf(&b, " → %s (%s)", a.Fix.Price.Decimal.StringFixed(2), a.Fix.PriceSource)
	}
	if a.Fix.NewIdentifier != "" {
		fmt.Fprintf(&b, " → %s", a.Fix.NewIdentifier)
	}
	if a.Fix.StockStatus != "" {
		fmt.Fprintf(&b, " → %s", a.Fix.StockStatus)
	}
	if a.AutoFixable() {
		b.WriteString(SubtleStyle.Render("  (auto-fixable)"))
	}
	return b.String()
}
