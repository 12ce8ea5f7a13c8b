package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/catalog-bridge/internal/approval"
)

// maxListedActions caps how many actions a confirmation prompt lists.
const maxListedActions = 15

// Confirmer asks the operator on a terminal before a gated batch runs.
type Confirmer struct {
	reader    *LineReader
	writer    io.Writer
	assumeYes bool
}

// NewConfirmer creates a terminal confirmer. With assumeYes the prompt is
// printed but answered automatically.
func NewConfirmer(r io.Reader, w io.Writer, assumeYes bool) *Confirmer {
	return &Confirmer{reader: NewLineReader(r), writer: w, assumeYes: assumeYes}
}

// Confirm prints the reasons and the batch, then reads a y/N answer. End of
// input declines.
func (c *Confirmer) Confirm(ctx context.Context, req approval.ConfirmationRequest) (bool, error) {
	var b strings.Builder
	for _, r := range req.Reasons {
		fmt.Fprintf(&b, "%s %s\n", WarningStyle.Render(WarningIcon), r)
	}
	b.WriteString("\n")
	for i, a := range req.Actions {
		if i == maxListedActions {
			fmt.Fprintf(&b, "%s\n", SubtleStyle.Render(fmt.Sprintf("... and %d more", len(req.Actions)-maxListedActions)))
			break
		}
		fmt.Fprintf(&b, "  %-14s %s\n", a.Identifier, a.Summary)
	}
	if _, err := fmt.Fprintln(c.writer, RenderBox("Confirmation required", strings.TrimRight(b.String(), "\n"))); err != nil {
		return false, fmt.Errorf("failed to write confirmation prompt: %w", err)
	}

	prompt := FormatPrompt(fmt.Sprintf("Apply %d actions? [y/N]", len(req.Actions)))
	if c.assumeYes {
		_, err := fmt.Fprintln(c.writer, prompt+"y (--yes)")
		return true, err
	}
	if _, err := fmt.Fprint(c.writer, prompt); err != nil {
		return false, err
	}

	answer, err := c.reader.ReadLine(ctx)
	switch {
	case errors.Is(err, ErrInputCancelled):
		return false, ctx.Err()
	case errors.Is(err, io.EOF):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	return parseYes(answer), nil
}

func parseYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
