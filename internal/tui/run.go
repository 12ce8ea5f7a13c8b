package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// Options configures the program's terminal.
type Options struct {
	Input     io.Reader
	Output    io.Writer
	AltScreen bool
}

// Run shows the review screen until the operator finishes or ctx ends.
func Run(ctx context.Context, queue Queue, opts Options) (Result, error) {
	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}

	final, err := tea.NewProgram(New(queue), progOpts...).Run()
	if err != nil {
		return Result{Outcome: OutcomeAbort}, fmt.Errorf("review screen failed: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return Result{Outcome: OutcomeAbort}, fmt.Errorf("unexpected model type %T", final)
	}
	return m.Result(), nil
}
