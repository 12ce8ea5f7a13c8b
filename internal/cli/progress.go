package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/catalog-bridge/internal/approval"
)

// Progress renders apply progress as a terminal bar.
type Progress struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
	last   int
	mu     sync.Mutex
}

// NewProgress creates a progress renderer writing to w.
func NewProgress(w io.Writer) *Progress {
	return &Progress{writer: w}
}

// Func adapts the renderer to the workflow's progress callback.
func (p *Progress) Func() approval.ProgressFunc {
	return p.Update
}

// Update advances the bar to done out of total.
func (p *Progress) Update(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.writer),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan][bold]Applying actions...[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprintln(p.writer)
			}),
		)
	}
	if done <= p.last {
		return
	}
	if err := p.bar.Add(done - p.last); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
	p.last = done
}

// Done reports how many steps have been rendered.
func (p *Progress) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
