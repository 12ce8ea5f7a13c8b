package report

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
)

// XLSXWriter saves reports as Excel workbooks, one sheet per table.
type XLSXWriter struct {
	fs   afero.Fs
	path string
}

// NewXLSXWriter creates a writer that saves to path on fs.
func NewXLSXWriter(fs afero.Fs, path string) *XLSXWriter {
	return &XLSXWriter{fs: fs, path: path}
}

// Write renders and saves the workbook.
func (w *XLSXWriter) Write(ctx context.Context, r *Report) error {
	if len(r.Tables) == 0 {
		return fmt.Errorf("report %s has no tables", r.PassID)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, t := range r.Tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.Name); err != nil {
				return fmt.Errorf("failed to rename first sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", t.Name, err)
		}
		if err := writeTable(f, t, header); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := w.fs.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	out, err := w.fs.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", w.path, err)
	}
	if _, err := f.WriteTo(out); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", w.path, err)
	}

	slog.Info("Wrote XLSX report", "path", w.path, "sheets", len(r.Tables))
	return nil
}

func writeTable(f *excelize.File, t Table, headerStyle int) error {
	for i, row := range t.Values() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Name, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", t.Name, i+1, err)
		}
	}

	if len(t.Header) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(t.Header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(t.Name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", t.Name, err)
	}
	return f.SetPanes(t.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
