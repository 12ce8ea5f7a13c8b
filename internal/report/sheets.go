package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/catalog-bridge/internal/common"
	"github.com/Veraticus/catalog-bridge/internal/service"
)

// SheetsConfig holds the configuration for the Google Sheets writer.
type SheetsConfig struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	TimeZone           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultSheetsConfig returns a SheetsConfig with defaults.
func DefaultSheetsConfig() SheetsConfig {
	return SheetsConfig{
		SpreadsheetName:  "Catalog Reconciliation",
		EnableFormatting: true,
		TimeZone:         "Europe/Athens",
		BatchSize:        500,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// Validate checks that exactly one auth method is configured and the limits are sane.
func (c *SheetsConfig) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return fmt.Errorf("no authentication method configured")
	}
	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("multiple authentication methods configured; use either OAuth2 or service account")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	return nil
}

func (c *SheetsConfig) retryOptions() service.RetryOptions {
	attempts := c.RetryAttempts
	if attempts == 0 {
		attempts = 1
	}
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: c.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// SheetsWriter publishes reports to a Google spreadsheet, one tab per table.
type SheetsWriter struct {
	service *sheets.Service
	logger  *slog.Logger
	config  SheetsConfig
}

// NewSheetsWriter validates the config and connects to the Sheets API.
func NewSheetsWriter(ctx context.Context, config SheetsConfig, logger *slog.Logger) (*SheetsWriter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SheetsWriter{service: srv, logger: logger, config: config}, nil
}

func createSheetsService(ctx context.Context, config SheetsConfig) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oc := oauthConfig(config.ClientID, config.ClientSecret, "")
		tokenSource = oc.TokenSource(ctx, &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

// Write replaces the contents of every report tab.
func (w *SheetsWriter) Write(ctx context.Context, r *Report) error {
	w.logger.Info("starting sheets export", "pass_id", r.PassID, "tables", len(r.Tables))

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx, r)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	retryOpts := w.config.retryOptions()
	var sheetIDs map[string]int64
	err = common.WithRetry(ctx, func() error {
		var ensureErr error
		sheetIDs, ensureErr = w.ensureTabs(ctx, spreadsheetID, r.Tables)
		return ensureErr
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to prepare tabs: %w", err)
	}

	for _, t := range r.Tables {
		values := t.Values()
		err := common.WithRetry(ctx, func() error {
			if clearErr := w.clearTab(ctx, spreadsheetID, t.Name); clearErr != nil {
				return clearErr
			}
			return w.writeTab(ctx, spreadsheetID, t.Name, values)
		}, retryOpts)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", t.Name, err)
		}
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, r.Tables, sheetIDs)
		}, retryOpts)
		if err != nil {
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("sheets export completed", "spreadsheet_id", spreadsheetID)
	return nil
}

func (w *SheetsWriter) getOrCreateSpreadsheet(ctx context.Context, r *Report) (string, error) {
	if w.config.SpreadsheetID != "" {
		if _, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
	}
	for _, t := range r.Tables {
		spreadsheet.Sheets = append(spreadsheet.Sheets, &sheets.Sheet{
			Properties: &sheets.SheetProperties{Title: t.Name},
		})
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}
	w.logger.Info("created new spreadsheet", "id", created.SpreadsheetId, "url", created.SpreadsheetUrl)
	return created.SpreadsheetId, nil
}

// ensureTabs adds any missing tabs and returns the sheet id of every tab by title.
func (w *SheetsWriter) ensureTabs(ctx context.Context, spreadsheetID string, tables []Table) (map[string]int64, error) {
	existing, err := w.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, classifyAPIError(err)
	}
	ids := make(map[string]int64, len(existing.Sheets))
	for _, s := range existing.Sheets {
		ids[s.Properties.Title] = s.Properties.SheetId
	}

	requests := addSheetRequests(tables, ids)
	if len(requests) == 0 {
		return ids, nil
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return nil, classifyAPIError(err)
	}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil {
			p := reply.AddSheet.Properties
			ids[p.Title] = p.SheetId
		}
	}
	return ids, nil
}

// classifyAPIError marks quota and server errors as retryable.
func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if err == nil || !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == 429:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Code >= 500:
		return &common.RetryableError{Err: err, Retryable: true}
	default:
		return err
	}
}

func addSheetRequests(tables []Table, existing map[string]int64) []*sheets.Request {
	var requests []*sheets.Request
	for _, t := range tables {
		if _, ok := existing[t.Name]; ok {
			continue
		}
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: t.Name}},
		})
	}
	return requests
}

func (w *SheetsWriter) clearTab(ctx context.Context, spreadsheetID, name string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, tabRange(name, "A:Z"), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return classifyAPIError(err)
}

func (w *SheetsWriter) writeTab(ctx context.Context, spreadsheetID, name string, values [][]any) error {
	for _, b := range batches(len(values), w.config.BatchSize) {
		vr := &sheets.ValueRange{Values: values[b.start:b.end]}
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, tabRange(name, fmt.Sprintf("A%d", b.start+1)), vr).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", b.start+1, classifyAPIError(err))
		}
		w.logger.Debug("wrote batch", "tab", name, "start_row", b.start+1, "rows", b.end-b.start)
	}
	return nil
}

func (w *SheetsWriter) applyFormatting(ctx context.Context, spreadsheetID string, tables []Table, ids map[string]int64) error {
	requests := formatRequests(tables, ids)
	if len(requests) == 0 {
		return nil
	}
	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

// formatRequests bolds and freezes each header row and auto-sizes the columns.
func formatRequests(tables []Table, ids map[string]int64) []*sheets.Request {
	var requests []*sheets.Request
	for _, t := range tables {
		id, ok := ids[t.Name]
		if !ok || len(t.Header) == 0 {
			continue
		}
		cols := int64(len(t.Header))
		requests = append(requests,
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:          id,
						StartRowIndex:    0,
						EndRowIndex:      1,
						StartColumnIndex: 0,
						EndColumnIndex:   cols,
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat: &sheets.TextFormat{Bold: true},
						},
					},
					Fields: "userEnteredFormat.textFormat",
				},
			},
			&sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId:        id,
						GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
			&sheets.Request{
				AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
					Dimensions: &sheets.DimensionRange{
						SheetId:    id,
						Dimension:  "COLUMNS",
						StartIndex: 0,
						EndIndex:   cols,
					},
				},
			},
		)
	}
	return requests
}

type batch struct {
	start, end int
}

func batches(total, size int) []batch {
	if size <= 0 {
		size = total
	}
	var out []batch
	for i := 0; i < total; i += size {
		out = append(out, batch{start: i, end: min(i+size, total)})
	}
	return out
}

func tabRange(name, cells string) string {
	return fmt.Sprintf("'%s'!%s", name, cells)
}
