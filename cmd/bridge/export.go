package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/catalog-bridge/internal/cli"
	"github.com/Veraticus/catalog-bridge/internal/config"
	"github.com/Veraticus/catalog-bridge/internal/report"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a pass report to Excel or Google Sheets",
		Long: `Run a pass and write its summary, matched records, unmatched records and
anomalies as one sheet each.`,
		Example: `  bridge export --output reconciliation.xlsx
  bridge export --format sheets`,
		RunE: runExport,
	}

	cmd.Flags().String("format", "", "Output format: xlsx or sheets (default: export.format)")
	cmd.Flags().StringP("output", "o", "", "Workbook path for xlsx (default: <export.dir>/reconciliation-<date>.xlsx)")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = sess.settings.Export.Format
	}

	var (
		writer report.Writer
		target string
	)
	switch format {
	case "xlsx":
		target, _ = cmd.Flags().GetString("output")
		if target == "" {
			target = filepath.Join(sess.settings.Export.Dir,
				fmt.Sprintf("reconciliation-%s.xlsx", time.Now().Format("2006-01-02")))
		}
		writer = report.NewXLSXWriter(sess.fs, target)
	case "sheets":
		loadSavedRefreshToken()
		sheetsConfig, err := config.LoadSheetsConfig(viper.GetViper())
		if err != nil {
			return fmt.Errorf("google sheets not configured: %w", err)
		}
		writer, err = report.NewSheetsWriter(ctx, *sheetsConfig, slog.Default())
		if err != nil {
			return err
		}
		target = sheetsConfig.SpreadsheetName
	default:
		return fmt.Errorf("unknown export format %q: expected xlsx or sheets", format)
	}

	result, err := sess.runPass(ctx)
	if err != nil {
		return err
	}

	if err := writer.Write(ctx, report.Build(result)); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Exported pass %s to %s", result.ID, target)))
	return nil
}

// loadSavedRefreshToken falls back to the token saved by 'bridge auth sheets'
// when no refresh token is configured.
func loadSavedRefreshToken() {
	if viper.GetString("export.sheets.refresh_token") != "" || os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN") != "" {
		return
	}
	path, err := sheetsTokenFile()
	if err != nil {
		return
	}
	token, err := report.LoadToken(path)
	if err != nil {
		slog.Debug("No saved sheets token", "path", path, "error", err)
		return
	}
	if token.RefreshToken != "" {
		viper.Set("export.sheets.refresh_token", token.RefreshToken)
	}
}

func sheetsTokenFile() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "bridge", "sheets-token.json"), nil
}
