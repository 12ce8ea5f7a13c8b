package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/Veraticus/catalog-bridge/internal/report"
)

// sheetsKeys maps each export.sheets setting to its GOOGLE_SHEETS_* fallback.
var sheetsKeys = []struct {
	key string
	env string
	set func(c *report.SheetsConfig, v string)
}{
	{"export.sheets.service_account_path", "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", func(c *report.SheetsConfig, v string) { c.ServiceAccountPath = ExpandPath(v) }},
	{"export.sheets.client_id", "GOOGLE_SHEETS_CLIENT_ID", func(c *report.SheetsConfig, v string) { c.ClientID = v }},
	{"export.sheets.client_secret", "GOOGLE_SHEETS_CLIENT_SECRET", func(c *report.SheetsConfig, v string) { c.ClientSecret = v }},
	{"export.sheets.refresh_token", "GOOGLE_SHEETS_REFRESH_TOKEN", func(c *report.SheetsConfig, v string) { c.RefreshToken = v }},
	{"export.sheets.spreadsheet_id", "GOOGLE_SHEETS_SPREADSHEET_ID", func(c *report.SheetsConfig, v string) { c.SpreadsheetID = v }},
	{"export.sheets.spreadsheet_name", "GOOGLE_SHEETS_SPREADSHEET_NAME", func(c *report.SheetsConfig, v string) { c.SpreadsheetName = v }},
	{"export.sheets.time_zone", "GOOGLE_SHEETS_TIME_ZONE", func(c *report.SheetsConfig, v string) { c.TimeZone = v }},
}

// LoadSheetsConfig builds the Sheets writer config. Values set through viper
// (config file or BRIDGE_ env) win over the GOOGLE_SHEETS_* variables, which
// win over the defaults.
func LoadSheetsConfig(v *viper.Viper) (*report.SheetsConfig, error) {
	c := report.DefaultSheetsConfig()

	for _, k := range sheetsKeys {
		if val := v.GetString(k.key); val != "" {
			k.set(&c, val)
		} else if val := os.Getenv(k.env); val != "" {
			k.set(&c, val)
		}
	}
	if v.IsSet("export.sheets.batch_size") {
		c.BatchSize = v.GetInt("export.sheets.batch_size")
	}
	if v.IsSet("export.sheets.retry_attempts") {
		c.RetryAttempts = v.GetInt("export.sheets.retry_attempts")
	}
	if v.IsSet("export.sheets.formatting") {
		c.EnableFormatting = v.GetBool("export.sheets.formatting")
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
