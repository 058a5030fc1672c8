// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objwatch.
//
// go-objwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-objwatch/pkg/adapters"
	"github.com/jeremyhahn/go-objwatch/pkg/cleanup"
	"github.com/jeremyhahn/go-objwatch/pkg/driver"
	"github.com/jeremyhahn/go-objwatch/pkg/report"
)

// Source and store type names.
const (
	SourceLocal  = "local"
	SourceMemory = "memory"
	SourceS3     = "s3"
	SourceGCS    = "gcs"
	SourceAzure  = "azure"

	StoreMemory = "memory"
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
)

// Config holds the CLI configuration settings.
type Config struct {
	Source      string
	SourcePath  string
	Bucket      string
	Region      string
	Endpoint    string
	AccessKey   string
	SecretKey   string
	AccountName string
	AccountKey  string

	Store     string
	StorePath string

	Threshold       int64
	IncludePrefix   string
	IncludeSuffix   string
	FollowEvictions bool
	ReportKey       string
	Window          time.Duration
	Workers         int

	Listen    string
	RateLimit float64
	Watch     bool

	LogLevel     string
	LogFormat    string
	OutputFormat string
}

// InitConfig initializes the configuration using Viper.
// Configuration priority: flags > env vars > config file > defaults.
func InitConfig(cfgFile string) (*viper.Viper, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("source", SourceLocal)
	v.SetDefault("source-path", "./buckets")
	v.SetDefault("store", StoreMemory)
	v.SetDefault("threshold", driver.DefaultThreshold)
	v.SetDefault("include-prefix", cleanup.DefaultPrefix)
	v.SetDefault("include-suffix", cleanup.DefaultSuffix)
	v.SetDefault("follow-evictions", true)
	v.SetDefault("report-key", report.DefaultKey)
	v.SetDefault("window", report.DefaultWindow)
	v.SetDefault("workers", 4)
	v.SetDefault("listen", ":8080")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "json")
	v.SetDefault("output-format", "text")

	// Set config file search paths
	if cfgFile != "" {
		// Use config file from the flag if provided
		v.SetConfigFile(cfgFile)
	} else {
		// Search for config in home directory and current directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".objwatch")
		v.SetConfigType("yaml")
	}

	// Bind environment variables; OBJWATCH_STORE_PATH maps to store-path
	v.SetEnvPrefix("OBJWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return v, nil
}

// GetConfig extracts the configuration from Viper into a Config struct.
func GetConfig(v *viper.Viper) *Config {
	return &Config{
		Source:          v.GetString("source"),
		SourcePath:      v.GetString("source-path"),
		Bucket:          v.GetString("bucket"),
		Region:          v.GetString("region"),
		Endpoint:        v.GetString("endpoint"),
		AccessKey:       v.GetString("access-key"),
		SecretKey:       v.GetString("secret-key"),
		AccountName:     v.GetString("account-name"),
		AccountKey:      v.GetString("account-key"),
		Store:           v.GetString("store"),
		StorePath:       v.GetString("store-path"),
		Threshold:       v.GetInt64("threshold"),
		IncludePrefix:   v.GetString("include-prefix"),
		IncludeSuffix:   v.GetString("include-suffix"),
		FollowEvictions: v.GetBool("follow-evictions"),
		ReportKey:       v.GetString("report-key"),
		Window:          v.GetDuration("window"),
		Workers:         v.GetInt("workers"),
		Listen:          v.GetString("listen"),
		RateLimit:       v.GetFloat64("rate-limit"),
		Watch:           v.GetBool("watch"),
		LogLevel:        v.GetString("log-level"),
		LogFormat:       v.GetString("log-format"),
		OutputFormat:    v.GetString("output-format"),
	}
}

// GetSourceSettings converts Config to object source settings.
func (c *Config) GetSourceSettings() map[string]string {
	settings := make(map[string]string)

	// Add non-empty settings
	if c.SourcePath != "" {
		settings["path"] = c.SourcePath
	}
	if c.Region != "" {
		settings["region"] = c.Region
	}
	if c.Endpoint != "" {
		settings["endpoint"] = c.Endpoint
	}
	if c.AccessKey != "" {
		settings["accessKey"] = c.AccessKey
	}
	if c.SecretKey != "" {
		settings["secretKey"] = c.SecretKey
	}
	if c.AccountName != "" {
		settings["accountName"] = c.AccountName
	}
	if c.AccountKey != "" {
		settings["accountKey"] = c.AccountKey
	}
	// S3-compatible endpoints rarely resolve virtual-hosted buckets
	if c.Source == SourceS3 && c.Endpoint != "" {
		settings["usePathStyle"] = "true"
	}
	return settings
}

// GetStoreSettings converts Config to record store settings.
func (c *Config) GetStoreSettings() map[string]string {
	settings := make(map[string]string)
	if c.StorePath != "" {
		settings["path"] = c.StorePath
	}
	return settings
}

// LogLevelValue parses LogLevel, defaulting to info.
func (c *Config) LogLevelValue() adapters.LogLevel {
	level, err := adapters.ParseLogLevel(c.LogLevel)
	if err != nil {
		return adapters.InfoLevel
	}
	return level
}

// DisplayConfig formats and displays the current configuration.
func DisplayConfig(cfg *Config, format string) string {
	switch format {
	case string(FormatJSON):
		return formatConfigJSON(cfg)
	case string(FormatTable):
		return formatConfigTable(cfg)
	default:
		return formatConfigText(cfg)
	}
}

type configRow struct {
	label string
	key   string
	value string
}

// configRows lists the settings to display, omitting empty optional ones.
func configRows(cfg *Config) []configRow {
	rows := []configRow{{"Source", "source", cfg.Source}}
	optional := []configRow{
		{"Source Path", "source_path", cfg.SourcePath},
		{"Bucket", "bucket", cfg.Bucket},
		{"Region", "region", cfg.Region},
		{"Endpoint", "endpoint", cfg.Endpoint},
		{"Access Key", "access_key", maskIfSet(cfg.AccessKey)},
		{"Secret Key", "secret_key", maskIfSet(cfg.SecretKey)},
		{"Account Name", "account_name", cfg.AccountName},
		{"Account Key", "account_key", maskIfSet(cfg.AccountKey)},
	}
	for _, row := range optional {
		if row.value != "" {
			rows = append(rows, row)
		}
	}
	rows = append(rows, configRow{"Store", "store", cfg.Store})
	if cfg.StorePath != "" {
		rows = append(rows, configRow{"Store Path", "store_path", cfg.StorePath})
	}
	rows = append(rows,
		configRow{"Threshold", "threshold", fmt.Sprint(cfg.Threshold)},
		configRow{"Include Prefix", "include_prefix", cfg.IncludePrefix},
		configRow{"Include Suffix", "include_suffix", cfg.IncludeSuffix},
		configRow{"Report Key", "report_key", cfg.ReportKey},
		configRow{"Window", "window", cfg.Window.String()},
		configRow{"Workers", "workers", fmt.Sprint(cfg.Workers)},
		configRow{"Listen", "listen", cfg.Listen},
		configRow{"Log Level", "log_level", cfg.LogLevel},
		configRow{"Log Format", "log_format", cfg.LogFormat},
		configRow{"Output Format", "output_format", cfg.OutputFormat},
	)
	return rows
}

func formatConfigText(cfg *Config) string {
	var result string
	for _, row := range configRows(cfg) {
		result += fmt.Sprintf("%s: %s\n", row.label, row.value)
	}
	return result
}

func formatConfigTable(cfg *Config) string {
	var result string
	result += "┌──────────────────┬────────────────────────────────────────┐\n"
	result += "│ Setting          │ Value                                  │\n"
	result += "├──────────────────┼────────────────────────────────────────┤\n"
	for _, row := range configRows(cfg) {
		result += fmt.Sprintf("│ %-16s │ %-38s │\n", row.label, truncate(row.value, 38))
	}
	result += "└──────────────────┴────────────────────────────────────────┘\n"
	return result
}

func formatConfigJSON(cfg *Config) string {
	rows := configRows(cfg)
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.key] = row.value
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}\n", err.Error())
	}
	return string(data) + "\n"
}

func maskIfSet(s string) string {
	if s == "" {
		return ""
	}
	return maskSecret(s)
}

// maskSecret masks sensitive information, showing only first 4 characters.
func maskSecret(s string) string {
	if len(s) < 5 {
		return "****"
	}
	return s[:4] + "****"
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// ValidateConfig validates the configuration for the configured source and store.
func ValidateConfig(cfg *Config) error {
	switch cfg.Source {
	case SourceLocal:
		if cfg.SourcePath == "" {
			return ErrSourcePathRequired
		}
		// Expand path if it contains ~
		path, err := expandHome(cfg.SourcePath)
		if err != nil {
			return err
		}
		cfg.SourcePath = path
	case SourceMemory, SourceGCS:
	case SourceS3:
		if cfg.Region == "" && cfg.Endpoint == "" {
			return ErrRegionRequired
		}
	case SourceAzure:
		if cfg.AccountName == "" {
			return ErrAccountRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedSource, cfg.Source)
	}

	switch cfg.Store {
	case StoreMemory:
	case StoreBadger, StoreSQLite:
		if cfg.StorePath == "" {
			return ErrStorePathRequired
		}
		path, err := expandHome(cfg.StorePath)
		if err != nil {
			return err
		}
		cfg.StorePath = path
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedStore, cfg.Store)
	}

	if cfg.Threshold < 0 {
		return ErrInvalidThreshold
	}
	if cfg.Window <= 0 {
		return ErrInvalidWindow
	}

	switch OutputFormat(cfg.OutputFormat) {
	case FormatText, FormatJSON, FormatTable:
	default:
		return ErrUnsupportedOutputFormat
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "", "json", "slog", "zerolog", "console":
	default:
		return ErrUnsupportedLogFormat
	}

	return nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}
