// Package config loads settings from an optional YAML file and LEDGER_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Sheets     SheetsConfig     `mapstructure:"sheets"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	BatchLog   BatchLogConfig   `mapstructure:"batchlog"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SheetsConfig locates the ledger spreadsheet.
type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// LedgerConfig holds partitioning settings.
type LedgerConfig struct {
	PartitionStyle string `mapstructure:"partition_style"`
	Validation     bool   `mapstructure:"validation"`
}

// IngestConfig holds parser settings.
type IngestConfig struct {
	HeaderSearchLimit int    `mapstructure:"header_search_limit"`
	ProfilesFile      string `mapstructure:"profiles_file"`
	PreviewLimit      int    `mapstructure:"preview_limit"`
}

// ClassifierConfig selects and configures the category oracle.
type ClassifierConfig struct {
	Mode     string        `mapstructure:"mode"`
	Model    string        `mapstructure:"model"`
	Project  string        `mapstructure:"project"`
	Location string        `mapstructure:"location"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ArchiveConfig names the bucket for raw statements. Empty disables it.
type ArchiveConfig struct {
	Bucket string `mapstructure:"bucket"`
}

// BatchLogConfig locates the BigQuery batch log. Empty project disables it.
type BatchLogConfig struct {
	Project string `mapstructure:"project"`
	Dataset string `mapstructure:"dataset"`
	Table   string `mapstructure:"table"`
}

// Classifier modes.
const (
	ModeHeuristic = "heuristic"
	ModeModel     = "model"
)

// Load reads configuration from file and env. Env var overrides use prefix
// LEDGER_, e.g. LEDGER_SHEETS_SPREADSHEET_ID.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("ledger.partition_style", "iso")
	v.SetDefault("ledger.validation", true)
	v.SetDefault("ingest.header_search_limit", 20)
	v.SetDefault("ingest.profiles_file", "")
	v.SetDefault("ingest.preview_limit", 500)
	v.SetDefault("classifier.mode", ModeHeuristic)
	v.SetDefault("classifier.model", "gemini-2.0-flash")
	v.SetDefault("classifier.project", "")
	v.SetDefault("classifier.location", "europe-west1")
	v.SetDefault("classifier.api_key", "")
	v.SetDefault("classifier.timeout", "10s")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("batchlog.project", "")
	v.SetDefault("batchlog.dataset", "finance")
	v.SetDefault("batchlog.table", "ingest_batches")

	v.SetConfigType("yaml")

	cfgPath := os.Getenv("LEDGER_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "statement-ledger"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("LEDGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// An explicitly named file must exist; the default location is optional.
		if cfgPath != "" {
			return Config{}, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks enumerated values and bounds.
func (c Config) Validate() error {
	switch c.Ledger.PartitionStyle {
	case "iso", "localized":
	default:
		return fmt.Errorf("invalid ledger.partition_style %q (want iso or localized)", c.Ledger.PartitionStyle)
	}
	switch c.Classifier.Mode {
	case ModeHeuristic, ModeModel:
	default:
		return fmt.Errorf("invalid classifier.mode %q (want heuristic or model)", c.Classifier.Mode)
	}
	if c.Ingest.PreviewLimit < 1 || c.Ingest.PreviewLimit > 5000 {
		return fmt.Errorf("ingest.preview_limit must be between 1 and 5000, got %d", c.Ingest.PreviewLimit)
	}
	if c.Ingest.HeaderSearchLimit < 1 {
		return fmt.Errorf("ingest.header_search_limit must be positive, got %d", c.Ingest.HeaderSearchLimit)
	}
	if c.Classifier.Mode == ModeModel && c.Classifier.Project == "" && c.Classifier.APIKey == "" {
		return fmt.Errorf("classifier.mode=model needs classifier.project or classifier.api_key")
	}
	return nil
}
