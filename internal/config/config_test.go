package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LEDGER_CONFIG", "")
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "iso", c.Ledger.PartitionStyle)
	assert.True(t, c.Ledger.Validation)
	assert.Equal(t, 20, c.Ingest.HeaderSearchLimit)
	assert.Equal(t, 500, c.Ingest.PreviewLimit)
	assert.Equal(t, ModeHeuristic, c.Classifier.Mode)
	assert.Equal(t, "gemini-2.0-flash", c.Classifier.Model)
	assert.Equal(t, 10*time.Second, c.Classifier.Timeout)
	assert.Equal(t, "finance", c.BatchLog.Dataset)
	assert.Equal(t, "ingest_batches", c.BatchLog.Table)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("LEDGER_SHEETS_SPREADSHEET_ID", "abc123")
	t.Setenv("LEDGER_LEDGER_PARTITION_STYLE", "localized")
	t.Setenv("LEDGER_CLASSIFIER_TIMEOUT", "3s")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "abc123", c.Sheets.SpreadsheetID)
	assert.Equal(t, "localized", c.Ledger.PartitionStyle)
	assert.Equal(t, 3*time.Second, c.Classifier.Timeout)
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sheets:
  spreadsheet_id: from-file
ledger:
  validation: false
ingest:
  preview_limit: 50
archive:
  bucket: raw-statements
`), 0o600))
	t.Setenv("LEDGER_CONFIG", path)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", c.Sheets.SpreadsheetID)
	assert.False(t, c.Ledger.Validation)
	assert.Equal(t, 50, c.Ingest.PreviewLimit)
	assert.Equal(t, "raw-statements", c.Archive.Bucket)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	t.Setenv("LEDGER_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Ledger:     LedgerConfig{PartitionStyle: "iso"},
		Ingest:     IngestConfig{PreviewLimit: 500, HeaderSearchLimit: 20},
		Classifier: ClassifierConfig{Mode: ModeHeuristic},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"partition style", func(c *Config) { c.Ledger.PartitionStyle = "weekly" }},
		{"classifier mode", func(c *Config) { c.Classifier.Mode = "magic" }},
		{"preview limit low", func(c *Config) { c.Ingest.PreviewLimit = 0 }},
		{"preview limit high", func(c *Config) { c.Ingest.PreviewLimit = 5001 }},
		{"header limit", func(c *Config) { c.Ingest.HeaderSearchLimit = 0 }},
		{"model without credentials", func(c *Config) { c.Classifier.Mode = ModeModel }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
