package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"MARKETVIEW_API_URL",
	"MARKETVIEW_API_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"LOG_FILE",
	"MARKETVIEW_SYMBOL",
	"MARKETVIEW_JOURNAL",
	"DATA_DIR",
}

// clearEnv unsets every override for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marketview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
api:
  base_url: "http://market.internal:9000"
  timeout: 5s
  user_agent: "marketview-test"
logging:
  level: "debug"
  format: "json"
  file: "/tmp/marketview.log"
dashboard:
  symbol: "aapl"
  interval: "1wk"
  period: "5y"
  refresh: 1m
  timezone: "America/New_York"
journal:
  sqlite_path: "/tmp/marketview.db"
storage:
  data_dir: "/tmp/marketview/data"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// -- API --
	assert.Equal(t, "http://market.internal:9000", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "marketview-test", cfg.API.UserAgent)

	// -- Logging --
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/tmp/marketview.log", cfg.Logging.File)

	// -- Dashboard --
	assert.Equal(t, "aapl", cfg.Dashboard.Symbol)
	assert.Equal(t, "1wk", cfg.Dashboard.Interval)
	assert.Equal(t, "5y", cfg.Dashboard.Period)
	assert.Equal(t, time.Minute, cfg.Dashboard.Refresh)
	loc, err := cfg.Dashboard.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())

	// -- Journal / Storage --
	assert.Equal(t, "/tmp/marketview.db", cfg.Journal.SQLitePath)
	assert.Equal(t, "/tmp/marketview/data", cfg.Storage.DataDir)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	loc, err := cfg.Dashboard.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
dashboard:
  symbol: "MSFT"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "MSFT", cfg.Dashboard.Symbol)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
api:
  base_url: "http://yaml:8000"
  timeout: 10s
dashboard:
  symbol: "AAPL"
`)

	t.Setenv("MARKETVIEW_API_URL", "http://env:8000")
	t.Setenv("MARKETVIEW_API_TIMEOUT", "2s")
	t.Setenv("MARKETVIEW_JOURNAL", "/env/journal.db")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env:8000", cfg.API.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.API.Timeout)
	assert.Equal(t, "/env/journal.db", cfg.Journal.SQLitePath)
	assert.Equal(t, "warn", cfg.Logging.Level)
	// No env override for the symbol, so YAML wins.
	assert.Equal(t, "AAPL", cfg.Dashboard.Symbol)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "bad yaml",
			yaml:    "api: [",
			wantErr: "parsing",
		},
		{
			name:    "relative base url",
			yaml:    "api:\n  base_url: \"not a url\"\n",
			wantErr: "BaseURL",
		},
		{
			name:    "unknown log level",
			yaml:    "logging:\n  level: \"chatty\"\n",
			wantErr: "Level",
		},
		{
			name:    "zero timeout",
			yaml:    "api:\n  timeout: 0s\n",
			wantErr: "Timeout",
		},
		{
			name:    "unknown timezone",
			yaml:    "dashboard:\n  timezone: \"Mars/Olympus\"\n",
			wantErr: "Timezone",
		},
		{
			name:    "bad env timeout",
			yaml:    "",
			env:     map[string]string{"MARKETVIEW_API_TIMEOUT": "soon"},
			wantErr: "MARKETVIEW_API_TIMEOUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
