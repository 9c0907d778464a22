package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the marketview dashboard.
type Config struct {
	API       API       `yaml:"api"`
	Logging   Logging   `yaml:"logging"`
	Dashboard Dashboard `yaml:"dashboard"`
	Journal   Journal   `yaml:"journal"`
	Storage   Storage   `yaml:"storage"`
}

// API locates the market service.
type API struct {
	BaseURL   string        `yaml:"base_url" validate:"required,url"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
	UserAgent string        `yaml:"user_agent"`
}

// Logging configures the application logger. An empty File means stderr for
// the CLI commands and a dated file under the temp dir for the TUI.
type Logging struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
	File   string `yaml:"file"`
}

// Dashboard holds what the TUI shows on start.
type Dashboard struct {
	Symbol   string        `yaml:"symbol"`
	Interval string        `yaml:"interval"`
	Period   string        `yaml:"period"`
	Refresh  time.Duration `yaml:"refresh" validate:"gte=0"`
	Timezone string        `yaml:"timezone" validate:"omitempty,timezone"`
}

// Journal configures the optional fetch journal. Empty disables it.
type Journal struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Storage holds paths for exported data.
type Storage struct {
	DataDir string `yaml:"data_dir"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		API: API{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Dashboard: Dashboard{
			Interval: "1d",
			Period:   "1y",
		},
		Storage: Storage{
			DataDir: "data",
		},
	}
}

// Location returns the zone timestamps are shown in; time.Local when unset.
func (d Dashboard) Location() (*time.Location, error) {
	if d.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(d.Timezone)
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path on top of the
// defaults, loads a .env file from the working directory if present, applies
// environment variable overrides and validates the result. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load()

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("MARKETVIEW_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("MARKETVIEW_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MARKETVIEW_API_TIMEOUT: %w", err)
		}
		cfg.API.Timeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}

	if v := os.Getenv("MARKETVIEW_SYMBOL"); v != "" {
		cfg.Dashboard.Symbol = v
	}
	if v := os.Getenv("MARKETVIEW_JOURNAL"); v != "" {
		cfg.Journal.SQLitePath = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	return nil
}
