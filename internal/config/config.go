// Package config loads the bot configuration from the environment, with an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// MaxMenuPerPage is the embed field limit; each menu entry is one field.
const MaxMenuPerPage = 25

type Config struct {
	DiscordToken  string `env:"DISCORD_TOKEN,required,notEmpty"`
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"!"`
	DeveloperID   string `env:"DEVELOPER_ID"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"json"`
	StoragePath   string `env:"STORAGE_PATH" envDefault:"datastore.json"`

	LogDir   string `env:"LOG_DIR" envDefault:"logs"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	MenuIdleTimeout time.Duration `env:"MENU_IDLE_TIMEOUT" envDefault:"3m"`
	MenuPerPage     int           `env:"MENU_PER_PAGE" envDefault:"12"`

	StatusAddr string `env:"STATUS_ADDR"`

	FetchProxy    string        `env:"FETCH_PROXY"`
	FetchTimeout  time.Duration `env:"FETCH_TIMEOUT" envDefault:"15s"`
	FetchMaxBytes int64         `env:"FETCH_MAX_BYTES" envDefault:"8388608"`
}

// Load reads .env files (missing files are fine) and parses the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverJSON, DriverSQLite:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want %s or %s)", c.StorageDriver, DriverJSON, DriverSQLite)
	}
	if c.CommandPrefix == "" {
		return errors.New("COMMAND_PREFIX must not be empty")
	}
	if c.MenuPerPage <= 0 || c.MenuPerPage > MaxMenuPerPage {
		return fmt.Errorf("MENU_PER_PAGE must be between 1 and %d, got %d", MaxMenuPerPage, c.MenuPerPage)
	}
	if c.MenuIdleTimeout <= 0 {
		return fmt.Errorf("MENU_IDLE_TIMEOUT must be positive, got %s", c.MenuIdleTimeout)
	}
	return nil
}

// LogValue keeps the token out of logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("prefix", c.CommandPrefix),
		slog.String("storage_driver", c.StorageDriver),
		slog.String("storage_path", c.StoragePath),
		slog.String("log_level", c.LogLevel),
		slog.Duration("menu_idle_timeout", c.MenuIdleTimeout),
		slog.Int("menu_per_page", c.MenuPerPage),
		slog.String("status_addr", c.StatusAddr),
		slog.Bool("fetch_proxy", c.FetchProxy != ""),
	)
}
