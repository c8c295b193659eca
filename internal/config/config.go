// ABOUTME: Goal Achiever Pro configuration: JSON file plus GOALPRO_* environment overrides.
// ABOUTME: Also builds the logger and opens the configured storage backend.

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/charmbracelet/log"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/storage"
)

// Config stores goalpro settings. Every field can be overridden from the
// environment.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default) or "postgres".
	Backend string `json:"backend,omitempty" env:"GOALPRO_BACKEND"`

	// DataDir is the root directory for local data. SQLite puts goalpro.db
	// here and feedback screenshots go under uploads/.
	// Supports ~ expansion. Defaults to ~/.local/share/goalpro.
	DataDir string `json:"data_dir,omitempty" env:"GOALPRO_DATA_DIR"`

	// DatabaseURL is the Postgres connection string for the postgres backend.
	DatabaseURL string `json:"database_url,omitempty" env:"GOALPRO_DATABASE_URL"`

	Addr      string `json:"addr,omitempty" env:"GOALPRO_ADDR"`
	LogLevel  string `json:"log_level,omitempty" env:"GOALPRO_LOG_LEVEL"`
	LogFormat string `json:"log_format,omitempty" env:"GOALPRO_LOG_FORMAT"`
	TimeZone  string `json:"time_zone,omitempty" env:"GOALPRO_TIME_ZONE"`

	// MaxOccurrences caps the occurrences expanded per recurring block.
	MaxOccurrences int `json:"max_occurrences,omitempty" env:"GOALPRO_MAX_OCCURRENCES"`

	JWTSecret   string `json:"jwt_secret,omitempty" env:"GOALPRO_JWT_SECRET"`
	JWTAudience string `json:"jwt_audience,omitempty" env:"GOALPRO_JWT_AUDIENCE"`

	RedisURL string `json:"redis_url,omitempty" env:"GOALPRO_REDIS_URL"`

	AnthropicKey     string `json:"anthropic_key,omitempty" env:"GOALPRO_ANTHROPIC_KEY"`
	AnthropicModel   string `json:"anthropic_model,omitempty" env:"GOALPRO_ANTHROPIC_MODEL"`
	AnthropicBaseURL string `json:"anthropic_base_url,omitempty" env:"GOALPRO_ANTHROPIC_BASE_URL"`

	ResendKey string `json:"resend_key,omitempty" env:"GOALPRO_RESEND_KEY"`
	EmailFrom string `json:"email_from,omitempty" env:"GOALPRO_EMAIL_FROM"`
	AppURL    string `json:"app_url,omitempty" env:"GOALPRO_APP_URL"`

	StripeSecretKey     string `json:"stripe_secret_key,omitempty" env:"GOALPRO_STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `json:"stripe_webhook_secret,omitempty" env:"GOALPRO_STRIPE_WEBHOOK_SECRET"`
	// StripePriceTiers maps Stripe price ids to tiers,
	// e.g. GOALPRO_STRIPE_PRICE_TIERS=price_123:pro,price_456:elite.
	StripePriceTiers map[string]string `json:"stripe_price_tiers,omitempty" env:"GOALPRO_STRIPE_PRICE_TIERS" envKeyValSeparator:":"`

	GoogleClientID     string `json:"google_client_id,omitempty" env:"GOALPRO_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `json:"google_client_secret,omitempty" env:"GOALPRO_GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `json:"google_redirect_url,omitempty" env:"GOALPRO_GOOGLE_REDIRECT_URL"`
}

// GetBackend returns the configured backend, defaulting to "sqlite".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return "sqlite"
	}
	return c.Backend
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetAddr returns the listen address, defaulting to :8080.
func (c *Config) GetAddr() string {
	if c.Addr == "" {
		return ":8080"
	}
	return c.Addr
}

// UploadDir is where feedback screenshots are stored.
func (c *Config) UploadDir() string {
	return filepath.Join(c.GetDataDir(), "uploads")
}

// Location returns the configured default time zone, or UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// PriceTiers returns the Stripe price map with tier names validated.
func (c *Config) PriceTiers() (map[string]models.Tier, error) {
	out := make(map[string]models.Tier, len(c.StripePriceTiers))
	for price, tier := range c.StripePriceTiers {
		switch t := models.Tier(strings.ToLower(tier)); t {
		case models.TierFree, models.TierPro, models.TierElite:
			out[price] = t
		default:
			return nil, fmt.Errorf("stripe price %s: unknown tier %q", price, tier)
		}
	}
	return out, nil
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c *Config) NewLogger(w io.Writer) (*log.Logger, error) {
	level := log.InfoLevel
	if c.LogLevel != "" {
		l, err := log.ParseLevel(c.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}
	formatter := log.TextFormatter
	switch c.LogFormat {
	case "", "text":
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		return nil, fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
	}), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage opens the configured backend.
func (c *Config) OpenStorage(ctx context.Context) (*storage.DB, error) {
	switch backend := c.GetBackend(); backend {
	case "sqlite":
		return storage.Open(filepath.Join(c.GetDataDir(), "goalpro.db"))
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, errors.New("postgres backend needs database_url or GOALPRO_DATABASE_URL")
		}
		return storage.OpenPostgres(ctx, c.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "goalpro", "config.json")
}

// Load reads config from disk, then applies environment overrides.
func Load() (*Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

// LoadFile reads config from disk only.
func LoadFile() (*Config, error) {
	data, err := os.ReadFile(GetConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
