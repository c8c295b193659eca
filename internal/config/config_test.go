// ABOUTME: Tests for goalpro configuration management.
// ABOUTME: Covers load, save, environment overrides, defaults, and path expansion.
package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harperreed/goalpro/internal/models"
)

func TestGetBackendDefault(t *testing.T) {
	cfg := &Config{}
	if got := cfg.GetBackend(); got != "sqlite" {
		t.Errorf("GetBackend() = %q, want %q", got, "sqlite")
	}
}

func TestGetBackendExplicit(t *testing.T) {
	cfg := &Config{Backend: "postgres"}
	if got := cfg.GetBackend(); got != "postgres" {
		t.Errorf("GetBackend() = %q, want %q", got, "postgres")
	}
}

func TestGetDataDirDefault(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	cfg := &Config{}
	if got, want := cfg.GetDataDir(), filepath.Join("/xdg/data", "goalpro"); got != want {
		t.Errorf("GetDataDir() = %q, want %q", got, want)
	}
	if got, want := cfg.UploadDir(), filepath.Join("/xdg/data", "goalpro", "uploads"); got != want {
		t.Errorf("UploadDir() = %q, want %q", got, want)
	}
}

func TestGetDataDirExpandsTilde(t *testing.T) {
	home, _ := os.UserHomeDir()

	cfg := &Config{DataDir: "~/goalpro-data"}
	got := cfg.GetDataDir()
	want := filepath.Join(home, "goalpro-data")
	if got != want {
		t.Errorf("GetDataDir() = %q, want %q", got, want)
	}
}

func TestGetAddrDefault(t *testing.T) {
	if got := (&Config{}).GetAddr(); got != ":8080" {
		t.Errorf("GetAddr() = %q, want :8080", got)
	}
	if got := (&Config{Addr: "127.0.0.1:9000"}).GetAddr(); got != "127.0.0.1:9000" {
		t.Errorf("GetAddr() = %q", got)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	tests := map[string]string{
		"":               "",
		"/tmp/foo":       "/tmp/foo",
		"~":              home,
		"~/data/goalpro": filepath.Join(home, "data/goalpro"),
		"data/goalpro":   "data/goalpro",
	}
	for in, want := range tests {
		if got := ExpandPath(in); got != want {
			t.Errorf("ExpandPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadNonExistentConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with no config file should not error: %v", err)
	}
	if cfg.Backend != "" || cfg.DataDir != "" {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := &Config{
		Backend:          "postgres",
		DatabaseURL:      "postgres://localhost/goalpro",
		StripePriceTiers: map[string]string{"price_pro": "pro"},
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded.Backend != "postgres" {
		t.Errorf("Backend = %q, want postgres", loaded.Backend)
	}
	if loaded.DatabaseURL != "postgres://localhost/goalpro" {
		t.Errorf("DatabaseURL = %q", loaded.DatabaseURL)
	}
	if loaded.StripePriceTiers["price_pro"] != "pro" {
		t.Errorf("StripePriceTiers = %v", loaded.StripePriceTiers)
	}

	info, err := os.Stat(GetConfigPath())
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config permissions = %o, want 600", perm)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if err := (&Config{Addr: ":7000", LogLevel: "debug"}).Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	t.Setenv("GOALPRO_ADDR", ":9090")
	t.Setenv("GOALPRO_MAX_OCCURRENCES", "42")
	t.Setenv("GOALPRO_STRIPE_PRICE_TIERS", "price_a:pro,price_b:elite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want the file value debug", cfg.LogLevel)
	}
	if cfg.MaxOccurrences != 42 {
		t.Errorf("MaxOccurrences = %d, want 42", cfg.MaxOccurrences)
	}

	tiers, err := cfg.PriceTiers()
	if err != nil {
		t.Fatalf("PriceTiers() failed: %v", err)
	}
	if tiers["price_a"] != models.TierPro || tiers["price_b"] != models.TierElite {
		t.Errorf("PriceTiers() = %v", tiers)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "goalpro"), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "goalpro", "config.json"), []byte("{nope"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestPriceTiersRejectsUnknownTier(t *testing.T) {
	cfg := &Config{StripePriceTiers: map[string]string{"price_x": "platinum"}}
	if _, err := cfg.PriceTiers(); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}

func TestLocation(t *testing.T) {
	loc, err := (&Config{}).Location()
	if err != nil || loc.String() != "UTC" {
		t.Fatalf("default Location() = %v, %v", loc, err)
	}
	loc, err = (&Config{TimeZone: "America/Chicago"}).Location()
	if err != nil {
		t.Fatalf("Location() failed: %v", err)
	}
	if loc.String() != "America/Chicago" {
		t.Errorf("Location() = %s", loc)
	}
	if _, err := (&Config{TimeZone: "Nowhere/Special"}).Location(); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := (&Config{LogLevel: "warn", LogFormat: "json"}).NewLogger(&buf)
	if err != nil {
		t.Fatalf("NewLogger() failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %s", out)
	}
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, "shown") {
		t.Errorf("expected JSON output, got %s", out)
	}

	if _, err := (&Config{LogFormat: "xml"}).NewLogger(&buf); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := (&Config{LogLevel: "loud"}).NewLogger(&buf); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestOpenStorageSQLite(t *testing.T) {
	cfg := &Config{DataDir: t.TempDir()}
	db, err := cfg.OpenStorage(context.Background())
	if err != nil {
		t.Fatalf("OpenStorage() failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(cfg.DataDir, "goalpro.db")); err != nil {
		t.Errorf("expected goalpro.db in data dir: %v", err)
	}
}

func TestOpenStorageErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := (&Config{Backend: "postgres"}).OpenStorage(ctx); err == nil {
		t.Error("expected error for postgres without a URL")
	}
	if _, err := (&Config{Backend: "markdown"}).OpenStorage(ctx); err == nil {
		t.Error("expected error for unknown backend")
	}
}
