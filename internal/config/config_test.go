// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv sets every variable Load reads to "", which envOrDefault treats
// as unset. t.Setenv restores the previous values after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_HOST", "APP_PORT", "APP_ENV",
		"STORE_DRIVER", "SQLITE_PATH",
		"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB",
		"VALKEY_HOST", "VALKEY_PORT", "VALKEY_PASSWORD",
		"CORS_ALLOWED_ORIGINS", "TERM_CACHE_TTL", "DEFAULT_CATEGORY", "AJAX_RATE_LIMIT",
	} {
		t.Setenv(key, "")
	}
}

// TestLoad_Defaults verifies that Load returns sensible development defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	defaults := map[string]string{
		"Host":            "0.0.0.0",
		"Port":            "8080",
		"Env":             "development",
		"StoreDriver":     "postgres",
		"SQLitePath":      "bcm.db",
		"DBHost":          "localhost",
		"DBPort":          "5432",
		"DBUser":          "bcm",
		"DBPassword":      "changeme",
		"DBName":          "bcm",
		"ValkeyHost":      "localhost",
		"ValkeyPort":      "6379",
		"ValkeyPassword":  "",
		"DefaultCategory": "uncategorized",
	}
	got := map[string]string{
		"Host":            cfg.Host,
		"Port":            cfg.Port,
		"Env":             cfg.Env,
		"StoreDriver":     cfg.StoreDriver,
		"SQLitePath":      cfg.SQLitePath,
		"DBHost":          cfg.DBHost,
		"DBPort":          cfg.DBPort,
		"DBUser":          cfg.DBUser,
		"DBPassword":      cfg.DBPassword,
		"DBName":          cfg.DBName,
		"ValkeyHost":      cfg.ValkeyHost,
		"ValkeyPort":      cfg.ValkeyPort,
		"ValkeyPassword":  cfg.ValkeyPassword,
		"DefaultCategory": cfg.DefaultCategory,
	}
	for field, want := range defaults {
		if got[field] != want {
			t.Errorf("%s = %q, want %q", field, got[field], want)
		}
	}

	if cfg.TermCacheTTL != 5*time.Minute {
		t.Errorf("TermCacheTTL = %v, want 5m", cfg.TermCacheTTL)
	}
	if cfg.MutationRateLimit != 60 {
		t.Errorf("MutationRateLimit = %d, want 60", cfg.MutationRateLimit)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Errorf("CORSAllowedOrigins = %v, want none", cfg.CORSAllowedOrigins)
	}
	if !cfg.IsDev() {
		t.Error("IsDev() = false, want true")
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/terms.db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("TERM_CACHE_TTL", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:9090" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.TermCacheTTL != 90*time.Second {
		t.Errorf("TermCacheTTL = %v", cfg.TermCacheTTL)
	}
	if !strings.HasPrefix(cfg.DSN(), "file:/tmp/terms.db?") {
		t.Errorf("DSN() = %q, want a sqlite file DSN", cfg.DSN())
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"production default password", map[string]string{"APP_ENV": "production"}, "POSTGRES_PASSWORD"},
		{"unknown driver", map[string]string{"STORE_DRIVER": "mysql"}, "STORE_DRIVER"},
		{"bad ttl", map[string]string{"TERM_CACHE_TTL": "soon"}, "TERM_CACHE_TTL"},
		{"bad rate limit", map[string]string{"AJAX_RATE_LIMIT": "many"}, "AJAX_RATE_LIMIT"},
		{"zero rate limit", map[string]string{"AJAX_RATE_LIMIT": "0"}, "AJAX_RATE_LIMIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestLoad_ProductionSQLiteNeedsNoPassword(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "sqlite")
	if _, err := Load(); err != nil {
		t.Errorf("Load: %v", err)
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{
		StoreDriver: DriverPostgres,
		DBUser:      "u", DBPassword: "p", DBHost: "h", DBPort: "1", DBName: "d",
	}
	if got, want := cfg.DSN(), "postgres://u:p@h:1/d?sslmode=disable"; got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
