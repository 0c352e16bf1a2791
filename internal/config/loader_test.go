package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"TIMETABLE_HTTP_PORT",
	"TIMETABLE_DATABASE_DRIVER",
	"TIMETABLE_SQLITE_DSN",
	"TIMETABLE_POSTGRES_DSN",
	"TIMETABLE_LOG_LEVEL",
	"TIMETABLE_LOG_FORMAT",
	"TIMETABLE_RECURRENCE_HORIZON",
	"TIMETABLE_RECURRENCE_MAX_OCCURRENCES",
	"TIMETABLE_RECURRENCE_POLICY",
	"TIMETABLE_STATS_CACHE_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := LoadFile("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.DatabaseDriver != DriverSQLite {
			t.Fatalf("expected sqlite driver, got %q", cfg.DatabaseDriver)
		}
		if cfg.SQLiteDSN != "data/timetable.db" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
			t.Fatalf("unexpected log settings: %q %q", cfg.LogLevel, cfg.LogFormat)
		}
		if cfg.RecurrenceHorizon != 26*7*24*time.Hour {
			t.Fatalf("expected 26 week horizon, got %s", cfg.RecurrenceHorizon)
		}
		if cfg.RecurrenceMaxOccurrences != 260 || cfg.RecurrencePolicy != "reject" {
			t.Fatalf("unexpected recurrence settings: %+v", cfg)
		}
		if cfg.StatsCacheTTL != 30*time.Second {
			t.Fatalf("expected 30s stats TTL, got %s", cfg.StatsCacheTTL)
		}
	})

	t.Run("parses explicit values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TIMETABLE_HTTP_PORT", "9090")
		t.Setenv("TIMETABLE_DATABASE_DRIVER", "Postgres")
		t.Setenv("TIMETABLE_POSTGRES_DSN", "postgres://localhost/timetable")
		t.Setenv("TIMETABLE_LOG_FORMAT", "text")
		t.Setenv("TIMETABLE_RECURRENCE_HORIZON", "720h")
		t.Setenv("TIMETABLE_RECURRENCE_MAX_OCCURRENCES", "12")
		t.Setenv("TIMETABLE_RECURRENCE_POLICY", "skip")
		t.Setenv("TIMETABLE_STATS_CACHE_TTL", "0s")

		cfg, err := LoadFile("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 || cfg.DatabaseDriver != DriverPostgres || cfg.PostgresDSN != "postgres://localhost/timetable" {
			t.Fatalf("unexpected config: %+v", cfg)
		}
		if cfg.RecurrenceHorizon != 720*time.Hour || cfg.RecurrenceMaxOccurrences != 12 || cfg.RecurrencePolicy != "skip" {
			t.Fatalf("unexpected recurrence settings: %+v", cfg)
		}
		if cfg.LogFormat != "text" || cfg.StatsCacheTTL != 0 {
			t.Fatalf("unexpected config: %+v", cfg)
		}
	})

	t.Run("reports missing and invalid keys together", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TIMETABLE_DATABASE_DRIVER", "postgres")
		t.Setenv("TIMETABLE_HTTP_PORT", "eighty")
		t.Setenv("TIMETABLE_RECURRENCE_HORIZON", "0w")
		t.Setenv("TIMETABLE_RECURRENCE_POLICY", "merge")

		_, err := LoadFile("")
		if err == nil {
			t.Fatal("expected error")
		}
		msg := err.Error()
		for _, want := range []string{
			"required environment variables are not set: TIMETABLE_POSTGRES_DSN",
			"TIMETABLE_HTTP_PORT",
			"TIMETABLE_RECURRENCE_HORIZON",
			"TIMETABLE_RECURRENCE_POLICY",
		} {
			if !strings.Contains(msg, want) {
				t.Errorf("expected %q in %q", want, msg)
			}
		}
	})

	t.Run("reads a dotenv file without overriding the environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TIMETABLE_HTTP_PORT", "7070")

		path := filepath.Join(t.TempDir(), ".env")
		content := "TIMETABLE_HTTP_PORT=6060\nTIMETABLE_LOG_LEVEL=debug\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write dotenv: %v", err)
		}
		t.Cleanup(func() { _ = os.Unsetenv("TIMETABLE_LOG_LEVEL") })

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 7070 {
			t.Fatalf("environment must win over dotenv, got %d", cfg.HTTPPort)
		}
		if cfg.LogLevel != "debug" {
			t.Fatalf("expected debug level from dotenv, got %q", cfg.LogLevel)
		}
	})

	t.Run("ignores a missing dotenv file", func(t *testing.T) {
		clearEnv(t)

		if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
	})
}

func TestParseHorizon(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "26w", want: 26 * 7 * 24 * time.Hour},
		{in: "48h", want: 48 * time.Hour},
		{in: "-1w", wantErr: true},
		{in: "0h", wantErr: true},
		{in: "soon", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()

			got, err := parseHorizon(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.in)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("parseHorizon(%q) = %s, %v", tc.in, got, err)
			}
		})
	}
}
