package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("NATS_URL", "")
	config, err := loadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if config.Run.MaxTimeScale != 10 || config.Run.RebroadcastInterval != time.Second {
		t.Fatalf("unexpected run defaults: %+v", config.Run)
	}
	if config.Feed.URL != "" {
		t.Fatalf("expected the feed to be off by default, got %q", config.Feed.URL)
	}
	if config.Gateway.Connection.CheckOrigin == nil {
		t.Fatalf("expected a default origin check")
	}
}

func TestLoadConfigFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tempo.yaml")
	data := []byte(`
run:
  max_time_scale: 4
  rebroadcast_interval: 250ms
gateway:
  connection:
    ping_interval: 15s
feed:
  url: nats://file:4222
  stream_name: GYM_RUNS
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("NATS_URL", "nats://env:4222")
	t.Setenv("RUN_COMMAND_BUFFER", "8")

	config, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if config.Run.MaxTimeScale != 4 || config.Run.MinTimeScale != 0.1 {
		t.Fatalf("expected file values over defaults, got %+v", config.Run)
	}
	if config.Run.RebroadcastInterval != 250*time.Millisecond || config.Run.CommandBuffer != 8 {
		t.Fatalf("unexpected run config: %+v", config.Run)
	}
	if config.Gateway.Connection.PingInterval != 15*time.Second || config.Gateway.Connection.WriteTimeout != 10*time.Second {
		t.Fatalf("unexpected connection config: %+v", config.Gateway.Connection)
	}
	if config.Feed.URL != "nats://env:4222" || config.Feed.StreamName != "GYM_RUNS" {
		t.Fatalf("unexpected feed config: %+v", config.Feed)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEMPO_INT", "12")
	t.Setenv("TEMPO_BAD_INT", "twelve")
	t.Setenv("TEMPO_DURATION", "3s")

	if got := getEnvAsInt("TEMPO_INT", 1); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
	if got := getEnvAsInt("TEMPO_BAD_INT", 1); got != 1 {
		t.Fatalf("expected fallback, got %d", got)
	}
	if got := getEnvAsDuration("TEMPO_DURATION", time.Second); got != 3*time.Second {
		t.Fatalf("expected 3s, got %v", got)
	}
	if got := getEnv("TEMPO_UNSET", "x"); got != "x" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"WARN":  zerolog.WarnLevel,
		"":      zerolog.InfoLevel,
		"loud":  zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Fatalf("parseLogLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}
