package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/tempo/go/internal/run/feed"
	"github.com/mcdev12/tempo/go/internal/run/gateway"
	"github.com/mcdev12/tempo/go/internal/run/session"
)

type Config struct {
	Run     session.Config       `yaml:"run"`
	Gateway gateway.Config       `yaml:"gateway"`
	Feed    feed.JetStreamConfig `yaml:"feed"`
}

// defaultConfig leaves the feed URL empty, which disables the feed.
func defaultConfig() *Config {
	config := &Config{
		Run:     session.DefaultConfig(),
		Gateway: gateway.DefaultConfig(),
		Feed:    feed.DefaultJetStreamConfig(),
	}
	config.Feed.URL = ""
	return config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// loadConfig reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path keeps the defaults.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	config.Feed.URL = getEnv("NATS_URL", config.Feed.URL)
	config.Run.CommandBuffer = getEnvAsInt("RUN_COMMAND_BUFFER", config.Run.CommandBuffer)
	config.Run.RebroadcastInterval = getEnvAsDuration("RUN_REBROADCAST_INTERVAL", config.Run.RebroadcastInterval)
	return config, nil
}

func parseLogLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
