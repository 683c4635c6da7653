// Package config loads tracesmith's process-wide configuration: ambient
// settings (logging, Sentry DSN) alongside domain settings (capture buffer
// sizing, RSP listen address, storage backend). Values load through
// cleanenv so a deployment can override any field with a YAML file or an
// environment variable without a code change.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is tracesmith's full runtime configuration.
type Config struct {
	Environment string `yaml:"environment" env:"TRACESMITH_ENV" env-default:"development"`
	LogLevel    string `yaml:"log_level" env:"TRACESMITH_LOG_LEVEL" env-default:"info"`
	SentryDSN   string `yaml:"sentry_dsn" env:"TRACESMITH_SENTRY_DSN"`

	// Capture.
	CaptureBufferSize int      `yaml:"capture_buffer_size" env:"TRACESMITH_CAPTURE_BUFFER_SIZE" env-default:"65536"`
	CaptureMaxStack   int      `yaml:"capture_max_stack" env:"TRACESMITH_CAPTURE_MAX_STACK" env-default:"32"`
	ResolveSymbols    bool     `yaml:"resolve_symbols" env:"TRACESMITH_RESOLVE_SYMBOLS" env-default:"false"`
	EnabledPlatforms  []string `yaml:"enabled_platforms" env:"TRACESMITH_PLATFORMS" env-separator:"," env-default:"cuda,rocm,metal,maca,ascend,simulation"`

	// Storage, including the object-store round trip for remote traces.
	StorageBucket string `yaml:"storage_bucket" env:"TRACESMITH_STORAGE_BUCKET"`

	// Debug engine / RSP.
	RSPNetwork string `yaml:"rsp_network" env:"TRACESMITH_RSP_NETWORK" env-default:"tcp"`
	RSPAddress string `yaml:"rsp_address" env:"TRACESMITH_RSP_ADDRESS" env-default:":1234"`

	// Replay.
	ReplayHistorySize int `yaml:"replay_history_size" env:"TRACESMITH_REPLAY_HISTORY_SIZE" env-default:"1024"`
}

// Load reads configuration from an optional YAML file at path (ignored if
// empty or missing) and overlays environment variables on top, following
// cleanenv's usual precedence.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("reading config %q: %w", path, err)
			}
			return cfg, nil
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("reading config from environment: %w", err)
	}
	return cfg, nil
}
