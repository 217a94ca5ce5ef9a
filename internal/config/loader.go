package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if SIRT_CONFIG is set
//  3. env (prefix SIRT_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("SIRT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: SIRT_ADDR, SIRT_CACHE_TTL_MINUTES, ...
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("SIRT_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "sirt_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.CacheTTLMinutes <= 0:
		return fmt.Errorf("%w: cache_ttl_minutes must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.MinSampleSize <= 0:
		return fmt.Errorf("%w: min_sample_size must be positive", ErrInvalidConfig)
	case c.MaxResultsLimit <= 0:
		return fmt.Errorf("%w: max_results_limit must be positive", ErrInvalidConfig)
	case c.SyncQueueCapacity <= 0:
		return fmt.Errorf("%w: sync_queue_capacity must be positive", ErrInvalidConfig)
	case c.SyncWorkerCount <= 0:
		return fmt.Errorf("%w: sync_worker_count must be positive", ErrInvalidConfig)
	}
	if err := c.Weights().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
