// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; Load layers an optional YAML file and env vars.
// - External errors are wrapped via this package's sentinel kinds.
package config

import (
	"runtime"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CacheTTLMinutes bounds how stale a cached recommendation list may get.
	CacheTTLMinutes int `koanf:"cache_ttl_minutes"`

	// CacheCleanupMinutes sets the background sweep interval.
	CacheCleanupMinutes int `koanf:"cache_cleanup_minutes"`

	// WorkerCount bounds the scoring fan-out parallelism per computation.
	WorkerCount int `koanf:"worker_count"`

	// MinSampleSize is the qualifying-race floor before a grouping is trusted.
	MinSampleSize int `koanf:"min_sample_size"`

	// TrendWindow is how many recent races feed the trend signal.
	TrendWindow int `koanf:"trend_window"`

	// FamiliarityThreshold is the start count where familiarity saturates.
	FamiliarityThreshold int `koanf:"familiarity_threshold"`

	// MaxResultsLimit caps the max_results request filter.
	MaxResultsLimit int `koanf:"max_results_limit"`

	// SeasonYear and SeasonQuarter pin the schedule season; zero derives the
	// current season from the clock.
	SeasonYear    int `koanf:"season_year"`
	SeasonQuarter int `koanf:"season_quarter"`

	// FactorWeights maps factor names to their share of the overall score.
	// Must sum to 1.
	FactorWeights map[string]float64 `koanf:"factor_weights"`

	// SyncQueueCapacity bounds the pending sync-notice buffer.
	SyncQueueCapacity int `koanf:"sync_queue_capacity"`

	// SyncWorkerCount sets how many workers drain the sync-notice queue.
	SyncWorkerCount int `koanf:"sync_worker_count"`

	// SyncDedupeSize bounds how many notice IDs are remembered for
	// redelivery suppression.
	SyncDedupeSize int `koanf:"sync_dedupe_size"`

	// DemoSeed seeds the synthetic dataset served in demo mode.
	DemoSeed int64 `koanf:"demo_seed"`

	// DemoDrivers sets how many synthetic drivers demo mode generates.
	DemoDrivers int `koanf:"demo_drivers"`
}

// New creates a Config with production defaults.
func New() *Config {
	w := scoring.DefaultWeights()
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		CacheTTLMinutes:      15,
		CacheCleanupMinutes:  5,
		WorkerCount:          runtime.NumCPU(),
		MinSampleSize:        3,
		TrendWindow:          10,
		FamiliarityThreshold: 10,
		MaxResultsLimit:      100,
		FactorWeights: map[string]float64{
			"performance":     w.Performance,
			"safety":          w.Safety,
			"consistency":     w.Consistency,
			"predictability":  w.Predictability,
			"familiarity":     w.Familiarity,
			"fatigue_risk":    w.FatigueRisk,
			"attrition_risk":  w.AttritionRisk,
			"time_volatility": w.TimeVolatility,
		},
		SyncQueueCapacity: 10000,
		SyncWorkerCount:   2,
		SyncDedupeSize:    50000,
		DemoSeed:          42,
		DemoDrivers:       24,
	}
}

// Weights converts the configured factor map into scoring weights. Missing
// keys read as zero; Validate on the result catches a bad total.
func (c *Config) Weights() scoring.Weights {
	return scoring.Weights{
		Performance:    c.FactorWeights["performance"],
		Safety:         c.FactorWeights["safety"],
		Consistency:    c.FactorWeights["consistency"],
		Predictability: c.FactorWeights["predictability"],
		Familiarity:    c.FactorWeights["familiarity"],
		FatigueRisk:    c.FactorWeights["fatigue_risk"],
		AttritionRisk:  c.FactorWeights["attrition_risk"],
		TimeVolatility: c.FactorWeights["time_volatility"],
	}
}
