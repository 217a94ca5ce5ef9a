// Package perfmon records timing and hit-rate telemetry and raises
// threshold-based alerts. It is purely observational: it never affects the
// result of anything it wraps.
package perfmon

import (
	"sort"
	"sync"
	"time"
)

// Category buckets raw samples by subsystem.
type Category string

// Sample categories.
const (
	CategoryAPI      Category = "api"
	CategoryCache    Category = "cache"
	CategoryDatabase Category = "database"
	CategoryUI       Category = "ui"
)

// Default monitor configuration constants.
const (
	defaultMaxSamplesPerCategory = 5000
	defaultMaxAlerts             = 500
	defaultRetention             = time.Hour
)

// Sample is one recorded measurement.
type Sample struct {
	Name     string            `json:"name"`
	Value    float64           `json:"value"`
	Unit     string            `json:"unit"`
	Category Category          `json:"category"`
	Tags     map[string]string `json:"tags,omitempty"`
	At       time.Time         `json:"at"`
}

// Threshold holds warning and critical limits for one metric name.
type Threshold struct {
	Warning  float64 `json:"warning"`
	Critical float64 `json:"critical"`
}

// AlertLevel classifies an alert.
type AlertLevel string

// Alert levels.
const (
	LevelWarning  AlertLevel = "warning"
	LevelCritical AlertLevel = "critical"
)

// Alert records one threshold breach.
type Alert struct {
	Metric string     `json:"metric"`
	Level  AlertLevel `json:"level"`
	Value  float64    `json:"value"`
	Limit  float64    `json:"limit"`
	At     time.Time  `json:"at"`
}

// CategorySummary aggregates one category over a query window.
type CategorySummary struct {
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
	P95   float64 `json:"p95"`
}

// Option applies a configuration option to the Monitor.
type Option func(*Monitor)

// WithMaxSamples bounds the per-category raw sample buffer.
func WithMaxSamples(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.maxSamples = n
		}
	}
}

// WithRetention bounds how old a sample can get before the buffer drops it.
func WithRetention(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.retention = d
		}
	}
}

// WithClock overrides the time source, used by windowing tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// Monitor keeps bounded, time-windowed sample buffers per category plus the
// configured thresholds and raised alerts.
type Monitor struct {
	mu         sync.RWMutex
	samples    map[Category][]Sample
	thresholds map[string]Threshold
	alerts     []Alert
	maxSamples int
	maxAlerts  int
	retention  time.Duration
	now        func() time.Time
}

// New creates a Monitor with default configuration.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		samples:    make(map[Category][]Sample),
		thresholds: make(map[string]Threshold),
		maxSamples: defaultMaxSamplesPerCategory,
		maxAlerts:  defaultMaxAlerts,
		retention:  defaultRetention,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Record stores one measurement and checks it against any threshold
// configured for the metric name.
func (m *Monitor) Record(name string, value float64, unit string, cat Category, tags map[string]string) {
	at := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := append(m.samples[cat], Sample{
		Name: name, Value: value, Unit: unit, Category: cat, Tags: tags, At: at,
	})
	// Bound by count and age.
	if len(buf) > m.maxSamples {
		buf = buf[len(buf)-m.maxSamples:]
	}
	cutoff := at.Add(-m.retention)
	for len(buf) > 0 && buf[0].At.Before(cutoff) {
		buf = buf[1:]
	}
	m.samples[cat] = buf

	if th, ok := m.thresholds[name]; ok {
		switch {
		case value >= th.Critical:
			m.appendAlert(Alert{Metric: name, Level: LevelCritical, Value: value, Limit: th.Critical, At: at})
		case value >= th.Warning:
			m.appendAlert(Alert{Metric: name, Level: LevelWarning, Value: value, Limit: th.Warning, At: at})
		}
	}
}

// Time wraps fn, records its elapsed milliseconds under name, and propagates
// the error unchanged.
func (m *Monitor) Time(name string, cat Category, fn func() error) error {
	start := m.now()
	err := fn()
	m.Record(name, float64(m.now().Sub(start).Milliseconds()), "ms", cat, nil)
	return err
}

// TimeValue is the generic variant of Monitor.Time for calls returning a
// value. The wrapped result and error pass through untouched.
func TimeValue[T any](m *Monitor, name string, cat Category, fn func() (T, error)) (T, error) {
	start := m.now()
	v, err := fn()
	m.Record(name, float64(m.now().Sub(start).Milliseconds()), "ms", cat, nil)
	return v, err
}

// SetThreshold configures warning/critical limits for a metric name.
func (m *Monitor) SetThreshold(metric string, warning, critical float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds[metric] = Threshold{Warning: warning, Critical: critical}
}

// Alerts returns a copy of all raised alerts, oldest first.
func (m *Monitor) Alerts() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Alert(nil), m.alerts...)
}

// Summary aggregates average and 95th percentile per category over the
// trailing window.
func (m *Monitor) Summary(window time.Duration) map[Category]CategorySummary {
	cutoff := m.now().Add(-window)
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[Category]CategorySummary, len(m.samples))
	for cat, buf := range m.samples {
		var values []float64
		for _, s := range buf {
			if !s.At.Before(cutoff) {
				values = append(values, s.Value)
			}
		}
		if len(values) == 0 {
			continue
		}
		out[cat] = CategorySummary{
			Count: len(values),
			Avg:   mean(values),
			P95:   percentile(values, 0.95),
		}
	}
	return out
}

// appendAlert must be called with m.mu held.
func (m *Monitor) appendAlert(a Alert) {
	m.alerts = append(m.alerts, a)
	if len(m.alerts) > m.maxAlerts {
		m.alerts = m.alerts[len(m.alerts)-m.maxAlerts:]
	}
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// percentile computes the given percentile over a copy of values using the
// nearest-rank method.
func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rank := int(float64(len(sorted))*p+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
