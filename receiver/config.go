package receiver

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/nuclearfurnace/tic/meters"
)

// defaultPercentiles and defaultTaus mirror the original implementation's
// common::default_percentiles/default_taus.
func defaultPercentiles() []meters.Percentile {
	return []meters.Percentile{
		{Label: "p50", Quantile: 0.5},
		{Label: "p90", Quantile: 0.9},
		{Label: "p99", Quantile: 0.99},
		{Label: "p999", Quantile: 0.999},
	}
}

func defaultTaus() []int {
	return []int{1, 2, 4, 8, 16, 32, 64, 128, 256}
}

const (
	defaultPollDelay = 100 * time.Millisecond
	defaultDuration  = 60
	defaultWindows   = 60
	defaultCapacity  = 64
	defaultBatchSize = 256
)

// Config collects every Receiver construction parameter, built via
// functional options the way the corpus's own component constructors
// favor over a bare struct literal.
type Config struct {
	Duration    int // window length in seconds
	Windows     int // windows per run
	Capacity    int // bounded queue depth / empty-pool size
	BatchSize   int // per-batch sample capacity
	PollDelay   time.Duration
	HTTPListen  string // "" disables the scrape endpoint
	ServiceMode bool
	Percentiles []meters.Percentile
	Taus        []int
	Logger      *zap.Logger

	// clockOverride lets package-internal tests substitute a clock.Mock
	// for deterministic window rotation. There is no exported option for
	// it: callers outside this package always get the real wall clock.
	clockOverride clock.Clock
}

// Option mutates a Config under construction.
type Option func(*Config)

// WithDuration sets the window length in seconds.
func WithDuration(seconds int) Option { return func(c *Config) { c.Duration = seconds } }

// WithWindows sets the number of windows per run.
func WithWindows(windows int) Option { return func(c *Config) { c.Windows = windows } }

// WithCapacity sets the bounded queue depth and empty-pool size.
func WithCapacity(capacity int) Option { return func(c *Config) { c.Capacity = capacity } }

// WithBatchSize sets the per-batch sample capacity.
func WithBatchSize(size int) Option { return func(c *Config) { c.BatchSize = size } }

// WithPollDelay sets the event-loop wakeup cap.
func WithPollDelay(d time.Duration) Option { return func(c *Config) { c.PollDelay = d } }

// WithHTTPListen sets the scrape endpoint's listen address; omit to
// disable the endpoint entirely.
func WithHTTPListen(addr string) Option { return func(c *Config) { c.HTTPListen = addr } }

// WithServiceMode enables looping forever instead of terminating after
// config.Windows windows.
func WithServiceMode(enabled bool) Option { return func(c *Config) { c.ServiceMode = enabled } }

// WithPercentiles overrides the configured percentile set.
func WithPercentiles(p []meters.Percentile) Option {
	return func(c *Config) { c.Percentiles = p }
}

// WithTaus overrides the configured Allan-deviation tau set.
func WithTaus(taus []int) Option { return func(c *Config) { c.Taus = taus } }

// WithLogger attaches a structured logger; defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option { return func(c *Config) { c.Logger = logger } }

// withClockOverride is unexported: only this package's own tests can
// substitute a mock clock, keeping the public constructor honest about
// always using the real wall clock.
func withClockOverride(c clock.Clock) Option {
	return func(cfg *Config) { cfg.clockOverride = c }
}

// NewConfig builds a Config with the same defaults the original
// implementation's Config::new() / common::default_* use, then applies
// opts in order.
func NewConfig(opts ...Option) Config {
	c := Config{
		Duration:    defaultDuration,
		Windows:     defaultWindows,
		Capacity:    defaultCapacity,
		BatchSize:   defaultBatchSize,
		PollDelay:   defaultPollDelay,
		Percentiles: defaultPercentiles(),
		Taus:        defaultTaus(),
		Logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
