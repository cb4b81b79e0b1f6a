// Package config defines the tunables spec §6 names, applied with a
// functional-options Opt pattern mirroring the teacher's kgo.Opt /
// groupOpt convention rather than a struct of exported fields set
// directly by callers.
package config

import "time"

// Config holds every tunable named in spec §6's configuration table.
// Zero value is never used directly; construct with New, which seeds
// the documented defaults before applying opts.
type Config struct {
	HoldDuration time.Duration // hold_duration_seconds, default 120s

	BatchSize   int           // batch_size, default 250
	BatchWait   time.Duration // batch_wait_ms, default 10ms

	PollMaxAttempts        int           // poll_max_attempts, default 100
	PollInitialInterval    time.Duration // poll_initial_interval_ms, default 5ms
	PollMaxInterval        time.Duration // poll_max_interval_ms, default 100ms
	PollBackoffAfter       int           // poll_backoff_after_attempts, default 5

	SweeperInterval time.Duration // sweeper_interval_ms, default 10s
	SweeperPageSize int           // pagination for the sweeper's scan (SPEC_FULL expansion)

	StockCacheTTL  time.Duration // stock_cache_ttl_s, default 5s
	RejectCacheTTL time.Duration // reject_cache_ttl_s, default 5s
}

// Opt mutates a Config under construction.
type Opt func(*Config)

// New builds a Config from the documented defaults, then applies opts in
// order, matching the teacher's "defaults first, opts override" idiom
// (see kgo.NewClient building a base cfg before ranging over Opt).
func New(opts ...Opt) Config {
	c := Config{
		HoldDuration: 120 * time.Second,

		BatchSize: 250,
		BatchWait: 10 * time.Millisecond,

		PollMaxAttempts:     100,
		PollInitialInterval: 5 * time.Millisecond,
		PollMaxInterval:     100 * time.Millisecond,
		PollBackoffAfter:    5,

		SweeperInterval: 10 * time.Second,
		SweeperPageSize: 500,

		StockCacheTTL:  5 * time.Second,
		RejectCacheTTL: 5 * time.Second,
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

func WithHoldDuration(d time.Duration) Opt { return func(c *Config) { c.HoldDuration = d } }
func WithBatchSize(n int) Opt              { return func(c *Config) { c.BatchSize = n } }
func WithBatchWait(d time.Duration) Opt    { return func(c *Config) { c.BatchWait = d } }
func WithSweeperInterval(d time.Duration) Opt {
	return func(c *Config) { c.SweeperInterval = d }
}
func WithSweeperPageSize(n int) Opt { return func(c *Config) { c.SweeperPageSize = n } }
func WithPoll(maxAttempts int, initial, max time.Duration, backoffAfter int) Opt {
	return func(c *Config) {
		c.PollMaxAttempts = maxAttempts
		c.PollInitialInterval = initial
		c.PollMaxInterval = max
		c.PollBackoffAfter = backoffAfter
	}
}
