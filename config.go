// config.go: configuration for bucketlock caches
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

import (
	"time"

	"github.com/agilira/go-timecache"
)

// Config holds configuration parameters for the cache.
type Config struct {
	// MaxSize is the maximum number of entries the cache can hold.
	// Must be > 0. Default: DefaultMaxSize.
	MaxSize int

	// LockTries is the attempt budget for every bucket lock taken by a
	// cache operation. An operation whose bucket stays busy for the whole
	// budget is not performed. Default: DefaultLockTries.
	LockTries int

	// TTL is the time-to-live for cache entries.
	// If 0, entries never expire. Must not be negative.
	TTL time.Duration

	// BanishDuration is the length of a banish term. A banished key stays
	// refused until the term it was banished in ends.
	// Must not be negative. Default: DefaultBanishDuration.
	BanishDuration time.Duration

	// BanishOnEvict banishes every key evicted from a full bucket, so a
	// flapping key is not re-cached straight away.
	BanishOnEvict bool

	// MigrationWorkers is the number of goroutines relocating buckets
	// during Resize. Default: DefaultMigrationWorkers.
	MigrationWorkers int

	// Logger is used for resize and reload events.
	// If nil, NoOpLogger is used.
	Logger Logger

	// TimeProvider provides current time for TTLs and banish terms.
	// If nil, a go-timecache backed clock is used.
	TimeProvider TimeProvider

	// MetricsCollector receives operation and contention metrics.
	// If nil, NoOpMetricsCollector is used.
	MetricsCollector MetricsCollector

	// OnEvict is called after an entry is evicted from a full bucket, with
	// no lock held. It must be fast and non-blocking.
	OnEvict func(key string, value interface{})
}

// Validate checks configuration parameters and applies defaults.
//
// Default values applied:
//   - MaxSize: DefaultMaxSize if <= 0
//   - LockTries: DefaultLockTries if <= 0
//   - BanishDuration: DefaultBanishDuration if 0
//   - MigrationWorkers: DefaultMigrationWorkers if <= 0
//   - Logger: NoOpLogger{} if nil
//   - TimeProvider: systemTimeProvider{} if nil
//   - MetricsCollector: NoOpMetricsCollector{} if nil
//
// A negative TTL or BanishDuration is an error.
func (c *Config) Validate() error {
	if c.TTL < 0 {
		return NewErrInvalidTTL(c.TTL)
	}
	if c.BanishDuration < 0 {
		return NewErrInvalidBanishDuration(c.BanishDuration)
	}

	if c.MaxSize <= 0 {
		c.MaxSize = DefaultMaxSize
	}
	if c.LockTries <= 0 {
		c.LockTries = DefaultLockTries
	}
	if c.BanishDuration == 0 {
		c.BanishDuration = DefaultBanishDuration
	}
	if c.MigrationWorkers <= 0 {
		c.MigrationWorkers = DefaultMigrationWorkers
	}
	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	if c.TimeProvider == nil {
		c.TimeProvider = &systemTimeProvider{}
	}
	if c.MetricsCollector == nil {
		c.MetricsCollector = NoOpMetricsCollector{}
	}
	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxSize:          DefaultMaxSize,
		LockTries:        DefaultLockTries,
		BanishDuration:   DefaultBanishDuration,
		MigrationWorkers: DefaultMigrationWorkers,
		Logger:           NoOpLogger{},
		TimeProvider:     &systemTimeProvider{},
		MetricsCollector: NoOpMetricsCollector{},
	}
}

// systemTimeProvider is the default time provider using go-timecache.
type systemTimeProvider struct{}

func (t *systemTimeProvider) Now() int64 {
	return timecache.CachedTimeNano()
}
