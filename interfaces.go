// interfaces.go: public interfaces for bucketlock
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

import "context"

// Cache is an in-memory cache whose buckets are each guarded by a Cell.
// All methods are safe for concurrent use.
//
// Every operation takes at most one bucket lock at a time (two while a
// resize relocates a bucket) and never waits longer than the configured
// attempt budget. A bucket that stays busy for the whole budget makes the
// operation a no-op: the error-returning methods report it as
// BUCKETLOCK_BUCKET_BUSY, the boolean methods as a miss or a false result.
type Cache interface {
	// Get retrieves a value. A busy bucket counts as a miss.
	Get(key string) (value interface{}, found bool)

	// Set stores a key-value pair and reports whether it was stored.
	// It returns false for an empty key, a banished key or a busy bucket.
	Set(key string, value interface{}) bool

	// Delete removes a key and reports whether it was present.
	Delete(key string) bool

	// Has checks if a key exists without retrieving the value.
	Has(key string) bool

	// Lookup is Get with the reason for a miss: BUCKETLOCK_KEY_NOT_FOUND,
	// BUCKETLOCK_BUCKET_BUSY or BUCKETLOCK_EMPTY_KEY.
	Lookup(key string) (interface{}, error)

	// Store is Set with the reason for a refusal.
	Store(key string, value interface{}) error

	// Remove is Delete with the reason for a failure.
	Remove(key string) error

	// GetOrLoad returns the cached value or loads, caches and returns it.
	// Concurrent misses on one key run loader once, with no lock held.
	// A value that cannot be cached (banished key, busy bucket) is still
	// returned.
	GetOrLoad(key string, loader func() (interface{}, error)) (interface{}, error)

	// GetOrLoadWithContext is GetOrLoad with cancellation: ctx is passed to
	// loader and bounds the wait for a load already in flight.
	GetOrLoadWithContext(ctx context.Context, key string, loader func(context.Context) (interface{}, error)) (interface{}, error)

	// Banish removes key if present and refuses to cache it again until the
	// current banish term ends.
	Banish(key string) error

	// IsBanished reports whether key is currently refused.
	IsBanished(key string) (bool, error)

	// Resize relocates every entry into a table sized for maxSize entries.
	// Other operations keep running while buckets are moved.
	Resize(ctx context.Context, maxSize int) error

	// Len returns the current number of items in the cache.
	Len() int

	// Capacity returns the maximum number of items the cache can hold.
	Capacity() int

	// Clear removes all items. Buckets that stay busy are skipped and
	// counted in the returned value.
	Clear() int

	// Stats returns cache statistics.
	Stats() CacheStats

	// Close clears the cache; later operations fail with BUCKETLOCK_CACHE_CLOSED.
	Close() error
}

// CacheStats provides statistics about cache behaviour.
type CacheStats struct {
	// Hits is the number of lookups that found a live entry
	Hits uint64

	// Misses is the number of lookups that found nothing, busy ones included
	Misses uint64

	// Sets is the number of successful stores
	Sets uint64

	// Deletes is the number of successful removals
	Deletes uint64

	// Evictions is the number of entries pushed out of a full bucket
	Evictions uint64

	// Expirations is the number of entries dropped because their TTL passed
	Expirations uint64

	// Banishments is the number of keys banished
	Banishments uint64

	// Rejections is the number of stores refused because the key was banished
	Rejections uint64

	// BusyOps is the number of operations not performed because a bucket
	// lock was not acquired within budget
	BusyOps uint64

	// LockAttempts is the total number of acquisition attempts made
	LockAttempts uint64

	// Migrations is the number of completed resizes
	Migrations uint64

	// Size is the current number of items in the cache
	Size int

	// Capacity is the maximum number of items the cache can hold
	Capacity int

	// Buckets is the number of buckets of the current table
	Buckets int
}

// HitRatio returns the cache hit ratio as a percentage (0-100).
// Returns 0.0 if no lookups have been performed yet.
func (s CacheStats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Logger defines a minimal logging interface.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, keyvals ...interface{})

	// Info logs an info message with optional key-value pairs.
	Info(msg string, keyvals ...interface{})

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, keyvals ...interface{})

	// Error logs an error message with optional key-value pairs.
	Error(msg string, keyvals ...interface{})
}

// NoOpLogger is a logger that does nothing. Used as default to avoid nil checks.
type NoOpLogger struct{}

// Debug does nothing (no-op implementation).
func (NoOpLogger) Debug(msg string, keyvals ...interface{}) {}

// Info does nothing (no-op implementation).
func (NoOpLogger) Info(msg string, keyvals ...interface{}) {}

// Warn does nothing (no-op implementation).
func (NoOpLogger) Warn(msg string, keyvals ...interface{}) {}

// Error does nothing (no-op implementation).
func (NoOpLogger) Error(msg string, keyvals ...interface{}) {}

// TimeProvider provides current time for TTLs and banish terms.
type TimeProvider interface {
	// Now returns the current time in nanoseconds since epoch.
	// This method must be very fast and allocation-free.
	Now() int64
}

// MetricsCollector receives cache and lock events.
// All methods are called on hot paths and must be safe for concurrent use,
// allocation-free and fast.
type MetricsCollector interface {
	// RecordGet records a lookup with its latency and hit/miss result.
	RecordGet(latencyNs int64, hit bool)

	// RecordSet records a store with its latency.
	RecordSet(latencyNs int64)

	// RecordDelete records a removal with its latency.
	RecordDelete(latencyNs int64)

	// RecordEviction records an entry pushed out of a full bucket.
	RecordEviction()

	// RecordContention records one bucket lock acquisition: how many
	// attempts it took and whether it succeeded within budget.
	RecordContention(attempts int, acquired bool)

	// RecordMigration records a finished resize: buckets relocated and
	// total duration.
	RecordMigration(buckets int, latencyNs int64)
}

// NoOpMetricsCollector is a metrics collector that does nothing.
type NoOpMetricsCollector struct{}

// RecordGet does nothing.
func (NoOpMetricsCollector) RecordGet(latencyNs int64, hit bool) {}

// RecordSet does nothing.
func (NoOpMetricsCollector) RecordSet(latencyNs int64) {}

// RecordDelete does nothing.
func (NoOpMetricsCollector) RecordDelete(latencyNs int64) {}

// RecordEviction does nothing.
func (NoOpMetricsCollector) RecordEviction() {}

// RecordContention does nothing.
func (NoOpMetricsCollector) RecordContention(attempts int, acquired bool) {}

// RecordMigration does nothing.
func (NoOpMetricsCollector) RecordMigration(buckets int, latencyNs int64) {}
