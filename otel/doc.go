// Package otel provides an OpenTelemetry MetricsCollector for bucketlock
// caches.
//
// It is a separate module so the core package carries no OpenTelemetry
// dependency.
//
// # Usage
//
//	import (
//	    "github.com/agilira/bucketlock"
//	    blotel "github.com/agilira/bucketlock/otel"
//	    "go.opentelemetry.io/otel/sdk/metric"
//	)
//
//	provider := metric.NewMeterProvider(metric.WithReader(reader))
//	collector, err := blotel.NewOTelMetricsCollector(provider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cache, err := bucketlock.NewCache(bucketlock.Config{
//	    MaxSize:          10_000,
//	    MetricsCollector: collector,
//	})
//
// # Metrics Exposed
//
// Histograms:
//   - bucketlock_get_latency_ns: Lookup latency in nanoseconds
//   - bucketlock_set_latency_ns: Store latency in nanoseconds
//   - bucketlock_delete_latency_ns: Remove latency in nanoseconds
//   - bucketlock_lock_attempts: attempts per bucket lock acquisition
//   - bucketlock_migration_latency_ns: duration of completed resizes
//
// Counters:
//   - bucketlock_get_hits_total, bucketlock_get_misses_total
//   - bucketlock_evictions_total
//   - bucketlock_lock_failures_total: acquisitions that ran out of budget
//   - bucketlock_migrated_buckets_total
//
// A rising bucketlock_lock_failures_total, or a lock_attempts histogram
// drifting towards the configured LockTries, means buckets are contended
// enough to turn operations into misses; raise LockTries or grow the table.
package otel
