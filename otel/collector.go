// collector.go: OpenTelemetry implementation of bucketlock.MetricsCollector
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package otel

import (
	"context"
	"errors"

	"github.com/agilira/bucketlock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetricsCollector records cache and lock events as OpenTelemetry
// instruments. Safe for concurrent use.
type OTelMetricsCollector struct {
	getLatency       metric.Int64Histogram
	setLatency       metric.Int64Histogram
	deleteLatency    metric.Int64Histogram
	lockAttempts     metric.Int64Histogram
	migrationLatency metric.Int64Histogram

	hits            metric.Int64Counter
	misses          metric.Int64Counter
	evictions       metric.Int64Counter
	lockFailures    metric.Int64Counter
	migratedBuckets metric.Int64Counter

	acquired, exhausted metric.MeasurementOption
}

// Options for configuring OTelMetricsCollector.
type Options struct {
	// MeterName is the name of the OpenTelemetry meter.
	// Default: "github.com/agilira/bucketlock"
	MeterName string
}

// Option is a functional option for configuring OTelMetricsCollector.
type Option func(*Options)

// WithMeterName sets a custom meter name, e.g. to tell several caches apart.
func WithMeterName(name string) Option {
	return func(o *Options) {
		o.MeterName = name
	}
}

// NewOTelMetricsCollector creates the collector's instruments on provider.
func NewOTelMetricsCollector(provider metric.MeterProvider, opts ...Option) (*OTelMetricsCollector, error) {
	if provider == nil {
		return nil, errors.New("meter provider cannot be nil")
	}

	options := Options{MeterName: "github.com/agilira/bucketlock"}
	for _, opt := range opts {
		opt(&options)
	}
	meter := provider.Meter(options.MeterName)

	c := &OTelMetricsCollector{
		acquired:  metric.WithAttributeSet(attribute.NewSet(attribute.Bool("acquired", true))),
		exhausted: metric.WithAttributeSet(attribute.NewSet(attribute.Bool("acquired", false))),
	}

	histograms := []struct {
		dst  *metric.Int64Histogram
		name string
		desc string
		unit string
	}{
		{&c.getLatency, "bucketlock_get_latency_ns", "Latency of Lookup operations in nanoseconds", "ns"},
		{&c.setLatency, "bucketlock_set_latency_ns", "Latency of Store operations in nanoseconds", "ns"},
		{&c.deleteLatency, "bucketlock_delete_latency_ns", "Latency of Remove operations in nanoseconds", "ns"},
		{&c.lockAttempts, "bucketlock_lock_attempts", "Attempts made per bucket lock acquisition", "{attempt}"},
		{&c.migrationLatency, "bucketlock_migration_latency_ns", "Duration of completed resizes in nanoseconds", "ns"},
	}
	for _, h := range histograms {
		inst, err := meter.Int64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit(h.unit))
		if err != nil {
			return nil, err
		}
		*h.dst = inst
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&c.hits, "bucketlock_get_hits_total", "Total number of cache hits"},
		{&c.misses, "bucketlock_get_misses_total", "Total number of cache misses"},
		{&c.evictions, "bucketlock_evictions_total", "Total number of evictions"},
		{&c.lockFailures, "bucketlock_lock_failures_total", "Bucket lock acquisitions that exhausted their budget"},
		{&c.migratedBuckets, "bucketlock_migrated_buckets_total", "Buckets relocated by completed resizes"},
	}
	for _, ct := range counters {
		inst, err := meter.Int64Counter(ct.name, metric.WithDescription(ct.desc))
		if err != nil {
			return nil, err
		}
		*ct.dst = inst
	}

	return c, nil
}

// RecordGet records a lookup latency and its hit/miss outcome.
func (c *OTelMetricsCollector) RecordGet(latencyNs int64, hit bool) {
	ctx := context.Background()
	c.getLatency.Record(ctx, latencyNs)
	if hit {
		c.hits.Add(ctx, 1)
	} else {
		c.misses.Add(ctx, 1)
	}
}

// RecordSet records a store latency.
func (c *OTelMetricsCollector) RecordSet(latencyNs int64) {
	c.setLatency.Record(context.Background(), latencyNs)
}

// RecordDelete records a remove latency.
func (c *OTelMetricsCollector) RecordDelete(latencyNs int64) {
	c.deleteLatency.Record(context.Background(), latencyNs)
}

// RecordEviction counts an eviction.
func (c *OTelMetricsCollector) RecordEviction() {
	c.evictions.Add(context.Background(), 1)
}

// RecordContention records the attempts one acquisition took, labelled by
// outcome, and counts budget exhaustion.
func (c *OTelMetricsCollector) RecordContention(attempts int, acquired bool) {
	ctx := context.Background()
	if acquired {
		c.lockAttempts.Record(ctx, int64(attempts), c.acquired)
		return
	}
	c.lockAttempts.Record(ctx, int64(attempts), c.exhausted)
	c.lockFailures.Add(ctx, 1)
}

// RecordMigration records a completed resize.
func (c *OTelMetricsCollector) RecordMigration(buckets int, latencyNs int64) {
	ctx := context.Background()
	c.migrationLatency.Record(ctx, latencyNs)
	c.migratedBuckets.Add(ctx, int64(buckets))
}

var _ bucketlock.MetricsCollector = (*OTelMetricsCollector)(nil)
