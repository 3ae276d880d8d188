// hot-reload.go: live reconfiguration with Argus
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

import (
	"context"
	"sync"
	"time"

	"github.com/agilira/argus"
)

// reconfigurable is implemented by caches whose runtime settings can change
// without rebuilding them.
type reconfigurable interface {
	setLockTries(n int)
	setTTL(d time.Duration)
	setBanishDuration(d time.Duration)
	setBanishOnEvict(on bool)
	settings() Config
}

func (c *bucketCache) setLockTries(n int)                { c.lockTries.Store(int64(n)) }
func (c *bucketCache) setTTL(d time.Duration)            { c.ttlNanos.Store(int64(d)) }
func (c *bucketCache) setBanishDuration(d time.Duration) { c.banishNanos.Store(int64(d)) }
func (c *bucketCache) setBanishOnEvict(on bool)          { c.banishOnEvict.Store(on) }

// settings reports the live values of the reloadable settings.
func (c *bucketCache) settings() Config {
	return Config{
		MaxSize:          int(c.maxSize.Load()),
		LockTries:        c.tries(),
		TTL:              time.Duration(c.ttlNanos.Load()),
		BanishDuration:   time.Duration(c.banishNanos.Load()),
		BanishOnEvict:    c.banishOnEvict.Load(),
		MigrationWorkers: c.workers,
		Logger:           c.logger,
		TimeProvider:     c.timeProvider,
		MetricsCollector: c.metrics,
		OnEvict:          c.onEvict,
	}
}

// HotConfig watches a configuration file with Argus and applies changes to
// a running cache.
type HotConfig struct {
	cache   Cache
	watcher *argus.Watcher
	logger  Logger
	mu      sync.RWMutex
	config  Config

	// ResizeTimeout bounds a resize triggered by a max_size change.
	ResizeTimeout time.Duration

	// OnReload is called after configuration is applied.
	// It must be fast and non-blocking.
	OnReload func(oldConfig, newConfig Config)
}

// HotConfigOptions configures hot reload behavior.
type HotConfigOptions struct {
	// ConfigPath is the path to the configuration file to watch.
	// Supports JSON, YAML, TOML, HCL, INI, Properties formats.
	ConfigPath string

	// PollInterval is how often to check for changes.
	// Default: 1 second. Minimum: 100ms.
	PollInterval time.Duration

	// ResizeTimeout bounds a resize triggered by a max_size change.
	// Default: 30 seconds.
	ResizeTimeout time.Duration

	// OnReload is called after configuration is applied.
	OnReload func(oldConfig, newConfig Config)

	// Logger for reload events. If nil, the cache's logger is used.
	Logger Logger
}

// NewHotConfig creates a hot-reloadable configuration for cache and starts
// the file watcher's setup. Call Start to begin polling.
//
// Example configuration file (YAML):
//
//	cache:
//	  max_size: 10000
//	  lock_tries: 500
//	  ttl: "1h"
//	  banish_duration: "5s"
//	  banish_on_evict: true
//
// lock_tries, ttl, banish_duration and banish_on_evict apply immediately.
// A max_size change resizes the cache in the watcher goroutine.
func NewHotConfig(cache Cache, opts HotConfigOptions) (*HotConfig, error) {
	if opts.ConfigPath == "" {
		return nil, NewErrInvalidConfig("config_path", opts.ConfigPath)
	}

	if opts.PollInterval == 0 {
		opts.PollInterval = time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.ResizeTimeout <= 0 {
		opts.ResizeTimeout = 30 * time.Second
	}

	if opts.Logger == nil {
		if lg, ok := cache.(interface{ Logger() Logger }); ok {
			opts.Logger = lg.Logger()
		} else {
			opts.Logger = NoOpLogger{}
		}
	}

	hc := &HotConfig{
		cache:         cache,
		logger:        opts.Logger,
		config:        DefaultConfig(),
		ResizeTimeout: opts.ResizeTimeout,
		OnReload:      opts.OnReload,
	}
	if rc, ok := cache.(reconfigurable); ok {
		hc.config = rc.settings()
	} else {
		hc.config.MaxSize = cache.Capacity()
	}

	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.ConfigPath, hc.handleConfigChange, argus.Config{
		PollInterval: opts.PollInterval,
	})
	if err != nil {
		return nil, err
	}
	hc.watcher = watcher

	return hc, nil
}

// Start begins watching the configuration file.
func (hc *HotConfig) Start() error {
	if hc.watcher.IsRunning() {
		return nil
	}
	return hc.watcher.Start()
}

// Stop stops watching the configuration file.
func (hc *HotConfig) Stop() error {
	return hc.watcher.Stop()
}

// GetConfig returns the last applied configuration.
func (hc *HotConfig) GetConfig() Config {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.config
}

// handleConfigChange is called by Argus when the file changes.
func (hc *HotConfig) handleConfigChange(data map[string]interface{}) {
	hc.mu.RLock()
	oldConfig := hc.config
	hc.mu.RUnlock()

	newConfig := hc.applyChanges(oldConfig, hc.parseConfig(data, oldConfig))

	hc.mu.Lock()
	hc.config = newConfig
	hc.mu.Unlock()

	if hc.OnReload != nil {
		hc.OnReload(oldConfig, newConfig)
	}
}

// parsePositiveInt extracts a positive integer. YAML and JSON decoders
// disagree on int vs float64, so both are accepted.
func parsePositiveInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		if v > 0 {
			return v, true
		}
	case int64:
		if v > 0 {
			return int(v), true
		}
	case float64:
		if v > 0 {
			return int(v), true
		}
	}
	return 0, false
}

// parseDuration extracts a non-negative duration from a string value.
func parseDuration(value interface{}) (time.Duration, bool) {
	str, ok := value.(string)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(str)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

// parseBool accepts booleans and their common string spellings.
func parseBool(value interface{}) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch v {
		case "true", "yes", "on", "1":
			return true, true
		case "false", "no", "off", "0":
			return false, true
		}
	}
	return false, false
}

// parseConfig overlays the cache section of data on prev. Invalid values
// are logged and keep their previous setting.
func (hc *HotConfig) parseConfig(data map[string]interface{}, prev Config) Config {
	config := prev

	section, ok := data["cache"].(map[string]interface{})
	if !ok {
		section = data
	}

	if raw, present := section["max_size"]; present {
		if n, ok := parsePositiveInt(raw); ok {
			config.MaxSize = n
		} else {
			hc.logger.Warn("ignoring max_size", "error", NewErrInvalidMaxSize(0), "value", raw)
		}
	}
	if raw, present := section["lock_tries"]; present {
		if n, ok := parsePositiveInt(raw); ok {
			config.LockTries = n
		} else {
			hc.logger.Warn("ignoring lock_tries", "error", NewErrInvalidLockTries(0), "value", raw)
		}
	}
	if raw, present := section["ttl"]; present {
		if d, ok := parseDuration(raw); ok {
			config.TTL = d
		} else {
			hc.logger.Warn("ignoring ttl", "error", NewErrInvalidTTL(raw))
		}
	}
	if raw, present := section["banish_duration"]; present {
		if d, ok := parseDuration(raw); ok && d > 0 {
			config.BanishDuration = d
		} else {
			hc.logger.Warn("ignoring banish_duration", "error", NewErrInvalidBanishDuration(raw))
		}
	}
	if raw, present := section["banish_on_evict"]; present {
		if on, ok := parseBool(raw); ok {
			config.BanishOnEvict = on
		} else {
			hc.logger.Warn("ignoring banish_on_evict", "error", NewErrInvalidConfig("banish_on_evict", raw))
		}
	}

	return config
}

// applyChanges pushes changed settings into the running cache and returns
// the configuration now in effect. A failed resize keeps the old MaxSize, so
// the next reload of the same file tries again.
func (hc *HotConfig) applyChanges(old, next Config) Config {
	if rc, ok := hc.cache.(reconfigurable); ok {
		if next.LockTries != old.LockTries {
			rc.setLockTries(next.LockTries)
		}
		if next.TTL != old.TTL {
			rc.setTTL(next.TTL)
		}
		if next.BanishDuration != old.BanishDuration {
			rc.setBanishDuration(next.BanishDuration)
		}
		if next.BanishOnEvict != old.BanishOnEvict {
			rc.setBanishOnEvict(next.BanishOnEvict)
		}
	}

	if next.MaxSize != old.MaxSize {
		ctx, cancel := context.WithTimeout(context.Background(), hc.ResizeTimeout)
		defer cancel()
		if err := hc.cache.Resize(ctx, next.MaxSize); err != nil {
			hc.logger.Error("resize after reload failed", "max_size", next.MaxSize, "error", err)
			next.MaxSize = old.MaxSize
			return next
		}
	}
	hc.logger.Info("configuration reloaded",
		"max_size", next.MaxSize, "lock_tries", next.LockTries,
		"ttl", next.TTL, "banish_duration", next.BanishDuration)
	return next
}
