// cache.go: cache operations over bucket-locked tables
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// bucketCache implements Cache. Each bucket is guarded by its own Cell, so
// contention is scoped to one bucket rather than the whole table.
type bucketCache struct {
	table    atomic.Pointer[table]
	sketch   *frequencySketch
	resizing atomic.Bool
	closed   atomic.Bool

	// Hot-reloadable settings
	maxSize       atomic.Int64
	lockTries     atomic.Int64
	ttlNanos      atomic.Int64
	banishNanos   atomic.Int64
	banishOnEvict atomic.Bool

	workers      int
	timeProvider TimeProvider
	logger       Logger
	metrics      MetricsCollector
	onEvict      func(key string, value interface{})

	// loads deduplicates concurrent GetOrLoad misses per key
	loads singleflight.Group

	size atomic.Int64

	hits, misses, sets, deletes       atomic.Uint64
	evictions, expirations            atomic.Uint64
	banishments, rejections           atomic.Uint64
	busyOps, lockAttempts, migrations atomic.Uint64
}

// NewCache creates a cache sized for config.MaxSize entries.
func NewCache(config Config) (Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &bucketCache{
		sketch:       newFrequencySketch(config.MaxSize),
		workers:      config.MigrationWorkers,
		timeProvider: config.TimeProvider,
		logger:       config.Logger,
		metrics:      config.MetricsCollector,
		onEvict:      config.OnEvict,
	}
	c.table.Store(newTable(logSizeFor(config.MaxSize)))
	c.maxSize.Store(int64(config.MaxSize))
	c.lockTries.Store(int64(config.LockTries))
	c.ttlNanos.Store(int64(config.TTL))
	c.banishNanos.Store(int64(config.BanishDuration))
	c.banishOnEvict.Store(config.BanishOnEvict)
	return c, nil
}

func (c *bucketCache) tries() int {
	return int(c.lockTries.Load())
}

// term returns the banish term containing now. Terms start at 1 so a
// never-used bucket (term 0) is always stale.
func (c *bucketCache) term(now int64) int64 {
	d := c.banishNanos.Load()
	if d <= 0 {
		d = int64(DefaultBanishDuration)
	}
	return now/d + 1
}

func (c *bucketCache) expireAt(now int64) int64 {
	if ttl := c.ttlNanos.Load(); ttl > 0 {
		return now + ttl
	}
	return 0
}

func (c *bucketCache) observe(attempts int, acquired bool) {
	c.lockAttempts.Add(uint64(attempts)) // #nosec G115 - attempts is at least 1
	c.metrics.RecordContention(attempts, acquired)
}

// acquire locks into lb the bucket that currently owns hash, following
// migrated buckets into the auxiliary table. For writes, a bucket of a table
// that is being resized is migrated first, so the write lands in the new
// table. A bucket that stays busy for the whole budget yields
// BUCKETLOCK_BUCKET_BUSY and leaves lb zero.
func (c *bucketCache) acquire(op string, hash uint64, write bool, lb *lockedBucket) (*table, error) {
	tries := c.tries()
	t := c.table.Load()
	for {
		var attempts int
		var ok bool
		*lb, attempts, ok = t.lock(hash, tries)
		c.observe(attempts, ok)
		if !ok {
			c.busyOps.Add(1)
			return nil, NewErrBucketBusy(op, attempts)
		}
		if lb.migrated() {
			lb.Unlock()
			t = t.auxiliary.Load()
			continue
		}
		aux := t.auxiliary.Load()
		if aux == nil || !write {
			return t, nil
		}
		migrated, victims := t.migrateLocked(lb, aux, c.relocation(tries))
		lb.Unlock()
		c.notifyEvicted(victims)
		if !migrated {
			c.busyOps.Add(1)
			return nil, NewErrBucketBusy(op, attempts)
		}
		t = aux
	}
}

// search runs match against the bucket owning hash. A migration that stopped
// on a busy target leaves the source bucket holding only part of its
// entries, so while a resize target exists a miss is retried against the
// target bucket, locked after the source.
func (c *bucketCache) search(op string, hash uint64, match func(lb *lockedBucket) bool) error {
	var lb lockedBucket
	t, err := c.acquire(op, hash, false, &lb)
	if err != nil {
		return err
	}
	defer lb.Unlock()
	if match(&lb) {
		return nil
	}
	aux := t.auxiliary.Load()
	if aux == nil {
		return nil
	}
	dst, attempts, ok := aux.lock(hash, c.tries())
	c.observe(attempts, ok)
	if !ok {
		c.busyOps.Add(1)
		return NewErrBucketBusy(op, attempts)
	}
	match(&dst)
	dst.Unlock()
	return nil
}

// relocation describes how entries move during a migration.
func (c *bucketCache) relocation(tries int) *relocation {
	return &relocation{
		tries:   tries,
		term:    c.term(c.timeProvider.Now()),
		place:   c.place,
		observe: c.observe,
		evicted: c.notifyEvicted,
	}
}

// place inserts a migrated entry into dst. Expired entries are dropped and
// a full dst gives up its victim.
func (c *bucketCache) place(dst *lockedBucket, s slot) (slot, bool) {
	now := c.timeProvider.Now()
	if s.expired(now) {
		c.size.Add(-1)
		c.expirations.Add(1)
		return slot{}, false
	}
	if _, ok := dst.set(s.hash, s.key, s.value, s.expireAt); ok {
		return slot{}, false
	}
	victim := dst.take(dst.victim(now, c.sketch.estimate))
	dst.set(s.hash, s.key, s.value, s.expireAt)
	if !c.dropped(victim, now) {
		return slot{}, false
	}
	return victim, true
}

// notifyEvicted runs OnEvict for victims. No lock may be held.
func (c *bucketCache) notifyEvicted(victims []slot) {
	if c.onEvict == nil {
		return
	}
	for _, v := range victims {
		c.onEvict(v.key, v.value)
	}
}

// dropped accounts for an entry pushed out of a bucket and reports whether
// it was a live eviction rather than an expired entry.
func (c *bucketCache) dropped(s slot, now int64) bool {
	c.size.Add(-1)
	if s.expired(now) {
		c.expirations.Add(1)
		return false
	}
	c.evictions.Add(1)
	c.metrics.RecordEviction()
	return true
}

// Lookup retrieves key's value or explains why it could not.
func (c *bucketCache) Lookup(key string) (interface{}, error) {
	if key == "" {
		return nil, NewErrEmptyKey("Lookup")
	}
	if c.closed.Load() {
		return nil, NewErrCacheClosed("Lookup")
	}
	start := c.timeProvider.Now()
	hash := hashKey(key)
	c.sketch.increment(hash)

	var value interface{}
	var found, expired bool
	err := c.search("Lookup", hash, func(lb *lockedBucket) bool {
		value, found, expired = lb.get(hash, key, c.timeProvider.Now())
		return found || expired
	})
	if err != nil {
		c.misses.Add(1)
		c.metrics.RecordGet(c.timeProvider.Now()-start, false)
		return nil, err
	}

	if expired {
		c.size.Add(-1)
		c.expirations.Add(1)
	}
	c.metrics.RecordGet(c.timeProvider.Now()-start, found)
	if !found {
		c.misses.Add(1)
		return nil, NewErrKeyNotFound(key)
	}
	c.hits.Add(1)
	return value, nil
}

// Get retrieves a value. Busy buckets are misses.
func (c *bucketCache) Get(key string) (interface{}, bool) {
	value, err := c.Lookup(key)
	return value, err == nil
}

// Has checks whether key is present without touching statistics.
func (c *bucketCache) Has(key string) bool {
	if key == "" || c.closed.Load() {
		return false
	}
	hash := hashKey(key)
	present := false
	err := c.search("Has", hash, func(lb *lockedBucket) bool {
		i := lb.find(hash, key)
		present = i >= 0 && !lb.b.slots[i].expired(c.timeProvider.Now())
		return i >= 0
	})
	return err == nil && present
}

// Store inserts or updates key. Banished keys are refused; a full bucket
// evicts its least frequently used entry.
func (c *bucketCache) Store(key string, value interface{}) error {
	if key == "" {
		return NewErrEmptyKey("Store")
	}
	if c.closed.Load() {
		return NewErrCacheClosed("Store")
	}
	start := c.timeProvider.Now()
	hash := hashKey(key)
	c.sketch.increment(hash)

	var lb lockedBucket
	t, err := c.acquire("Store", hash, true, &lb)
	if err != nil {
		return err
	}
	now := c.timeProvider.Now()
	term := c.term(now)
	if lb.isBanished(hash, term) {
		bucketWide := lb.IsSet(FlagBanished)
		lb.Unlock()
		c.rejections.Add(1)
		return NewErrKeyBanished(key, bucketWide)
	}

	var victim slot
	evicted := false
	added, ok := lb.set(hash, key, value, c.expireAt(now))
	if !ok {
		victim = lb.take(lb.victim(now, c.sketch.estimate))
		evicted = true
		if c.banishOnEvict.Load() && !victim.expired(now) {
			lb.banish(victim.hash, term)
			c.banishments.Add(1)
		}
		added, _ = lb.set(hash, key, value, c.expireAt(now))
	}
	lb.Unlock()

	if evicted && c.dropped(victim, now) {
		c.notifyEvicted([]slot{victim})
	}
	c.sets.Add(1)
	if added && c.size.Add(1) > c.maxSize.Load() {
		c.evictElsewhere(t, hash)
	}
	c.metrics.RecordSet(c.timeProvider.Now() - start)
	return nil
}

// Set stores key and reports whether it was stored.
func (c *bucketCache) Set(key string, value interface{}) bool {
	return c.Store(key, value) == nil
}

// evictElsewhere brings the cache back under MaxSize by evicting from a
// neighbour of hash's bucket. Only single attempts are made: eviction is
// best effort and must never wait on a busy bucket.
func (c *bucketCache) evictElsewhere(t *table, hash uint64) {
	const neighbours = 4
	now := c.timeProvider.Now()
	mask := uint64(t.size() - 1) // #nosec G115 - table size is a positive power of 2
	start := t.index(hash)
	for p := uint64(0); p < neighbours; p++ {
		lb, attempts, ok := t.lockIndex((start+p)&mask, 1)
		c.observe(attempts, ok)
		if !ok {
			continue
		}
		if lb.migrated() {
			lb.Unlock()
			return
		}
		i := lb.victim(now, c.sketch.estimate)
		if i < 0 {
			lb.Unlock()
			continue
		}
		victim := lb.take(i)
		if c.banishOnEvict.Load() && !victim.expired(now) {
			lb.banish(victim.hash, c.term(now))
			c.banishments.Add(1)
		}
		lb.Unlock()
		if c.dropped(victim, now) {
			c.notifyEvicted([]slot{victim})
		}
		return
	}
}

// Remove deletes key.
func (c *bucketCache) Remove(key string) error {
	if key == "" {
		return NewErrEmptyKey("Remove")
	}
	if c.closed.Load() {
		return NewErrCacheClosed("Remove")
	}
	start := c.timeProvider.Now()
	hash := hashKey(key)
	var lb lockedBucket
	_, err := c.acquire("Remove", hash, true, &lb)
	if err != nil {
		return err
	}
	_, found := lb.remove(hash, key)
	lb.Unlock()

	c.metrics.RecordDelete(c.timeProvider.Now() - start)
	if !found {
		return NewErrKeyNotFound(key)
	}
	c.size.Add(-1)
	c.deletes.Add(1)
	return nil
}

// Delete removes key and reports whether it was present.
func (c *bucketCache) Delete(key string) bool {
	return c.Remove(key) == nil
}

// Banish removes key if present and refuses it until the term ends.
func (c *bucketCache) Banish(key string) error {
	if key == "" {
		return NewErrEmptyKey("Banish")
	}
	if c.closed.Load() {
		return NewErrCacheClosed("Banish")
	}
	hash := hashKey(key)
	var lb lockedBucket
	_, err := c.acquire("Banish", hash, true, &lb)
	if err != nil {
		return err
	}
	_, removed := lb.remove(hash, key)
	bucketWide := lb.banish(hash, c.term(c.timeProvider.Now()))
	lb.Unlock()

	if removed {
		c.size.Add(-1)
		c.deletes.Add(1)
	}
	c.banishments.Add(1)
	if bucketWide {
		c.logger.Debug("bucket banished for the rest of the term", "key", key)
	}
	return nil
}

// IsBanished reports whether key is currently refused.
func (c *bucketCache) IsBanished(key string) (bool, error) {
	if key == "" {
		return false, NewErrEmptyKey("IsBanished")
	}
	if c.closed.Load() {
		return false, NewErrCacheClosed("IsBanished")
	}
	hash := hashKey(key)
	term := c.term(c.timeProvider.Now())
	banished := false
	err := c.search("IsBanished", hash, func(lb *lockedBucket) bool {
		banished = lb.isBanished(hash, term)
		return banished
	})
	if err != nil {
		return false, err
	}
	return banished, nil
}

// Resize moves every entry into a table sized for maxSize. An interrupted
// earlier resize is finished first. Operations keep running throughout and
// help by migrating the buckets they write to.
func (c *bucketCache) Resize(ctx context.Context, maxSize int) error {
	if maxSize <= 0 {
		return NewErrInvalidMaxSize(maxSize)
	}
	if c.closed.Load() {
		return NewErrCacheClosed("Resize")
	}
	if !c.resizing.CompareAndSwap(false, true) {
		return NewErrResizeInProgress(maxSize)
	}
	defer c.resizing.Store(false)

	want := logSizeFor(maxSize)
	for {
		old := c.table.Load()
		next := old.auxiliary.Load()
		if next == nil {
			if old.logSize == want {
				break
			}
			next = newTable(want)
			old.remaining.Store(int64(old.size()))
			old.auxiliary.Store(next)
		}

		c.logger.Info("resize started", "from_buckets", old.size(), "to_buckets", next.size())
		start := time.Now()
		if err := old.migrate(ctx, c.workers, c.relocation(c.tries())); err != nil {
			remaining := old.remaining.Load()
			c.logger.Warn("resize interrupted", "remaining_buckets", remaining, "error", err)
			return NewErrMigrationFailed(remaining, err)
		}
		c.table.Store(next)
		elapsed := time.Since(start)
		c.migrations.Add(1)
		c.metrics.RecordMigration(old.size(), elapsed.Nanoseconds())
		c.logger.Info("resize finished", "buckets", next.size(), "duration", elapsed)
	}
	c.maxSize.Store(int64(maxSize))
	return nil
}

// Len returns current number of items.
func (c *bucketCache) Len() int {
	return int(c.size.Load())
}

// Capacity returns maximum number of items.
func (c *bucketCache) Capacity() int {
	return int(c.maxSize.Load())
}

// Clear empties every bucket of the current table (and of the table a
// running resize is filling). Buckets that stay busy are skipped and
// counted in the result.
func (c *bucketCache) Clear() int {
	tries := c.tries()
	skipped := 0
	for t := c.table.Load(); t != nil; t = t.auxiliary.Load() {
		for i := range t.cells {
			lb, attempts, ok := t.lockIndex(uint64(i), tries) // #nosec G115 - i is a non-negative index
			c.observe(attempts, ok)
			if !ok {
				skipped++
				continue
			}
			lb.drain(func(slot) { c.size.Add(-1) })
			lb.Unlock()
		}
	}
	if skipped > 0 {
		c.logger.Warn("clear skipped busy buckets", "skipped", skipped)
	}
	c.sketch.reset()
	return skipped
}

// Stats returns cache statistics.
func (c *bucketCache) Stats() CacheStats {
	return CacheStats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Sets:         c.sets.Load(),
		Deletes:      c.deletes.Load(),
		Evictions:    c.evictions.Load(),
		Expirations:  c.expirations.Load(),
		Banishments:  c.banishments.Load(),
		Rejections:   c.rejections.Load(),
		BusyOps:      c.busyOps.Load(),
		LockAttempts: c.lockAttempts.Load(),
		Migrations:   c.migrations.Load(),
		Size:         int(c.size.Load()),
		Capacity:     int(c.maxSize.Load()),
		Buckets:      c.table.Load().size(),
	}
}

// Close clears the cache and refuses further operations.
func (c *bucketCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.Clear()
	return nil
}

// Logger returns the cache's logger, used by HotConfig.
func (c *bucketCache) Logger() Logger {
	return c.logger
}
