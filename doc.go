// Package bucketlock provides the per-bucket concurrency primitive of an
// in-memory cache, and a cache built on it.
//
// # Overview
//
// Every bucket of a cache table is guarded by a Cell: one 16-bit atomic
// word in which bit 0 is a spin-lock and bits 1-15 are coordination flags.
// Flags are meaningful only while the lock is held, so they are reachable
// only through the Guard returned by a successful Lock.
//
//	cells := bucketlock.NewCells(1024) // one per bucket
//	cell := &cells[i]
//
//	g, ok := cell.Lock(1000)
//	if !ok {
//	    return // busy: skip, fall back or retry later
//	}
//	defer g.Unlock()
//
//	if !g.IsSet(bucketlock.FlagBanished) {
//	    g.Toggle(bucketlock.FlagBanished)
//	}
//
// # Acquisition
//
// Lock(maxTries) makes max(1, maxTries) attempts: a single attempt always
// happens, even for a budget of 0. Between attempts on a held cell the
// goroutine issues the CPU spin hint; it never sleeps or yields to the
// scheduler. A failed Lock leaves the cell untouched.
//
//   - Lock(maxTries): bounded budget, reports success
//   - LockFunc(maxTries, fn): runs fn with the lock held, only on success
//   - TryLock(): one attempt
//   - LockWait(): spins until acquired
//
// The lock is not fair, not re-entrant and not blocking. It suits critical
// sections of a few hundred nanoseconds under low to moderate contention.
//
// # Memory Ordering
//
// Acquisition and release go through sync/atomic, so everything written
// while holding the lock is visible to the next goroutine that acquires it.
//
// # Memory Layout
//
// A Cell is exactly 2 bytes. Go has no 16-bit atomics: operations act on the
// aligned 32-bit word containing the cell and preserve its other half.
// That half must be another cell, so cells are never embedded in structs or
// declared as standalone variables: NewCells allocates a dense array that
// owns all its words, and NewCell a single padded cell. Tables keep their
// cells in one NewCells array, apart from bucket contents.
//
// # Flags
//
//   - FlagBanished: the bucket refuses inserts until its banish term ends
//   - FlagMigrated: the bucket's entries have moved to the resize target
//
// # Cache
//
// NewCache builds a cache of 8-slot buckets on top of the cells:
//
//	cache, err := bucketlock.NewCache(bucketlock.Config{
//	    MaxSize:       100_000,
//	    LockTries:     500,
//	    TTL:           time.Minute,
//	    BanishOnEvict: true,
//	})
//	if err != nil {
//	    return err
//	}
//	cache.Set("user:1", user)
//
//	if err := cache.Store("user:2", other); bucketlock.IsBusy(err) {
//	    // the bucket stayed locked for the whole budget; nothing was stored
//	}
//
// A busy bucket never blocks an operation: Lookup/Store/Remove/Banish return
// BUCKETLOCK_BUCKET_BUSY (retryable), Get/Set/Delete/Has treat it as "not
// performed this time" and count it in CacheStats.BusyOps.
//
// Resize moves entries into a differently sized table bucket by bucket
// while the cache stays readable and writable. Migrated buckets are marked
// with FlagMigrated and operations follow them to the new table; a write to
// a bucket not yet migrated moves it first.
//
// # Debugging
//
// Building with -tags bucketlock_debug checks on every guarded operation
// that the lock bit is really set and that flags are valid.
//
// # Packages
//
//   - github.com/agilira/bucketlock: cell, guard and cache
//   - github.com/agilira/bucketlock/otel: OpenTelemetry MetricsCollector (separate module)
//   - github.com/agilira/bucketlock/cmd/bucketstress: contention stress driver
package bucketlock
