// table.go: bucket table and incremental migration between tables
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// table is a power-of-two array of buckets. Cells are kept apart from the
// buckets in one dense slice: 16 bits per bucket, and every neighbour of a
// cell is another cell.
type table struct {
	logSize uint
	cells   []Cell
	buckets []bucket

	// auxiliary is the target of a running (or interrupted) resize. Once
	// set it is never cleared, so goroutines still holding this table can
	// follow migrated buckets.
	auxiliary atomic.Pointer[table]

	// remaining counts buckets not yet migrated to auxiliary.
	remaining atomic.Int64
}

func newTable(logSize uint) *table {
	n := 1 << logSize
	return &table{
		logSize: logSize,
		cells:   NewCells(n),
		buckets: make([]bucket, n),
	}
}

// logSizeFor returns the table size needed for maxSize entries at a 50%
// slot load factor.
func logSizeFor(maxSize int) uint {
	n := nextPowerOf2(2 * maxSize / BucketSlots)
	if n < MinBuckets {
		n = MinBuckets
	}
	var log uint
	for 1<<log < n {
		log++
	}
	return log
}

func (t *table) size() int { return len(t.cells) }

// index maps a hash to a bucket using its top bits, so growing by a factor
// of two splits each bucket into two neighbours.
func (t *table) index(hash uint64) uint64 {
	return hash >> (64 - t.logSize)
}

// lockIndex locks bucket i with the given attempt budget.
func (t *table) lockIndex(i uint64, maxTries int) (lockedBucket, int, bool) {
	attempts, ok := t.cells[i].acquire(maxTries)
	if !ok {
		return lockedBucket{}, attempts, false
	}
	return lockedBucket{Guard: Guard{cell: &t.cells[i]}, b: &t.buckets[i]}, attempts, true
}

// lock locks the bucket owning hash.
func (t *table) lock(hash uint64, maxTries int) (lockedBucket, int, bool) {
	return t.lockIndex(t.index(hash), maxTries)
}

// relocation carries what moving entries needs from the owning cache.
type relocation struct {
	tries int
	term  int64

	// place inserts s into dst. If dst was full it returns the entry it
	// evicted to make room.
	place func(dst *lockedBucket, s slot) (slot, bool)

	// observe receives every lock acquisition outcome.
	observe func(attempts int, acquired bool)

	// evicted receives the entries place pushed out, once no lock is held.
	evicted func(victims []slot)
}

// migrateLocked moves the entries and banishments of src, which the caller
// holds, into aux and marks src migrated. Target buckets are locked one at a
// time after src (source before target, always). If a target stays busy the
// entries moved so far are gone from src, the rest stay, and false is
// returned so the caller can retry later. Entries evicted from full targets
// are returned for the caller to report after unlocking src.
func (t *table) migrateLocked(src *lockedBucket, aux *table, r *relocation) (bool, []slot) {
	if src.migrated() {
		return true, nil
	}
	var victims []slot
	for i := range src.b.slots {
		if !src.b.slots[i].used() {
			continue
		}
		dst, attempts, ok := aux.lock(src.b.slots[i].hash, r.tries)
		r.observe(attempts, ok)
		if !ok {
			return false, victims
		}
		if victim, evicted := r.place(&dst, src.take(i)); evicted {
			victims = append(victims, victim)
		}
		dst.Unlock()
	}
	for _, h := range src.banishedIn(r.term) {
		dst, attempts, ok := aux.lock(h, r.tries)
		r.observe(attempts, ok)
		if !ok {
			return false, victims
		}
		dst.banish(h, r.term)
		dst.Unlock()
	}
	src.markMigrated()
	t.remaining.Add(-1)
	return true, victims
}

// migrateBucket locks bucket i and migrates it.
func (t *table) migrateBucket(i uint64, aux *table, r *relocation) bool {
	src, attempts, ok := t.lockIndex(i, r.tries)
	r.observe(attempts, ok)
	if !ok {
		return false
	}
	done, victims := t.migrateLocked(&src, aux, r)
	src.Unlock()
	if len(victims) > 0 {
		r.evicted(victims)
	}
	return done
}

// migrate relocates every bucket into the auxiliary table using up to
// workers goroutines. Busy buckets are retried until ctx is done.
func (t *table) migrate(ctx context.Context, workers int, r *relocation) error {
	aux := t.auxiliary.Load()
	if aux == nil {
		return NewErrInternal("migrate", nil)
	}
	n := t.size()
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			pending := make([]uint64, 0, hi-lo)
			for i := lo; i < hi; i++ {
				pending = append(pending, uint64(i)) // #nosec G115 - i is a non-negative index
			}
			for len(pending) > 0 {
				if err := gctx.Err(); err != nil {
					return err
				}
				busy := pending[:0]
				for _, i := range pending {
					if !t.migrateBucket(i, aux, r) {
						busy = append(busy, i)
					}
				}
				pending = busy
				if len(pending) > 0 {
					runtime.Gosched()
				}
			}
			return nil
		})
	}
	return g.Wait()
}
