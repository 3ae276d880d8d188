// Package bucketlock provides the per-bucket state word of a concurrent
// in-memory cache: a 16-bit atomic cell that is both a spin-lock and a
// carrier for a few coordination flags readable only under that lock.
//
// Example usage:
//
//	cell := bucketlock.NewCell()
//	if g, ok := cell.Lock(1000); ok {
//		defer g.Unlock()
//		if !g.IsSet(bucketlock.FlagMigrated) {
//			// read or write the bucket
//		}
//	}
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package bucketlock

import (
	"math"
	"time"
)

const (
	// Version of the bucketlock library
	Version = "v0.1.0-dev"

	// TriesUnbounded is the attempt budget used by LockWait.
	TriesUnbounded = math.MaxInt

	// DefaultLockTries is the default attempt budget for cache operations
	DefaultLockTries = 1_000

	// DefaultMaxSize is the default maximum number of entries
	DefaultMaxSize = 10_000

	// DefaultBanishDuration is the default length of a banish term
	DefaultBanishDuration = 5 * time.Second

	// BucketSlots is the number of entries held by one bucket
	BucketSlots = 8

	// BanishSlots is the number of banished key hashes a bucket remembers
	// before banishing itself entirely for the rest of the term
	BanishSlots = 4

	// DefaultMigrationWorkers is the default number of goroutines relocating
	// buckets during a resize
	DefaultMigrationWorkers = 4

	// MinBuckets is the smallest table a cache is built with
	MinBuckets = 16
)
