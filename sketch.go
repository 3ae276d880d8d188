// sketch.go: key hashing and the frequency sketch used to pick eviction victims
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

import (
	"sync/atomic"
	"unsafe"
)

const (
	sketchRows       = 4
	sketchCounterMax = 15 // 4-bit saturating counters
)

var sketchSeeds = [sketchRows]uint64{
	0x9e3779b97f4a7c15,
	0xbf58476d1ce4e5b9,
	0x94d049bb133111eb,
	0xbf58476d1ce4e5b7,
}

// frequencySketch is a Count-Min sketch of 4-bit counters packed sixteen to
// a uint64. It is lock-free: counters are bumped with CAS on their word, the
// same way a Cell shares its word with a neighbour.
type frequencySketch struct {
	table     []uint64
	tableMask uint64
	ops       atomic.Int64
	ageAfter  int64
}

func newFrequencySketch(maxSize int) *frequencySketch {
	tableSize := nextPowerOf2(maxSize / 4)
	if tableSize < 64 {
		tableSize = 64
	}
	return &frequencySketch{
		table:     make([]uint64, tableSize),
		tableMask: uint64(tableSize - 1), // #nosec G115 - tableSize is a positive power of 2
		ageAfter:  int64(maxSize) * 10,
	}
}

// nextPowerOf2 returns the next power of 2 greater than or equal to n.
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// position returns the word index and bit offset of row's counter for hash.
func (s *frequencySketch) position(hash uint64, row int) (uint64, uint64) {
	word := ((hash * sketchSeeds[row]) >> 32) & s.tableMask
	shift := ((hash >> (uint(row) * 4)) & 0xF) * 4
	return word, shift
}

// increment counts one access to hash and periodically ages the sketch.
func (s *frequencySketch) increment(hash uint64) {
	if s.ops.Add(1)%s.ageAfter == 0 {
		s.age()
	}
	for row := 0; row < sketchRows; row++ {
		word, shift := s.position(hash, row)
		for {
			old := atomic.LoadUint64(&s.table[word])
			if (old>>shift)&0xF >= sketchCounterMax {
				break
			}
			if atomic.CompareAndSwapUint64(&s.table[word], old, old+(1<<shift)) {
				break
			}
		}
	}
}

// estimate returns the smallest of hash's counters.
func (s *frequencySketch) estimate(hash uint64) uint64 {
	least := uint64(sketchCounterMax)
	for row := 0; row < sketchRows; row++ {
		word, shift := s.position(hash, row)
		if c := (atomic.LoadUint64(&s.table[word]) >> shift) & 0xF; c < least {
			least = c
		}
	}
	return least
}

// age halves every counter so old popularity fades.
func (s *frequencySketch) age() {
	const lowBits = 0x7777777777777777 // clears the bit shifted in from the next counter
	for i := range s.table {
		for {
			old := atomic.LoadUint64(&s.table[i])
			if atomic.CompareAndSwapUint64(&s.table[i], old, (old>>1)&lowBits) {
				break
			}
		}
	}
}

// reset zeroes the sketch.
func (s *frequencySketch) reset() {
	for i := range s.table {
		atomic.StoreUint64(&s.table[i], 0)
	}
	s.ops.Store(0)
}

// hashKey computes a 64-bit FNV-1a hash of key followed by a final avalanche,
// so the top bits used for bucket selection are well mixed. Zero is reserved
// for empty banish entries and never returned.
func hashKey(key string) uint64 {
	const (
		fnv64Offset = 14695981039346656037
		fnv64Prime  = 1099511628211
	)

	h := uint64(fnv64Offset)
	// #nosec G103 - read-only view of the string bytes
	for _, b := range unsafe.Slice(unsafe.StringData(key), len(key)) {
		h ^= uint64(b)
		h *= fnv64Prime
	}

	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33

	if h == 0 {
		h = 1
	}
	return h
}
