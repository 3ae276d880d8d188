// bucket.go: fixed-capacity bucket reachable only under its cell lock
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

// slot is one cached entry. An empty key marks a free slot.
type slot struct {
	hash     uint64
	key      string
	value    interface{}
	expireAt int64 // nanoseconds, 0 = no expiration
}

func (s *slot) used() bool { return s.key != "" }

func (s *slot) expired(now int64) bool { return s.expireAt > 0 && now > s.expireAt }

// bucket holds entries and the banish list of one table position.
// Its state cell lives in the table's dense cell array, not here.
type bucket struct {
	slots      [BucketSlots]slot
	banished   [BanishSlots]uint64 // key hashes, 0 = free
	banishTerm int64
}

// lockedBucket pairs a bucket with the guard of its cell. It is the only
// handle through which bucket contents are read or written.
type lockedBucket struct {
	Guard
	b *bucket
}

// find returns the slot index holding key, or -1.
func (lb *lockedBucket) find(hash uint64, key string) int {
	for i := range lb.b.slots {
		s := &lb.b.slots[i]
		if s.hash == hash && s.key == key {
			return i
		}
	}
	return -1
}

// get returns key's value. An expired entry is freed and reported.
func (lb *lockedBucket) get(hash uint64, key string, now int64) (value interface{}, found, expired bool) {
	i := lb.find(hash, key)
	if i < 0 {
		return nil, false, false
	}
	s := &lb.b.slots[i]
	if s.expired(now) {
		*s = slot{}
		return nil, false, true
	}
	return s.value, true, false
}

// set updates key in place or fills a free slot. It reports whether a new
// entry was added and whether there was room at all.
func (lb *lockedBucket) set(hash uint64, key string, value interface{}, expireAt int64) (added, ok bool) {
	free := -1
	for i := range lb.b.slots {
		s := &lb.b.slots[i]
		if s.hash == hash && s.key == key {
			s.value = value
			s.expireAt = expireAt
			return false, true
		}
		if free < 0 && !s.used() {
			free = i
		}
	}
	if free < 0 {
		return false, false
	}
	lb.b.slots[free] = slot{hash: hash, key: key, value: value, expireAt: expireAt}
	return true, true
}

// remove frees key's slot and returns what it held.
func (lb *lockedBucket) remove(hash uint64, key string) (slot, bool) {
	i := lb.find(hash, key)
	if i < 0 {
		return slot{}, false
	}
	return lb.take(i), true
}

// take frees slot i and returns its previous content.
func (lb *lockedBucket) take(i int) slot {
	s := lb.b.slots[i]
	lb.b.slots[i] = slot{}
	return s
}

// victim picks the slot to evict from a full bucket: an expired entry if
// there is one, otherwise the least frequently used. Returns -1 when empty.
func (lb *lockedBucket) victim(now int64, frequency func(uint64) uint64) int {
	best, bestFreq := -1, uint64(0)
	for i := range lb.b.slots {
		s := &lb.b.slots[i]
		if !s.used() {
			continue
		}
		if s.expired(now) {
			return i
		}
		if f := frequency(s.hash); best < 0 || f < bestFreq {
			best, bestFreq = i, f
		}
	}
	return best
}

// len returns the number of occupied slots.
func (lb *lockedBucket) len() int {
	n := 0
	for i := range lb.b.slots {
		if lb.b.slots[i].used() {
			n++
		}
	}
	return n
}

// drain frees every slot, handing live entries to fn.
func (lb *lockedBucket) drain(fn func(s slot)) {
	for i := range lb.b.slots {
		if lb.b.slots[i].used() {
			s := lb.take(i)
			if fn != nil {
				fn(s)
			}
		}
	}
}

// refreshTerm forgets banishments from earlier terms.
func (lb *lockedBucket) refreshTerm(term int64) {
	if lb.b.banishTerm == term {
		return
	}
	lb.b.banished = [BanishSlots]uint64{}
	lb.b.banishTerm = term
	if lb.IsSet(FlagBanished) {
		lb.Toggle(FlagBanished)
	}
}

// isBanished reports whether hash is refused in term, either individually
// or because the whole bucket is banished.
func (lb *lockedBucket) isBanished(hash uint64, term int64) bool {
	lb.refreshTerm(term)
	if lb.IsSet(FlagBanished) {
		return true
	}
	for _, h := range lb.b.banished {
		if h == hash {
			return true
		}
	}
	return false
}

// banish refuses hash for the rest of term. When the banish list is full
// the whole bucket is banished instead; the return value reports that.
func (lb *lockedBucket) banish(hash uint64, term int64) (bucketWide bool) {
	lb.refreshTerm(term)
	if lb.IsSet(FlagBanished) {
		return true
	}
	free := -1
	for i, h := range lb.b.banished {
		if h == hash {
			return false
		}
		if free < 0 && h == 0 {
			free = i
		}
	}
	if free >= 0 {
		lb.b.banished[free] = hash
		return false
	}
	lb.Toggle(FlagBanished)
	return true
}

// banishedIn returns the hashes banished during term.
func (lb *lockedBucket) banishedIn(term int64) []uint64 {
	if lb.b.banishTerm != term {
		return nil
	}
	var out []uint64
	for _, h := range lb.b.banished {
		if h != 0 {
			out = append(out, h)
		}
	}
	return out
}

func (lb *lockedBucket) migrated() bool { return lb.IsSet(FlagMigrated) }

func (lb *lockedBucket) markMigrated() {
	if !lb.IsSet(FlagMigrated) {
		lb.Toggle(FlagMigrated)
	}
}
