// cell.go: the 16-bit bucket state word
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

import (
	"strings"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// Cell is the state word of one bucket: bit 0 is a spin-lock, bits 1-15
// are flags that may only be read or written while the lock is held.
//
// A Cell is exactly 16 bits wide. The zero value is unlocked with no flags.
//
// Go has no 16-bit atomics, so a Cell is accessed through the aligned
// 32-bit word that encloses it, and every write preserves the other half
// of that word. That half must belong to another Cell or be unused: a Cell
// must never be a struct field next to other data, nor a standalone
// variable. Allocate cells with NewCells or NewCell, which own every word
// they touch.
//
// Never copy a Cell with plain assignment; use Load and Store.
type Cell struct {
	bits uint16
}

// NewCells returns n unlocked cells in one allocation. The backing array
// always holds an even number of cells, so the enclosing word of the last
// one is part of the same allocation.
func NewCells(n int) []Cell {
	if n < 0 {
		n = 0
	}
	return make([]Cell, n, (n+1)&^1)
}

// NewCell returns a single cell that owns its whole 32-bit word.
func NewCell() *Cell {
	return &NewCells(1)[0]
}

// State is a snapshot of a Cell's bits. It is a plain value and carries
// no lock.
type State uint16

// IsLocked reports whether the lock bit was set in the snapshot.
func (s State) IsLocked() bool { return uint16(s)&lockBit != 0 }

// Has reports whether f was set in the snapshot.
func (s State) Has(f Flag) bool { return uint16(s)&uint16(f)&flagMask != 0 }

func (s State) String() string {
	var b strings.Builder
	if s.IsLocked() {
		b.WriteString("locked")
	} else {
		b.WriteString("unlocked")
	}
	rest := uint16(s) & flagMask
	for _, f := range definedFlags {
		if rest&uint16(f) != 0 {
			b.WriteByte('|')
			b.WriteString(f.String())
			rest &^= uint16(f)
		}
	}
	for bit := uint16(1) << 1; rest != 0; bit <<= 1 {
		if rest&bit != 0 {
			b.WriteByte('|')
			b.WriteString(Flag(bit).String())
			rest &^= bit
		}
	}
	return b.String()
}

// word returns the aligned 32-bit word holding c and c's bit offset in it.
func (c *Cell) word() (*uint32, uint32) {
	p := unsafe.Pointer(&c.bits)
	off := uintptr(p) & 3
	shift := uint32(off) * 8 // #nosec G115 - off is 0 or 2
	if cpu.IsBigEndian {
		shift = 16 - shift
	}
	// #nosec G103 - the enclosing word is 4-byte aligned and contains c
	return (*uint32)(unsafe.Add(p, -int(off))), shift
}

func (c *Cell) load() uint16 {
	w, shift := c.word()
	return uint16(atomic.LoadUint32(w) >> shift)
}

// compareAndSwap stores next if the cell holds old. A concurrent change to
// the other half of the word is retried, never reported as a failure.
func (c *Cell) compareAndSwap(old, next uint16) bool {
	w, shift := c.word()
	mask := uint32(0xFFFF) << shift
	for {
		cur := atomic.LoadUint32(w)
		if uint16(cur>>shift) != old {
			return false
		}
		if atomic.CompareAndSwapUint32(w, cur, cur&^mask|uint32(next)<<shift) {
			return true
		}
	}
}

// apply atomically replaces the bits v with (v &^ clear) ^ flip and
// returns the new value.
func (c *Cell) apply(clear, flip uint16) uint16 {
	w, shift := c.word()
	mask := uint32(0xFFFF) << shift
	for {
		cur := atomic.LoadUint32(w)
		next := (uint16(cur>>shift) &^ clear) ^ flip
		if atomic.CompareAndSwapUint32(w, cur, cur&^mask|uint32(next)<<shift) {
			return next
		}
	}
}

// IsLocked reports whether the lock bit is set. It may be called without
// holding the lock; the answer can be stale by the time it is used.
func (c *Cell) IsLocked() bool {
	return c.load()&lockBit != 0
}

// Load returns a snapshot of the cell taken with a single atomic load.
// A snapshot taken while another goroutine mutates the cell is a best-effort
// sample.
func (c *Cell) Load() State {
	return State(c.load())
}

// Store overwrites the cell with s in a single atomic store. It is the
// assignment half of copying a cell and must not be used on a cell that
// another goroutine may hold.
func (c *Cell) Store(s State) {
	c.apply(0xFFFF, uint16(s))
}

// CopyFrom makes c an independent copy of src.
func (c *Cell) CopyFrom(src *Cell) {
	c.Store(src.Load())
}

func (c *Cell) String() string {
	return c.Load().String()
}
