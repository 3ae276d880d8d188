// lock.go: acquisition protocol and the lock guard
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

// acquire runs the bounded spin loop and reports how many attempts it made.
// The body always runs at least once, so attempts == max(1, maxTries) when
// the cell stays locked for the whole budget. On failure the cell is left
// untouched.
func (c *Cell) acquire(maxTries int) (attempts int, ok bool) {
	for {
		attempts++
		current := c.load()
		expected := current &^ lockBit
		if current != expected {
			spin()
		} else if c.compareAndSwap(expected, expected|lockBit) {
			return attempts, true
		}
		if attempts >= maxTries {
			return attempts, false
		}
	}
}

// Lock tries to acquire the cell, making max(1, maxTries) attempts.
// On success the returned Guard holds the lock and the flags are unchanged.
// On failure the Guard is zero and the cell is untouched; the caller decides
// whether to skip, fall back or retry with a fresh budget.
func (c *Cell) Lock(maxTries int) (Guard, bool) {
	if _, ok := c.acquire(maxTries); ok {
		return Guard{cell: c}, true
	}
	return Guard{}, false
}

// LockFunc is Lock followed, only on success, by a call to onAcquire with
// the lock held. onAcquire must not panic.
func (c *Cell) LockFunc(maxTries int, onAcquire func()) (Guard, bool) {
	if _, ok := c.acquire(maxTries); !ok {
		return Guard{}, false
	}
	if onAcquire != nil {
		onAcquire()
	}
	return Guard{cell: c}, true
}

// TryLock makes a single acquisition attempt.
func (c *Cell) TryLock() (Guard, bool) {
	return c.Lock(1)
}

// LockWait spins until the cell is acquired. It never sleeps, so it is only
// suitable for critical sections measured in microseconds.
func (c *Cell) LockWait() Guard {
	for {
		if _, ok := c.acquire(TriesUnbounded); ok {
			return Guard{cell: c}
		}
	}
}

// Guard is proof that the caller holds a Cell's lock. The locked-only
// operations (flag inspection and mutation, release) are reachable only
// through it. Unlock consumes the guard; any later use panics.
//
// A Guard must not be copied: a copy would be a second key to the same lock.
// go vet's copylocks check reports copies.
type Guard struct {
	noCopy noCopy
	cell   *Cell
}

// noCopy is recognised by go vet's copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// held returns the guarded cell, panicking on a released or zero guard.
func (g *Guard) held(op string) *Cell {
	if g.cell == nil {
		panic(NewErrContractViolation(op))
	}
	if debugging {
		assert(g.cell.IsLocked(), op)
	}
	return g.cell
}

// Held reports whether the guard still holds its lock.
func (g *Guard) Held() bool {
	return g.cell != nil
}

// IsSet reports whether f is set.
func (g *Guard) IsSet(f Flag) bool {
	c := g.held("IsSet")
	if debugging {
		assert(f.valid(), "IsSet")
	}
	return c.load()&uint16(f)&flagMask != 0
}

// Toggle flips f. Toggling the same flag twice restores it.
func (g *Guard) Toggle(f Flag) {
	c := g.held("Toggle")
	if debugging {
		assert(f.valid(), "Toggle")
	}
	c.apply(0, uint16(f)&flagMask)
}

// Clear resets every flag. The lock bit stays set.
func (g *Guard) Clear() {
	g.held("Clear").apply(flagMask, 0)
}

// State returns a snapshot of the guarded cell.
func (g *Guard) State() State {
	return State(g.held("State").load())
}

// Unlock releases the lock, leaving the flags as they are. Every write made
// while the lock was held is visible to the next goroutine that acquires it.
func (g *Guard) Unlock() {
	c := g.held("Unlock")
	g.cell = nil
	c.apply(lockBit, 0)
}
