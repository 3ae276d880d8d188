// flags.go: coordination flags carried next to the lock bit
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

import "strconv"

// Flag is a single named bit of a Cell, distinct from the lock bit.
// The cell only stores and toggles flags; their meaning belongs to the
// layer that owns the bucket.
type Flag uint16

const (
	// FlagBanished marks a bucket that refuses inserts until the current
	// banish term ends.
	FlagBanished Flag = 1 << (iota + 1)

	// FlagMigrated marks a bucket whose entries now live in the
	// auxiliary table of a running resize.
	FlagMigrated
)

const (
	// lockBit is bit 0. It is reserved and never a Flag.
	lockBit uint16 = 1

	// flagMask covers every bit a Flag may occupy.
	flagMask = ^lockBit

	// MaxFlags is the number of flag bits a 16-bit cell can hold.
	MaxFlags = 15
)

var definedFlags = [...]Flag{FlagBanished, FlagMigrated}

// Flags returns every defined flag in bit order.
func Flags() []Flag {
	out := make([]Flag, len(definedFlags))
	copy(out, definedFlags[:])
	return out
}

// valid reports whether f is exactly one non-lock bit.
func (f Flag) valid() bool {
	v := uint16(f)
	return v != 0 && v&(v-1) == 0 && v&flagMask == v
}

func (f Flag) String() string {
	switch f {
	case FlagBanished:
		return "banished"
	case FlagMigrated:
		return "migrated"
	}
	return "flag(0x" + strconv.FormatUint(uint64(f), 16) + ")"
}
