// flags_test.go: tests for cell flags
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

import "testing"

func TestFlags_Distinct(t *testing.T) {
	seen := uint16(0)
	for _, f := range Flags() {
		if !f.valid() {
			t.Errorf("flag %v is not a single non-lock bit", f)
		}
		if seen&uint16(f) != 0 {
			t.Errorf("flag %v overlaps another flag", f)
		}
		seen |= uint16(f)
	}
	if seen&lockBit != 0 {
		t.Error("a flag overlaps the lock bit")
	}
}

func TestFlags_ReturnsCopy(t *testing.T) {
	flags := Flags()
	flags[0] = 0
	if Flags()[0] != FlagBanished {
		t.Error("Flags() exposed its backing array")
	}
}

func TestFlag_Valid(t *testing.T) {
	tests := []struct {
		flag Flag
		want bool
	}{
		{FlagBanished, true},
		{FlagMigrated, true},
		{Flag(1 << 15), true},
		{Flag(0), false},
		{Flag(lockBit), false},
		{FlagBanished | FlagMigrated, false},
	}
	for _, tt := range tests {
		if got := tt.flag.valid(); got != tt.want {
			t.Errorf("Flag(0x%x).valid() = %v, want %v", uint16(tt.flag), got, tt.want)
		}
	}
}

func TestFlag_String(t *testing.T) {
	tests := []struct {
		flag Flag
		want string
	}{
		{FlagBanished, "banished"},
		{FlagMigrated, "migrated"},
		{Flag(1 << 5), "flag(0x20)"},
	}
	for _, tt := range tests {
		if got := tt.flag.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestMaxFlags_FitsCell(t *testing.T) {
	if MaxFlags != 15 {
		t.Errorf("MaxFlags = %d, want 15", MaxFlags)
	}
	// The highest flag bit still belongs to the cell.
	if !Flag(1 << MaxFlags).valid() {
		t.Error("bit 15 should be a valid flag")
	}
}
