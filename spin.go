// spin.go: CPU-level contention hint
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

import _ "unsafe" // for go:linkname

// spin issues the runtime's active-spin hint (PAUSE on amd64, YIELD on
// arm64) without giving up the P to the scheduler.
//
//go:linkname spin sync.runtime_doSpin
func spin()
