//go:build bucketlock_debug

// assert_debug.go: contract assertions enabled by the bucketlock_debug tag
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

const debugging = true

func assert(cond bool, op string) {
	if !cond {
		panic(NewErrContractViolation(op))
	}
}
