//go:build !bucketlock_debug

// assert_release.go: contract assertions compiled out of normal builds
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

const debugging = false

func assert(bool, string) {}
