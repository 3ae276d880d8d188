// main_test.go: tests for the bucketstress command
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestParseFlags_Defaults(t *testing.T) {
	var errOut bytes.Buffer
	opts, code := parseFlags(&errOut, nil)
	if code != -1 {
		t.Fatalf("parseFlags() code = %d, stderr = %q", code, errOut.String())
	}
	if opts.goroutines != 8 || opts.duration != 2*time.Second || opts.resize {
		t.Errorf("unexpected defaults: %+v", opts)
	}
}

func TestParseFlags_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--nope"}},
		{"zero goroutines", []string{"-g", "0"}},
		{"negative size", []string{"--size=-1"}},
		{"write ratio above one", []string{"-w", "1.5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errOut bytes.Buffer
			if _, code := parseFlags(&errOut, tt.args); code != 2 {
				t.Errorf("parseFlags(%v) code = %d, want 2", tt.args, code)
			}
			if !strings.Contains(errOut.String(), "error") {
				t.Errorf("expected an error message, got %q", errOut.String())
			}
		})
	}
}

func TestParseFlags_Help(t *testing.T) {
	var errOut bytes.Buffer
	if _, code := parseFlags(&errOut, []string{"--help"}); code != 0 {
		t.Errorf("--help code = %d, want 0", code)
	}
	if !strings.Contains(errOut.String(), "--goroutines") {
		t.Errorf("usage should list flags, got %q", errOut.String())
	}
}

func TestRun_ShortWorkloadWithResize(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(&out, &errOut, []string{"-g", "4", "-d", "200ms", "-k", "2000", "-s", "500", "--resize"})
	if code != 0 {
		t.Fatalf("run() = %d, stderr = %q", code, errOut.String())
	}
	for _, want := range []string{"ops:", "hit ratio:", "lock attempts:", "migrations:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report missing %q:\n%s", want, out.String())
		}
	}
}
