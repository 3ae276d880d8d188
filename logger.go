// logger.go: log/slog adapter for the Logger interface
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

import (
	"context"
	"log/slog"
)

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l.With("component", "bucketlock")}
}

func (s *SlogLogger) log(level slog.Level, msg string, keyvals []interface{}) {
	ctx := context.Background()
	if !s.l.Enabled(ctx, level) {
		return
	}
	s.l.Log(ctx, level, msg, keyvals...)
}

// Debug logs at slog.LevelDebug.
func (s *SlogLogger) Debug(msg string, keyvals ...interface{}) { s.log(slog.LevelDebug, msg, keyvals) }

// Info logs at slog.LevelInfo.
func (s *SlogLogger) Info(msg string, keyvals ...interface{}) { s.log(slog.LevelInfo, msg, keyvals) }

// Warn logs at slog.LevelWarn.
func (s *SlogLogger) Warn(msg string, keyvals ...interface{}) { s.log(slog.LevelWarn, msg, keyvals) }

// Error logs at slog.LevelError.
func (s *SlogLogger) Error(msg string, keyvals ...interface{}) { s.log(slog.LevelError, msg, keyvals) }

var _ Logger = (*SlogLogger)(nil)
