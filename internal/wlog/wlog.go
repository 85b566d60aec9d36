// Package wlog wraps log/slog with the three severities the watchdog
// design distinguishes: Fatal (log then terminate the process), Warn (log
// at warn level and keep going), and Silent (log at debug level only,
// reserved for conditions the design calls out as expected and not worth
// a warn-level line).
//
// The watchdog's own error-handling model predates structured logging
// levels: every condition is classified up front as one of these three
// outcomes rather than mapped onto slog's five built-in levels, so this
// package sits as a thin, opinionated front end over a *slog.Logger rather
// than replacing it.
package wlog

import (
	"log/slog"
	"os"
)

// exit is the process-termination hook used by Fatal. Tests replace it to
// observe that a fatal condition was reached without killing the test
// binary.
var exit = os.Exit

// New builds the process-wide JSON logger at the given level ("debug",
// "info", "warn"/"warning", "error"; anything else maps to info).
func New(level string) *slog.Logger {
	lvl := new(slog.LevelVar)
	switch level {
	case "debug":
		lvl.Set(slog.LevelDebug)
	case "info":
		lvl.Set(slog.LevelInfo)
	case "warn", "warning":
		lvl.Set(slog.LevelWarn)
	case "error":
		lvl.Set(slog.LevelError)
	default:
		lvl.Set(slog.LevelInfo)
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}

// Fatal logs msg at error level with attrs and then terminates the process
// with exit status 1. It is reserved for the handful of conditions the
// watchdog design treats as programmer error or unrecoverable state:
// duplicate unit registration, a Start or UpdateSettings request naming an
// unknown unit, a corrupt settings value reaching a unit that already
// passed validation.
func Fatal(logger *slog.Logger, msg string, attrs ...any) {
	logger.Error(msg, attrs...)
	exit(1)
}

// Warn logs msg at warn level. It is used for conditions the design
// expects to happen occasionally under normal operation and wants
// recorded, but that never change server or client control flow: a
// connectionless send landing on a full inbox, a kick arriving for a unit
// that already unregistered.
func Warn(logger *slog.Logger, msg string, attrs ...any) {
	logger.Warn(msg, attrs...)
}

// Silent logs msg at debug level and nothing louder. It is used for
// conditions the design expects often enough that a warn-level line would
// be noise, but that are still worth a trace for anyone debugging with
// -log-level=debug: a sync request or terminate request arriving for a
// unit that already unregistered.
func Silent(logger *slog.Logger, msg string, attrs ...any) {
	logger.Debug(msg, attrs...)
}
