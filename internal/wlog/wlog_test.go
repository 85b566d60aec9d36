package wlog

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func TestNewLevelMapping(t *testing.T) {
	cases := map[string]bool{
		"debug":   true,
		"warning": false,
		"bogus":   false,
	}
	for level, wantDebugEnabled := range cases {
		logger := New(level)
		if got := logger.Enabled(nil, slog.LevelDebug); got != wantDebugEnabled {
			t.Errorf("New(%q) debug-enabled = %v, want %v", level, got, wantDebugEnabled)
		}
	}
}

func TestWarnWritesRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	Warn(logger, "inbox full", "dest", "unit-a")
	if !strings.Contains(buf.String(), "inbox full") {
		t.Errorf("expected log output to contain message, got %q", buf.String())
	}
}

func TestFatalCallsExitAfterLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	var gotCode int
	called := false
	orig := exit
	exit = func(code int) {
		called = true
		gotCode = code
	}
	defer func() { exit = orig }()

	Fatal(logger, "duplicate registration", "name", "unit-a")

	if !called {
		t.Fatal("expected exit to be called")
	}
	if gotCode != 1 {
		t.Errorf("exit code = %d, want 1", gotCode)
	}
	if !strings.Contains(buf.String(), "duplicate registration") {
		t.Errorf("expected log output before exit, got %q", buf.String())
	}
}

func TestSilentLogsAtDebugOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	Silent(logger, "sync request for unknown unit", "unit", "worker-a")
	if !strings.Contains(buf.String(), "sync request for unknown unit") {
		t.Errorf("expected Silent to write a debug-level record, got %q", buf.String())
	}
}

func TestSilentProducesNothingAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf) // default level is Info
	Silent(logger, "sync request for unknown unit", "unit", "worker-a")
	if buf.Len() != 0 {
		t.Errorf("expected Silent to produce no output at info level, got %q", buf.String())
	}
}
