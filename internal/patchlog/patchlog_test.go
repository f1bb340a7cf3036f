package patchlog_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"patchcore/internal/patchlog"
)

func TestLogger_DefaultsToSlogDefault(t *testing.T) {
	t.Parallel()

	if got := patchlog.Logger(); got != slog.Default() {
		t.Fatalf("Logger() = %p, want slog.Default() %p", got, slog.Default())
	}
}

func TestSetLogger_ReplacesLoggerAndLoggerReturnsIt(t *testing.T) {
	custom := slog.New(stubHandler{})

	patchlog.SetLogger(custom)
	t.Cleanup(func() { patchlog.SetLogger(slog.Default()) })

	if got := patchlog.Logger(); got != custom {
		t.Fatalf("Logger() = %p, want %p", got, custom)
	}
}

func TestSetLogger_PanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on nil logger")
		}
	}()

	patchlog.SetLogger(nil)
}

func TestNewFileLogger_WritesToConfiguredPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "patchctl.log")

	logger := patchlog.NewFileLogger(patchlog.FileOptions{Path: path})
	if logger == nil {
		t.Fatal("NewFileLogger returned nil")
	}

	logger.Info("hello")

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	if !strings.Contains(string(got), "hello") {
		t.Fatalf("log file content = %q, want it to contain %q", got, "hello")
	}
}

// stubHandler is a minimal slog.Handler so we can assert identity
// without depending on any particular handler implementation.
type stubHandler struct{}

func (stubHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (stubHandler) Handle(context.Context, slog.Record) error { return nil }
func (h stubHandler) WithAttrs([]slog.Attr) slog.Handler       { return h }
func (h stubHandler) WithGroup(string) slog.Handler            { return h }
