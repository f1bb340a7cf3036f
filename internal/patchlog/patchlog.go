// Package patchlog holds the process-wide logger used throughout the
// patch lifecycle engine. Hosts may swap the handler (for example to
// redirect to a platform logging sink) via SetLogger; by default it
// writes to slog.Default().
package patchlog

import (
	"log/slog"
	"sync/atomic"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.Default())
}

// SetLogger replaces the package-wide logger. Safe for concurrent use.
func SetLogger(l *slog.Logger) {
	if l == nil {
		panic("patchlog: nil logger")
	}

	logger.Store(l)
}

// Logger returns the current package-wide logger.
func Logger() *slog.Logger {
	return logger.Load()
}

// FileOptions configures a rotating-file log sink.
type FileOptions struct {
	// Path is the log file path. Required.
	Path string

	// MaxSizeMB is the size in megabytes at which the log file rotates.
	// Zero uses lumberjack's default (100MB).
	MaxSizeMB int

	// MaxBackups is the number of old log files to retain. Zero keeps
	// all of them.
	MaxBackups int

	// MaxAgeDays is the number of days to retain old log files. Zero
	// disables age-based cleanup.
	MaxAgeDays int
}

// NewFileLogger builds a structured JSON logger that rotates through a
// lumberjack.Logger writer. Intended for hosts that want durable,
// bounded-size log files rather than stderr.
func NewFileLogger(opts FileOptions) *slog.Logger {
	writer := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}

	handler := slog.NewJSONHandler(writer, nil)

	return slog.New(handler)
}
