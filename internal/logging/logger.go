// Package logging provides the project logger: printf-style convenience
// methods over a zap core. Output goes to stderr so the stdio MCP
// transport keeps stdout clean for protocol frames.
package logging

import (
	"io"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap logger with verbose gating.
type Logger struct {
	zl      *zap.Logger
	sugar   *zap.SugaredLogger
	verbose atomic.Bool
}

// NewLogger creates a logger writing to stderr.
func NewLogger(verbose bool) *Logger {
	return NewLoggerWithWriter(verbose, os.Stderr)
}

// NewLoggerWithWriter creates a logger writing to the given writer. Used
// by tests to capture output.
func NewLoggerWithWriter(verbose bool, w io.Writer) *Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), zapcore.InfoLevel)

	l := &Logger{zl: zap.New(core)}
	l.sugar = l.zl.Sugar()
	l.verbose.Store(verbose)
	return l
}

// Zap exposes the underlying zap logger for components that want
// structured fields.
func (l *Logger) Zap() *zap.Logger {
	return l.zl
}

// SetVerbose toggles verbose-gated output at runtime.
func (l *Logger) SetVerbose(verbose bool) {
	l.verbose.Store(verbose)
}

// Verbose reports whether verbose-gated output is enabled.
func (l *Logger) Verbose() bool {
	return l.verbose.Load()
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// InfoVerbose logs an informational message only when verbose is enabled.
func (l *Logger) InfoVerbose(format string, args ...interface{}) {
	if l.verbose.Load() {
		l.sugar.Infof(format, args...)
	}
}

// Success logs a successful operation.
func (l *Logger) Success(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warning logs a warning message.
func (l *Logger) Warning(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// WarningVerbose logs a warning only when verbose is enabled.
func (l *Logger) WarningVerbose(format string, args ...interface{}) {
	if l.verbose.Load() {
		l.sugar.Warnf(format, args...)
	}
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}
