// Package testlogging implements logger that writes to testing.T log.
package testlogging

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/steamvault/steamvault/logging"
)

// Level specifies log level.
type Level = zapcore.Level

// log levels.
const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

// Context returns a context with attached logger that emits all log entries to go testing.T log output.
func Context(t testing.TB) context.Context {
	t.Helper()

	return ContextWithLevel(t, LevelDebug)
}

// ContextWithLevel returns a context with attached logger that emits all log entries with given log level or above.
func ContextWithLevel(t testing.TB, level Level) context.Context {
	t.Helper()

	return logging.WithLogger(context.Background(), func(module string) logging.Logger {
		return PrintfLevel(t.Logf, "["+module+"] ", level)
	})
}

// Sink returns a log sink that writes user-visible lines to testing.T log output and records them.
func Sink(t testing.TB) (logging.Sink, func() []string) {
	t.Helper()

	var lines []string

	return func(line string) {
			t.Logf("%v", line)
			lines = append(lines, line)
		}, func() []string {
			return append([]string(nil), lines...)
		}
}
