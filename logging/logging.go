// Package logging provides module loggers for diagnostics and the tagged line stream shown to users.
package logging

import (
	"context"

	"go.uber.org/zap"
)

// Logger is used by engine packages to write diagnostic log output.
type Logger = *zap.SugaredLogger

// LoggerFactory retrieves a named logger for a given module.
type LoggerFactory func(module string) Logger

// Module returns a function that returns a logger for a given module when provided with a context.
func Module(module string) func(ctx context.Context) Logger {
	return func(ctx context.Context) Logger {
		if l, ok := ctx.Value(loggerKey).(LoggerFactory); ok {
			return l(module)
		}

		return nullLogger
	}
}

var nullLogger = zap.NewNop().Sugar()

// NullLogger returns a logger that discards all log messages.
func NullLogger() Logger {
	return nullLogger
}

func getNullLogger(module string) Logger {
	return nullLogger
}
