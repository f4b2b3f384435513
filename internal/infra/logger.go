package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger aliases zerolog.Logger so packages depend on infra for the logging
// contract instead of importing the third-party module everywhere.
type Logger = zerolog.Logger

// NewLogger builds the service logger. Development gets a human readable
// console writer at debug level; every other environment logs JSON at info.
func NewLogger(appEnv string) Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", "omniscore").
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return logger
}

// NopLogger returns a logger that drops everything. Used by constructors
// that accept an optional logger and by tests.
func NopLogger() Logger {
	return zerolog.New(io.Discard)
}

// Component tags a logger with the emitting subsystem.
func Component(l Logger, name string) Logger {
	return l.With().Str("component", name).Logger()
}
