// Package logger owns the process-wide zerolog instance. Components receive
// a zerolog.Logger by value; GetLogger hands out the configured one.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	globalLogger zerolog.Logger
	once         sync.Once
)

// GetLogger returns the process logger. Before New has run it falls back to
// console output at info level so early startup logs stay readable.
func GetLogger() zerolog.Logger {
	once.Do(func() {
		globalLogger = consoleLogger().Level(zerolog.InfoLevel)
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})
	return globalLogger
}

// New configures the process logger from the level and format settings and
// returns it. Format is "json" for machine-readable output or "console" for
// local development.
func New(level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, err
	}

	var base zerolog.Logger
	switch strings.ToLower(format) {
	case "json":
		base = zerolog.New(os.Stdout).With().Timestamp().Logger()
	case "console":
		base = consoleLogger()
	default:
		return zerolog.Logger{}, fmt.Errorf("unsupported log format %q", format)
	}

	zerolog.SetGlobalLevel(lvl)
	globalLogger = base.Level(lvl)
	return globalLogger, nil
}

func consoleLogger() zerolog.Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(writer).With().Timestamp().Logger()
}
