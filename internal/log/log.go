package log

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Package log is a thin facade over zerolog so call sites stay as
// log.Info("message", "key", value) pairs.

var logger zerolog.Logger

func init() {
	Configure("info", "console")
}

// Configure sets the global log level and output format.
// Level is one of trace, debug, info, warn, error; format is console or json.
func Configure(level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var out = zerolog.New(os.Stderr)
	if format != "json" {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}

	logger = out.Level(lvl).With().Timestamp().Logger()
}

// Trace logs at trace level with key/value pairs
func Trace(msg string, kv ...any) {
	emit(logger.Trace(), msg, kv)
}

// Debug logs at debug level with key/value pairs
func Debug(msg string, kv ...any) {
	emit(logger.Debug(), msg, kv)
}

// Info logs at info level with key/value pairs
func Info(msg string, kv ...any) {
	emit(logger.Info(), msg, kv)
}

// Warn logs at warn level with key/value pairs
func Warn(msg string, kv ...any) {
	emit(logger.Warn(), msg, kv)
}

// Error logs at error level with key/value pairs
func Error(msg string, kv ...any) {
	emit(logger.Error(), msg, kv)
}

func emit(e *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		e = e.Interface(fmt.Sprint(kv[i]), kv[i+1])
	}
	e.Msg(msg)
}
