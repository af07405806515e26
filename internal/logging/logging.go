// Package logging provides structured logging using zerolog.
//
// The MCP transport owns stdout, so all logs go to stderr.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger.
var Logger zerolog.Logger

// Setup configures the global logger. level is one of DEBUG, INFO,
// WARN, ERROR or FATAL (case-insensitive; unknown values fall back to
// INFO). pretty switches to human-readable console output.
func Setup(level string, pretty bool) {
	SetupWriter(os.Stderr, level, pretty)
}

// SetupWriter is Setup with an explicit destination, used by tests.
func SetupWriter(w io.Writer, level string, pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	Logger = zerolog.New(out).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel parses a log level string, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO", "":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "FATAL":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// With creates a child logger carrying a component field.
func With(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// Debug starts a debug-level message on the global logger.
func Debug() *zerolog.Event { return Logger.Debug() }

// Info starts an info-level message on the global logger.
func Info() *zerolog.Event { return Logger.Info() }

// Warn starts a warn-level message on the global logger.
func Warn() *zerolog.Event { return Logger.Warn() }

// Error starts an error-level message on the global logger.
func Error() *zerolog.Event { return Logger.Error() }

func init() {
	Setup("INFO", false)
}
