package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. Components derive child loggers from
// it with WithComponent, WithRun or WithDevice.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Level is a log level name as accepted on the command line
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

var levels = map[Level]zerolog.Level{
	DebugLevel: zerolog.DebugLevel,
	InfoLevel:  zerolog.InfoLevel,
	WarnLevel:  zerolog.WarnLevel,
	ErrorLevel: zerolog.ErrorLevel,
}

// ParseLevel maps a user supplied string onto a Level, defaulting to info.
func ParseLevel(s string) Level {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if l == "warning" {
		return WarnLevel
	}
	if _, ok := levels[l]; ok {
		return l
	}
	return InfoLevel
}

// Config holds logging configuration. When File is set every event is also
// appended to it as JSON, whatever the console format, so a long matrix
// leaves a machine readable log behind.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
	File       string
}

// Init replaces the global logger. The returned function closes the log
// file, if any.
func Init(cfg Config) (func() error, error) {
	level, ok := levels[cfg.Level]
	if !ok {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if !cfg.JSONOutput {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	closer := func() error { return nil }
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return closer, fmt.Errorf("failed to open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(out, f)
		closer = f.Close
	}

	Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer, nil
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithRun creates a child logger carrying the run identity
func WithRun(runID, device, filesystem string) zerolog.Logger {
	return Logger.With().
		Str("run_id", runID).
		Str("device", device).
		Str("filesystem", filesystem).
		Logger()
}

// WithDevice creates a child logger with device field
func WithDevice(device string) zerolog.Logger {
	return Logger.With().Str("device", device).Logger()
}
