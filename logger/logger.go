// Package logger provides a centralized logging system for the application
// using the slog structured logging library.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// LogLevel represents the verbosity level of logging
type LogLevel int

const (
	// LevelError only logs errors
	LevelError LogLevel = iota
	// LevelWarn logs warnings and errors
	LevelWarn
	// LevelInfo logs general information, warnings, and errors
	LevelInfo
	// LevelDebug logs detailed debug information and all other levels
	LevelDebug
)

// Format selects the slog handler.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
	// FormatAuto uses console output on a terminal and JSON otherwise.
	FormatAuto Format = "auto"
)

var (
	defaultLogger = slog.Default()

	logLevel = LevelInfo

	// Writer for logs
	logWriter io.Writer = os.Stderr
)

// ParseLevel converts a textual level into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "", "info":
		return LevelInfo, nil
	case "debug", "trace":
		return LevelDebug, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ParseFormat converts a textual format into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatConsole, FormatJSON, FormatAuto:
		return f, nil
	case "", "text":
		return FormatAuto, nil
	}
	return FormatAuto, fmt.Errorf("unknown log format %q", s)
}

// Init initializes the logging system with the specified level and console output.
func Init(level LogLevel) {
	InitWithFormat(level, FormatConsole)
}

// InitWithFormat initializes the logging system with the specified level and handler format.
func InitWithFormat(level LogLevel, format Format) {
	logLevel = level

	var slogLevel slog.Level
	switch logLevel {
	case LevelError:
		slogLevel = slog.LevelError
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelDebug:
		slogLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}

	var handler slog.Handler
	if resolveFormat(format) == FormatJSON {
		handler = slog.NewJSONHandler(logWriter, opts)
	} else {
		handler = slog.NewTextHandler(logWriter, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)

	Debug("Logger initialized", "level", logLevel, "format", format)
}

// resolveFormat turns FormatAuto into a concrete format for the current writer.
func resolveFormat(format Format) Format {
	if format != FormatAuto {
		return format
	}
	if f, ok := logWriter.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return FormatConsole
	}
	return FormatJSON
}

// GetLogLevel returns the current log level
func GetLogLevel() LogLevel {
	return logLevel
}

// Error logs an error message with optional key-value pairs
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// Warn logs a warning message with optional key-value pairs
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Info logs an informational message with optional key-value pairs
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Debug logs a debug message with optional key-value pairs
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// WithModule returns a logger with the module name as a context attribute
func WithModule(moduleName string) *slog.Logger {
	return defaultLogger.With("module", moduleName)
}

// IsDebugEnabled checks if debug logging is enabled
func IsDebugEnabled() bool {
	return logLevel >= LevelDebug
}
