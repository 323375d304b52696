// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package logger provides structured logging using zerolog.
//
// The global logger is silent until Initialize is called. Library packages
// emit only debug-level events, so importing the ECP client never produces
// output on its own; the ecpctl binary turns logging on.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var log = zerolog.Nop()

// Initialize sets up the global logger with the specified level
func Initialize(level string) {
	InitializeWithWriter(level, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// InitializeWithWriter sets up the global logger writing to w
func InitializeWithWriter(level string, w io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339

	zerolog.SetGlobalLevel(parseLogLevel(level))
	log = zerolog.New(w).
		Level(zerolog.TraceLevel).
		With().
		Timestamp().
		Logger()
}

// Disable restores the silent default logger
func Disable() {
	log = zerolog.Nop()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

// parseLogLevel converts string log level to zerolog.Level, defaulting to info
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	return &log
}

// Debug logs a debug message
func Debug() *zerolog.Event {
	return log.Debug()
}

// Info logs an info message
func Info() *zerolog.Event {
	return log.Info()
}

// Warn logs a warning message
func Warn() *zerolog.Event {
	return log.Warn()
}

// Error logs an error message
func Error() *zerolog.Event {
	return log.Error()
}

// Fatal logs a fatal message and exits
func Fatal() *zerolog.Event {
	return log.Fatal()
}

// With creates a child logger with additional fields
func With() zerolog.Context {
	return log.With()
}

// SetOutput sets the output writer for the logger
func SetOutput(w io.Writer) {
	log = log.Output(w)
}

// SetLevel changes the minimum level at runtime. zerolog reads its global
// level atomically, so this is safe while other goroutines log.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(parseLogLevel(level))
}
