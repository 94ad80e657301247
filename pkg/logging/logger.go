// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for csvlag.
//
// The logger writes human-readable text to stderr and, optionally, JSON
// lines to a daily file:
//
//	┌───────────────────────────────────────────┐
//	│                  Logger                   │
//	│  ┌──────────────────┐  ┌───────────────┐  │
//	│  │ console (stderr) │  │   log file    │  │
//	│  │  can be muted    │  │  (optional)   │  │
//	│  └──────────────────┘  └───────────────┘  │
//	└───────────────────────────────────────────┘
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    LogDir:  "~/.csvlag/logs",
//	    Service: "csvlag",
//	})
//	defer logger.Close()
//	logger.Info("transform complete", "rows", n)
//
// # Console Muting
//
// While the interactive classifier owns the terminal, anything written to
// stderr would corrupt the screen. MuteConsole stops console output until
// the returned function is called; the file sink keeps receiving records.
//
// # Thread Safety
//
// Logger is safe for concurrent use.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// =============================================================================
// Log Levels
// =============================================================================

// Level represents log severity levels, ordered Debug < Info < Warn < Error.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota

	// LevelInfo is for normal operational messages.
	LevelInfo

	// LevelWarn is for recoverable problems.
	LevelWarn

	// LevelError is for failed operations.
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name such as "debug" or "WARN" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// =============================================================================
// Configuration
// =============================================================================

// Config configures the Logger. A zero-value Config writes Info+ text to
// stderr.
type Config struct {
	// Level sets the minimum log level. Default: LevelInfo
	Level Level

	// LogDir enables JSON file logging to "{Service}_{YYYY-MM-DD}.log" in
	// this directory. Supports ~ expansion. Default: "" (disabled)
	LogDir string

	// Service is attached to every record as the "service" attribute.
	Service string

	// JSON switches the console format to JSON.
	JSON bool

	// Quiet disables console output entirely.
	Quiet bool

	// Console overrides the console writer. Default: os.Stderr
	Console io.Writer
}

// =============================================================================
// Logger
// =============================================================================

// Logger wraps slog.Logger with a mutable console sink and an optional
// log file.
//
// Always call Close when file logging is enabled:
//
//	logger := logging.New(config)
//	defer logger.Close()
type Logger struct {
	slog    *slog.Logger
	config  Config
	file    *os.File
	muted   *atomic.Bool
	mu      *sync.Mutex
	logPath string
}

// New creates a Logger.
//
// # Description
//
// Sets up the console handler unless Quiet is set and a JSON file handler
// when LogDir is set. A log directory that cannot be created is reported
// on the console and file logging is skipped.
//
// # Inputs
//
//   - config: Logger configuration.
//
// # Outputs
//
//   - *Logger: Configured logger ready for use.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}
	logger := &Logger{
		config: config,
		muted:  &atomic.Bool{},
		mu:     &sync.Mutex{},
	}

	console := config.Console
	if console == nil {
		console = os.Stderr
	}

	var handlers []slog.Handler
	if !config.Quiet {
		var h slog.Handler
		if config.JSON {
			h = slog.NewJSONHandler(console, opts)
		} else {
			h = slog.NewTextHandler(console, opts)
		}
		handlers = append(handlers, &mutableHandler{inner: h, muted: logger.muted})
	}

	if config.LogDir != "" {
		if fh, err := logger.openFile(opts); err != nil {
			fmt.Fprintf(console, "logging: file logging disabled: %v\n", err)
		} else {
			handlers = append(handlers, fh)
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", config.Service)})
	}

	logger.slog = slog.New(handler)
	return logger
}

// Default returns an Info-level stderr logger for the csvlag service.
func Default() *Logger {
	return New(Config{Level: LevelInfo, Service: "csvlag"})
}

// Debug logs a message at Debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs a message at Info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs a message at Warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs a message at Error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// With returns a Logger with additional attributes. The child shares the
// parent's file and mute switch.
//
// Example:
//
//	runLogger := logger.With("run_id", runID)
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:    l.slog.With(args...),
		config:  l.config,
		file:    l.file,
		muted:   l.muted,
		mu:      l.mu,
		logPath: l.logPath,
	}
}

// Slog returns the underlying slog.Logger for packages that take one.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// FilePath returns the log file path, or "" when file logging is off.
func (l *Logger) FilePath() string {
	return l.logPath
}

// MuteConsole stops console output and returns a function that restores
// it. File logging is unaffected.
//
// Example:
//
//	restore := logger.MuteConsole()
//	defer restore()
func (l *Logger) MuteConsole() func() {
	prev := l.muted.Swap(true)
	return func() { l.muted.Store(prev) }
}

// Close syncs and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log file: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	l.file = nil
	return nil
}

func (l *Logger) openFile(opts *slog.HandlerOptions) (slog.Handler, error) {
	logDir := expandPath(l.config.LogDir)
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	service := l.config.Service
	if service == "" {
		service = "csvlag"
	}
	path := filepath.Join(logDir, fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02")))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l.file = file
	l.logPath = path
	return slog.NewJSONHandler(file, opts), nil
}

// =============================================================================
// Handlers (Internal)
// =============================================================================

// mutableHandler drops records while muted is set.
type mutableHandler struct {
	inner slog.Handler
	muted *atomic.Bool
}

func (h *mutableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return !h.muted.Load() && h.inner.Enabled(ctx, level)
}

func (h *mutableHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.muted.Load() {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *mutableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &mutableHandler{inner: h.inner.WithAttrs(attrs), muted: h.muted}
}

func (h *mutableHandler) WithGroup(name string) slog.Handler {
	return &mutableHandler{inner: h.inner.WithGroup(name), muted: h.muted}
}

// multiHandler fans out log records to multiple slog handlers.
type multiHandler struct {
	handlers []slog.Handler
}

// Enabled returns true if any handler is enabled for the level.
func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle sends the record to all enabled handlers.
func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

// WithAttrs returns a new handler with additional attributes.
func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

// WithGroup returns a new handler with a group name.
func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// =============================================================================
// Helper Functions
// =============================================================================

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
