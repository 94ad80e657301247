// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{" warn ", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	if LevelDebug.toSlogLevel() != slog.LevelDebug {
		t.Error("LevelDebug should map to slog.LevelDebug")
	}
	if Level(99).toSlogLevel() != slog.LevelInfo {
		t.Error("unknown level should map to slog.LevelInfo")
	}
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestLogger_WritesToConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Service: "csvlag", Console: &buf})

	logger.Info("transform complete", "rows", 3)

	out := buf.String()
	if !strings.Contains(out, "transform complete") {
		t.Errorf("missing message in %q", out)
	}
	if !strings.Contains(out, "service=csvlag") {
		t.Errorf("missing service attribute in %q", out)
	}
	if !strings.Contains(out, "rows=3") {
		t.Errorf("missing rows attribute in %q", out)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Console: &buf})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below Warn should be filtered: %q", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("Warn and Error should pass: %q", out)
	}
}

func TestLogger_JSONConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, JSON: true, Console: &buf})

	logger.Info("hello", "n", 1)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("console output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "hello" {
		t.Errorf("msg = %v, want hello", rec["msg"])
	}
}

func TestLogger_QuietMode(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Quiet: true, Console: &buf})
	logger.Error("should not appear")

	if buf.Len() != 0 {
		t.Errorf("quiet logger wrote %q", buf.String())
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Console: &buf})

	runLogger := logger.With("run_id", "abc-123")
	runLogger.Info("started")

	if !strings.Contains(buf.String(), "run_id=abc-123") {
		t.Errorf("child logger missing run_id: %q", buf.String())
	}
}

func TestLogger_MuteConsole(t *testing.T) {
	var buf bytes.Buffer
	dir := t.TempDir()
	logger := New(Config{Console: &buf, LogDir: dir, Service: "csvlag"})
	defer logger.Close()

	restore := logger.With("run_id", "r1").MuteConsole()
	logger.Info("while muted")
	restore()
	logger.Info("after restore")

	out := buf.String()
	if strings.Contains(out, "while muted") {
		t.Errorf("muted console received output: %q", out)
	}
	if !strings.Contains(out, "after restore") {
		t.Errorf("restored console missing output: %q", out)
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	data, err := os.ReadFile(logger.FilePath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "while muted") {
		t.Errorf("file sink should keep records while muted: %q", data)
	}
}

func TestLogger_MuteConsole_Nested(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Console: &buf})

	outer := logger.MuteConsole()
	inner := logger.MuteConsole()
	inner()
	logger.Info("still muted")
	outer()
	logger.Info("visible")

	if strings.Contains(buf.String(), "still muted") {
		t.Error("inner restore must not unmute an outer mute")
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Error("outer restore should unmute")
	}
}

func TestLogger_FileLogging(t *testing.T) {
	var buf bytes.Buffer
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	logger := New(Config{Level: LevelDebug, LogDir: dir, Service: "csvlag", Console: &buf})

	logger.Debug("to file", "k", "v")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	path := logger.FilePath()
	if filepath.Dir(path) != dir {
		t.Errorf("log file %q not in %q", path, dir)
	}
	if !strings.HasPrefix(filepath.Base(path), "csvlag_") || !strings.HasSuffix(path, ".log") {
		t.Errorf("unexpected log file name %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &rec); err != nil {
		t.Fatalf("file log is not JSON: %v", err)
	}
	if rec["k"] != "v" {
		t.Errorf("k = %v, want v", rec["k"])
	}
}

func TestLogger_FileLogging_InvalidDir(t *testing.T) {
	var buf bytes.Buffer
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	logger := New(Config{LogDir: filepath.Join(blocker, "logs"), Console: &buf})
	logger.Info("still works")

	if logger.FilePath() != "" {
		t.Errorf("FilePath() = %q, want empty", logger.FilePath())
	}
	if !strings.Contains(buf.String(), "file logging disabled") {
		t.Errorf("expected a notice on the console: %q", buf.String())
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestLogger_Slog(t *testing.T) {
	logger := New(Config{Console: &bytes.Buffer{}})
	if logger.Slog() == nil {
		t.Error("Slog() returned nil")
	}
}

func TestLogger_ConcurrentUse(t *testing.T) {
	var mu sync.Mutex
	var buf bytes.Buffer
	logger := New(Config{Console: &lockedWriter{mu: &mu, w: &buf}})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			restore := logger.MuteConsole()
			logger.Info("concurrent", "n", n)
			restore()
		}(i)
	}
	wg.Wait()
}

type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// =============================================================================
// Handler Tests
// =============================================================================

func TestMultiHandler_Handle(t *testing.T) {
	var a, b bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	logger := slog.New(h)

	logger.Info("fan out")

	if !strings.Contains(a.String(), "fan out") {
		t.Error("debug-level handler should receive Info")
	}
	if b.Len() != 0 {
		t.Error("error-level handler should not receive Info")
	}
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled should be true when any handler is enabled")
	}
}

func TestMultiHandler_WithAttrsAndGroup(t *testing.T) {
	var a bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{slog.NewTextHandler(&a, nil)}}
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("k", "v")}).WithGroup("g"))

	logger.Info("msg", "x", 1)

	out := a.String()
	if !strings.Contains(out, "k=v") || !strings.Contains(out, "g.x=1") {
		t.Errorf("attrs or group missing: %q", out)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~/.csvlag/logs", filepath.Join(home, ".csvlag/logs")},
		{"~", home},
		{"/var/log", "/var/log"},
		{"relative/path", "relative/path"},
		{"~user/x", "~user/x"},
	}
	for _, tt := range tests {
		if got := expandPath(tt.in); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
