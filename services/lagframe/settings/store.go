// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package settings persists column classifications per input file.
//
// # Description
//
// The store is a single JSON document mapping the resolved absolute path
// of an input file to its last confirmed classification. Every save reads
// the whole document, merges one entry and rewrites the file.
//
// # File Format
//
//	{
//	    "/data/prices.csv": {
//	        "all_fields": ["date", "close", "note"],
//	        "fields_to_drop": ["note"],
//	        "fields_to_window": ["close"],
//	        "saved_at": "2025-06-01T10:00:00Z"
//	    }
//	}
//
// Keys are sorted and the document is indented with four spaces.
//
// # Thread Safety
//
// Store is meant for a single process. Concurrent writers from several
// processes are not coordinated; the last rename wins.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/csvlag/services/lagframe/classification"
)

// DefaultFileName is the store's file name inside the csvlag home directory.
const DefaultFileName = "fields_setting.json"

// Entry is the on-disk form of one classification. Field order keeps the
// encoded keys sorted.
type Entry struct {
	AllFields      []string   `json:"all_fields"`
	FieldsToDrop   []string   `json:"fields_to_drop"`
	FieldsToWindow []string   `json:"fields_to_window"`
	SavedAt        *time.Time `json:"saved_at,omitempty"`
}

// Record pairs a store key with its entry.
type Record struct {
	Path  string
	Entry Entry
}

// Match describes how Load found its entry.
type Match int

const (
	// MatchNone means no entry was found.
	MatchNone Match = iota

	// MatchExact means the resolved path was a key.
	MatchExact

	// MatchFileName means a key with the same file name was used.
	MatchFileName
)

// String returns the match kind for logs.
func (m Match) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchFileName:
		return "file_name"
	default:
		return "none"
	}
}

// Store reads and writes the classification document.
type Store struct {
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for saved_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger. A nil logger falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a store backed by the JSON file at path.
//
// # Description
//
// The file does not need to exist. It is created, along with its parent
// directory, on the first Save.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the classification saved for an input file.
//
// # Description
//
// The input path is resolved to an absolute, symlink-free form and looked
// up as a key. When there is no exact key, every key ending in the input's
// file name is a candidate, so settings follow a file that was moved. Among
// several candidates the most recently saved wins; entries without a
// timestamp rank last and remaining ties go to the smallest key.
//
// A missing or unreadable store is treated as empty. Entries that fail
// validation are skipped with a warning.
//
// # Inputs
//
//   - inputPath: Path of the input CSV file as given by the user.
//
// # Outputs
//
//   - classification.FieldClassification: The saved classification.
//   - Match: MatchNone when nothing was found.
//   - error: Only for path resolution failures.
func (s *Store) Load(inputPath string) (classification.FieldClassification, Match, error) {
	key, err := ResolvePath(inputPath)
	if err != nil {
		return classification.FieldClassification{}, MatchNone, err
	}

	all := s.readAll()

	if entry, ok := all[key]; ok {
		c, err := entry.classification()
		if err == nil {
			s.logger.Debug("settings: exact match", "key", key)
			return c, MatchExact, nil
		}
		s.logger.Warn("settings: ignoring invalid entry", "key", key, "error", err)
	}

	for _, rec := range candidates(all, key) {
		c, err := rec.Entry.classification()
		if err != nil {
			s.logger.Warn("settings: ignoring invalid entry", "key", rec.Path, "error", err)
			continue
		}
		s.logger.Debug("settings: file name match", "key", key, "matched", rec.Path)
		return c, MatchFileName, nil
	}

	return classification.FieldClassification{}, MatchNone, nil
}

// Save stores a classification for an input file.
//
// # Description
//
// Reads the whole document, upserts the entry under the resolved input
// path with a fresh saved_at stamp, and rewrites the file through a
// temporary file and rename.
func (s *Store) Save(inputPath string, c classification.FieldClassification) error {
	key, err := ResolvePath(inputPath)
	if err != nil {
		return err
	}

	all := s.readAll()
	all[key] = newEntry(c, s.now().UTC())

	if err := s.writeAll(all); err != nil {
		return fmt.Errorf("save settings for %s: %w", key, err)
	}
	s.logger.Debug("settings: saved", "key", key, "store", s.path)
	return nil
}

// Forget removes the exact entry for an input file.
//
// # Outputs
//
//   - bool: True if an entry was removed.
//   - error: Non-nil if the store could not be rewritten.
func (s *Store) Forget(inputPath string) (bool, error) {
	key, err := ResolvePath(inputPath)
	if err != nil {
		return false, err
	}

	all := s.readAll()
	if _, ok := all[key]; !ok {
		return false, nil
	}
	delete(all, key)

	if err := s.writeAll(all); err != nil {
		return false, fmt.Errorf("forget settings for %s: %w", key, err)
	}
	return true, nil
}

// Records returns every stored entry sorted by key.
func (s *Store) Records() []Record {
	all := s.readAll()
	out := make([]Record, 0, len(all))
	for k, e := range all {
		out = append(out, Record{Path: k, Entry: e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ResolvePath returns the absolute form of path with symlinks evaluated.
//
// When the file does not exist the cleaned absolute path is returned.
func ResolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// =============================================================================
// Internal
// =============================================================================

func newEntry(c classification.FieldClassification, savedAt time.Time) Entry {
	return Entry{
		AllFields:      c.Fields(),
		FieldsToWindow: nonNil(c.Windowed()),
		FieldsToDrop:   nonNil(c.Dropped()),
		SavedAt:        &savedAt,
	}
}

func (e Entry) classification() (classification.FieldClassification, error) {
	return classification.New(e.AllFields, e.FieldsToWindow, e.FieldsToDrop)
}

// candidates returns the records whose key ends in the file name of key,
// best first. A saved "mydata.csv" is a candidate for "data.csv".
func candidates(all map[string]Entry, key string) []Record {
	base := filepath.Base(key)
	var out []Record
	for k, e := range all {
		if k != key && strings.HasSuffix(k, base) {
			out = append(out, Record{Path: k, Entry: e})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Entry.SavedAt, out[j].Entry.SavedAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func (s *Store) readAll() map[string]Entry {
	all := make(map[string]Entry)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("settings: store unreadable, using empty cache", "path", s.path, "error", err)
		}
		return all
	}

	if err := json.Unmarshal(data, &all); err != nil {
		s.logger.Debug("settings: store corrupt, using empty cache", "path", s.path, "error", err)
		return make(map[string]Entry)
	}
	return all
}

func (s *Store) writeAll(all map[string]Entry) error {
	// encoding/json sorts map keys
	data, err := json.MarshalIndent(all, "", "    ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".fields_setting-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
