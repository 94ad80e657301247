// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/csvlag/services/lagframe/classification"
)

func mustClassification(t *testing.T, fields, windowed, dropped []string) classification.FieldClassification {
	t.Helper()
	c, err := classification.New(fields, windowed, dropped)
	require.NoError(t, err)
	return c
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	path := filepath.Join(dir, "home", DefaultFileName)
	return NewStore(path, WithClock(clock.now)), dir
}

// =============================================================================
// Load / Save Tests
// =============================================================================

func TestStore_LoadMissingFileIsEmpty(t *testing.T) {
	store, dir := newTestStore(t)

	_, match, err := store.Load(filepath.Join(dir, "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, MatchNone, match)
}

func TestStore_LoadCorruptFileIsEmpty(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0750))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0600))

	_, match, err := store.Load(filepath.Join(dir, "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, MatchNone, match)

	// a save over a corrupt store replaces it
	c := mustClassification(t, []string{"a"}, nil, nil)
	require.NoError(t, store.Save(filepath.Join(dir, "data.csv"), c))
	_, match, err = store.Load(filepath.Join(dir, "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, MatchExact, match)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store, dir := newTestStore(t)
	input := filepath.Join(dir, "prices.csv")
	c := mustClassification(t, []string{"date", "close", "note"}, []string{"close"}, []string{"note"})

	require.NoError(t, store.Save(input, c))
	got, match, err := store.Load(input)
	require.NoError(t, err)
	assert.Equal(t, MatchExact, match)
	assert.True(t, got.Equal(c))

	// re-save unchanged and reload
	require.NoError(t, store.Save(input, got))
	again, _, err := store.Load(input)
	require.NoError(t, err)
	assert.True(t, again.Equal(c))
}

func TestStore_RelativePathResolvesToSameKey(t *testing.T) {
	store, dir := newTestStore(t)
	c := mustClassification(t, []string{"a", "b"}, []string{"b"}, nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.csv"), []byte("a,b\n"), 0600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(dir))

	require.NoError(t, store.Save("data.csv", c))
	got, match, err := store.Load(filepath.Join(dir, "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, MatchExact, match)
	assert.True(t, got.Equal(c))
}

func TestStore_FileNameFallback(t *testing.T) {
	store, _ := newTestStore(t)
	c := mustClassification(t, []string{"id", "value"}, []string{"value"}, nil)

	require.NoError(t, store.Save("/a/b/data.csv", c))

	got, match, err := store.Load("/x/y/data.csv")
	require.NoError(t, err)
	assert.Equal(t, MatchFileName, match)
	assert.True(t, got.Equal(c))
}

func TestStore_FileNameFallbackMatchesKeySuffix(t *testing.T) {
	store, _ := newTestStore(t)
	c := mustClassification(t, []string{"id"}, nil, nil)

	require.NoError(t, store.Save("/a/b/mydata.csv", c))

	got, match, err := store.Load("/x/y/data.csv")
	require.NoError(t, err)
	assert.Equal(t, MatchFileName, match)
	assert.True(t, got.Equal(c))

	_, match, err = store.Load("/x/y/other.csv")
	require.NoError(t, err)
	assert.Equal(t, MatchNone, match)
}

func TestStore_FileNameFallbackPrefersMostRecent(t *testing.T) {
	store, _ := newTestStore(t)
	older := mustClassification(t, []string{"a", "b"}, []string{"a"}, nil)
	newer := mustClassification(t, []string{"a", "b"}, nil, []string{"b"})

	require.NoError(t, store.Save("/z/data.csv", older))
	require.NoError(t, store.Save("/a/data.csv", newer))

	got, match, err := store.Load("/elsewhere/data.csv")
	require.NoError(t, err)
	assert.Equal(t, MatchFileName, match)
	assert.True(t, got.Equal(newer))
}

func TestCandidates_TieBreak(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	later := ts.Add(time.Hour)
	all := map[string]Entry{
		"/c/data.csv":  {AllFields: []string{"c"}},
		"/b/data.csv":  {AllFields: []string{"b"}, SavedAt: &ts},
		"/a/data.csv":  {AllFields: []string{"a"}, SavedAt: &ts},
		"/d/data.csv":  {AllFields: []string{"d"}, SavedAt: &later},
		"/e/other.csv": {AllFields: []string{"e"}, SavedAt: &later},
	}

	got := candidates(all, "/q/data.csv")
	paths := make([]string, len(got))
	for i, r := range got {
		paths[i] = r.Path
	}
	assert.Equal(t, []string{"/d/data.csv", "/a/data.csv", "/b/data.csv", "/c/data.csv"}, paths)
}

func TestStore_InvalidEntryIsSkipped(t *testing.T) {
	store, _ := newTestStore(t)
	good := mustClassification(t, []string{"a"}, []string{"a"}, nil)
	require.NoError(t, store.Save("/good/data.csv", good))

	// hand-edit a broken entry that would otherwise win on exact match
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	var all map[string]Entry
	require.NoError(t, json.Unmarshal(data, &all))
	all["/broken/data.csv"] = Entry{AllFields: []string{"a"}, FieldsToWindow: []string{"zzz"}}
	data, err = json.Marshal(all)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(), data, 0600))

	got, match, err := store.Load("/broken/data.csv")
	require.NoError(t, err)
	assert.Equal(t, MatchFileName, match)
	assert.True(t, got.Equal(good))
}

// =============================================================================
// File Format Tests
// =============================================================================

func TestStore_FileFormat(t *testing.T) {
	store, _ := newTestStore(t)
	c := mustClassification(t, []string{"date", "close", "note"}, []string{"close"}, nil)

	require.NoError(t, store.Save("/b/data.csv", c))
	require.NoError(t, store.Save("/a/data.csv", c))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, "{\n    \"/a/data.csv\""), "keys sorted and 4-space indent: %s", text)
	assert.Less(t, strings.Index(text, "/a/data.csv"), strings.Index(text, "/b/data.csv"))
	assert.Contains(t, text, `"fields_to_drop": []`)
	assert.Less(t, strings.Index(text, "all_fields"), strings.Index(text, "fields_to_drop"))
	assert.Less(t, strings.Index(text, "fields_to_drop"), strings.Index(text, "fields_to_window"))

	var all map[string]Entry
	require.NoError(t, json.Unmarshal(data, &all))
	require.Len(t, all, 2)
	assert.Equal(t, []string{"close"}, all["/a/data.csv"].FieldsToWindow)
	require.NotNil(t, all["/a/data.csv"].SavedAt)
}

func TestStore_ReadsEntriesWithoutTimestamp(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0750))
	legacy := `{
    "/old/data.csv": {
        "all_fields": ["a", "b"],
        "fields_to_drop": [],
        "fields_to_window": ["b"]
    }
}`
	require.NoError(t, os.WriteFile(store.Path(), []byte(legacy), 0600))

	got, match, err := store.Load("/old/data.csv")
	require.NoError(t, err)
	assert.Equal(t, MatchExact, match)
	assert.Equal(t, []string{"b"}, got.Windowed())
}

// =============================================================================
// Forget / Records Tests
// =============================================================================

func TestStore_ForgetAndRecords(t *testing.T) {
	store, _ := newTestStore(t)
	c := mustClassification(t, []string{"a"}, nil, nil)
	require.NoError(t, store.Save("/b/one.csv", c))
	require.NoError(t, store.Save("/a/two.csv", c))

	recs := store.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "/a/two.csv", recs[0].Path)
	assert.Equal(t, "/b/one.csv", recs[1].Path)

	removed, err := store.Forget("/a/two.csv")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Forget("/a/two.csv")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Len(t, store.Records(), 1)
}

func TestResolvePath_FollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.csv")
	require.NoError(t, os.WriteFile(target, []byte("a\n1\n"), 0600))
	link := filepath.Join(dir, "link.csv")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	got, err := ResolvePath(link)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMatch_String(t *testing.T) {
	assert.Equal(t, "exact", MatchExact.String())
	assert.Equal(t, "file_name", MatchFileName.String())
	assert.Equal(t, "none", MatchNone.String())
}
