// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/csvlag/services/lagframe/transform"
)

func TestRecorder_ObserveTransform(t *testing.T) {
	r := NewRecorder("run-1", time.Now())

	r.ObserveTransform(transform.Stats{Kept: 2, Windowed: 1, Dropped: 3, OutputColumns: 5, Rows: 100})

	assert.Equal(t, 100.0, testutil.ToFloat64(r.RowsTotal))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.OutputColumns))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Fields.WithLabelValues("kept")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Fields.WithLabelValues("windowed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.Fields.WithLabelValues("dropped")))
}

func TestRecorder_ObserveOutcome(t *testing.T) {
	r := NewRecorder("run-2", time.Now())

	r.ObserveOutcome("confirmed", "interactive")
	r.ObserveOutcome("confirmed", "interactive")
	r.ObserveOutcome("aborted", "interactive")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.SessionOutcomes.WithLabelValues("confirmed", "interactive")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SessionOutcomes.WithLabelValues("aborted", "interactive")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.SessionOutcomes.WithLabelValues("confirmed", "cached")))
}

func TestRecorder_Finish(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRecorder("run-3", start)

	r.Finish(start.Add(1500 * time.Millisecond))
	assert.InDelta(t, 1.5, testutil.ToFloat64(r.RunDurationSeconds), 1e-9)
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder("abc", time.Now())
	r.ObserveTransform(transform.Stats{Kept: 1, OutputColumns: 1, Rows: 3})

	path := filepath.Join(t.TempDir(), "csvlag.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `csvlag_rows_total{run_id="abc"} 3`)
	assert.Contains(t, text, `csvlag_fields{run_id="abc",state="kept"} 1`)
	assert.Contains(t, text, "# TYPE csvlag_output_columns gauge")
}

func TestRecorder_IsolatedRegistries(t *testing.T) {
	// two recorders must not collide on registration
	a := NewRecorder("a", time.Now())
	b := NewRecorder("b", time.Now())
	a.RowsTotal.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.RowsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RowsTotal))

	n, err := testutil.GatherAndCount(a.Registry(), "csvlag_rows_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
