// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metrics records Prometheus metrics for a single csvlag run.
//
// # Description
//
// A run is a batch job, so metrics live in a private registry and are
// written once at the end in the text exposition format, ready for the
// node_exporter textfile collector. Metrics include:
//   - Source rows and output columns
//   - Field counts by state (kept, windowed, dropped)
//   - Classification session outcome
//   - Run duration
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/csvlag/services/lagframe/transform"
)

// Namespace for all metrics
const metricsNamespace = "csvlag"

// Recorder holds the metrics of one run.
//
// # Fields
//
//   - RowsTotal: Rows read from the input
//   - OutputColumns: Columns in the derived table
//   - Fields: Field count by state
//   - SessionOutcomes: Classification results by outcome
//   - RunDurationSeconds: Wall time of the run
type Recorder struct {
	registry *prometheus.Registry
	start    time.Time

	// RowsTotal counts input rows.
	RowsTotal prometheus.Counter

	// OutputColumns is the derived table width.
	OutputColumns prometheus.Gauge

	// Fields counts fields by classification state.
	// Labels: state (kept, windowed, dropped)
	Fields *prometheus.GaugeVec

	// SessionOutcomes counts classification results.
	// Labels: outcome (confirmed, aborted), source (interactive, cached)
	SessionOutcomes *prometheus.CounterVec

	// RunDurationSeconds is set when the run finishes.
	RunDurationSeconds prometheus.Gauge
}

// NewRecorder creates a recorder on a fresh registry.
//
// # Inputs
//
//   - runID: Attached to every metric as a constant label.
//   - now: Start time of the run.
func NewRecorder(runID string, now time.Time) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"run_id": runID}

	return &Recorder{
		registry: reg,
		start:    now,
		RowsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "rows_total",
			Help:        "Rows read from the input file",
			ConstLabels: labels,
		}),
		OutputColumns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "output_columns",
			Help:        "Columns in the derived table",
			ConstLabels: labels,
		}),
		Fields: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "fields",
			Help:        "Input fields by classification state",
			ConstLabels: labels,
		}, []string{"state"}),
		SessionOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "session_outcome_total",
			Help:        "Classification results by outcome and source",
			ConstLabels: labels,
		}, []string{"outcome", "source"}),
		RunDurationSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "run_duration_seconds",
			Help:        "Wall time of the run in seconds",
			ConstLabels: labels,
		}),
	}
}

// ObserveOutcome records how the classification ended.
func (r *Recorder) ObserveOutcome(outcome, source string) {
	r.SessionOutcomes.WithLabelValues(outcome, source).Inc()
}

// ObserveTransform records the transform summary.
func (r *Recorder) ObserveTransform(s transform.Stats) {
	r.RowsTotal.Add(float64(s.Rows))
	r.OutputColumns.Set(float64(s.OutputColumns))
	r.Fields.WithLabelValues("kept").Set(float64(s.Kept))
	r.Fields.WithLabelValues("windowed").Set(float64(s.Windowed))
	r.Fields.WithLabelValues("dropped").Set(float64(s.Dropped))
}

// Finish sets the run duration.
func (r *Recorder) Finish(now time.Time) {
	r.RunDurationSeconds.Set(now.Sub(r.start).Seconds())
}

// Registry returns the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is written atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
