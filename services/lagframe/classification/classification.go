// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classification holds the column classification model and the
// session state machine used to edit it.
//
// # Description
//
// Every column of a table is in exactly one of three states: windowed
// (expanded into lag columns), dropped (omitted) or kept (passed through).
// Only the windowed and dropped sets are stored; kept is always derived
// from the field list, so the partition cannot drift out of sync.
//
// # Thread Safety
//
// FieldClassification values are immutable once built and safe to share.
// Session is not safe for concurrent use.
package classification

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField is returned when a field is not part of the classification.
	ErrUnknownField = errors.New("field is not part of the classification")

	// ErrInvalidClassification is returned when the windowed and dropped
	// sets are not disjoint subsets of the field list.
	ErrInvalidClassification = errors.New("invalid classification")
)

// =============================================================================
// Field State
// =============================================================================

// FieldState is the classification of a single field.
type FieldState int

const (
	// StateKept passes the field through unchanged.
	StateKept FieldState = iota

	// StateWindowed expands the field into lag columns.
	StateWindowed

	// StateDropped omits the field from the output.
	StateDropped
)

// String returns the lower-case name of the state.
func (s FieldState) String() string {
	switch s {
	case StateKept:
		return "kept"
	case StateWindowed:
		return "windowed"
	case StateDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Flag returns the one-character marker drawn next to a field.
func (s FieldState) Flag() string {
	switch s {
	case StateWindowed:
		return "w"
	case StateDropped:
		return "d"
	default:
		return " "
	}
}

// =============================================================================
// FieldClassification
// =============================================================================

// FieldClassification partitions an ordered field list into windowed,
// dropped and kept fields.
//
// # Description
//
// The zero value is an empty classification. Use New or Default to build
// one; both validate the partition. Mutating methods return a copy.
type FieldClassification struct {
	fields   []string
	index    map[string]int
	windowed map[string]struct{}
	dropped  map[string]struct{}
}

// Default returns a classification where every field is kept.
//
// # Inputs
//
//   - fields: Column names in source order. Must be unique.
//
// # Outputs
//
//   - FieldClassification: All-kept classification.
//   - error: ErrInvalidClassification if a field name repeats.
func Default(fields []string) (FieldClassification, error) {
	return New(fields, nil, nil)
}

// New builds a classification and checks its invariants.
//
// # Description
//
// The windowed and dropped lists may be in any order and may repeat
// names; they are stored as sets. Every name must appear in fields and
// no name may be both windowed and dropped.
//
// # Inputs
//
//   - fields: Column names in source order. Must be unique.
//   - windowed: Names to expand into lag columns.
//   - dropped: Names to omit.
//
// # Outputs
//
//   - FieldClassification: Validated classification.
//   - error: Wraps ErrInvalidClassification describing the first violation.
func New(fields, windowed, dropped []string) (FieldClassification, error) {
	c := FieldClassification{
		fields:   make([]string, len(fields)),
		index:    make(map[string]int, len(fields)),
		windowed: make(map[string]struct{}, len(windowed)),
		dropped:  make(map[string]struct{}, len(dropped)),
	}
	copy(c.fields, fields)

	for i, f := range fields {
		if _, dup := c.index[f]; dup {
			return FieldClassification{}, fmt.Errorf("%w: duplicate field %q", ErrInvalidClassification, f)
		}
		c.index[f] = i
	}

	for _, f := range windowed {
		if _, ok := c.index[f]; !ok {
			return FieldClassification{}, fmt.Errorf("%w: windowed field %q not in field list", ErrInvalidClassification, f)
		}
		c.windowed[f] = struct{}{}
	}

	for _, f := range dropped {
		if _, ok := c.index[f]; !ok {
			return FieldClassification{}, fmt.Errorf("%w: dropped field %q not in field list", ErrInvalidClassification, f)
		}
		if _, both := c.windowed[f]; both {
			return FieldClassification{}, fmt.Errorf("%w: field %q is both windowed and dropped", ErrInvalidClassification, f)
		}
		c.dropped[f] = struct{}{}
	}

	return c, nil
}

// Len returns the number of fields.
func (c FieldClassification) Len() int {
	return len(c.fields)
}

// Fields returns a copy of the field list in source order.
func (c FieldClassification) Fields() []string {
	out := make([]string, len(c.fields))
	copy(out, c.fields)
	return out
}

// Field returns the field name at position i.
func (c FieldClassification) Field(i int) (string, bool) {
	if i < 0 || i >= len(c.fields) {
		return "", false
	}
	return c.fields[i], true
}

// State returns the state of a field.
//
// # Outputs
//
//   - FieldState: The field's state.
//   - error: ErrUnknownField if the field is not in the field list.
func (c FieldClassification) State(field string) (FieldState, error) {
	if _, ok := c.index[field]; !ok {
		return StateKept, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if _, ok := c.windowed[field]; ok {
		return StateWindowed, nil
	}
	if _, ok := c.dropped[field]; ok {
		return StateDropped, nil
	}
	return StateKept, nil
}

// Windowed returns the windowed fields in source order.
func (c FieldClassification) Windowed() []string {
	return c.filter(StateWindowed)
}

// Dropped returns the dropped fields in source order.
func (c FieldClassification) Dropped() []string {
	return c.filter(StateDropped)
}

// Kept returns the kept fields in source order.
//
// Kept is derived from the field list minus the windowed and dropped
// sets; it is never stored.
func (c FieldClassification) Kept() []string {
	return c.filter(StateKept)
}

// Count returns how many fields are in the given state.
func (c FieldClassification) Count(state FieldState) int {
	switch state {
	case StateWindowed:
		return len(c.windowed)
	case StateDropped:
		return len(c.dropped)
	case StateKept:
		return len(c.fields) - len(c.windowed) - len(c.dropped)
	default:
		return 0
	}
}

// With returns a copy of the classification with field moved to state.
//
// # Outputs
//
//   - FieldClassification: Updated copy. The receiver is not modified.
//   - error: ErrUnknownField if field is not in the field list.
func (c FieldClassification) With(field string, state FieldState) (FieldClassification, error) {
	if _, ok := c.index[field]; !ok {
		return c, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	next := c.clone()
	delete(next.windowed, field)
	delete(next.dropped, field)

	switch state {
	case StateWindowed:
		next.windowed[field] = struct{}{}
	case StateDropped:
		next.dropped[field] = struct{}{}
	}
	return next, nil
}

// Equal reports whether two classifications have the same fields in the
// same order and the same states.
func (c FieldClassification) Equal(other FieldClassification) bool {
	if len(c.fields) != len(other.fields) {
		return false
	}
	for i, f := range c.fields {
		if other.fields[i] != f {
			return false
		}
		a, _ := c.State(f)
		b, _ := other.State(f)
		if a != b {
			return false
		}
	}
	return true
}

// Reconcile rebuilds the classification on a new column list.
//
// # Description
//
// Used when a cached classification was saved for a file whose header
// has since changed. Columns present in both keep their state, new
// columns are kept, and columns that disappeared are forgotten. The
// order follows columns.
//
// # Outputs
//
//   - FieldClassification: Classification over columns.
//   - bool: True when the field list differed.
//   - error: ErrInvalidClassification if columns repeat a name.
func (c FieldClassification) Reconcile(columns []string) (FieldClassification, bool, error) {
	changed := len(columns) != len(c.fields)
	var windowed, dropped []string
	for i, col := range columns {
		if !changed && c.fields[i] != col {
			changed = true
		}
		switch state, err := c.State(col); {
		case err != nil:
			continue
		case state == StateWindowed:
			windowed = append(windowed, col)
		case state == StateDropped:
			dropped = append(dropped, col)
		}
	}
	next, err := New(columns, windowed, dropped)
	return next, changed, err
}

// String returns a compact description for logs.
func (c FieldClassification) String() string {
	return fmt.Sprintf("fields=%d windowed=%d dropped=%d kept=%d",
		c.Len(), c.Count(StateWindowed), c.Count(StateDropped), c.Count(StateKept))
}

func (c FieldClassification) filter(state FieldState) []string {
	var out []string
	for _, f := range c.fields {
		if s, _ := c.State(f); s == state {
			out = append(out, f)
		}
	}
	return out
}

func (c FieldClassification) clone() FieldClassification {
	next := FieldClassification{
		fields:   c.fields,
		index:    c.index,
		windowed: make(map[string]struct{}, len(c.windowed)+1),
		dropped:  make(map[string]struct{}, len(c.dropped)+1),
	}
	for f := range c.windowed {
		next.windowed[f] = struct{}{}
	}
	for f := range c.dropped {
		next.dropped[f] = struct{}{}
	}
	return next
}
