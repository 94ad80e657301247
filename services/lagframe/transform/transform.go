// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package transform builds the lag-expanded table from a classification.
package transform

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/csvlag/services/lagframe/classification"
	"github.com/AleutianAI/csvlag/services/lagframe/table"
)

var (
	// ErrInvalidLags is returned for a lag count below one.
	ErrInvalidLags = errors.New("lag count must be at least 1")

	// ErrFieldNotInTable is returned when a classified field has no
	// column in the source table.
	ErrFieldNotInTable = errors.New("classified field not in table")

	// ErrColumnCollision is returned when a generated column name is
	// already taken by another output column.
	ErrColumnCollision = errors.New("output column name collision")
)

// Stats summarizes one transform.
type Stats struct {
	Kept          int
	Windowed      int
	Dropped       int
	OutputColumns int
	Rows          int
}

// LagColumnName returns the output column name for lag i of field.
func LagColumnName(field string, lag int) string {
	return fmt.Sprintf("%s_T-%d", field, lag)
}

// Shift returns col moved down by lag rows. The first lag cells are null
// and the result has the same length as col.
func Shift(col []table.Cell, lag int) []table.Cell {
	out := make([]table.Cell, len(col))
	for r := lag; r < len(col); r++ {
		out[r] = col[r-lag]
	}
	return out
}

// Transform derives the output table.
//
// # Description
//
// Fields are visited in classification order. A kept field copies its
// source column. A dropped field emits nothing. A windowed field emits
// nLags columns named <field>_T-0 .. <field>_T-(nLags-1) in place, where
// lag i is the source column shifted down by i rows with null padding at
// the head. Every output column has the source row count. Values are
// never converted.
//
// # Inputs
//
//   - src: Source table. Not modified; kept columns share its cells.
//   - c: Confirmed classification. Every kept or windowed field must be a
//     column of src.
//   - nLags: Number of lag columns per windowed field. Must be >= 1.
//
// # Outputs
//
//   - *table.Table: The derived table.
//   - Stats: Field and column counts.
//   - error: ErrInvalidLags, ErrFieldNotInTable or ErrColumnCollision.
func Transform(src *table.Table, c classification.FieldClassification, nLags int) (*table.Table, Stats, error) {
	if nLags < 1 {
		return nil, Stats{}, fmt.Errorf("%w: got %d", ErrInvalidLags, nLags)
	}

	out := table.New(src.NumRows())
	stats := Stats{Rows: src.NumRows()}

	for _, field := range c.Fields() {
		state, err := c.State(field)
		if err != nil {
			return nil, Stats{}, err
		}
		if state == classification.StateDropped {
			stats.Dropped++
			continue
		}

		col, ok := src.Column(field)
		if !ok {
			return nil, Stats{}, fmt.Errorf("%w: %s field %q", ErrFieldNotInTable, state, field)
		}

		switch state {
		case classification.StateKept:
			if err := add(out, field, col); err != nil {
				return nil, Stats{}, err
			}
			stats.Kept++
		case classification.StateWindowed:
			for lag := 0; lag < nLags; lag++ {
				if err := add(out, LagColumnName(field, lag), Shift(col, lag)); err != nil {
					return nil, Stats{}, err
				}
			}
			stats.Windowed++
		}
	}

	stats.OutputColumns = out.NumColumns()
	return out, stats, nil
}

func add(out *table.Table, name string, cells []table.Cell) error {
	if err := out.AddColumn(name, cells); err != nil {
		if errors.Is(err, table.ErrDuplicateColumn) {
			return fmt.Errorf("%w: %q", ErrColumnCollision, name)
		}
		return err
	}
	return nil
}
