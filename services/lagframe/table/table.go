// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package table is an in-memory, column-oriented text table with CSV
// reading and writing.
//
// All values are text. A cell is either a value or null; empty CSV fields
// read as null and nulls write as empty fields.
package table

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateColumn is returned when a column name is used twice.
	ErrDuplicateColumn = errors.New("duplicate column")

	// ErrRowCount is returned when a column length differs from the table.
	ErrRowCount = errors.New("column length does not match row count")
)

// Cell is a text value or null.
type Cell struct {
	Value string
	Valid bool
}

// Null is the missing-value cell.
var Null = Cell{}

// Text returns a non-null cell.
func Text(v string) Cell {
	return Cell{Value: v, Valid: true}
}

// String returns the value, or "<null>" for null cells.
func (c Cell) String() string {
	if !c.Valid {
		return "<null>"
	}
	return c.Value
}

// Table holds named columns of equal length.
type Table struct {
	header  []string
	index   map[string]int
	columns [][]Cell
	rows    int
}

// New creates an empty table with a fixed row count.
func New(rows int) *Table {
	return &Table{index: make(map[string]int), rows: rows}
}

// FromColumns builds a table from a header and matching columns.
func FromColumns(header []string, columns [][]Cell) (*Table, error) {
	if len(header) != len(columns) {
		return nil, fmt.Errorf("header has %d names, got %d columns", len(header), len(columns))
	}
	rows := 0
	if len(columns) > 0 {
		rows = len(columns[0])
	}
	t := New(rows)
	for i, name := range header {
		if err := t.AddColumn(name, columns[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AddColumn appends a column at the right edge.
func (t *Table) AddColumn(name string, cells []Cell) error {
	if _, dup := t.index[name]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	if len(cells) != t.rows {
		return fmt.Errorf("%w: column %q has %d rows, table has %d", ErrRowCount, name, len(cells), t.rows)
	}
	t.index[name] = len(t.header)
	t.header = append(t.header, name)
	t.columns = append(t.columns, cells)
	return nil
}

// Header returns a copy of the column names in order.
func (t *Table) Header() []string {
	out := make([]string, len(t.header))
	copy(out, t.header)
	return out
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return t.rows
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.header)
}

// Column returns the cells of a named column. The slice is shared with
// the table and must not be modified.
func (t *Table) Column(name string) ([]Cell, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Row returns row r across all columns.
func (t *Table) Row(r int) []Cell {
	out := make([]Cell, len(t.columns))
	for i, col := range t.columns {
		out[i] = col[r]
	}
	return out
}
