// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnsupportedEncoding is returned for an unknown encoding name.
var ErrUnsupportedEncoding = errors.New("unsupported encoding")

// ErrEmptyHeader is returned when the input has no header row.
var ErrEmptyHeader = errors.New("csv has no header row")

// ReadOptions controls CSV parsing.
type ReadOptions struct {
	// Encoding of the input: "utf-8" (default), "latin1" or "windows-1252".
	Encoding string

	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// Encodings lists the accepted encoding names.
func Encodings() []string {
	return []string{"utf-8", "latin1", "windows-1252"}
}

func decoder(name string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return encoding.Nop.NewDecoder(), nil
	case "latin1", "latin-1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, name)
	}
}

// SupportedEncoding reports whether name is an encoding Read accepts.
// Names are case-insensitive and include the common aliases.
func SupportedEncoding(name string) bool {
	_, err := decoder(name)
	return err == nil
}

// Read parses a CSV stream with a header row into a Table.
//
// # Description
//
// Every value is read as text. Empty fields become null. A UTF-8 byte
// order mark is removed. Rows shorter than the header are padded with
// nulls; longer rows are an error. Header names must be unique.
func Read(r io.Reader, opts ReadOptions) (*Table, error) {
	dec, err := decoder(opts.Encoding)
	if err != nil {
		return nil, err
	}
	src := transform.NewReader(r, transform.Chain(dec, unicode.BOMOverride(transform.Nop)))

	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)

	seen := make(map[string]struct{}, len(header))
	for _, h := range header {
		if _, dup := seen[h]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, h)
		}
		seen[h] = struct{}{}
	}

	columns := make([][]Cell, len(header))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}
		if len(rec) > len(header) {
			// the line the record starts on, past quoted newlines and blank lines
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(rec), len(header))
		}
		for i := range header {
			cell := Null
			if i < len(rec) && rec[i] != "" {
				cell = Text(rec[i])
			}
			columns[i] = append(columns[i], cell)
		}
	}

	rows := 0
	if len(columns) > 0 {
		rows = len(columns[0])
	}
	t := New(rows)
	for i, name := range header {
		if columns[i] == nil {
			columns[i] = []Cell{}
		}
		if err := t.AddColumn(name, columns[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ReadFile opens and parses a CSV file.
func ReadFile(path string, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	t, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Write encodes a table as CSV with a header row and no index column.
func Write(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rec := make([]string, len(t.columns))
	for r := 0; r < t.rows; r++ {
		for i, col := range t.columns {
			rec[i] = col[r].Value
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes a table to path through a temporary file in the same
// directory, so a failed run never leaves a half-written output.
func WriteFile(path string, t *Table) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Write(tmp, t); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace output: %w", err)
	}
	return nil
}
