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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Table Tests
// =============================================================================

func TestTable_AddColumn(t *testing.T) {
	tbl := New(2)
	require.NoError(t, tbl.AddColumn("a", []Cell{Text("1"), Null}))

	err := tbl.AddColumn("a", []Cell{Text("1"), Text("2")})
	assert.ErrorIs(t, err, ErrDuplicateColumn)

	err = tbl.AddColumn("b", []Cell{Text("1")})
	assert.ErrorIs(t, err, ErrRowCount)

	assert.Equal(t, []string{"a"}, tbl.Header())
	col, ok := tbl.Column("a")
	require.True(t, ok)
	assert.Equal(t, []Cell{Text("1"), Null}, col)

	_, ok = tbl.Column("missing")
	assert.False(t, ok)
}

func TestTable_FromColumns(t *testing.T) {
	tbl, err := FromColumns([]string{"x", "y"}, [][]Cell{
		{Text("1"), Text("2")},
		{Text("a"), Null},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, 2, tbl.NumColumns())
	assert.Equal(t, []Cell{Text("2"), Null}, tbl.Row(1))

	_, err = FromColumns([]string{"x"}, nil)
	assert.Error(t, err)
}

func TestCell_String(t *testing.T) {
	assert.Equal(t, "v", Text("v").String())
	assert.Equal(t, "<null>", Null.String())
	assert.Equal(t, "", Text("").Value)
	assert.True(t, Text("").Valid)
}

// =============================================================================
// Read Tests
// =============================================================================

func TestRead_Basic(t *testing.T) {
	tbl, err := Read(strings.NewReader("id,value\n1,10\n2,\n3,30\n"), ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "value"}, tbl.Header())
	assert.Equal(t, 3, tbl.NumRows())

	col, _ := tbl.Column("value")
	assert.Equal(t, []Cell{Text("10"), Null, Text("30")}, col)
}

func TestRead_ValuesStayText(t *testing.T) {
	tbl, err := Read(strings.NewReader("n\n007\n1e3\n"), ReadOptions{})
	require.NoError(t, err)
	col, _ := tbl.Column("n")
	assert.Equal(t, "007", col[0].Value)
	assert.Equal(t, "1e3", col[1].Value)
}

func TestRead_HeaderOnly(t *testing.T) {
	tbl, err := Read(strings.NewReader("a,b\n"), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.NumRows())
	assert.Equal(t, []string{"a", "b"}, tbl.Header())
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader(""), ReadOptions{})
	assert.ErrorIs(t, err, ErrEmptyHeader)
}

func TestRead_DuplicateHeader(t *testing.T) {
	_, err := Read(strings.NewReader("a,a\n1,2\n"), ReadOptions{})
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestRead_RaggedRows(t *testing.T) {
	tbl, err := Read(strings.NewReader("a,b,c\n1\n"), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Cell{Text("1"), Null, Null}, tbl.Row(0))

	_, err = Read(strings.NewReader("a,b\n1,2,3\n"), ReadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestRead_LongRowLineCountsQuotedNewlines(t *testing.T) {
	// The first record spans lines 2-3, line 4 is blank.
	_, err := Read(strings.NewReader("a,b\n\"x\ny\",1\n\n3,4,5\n"), ReadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 5:")
}

func TestRead_StripsBOM(t *testing.T) {
	tbl, err := Read(strings.NewReader("\ufeffid,v\n1,2\n"), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "v"}, tbl.Header())
}

func TestRead_Latin1(t *testing.T) {
	// "café" in ISO-8859-1
	input := []byte{'n', 'a', 'm', 'e', '\n', 'c', 'a', 'f', 0xe9, '\n'}
	tbl, err := Read(bytes.NewReader(input), ReadOptions{Encoding: "latin1"})
	require.NoError(t, err)
	col, _ := tbl.Column("name")
	assert.Equal(t, "café", col[0].Value)
}

func TestRead_Windows1252(t *testing.T) {
	// 0x80 is the euro sign in windows-1252
	input := []byte{'p', '\n', 0x80, '5', '\n'}
	tbl, err := Read(bytes.NewReader(input), ReadOptions{Encoding: "windows-1252"})
	require.NoError(t, err)
	col, _ := tbl.Column("p")
	assert.Equal(t, "€5", col[0].Value)
}

func TestRead_UnsupportedEncoding(t *testing.T) {
	_, err := Read(strings.NewReader("a\n"), ReadOptions{Encoding: "ebcdic"})
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestSupportedEncoding(t *testing.T) {
	for _, name := range []string{"", "utf-8", "UTF8", "latin-1", "ISO-8859-1", "cp1252"} {
		assert.True(t, SupportedEncoding(name), name)
	}
	assert.False(t, SupportedEncoding("ebcdic"))
}

func TestRead_Delimiter(t *testing.T) {
	tbl, err := Read(strings.NewReader("a;b\n1;2\n"), ReadOptions{Comma: ';'})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Header())
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWrite_NullsAreEmpty(t *testing.T) {
	tbl, err := FromColumns([]string{"a", "b"}, [][]Cell{
		{Text("1"), Null},
		{Text("x,y"), Text("z")},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl))
	assert.Equal(t, "a,b\n1,\"x,y\"\n,z\n", buf.String())
}

func TestWriteFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	src := "id,value\n1,10\n2,\n"

	tbl, err := Read(strings.NewReader(src), ReadOptions{})
	require.NoError(t, err)
	require.NoError(t, WriteFile(path, tbl))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, src, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must be gone")

	again, err := ReadFile(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, tbl.Header(), again.Header())
	assert.Equal(t, tbl.NumRows(), again.NumRows())
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"), ReadOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
