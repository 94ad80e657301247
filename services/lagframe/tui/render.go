// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/AleutianAI/csvlag/services/lagframe/classification"
)

// =============================================================================
// Geometry
// =============================================================================

// Size is a width and height in terminal cells.
type Size struct {
	Width  int
	Height int
}

// Viewport is the visible window into the virtual buffer.
type Viewport struct {
	// Offset is the first buffer row shown.
	Offset int

	// Rows is the number of buffer rows shown.
	Rows int

	// Cols is the number of columns shown before clipping.
	Cols int
}

// BufferSize returns the size of the virtual buffer holding the legend,
// one row per field and a trailing blank row.
//
// The width is the larger of the legend width and the longest field name
// plus its four-cell "[x] " prefix.
func BufferSize(legend string, c classification.FieldClassification) Size {
	longest := 0
	for _, f := range c.Fields() {
		if w := runewidth.StringWidth(f); w > longest {
			longest = w
		}
	}
	width := runewidth.StringWidth(legend)
	if longest+4 > width {
		width = longest + 4
	}
	return Size{Width: width, Height: c.Len() + 2}
}

// ComputeViewport places the terminal window over the buffer so the cursor
// row is always visible.
//
// # Description
//
// The offset is max(0, cursor - term.Height + 2). The visible area is the
// smaller of the terminal and the buffer in each dimension.
func ComputeViewport(buffer Size, term Size, cursor int) Viewport {
	offset := cursor - term.Height + 2
	if offset < 0 {
		offset = 0
	}
	return Viewport{
		Offset: offset,
		Rows:   max(0, min(term.Height, buffer.Height)),
		Cols:   max(0, min(term.Width, buffer.Width)),
	}
}

// =============================================================================
// Lines
// =============================================================================

// LineKind selects the style of a buffer line.
type LineKind int

const (
	// LineBlank is padding below the last field.
	LineBlank LineKind = iota

	// LineHeader is the legend.
	LineHeader

	// LineField is a field that is not under the cursor.
	LineField

	// LineCurrent is the field under the cursor.
	LineCurrent
)

// Line is one unstyled buffer row.
type Line struct {
	Kind LineKind
	Text string
}

// FieldLine formats a field row as "[<flag>] <name>".
func FieldLine(state classification.FieldState, name string) string {
	return fmt.Sprintf("[%s] %s", state.Flag(), name)
}

// Lines returns the visible rows of the buffer, clipped to the viewport.
func Lines(legend string, st classification.State, term Size) []Line {
	buffer := BufferSize(legend, st.Classification)
	vp := ComputeViewport(buffer, term, st.Cursor)

	out := make([]Line, 0, vp.Rows)
	for row := vp.Offset; row < vp.Offset+vp.Rows && row < buffer.Height; row++ {
		line := bufferLine(legend, st, row)
		line.Text = clip(line.Text, vp.Cols)
		out = append(out, line)
	}
	return out
}

func bufferLine(legend string, st classification.State, row int) Line {
	if row == 0 {
		return Line{Kind: LineHeader, Text: legend}
	}
	idx := row - 1
	name, ok := st.Classification.Field(idx)
	if !ok {
		return Line{Kind: LineBlank}
	}
	state, err := st.Classification.State(name)
	if err != nil {
		return Line{Kind: LineField, Text: name}
	}
	kind := LineField
	if idx == st.Cursor {
		kind = LineCurrent
	}
	return Line{Kind: kind, Text: FieldLine(state, name)}
}

func clip(s string, cols int) string {
	if runewidth.StringWidth(s) <= cols {
		return s
	}
	return runewidth.Truncate(s, cols, "")
}

// =============================================================================
// Renderer
// =============================================================================

// Renderer draws a session state for a terminal size.
type Renderer interface {
	Render(st classification.State, term Size) string
}

// StyledRenderer renders buffer lines with lipgloss styles.
type StyledRenderer struct {
	Legend string
	Styles Styles
}

// NewRenderer returns a renderer using the default legend and styles.
func NewRenderer() StyledRenderer {
	return StyledRenderer{Legend: DefaultKeyMap().Legend(), Styles: DefaultStyles()}
}

// Render implements Renderer. It has no side effects.
func (r StyledRenderer) Render(st classification.State, term Size) string {
	lines := Lines(r.Legend, st, term)
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch l.Kind {
		case LineHeader:
			b.WriteString(r.Styles.Header.Render(l.Text))
		case LineCurrent:
			b.WriteString(r.Styles.Current.Render(l.Text))
		case LineField:
			b.WriteString(r.Styles.Field.Render(l.Text))
		}
	}
	return b.String()
}
