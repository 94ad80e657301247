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

import "github.com/charmbracelet/lipgloss"

// Styles holds the classifier's line styles.
type Styles struct {
	// Header styles the legend line.
	Header lipgloss.Style

	// Current styles the line under the cursor.
	Current lipgloss.Style

	// Field styles every other field line.
	Field lipgloss.Style
}

// DefaultStyles returns the terminal styles: a black-on-white legend and a
// cyan cursor line.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("15")),
		Current: lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")).
			Bold(true),
		Field: lipgloss.NewStyle(),
	}
}

// PlainStyles returns styles that leave text unchanged.
func PlainStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Current: lipgloss.NewStyle(),
		Field:   lipgloss.NewStyle(),
	}
}
