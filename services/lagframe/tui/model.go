// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tui provides the interactive field classifier.
//
// # Description
//
// The classifier shows the legend and one line per field, moves a cursor
// with the arrow keys and marks fields windowed, dropped or kept. It ends
// with a classification.Result: Confirmed on enter, Aborted on quit.
//
// State changes go through classification.Reduce and drawing goes through
// a Renderer, so both can be tested without a terminal.
//
// # Thread Safety
//
// The model is used by a single bubbletea event loop. Do not share it
// across goroutines.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AleutianAI/csvlag/services/lagframe/classification"
)

// Default terminal size until the first tea.WindowSizeMsg arrives.
const (
	DefaultWidth  = 80
	DefaultHeight = 24
)

// =============================================================================
// Model
// =============================================================================

// Model is the bubbletea model for field classification.
type Model struct {
	state    classification.State
	keys     KeyMap
	renderer Renderer
	size     Size
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithKeyMap replaces the default key bindings.
func WithKeyMap(k KeyMap) ModelOption {
	return func(m *Model) { m.keys = k }
}

// WithRenderer replaces the default renderer.
func WithRenderer(r Renderer) ModelOption {
	return func(m *Model) {
		if r != nil {
			m.renderer = r
		}
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) ModelOption {
	return func(m *Model) { m.size = Size{Width: width, Height: height} }
}

// NewModel creates a classifier starting from c with the cursor on the
// first field.
//
// # Inputs
//
//   - c: Initial classification, usually loaded from the settings store.
//   - opts: Optional key map, renderer and size.
//
// # Outputs
//
//   - Model: Ready-to-use model for tea.NewProgram.
func NewModel(c classification.FieldClassification, opts ...ModelOption) Model {
	m := Model{
		state:    classification.NewState(c),
		keys:     DefaultKeyMap(),
		renderer: NewRenderer(),
		size:     Size{Width: DefaultWidth, Height: DefaultHeight},
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.size = Size{Width: msg.Width, Height: msg.Height}

	case tea.KeyMsg:
		m.state = classification.Reduce(m.state, m.keys.Event(msg))
		if m.state.Done() {
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model. A finished session draws nothing so the
// terminal is left clean.
func (m Model) View() string {
	if m.state.Done() {
		return ""
	}
	return m.renderer.Render(m.state, m.size)
}

// State returns the current session state.
func (m Model) State() classification.State {
	return m.state
}

// Size returns the last known terminal size.
func (m Model) Size() Size {
	return m.size
}

// Result returns the session result. A session that has not ended is
// reported as Aborted.
func (m Model) Result() classification.Result {
	return m.state.Result()
}
