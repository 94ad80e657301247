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

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AleutianAI/csvlag/services/lagframe/classification"
)

// legendTitle prefixes the key legend on the header line.
const legendTitle = "Configure fields settings: "

// KeyMap binds keys to session events.
type KeyMap struct {
	Down    key.Binding
	Up      key.Binding
	Window  key.Binding
	Drop    key.Binding
	Keep    key.Binding
	Confirm key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the classifier key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "Down"),
		),
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "Up"),
		),
		Window: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "Window"),
		),
		Drop: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Drop"),
		),
		Keep: key.NewBinding(
			key.WithKeys("k", " "),
			key.WithHelp("k", "Keep"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("ENTER", "Proceed"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "Quit"),
		),
	}
}

// Event translates a key press into a session event. Unbound keys map to
// EventNone.
func (k KeyMap) Event(msg tea.KeyMsg) classification.Event {
	switch {
	case key.Matches(msg, k.Down):
		return classification.EventMoveDown
	case key.Matches(msg, k.Up):
		return classification.EventMoveUp
	case key.Matches(msg, k.Window):
		return classification.EventMarkWindow
	case key.Matches(msg, k.Drop):
		return classification.EventMarkDrop
	case key.Matches(msg, k.Keep):
		return classification.EventMarkKeep
	case key.Matches(msg, k.Confirm):
		return classification.EventConfirm
	case key.Matches(msg, k.Quit):
		return classification.EventQuit
	default:
		return classification.EventNone
	}
}

// LegendBindings returns the bindings listed on the header line, in order.
func (k KeyMap) LegendBindings() []key.Binding {
	return []key.Binding{k.Window, k.Drop, k.Keep, k.Confirm, k.Quit}
}

// Legend renders the header line text from the legend bindings.
func (k KeyMap) Legend() string {
	parts := make([]string, 0, 5)
	for _, b := range k.LegendBindings() {
		h := b.Help()
		parts = append(parts, fmt.Sprintf("[%s] %s", h.Key, h.Desc))
	}
	return legendTitle + strings.Join(parts, "  ")
}
