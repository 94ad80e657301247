// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides styled terminal output for the csvlag CLI.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Palette, shared with the classifier's legend and cursor colors
var (
	ColorPrimary = lipgloss.Color("#20B9B4")
	ColorBright  = lipgloss.Color("#2CD7C7")
	ColorDeep    = lipgloss.Color("#16858E")
	ColorSlate   = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorBright),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDeep).
		Padding(0, 1),
}

// Icon provides status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

var (
	outMu  sync.Mutex
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects normal and error output. Nil leaves a stream as is.
// It returns a function restoring the previous writers.
func SetOutput(out, errOut io.Writer) func() {
	outMu.Lock()
	defer outMu.Unlock()
	prevOut, prevErr := stdout, stderr
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
	return func() {
		outMu.Lock()
		defer outMu.Unlock()
		stdout, stderr = prevOut, prevErr
	}
}

func printOut(format string, args ...any) {
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintf(stdout, format, args...)
}

func printErr(format string, args ...any) {
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintf(stderr, format, args...)
}

// Print helpers that respect personality level

// Title prints a styled title
func Title(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	printOut("%s\n", Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func Success(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		printOut("OK: %s\n", text)
	case PersonalityMinimal:
		printOut("%s %s\n", IconSuccess.Render(), text)
	default:
		printOut("%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning message
func Warning(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		printErr("WARN: %s\n", text)
	case PersonalityMinimal:
		printErr("%s %s\n", IconWarning.Render(), text)
	default:
		printErr("%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error message
func Error(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		printErr("ERROR: %s\n", text)
	case PersonalityMinimal:
		printErr("%s %s\n", IconError.Render(), text)
	default:
		printErr("%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Info prints an informational message
func Info(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		printOut("%s\n", text)
	default:
		printOut("%s %s\n", Styles.Muted.Render("│"), text)
	}
}

// Muted prints muted/secondary text
func Muted(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	printOut("%s\n", Styles.Muted.Render(text))
}

// Box prints a titled block. Full personality draws a rounded border;
// other levels print the lines plainly.
func Box(title string, lines []string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		printOut("%s\n", title)
		for _, l := range lines {
			printOut("\t%s\n", l)
		}
	case PersonalityFull:
		body := Styles.Title.Render(title) + "\n" + strings.Join(lines, "\n")
		printOut("%s\n", Styles.Box.Render(body))
	default:
		printOut("%s\n", Styles.Title.Render(title))
		for _, l := range lines {
			printOut("  %s %s\n", IconBullet, l)
		}
	}
}

// KeyValue prints one labelled value, tab separated in machine mode.
func KeyValue(key, value string) {
	if GetPersonality().Level == PersonalityMachine {
		printOut("%s\t%s\n", key, value)
		return
	}
	printOut("%s %s\n", Styles.Muted.Render(key+":"), value)
}

// FieldSummary prints field counts after a transform.
func FieldSummary(kept, windowed, dropped, columns int) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		printOut("SUMMARY: kept=%d windowed=%d dropped=%d columns=%d\n", kept, windowed, dropped, columns)
	default:
		printOut("%s %s  %s %s  %s %s  %s %s\n",
			Styles.Bold.Render(fmt.Sprintf("%d", kept)), Styles.Muted.Render("kept"),
			Styles.Success.Render(fmt.Sprintf("%d", windowed)), Styles.Muted.Render("windowed"),
			Styles.Warning.Render(fmt.Sprintf("%d", dropped)), Styles.Muted.Render("dropped"),
			Styles.Bold.Render(fmt.Sprintf("%d", columns)), Styles.Muted.Render("output columns"),
		)
	}
}
