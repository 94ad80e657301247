// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// PersonalityEnv names the environment variable that sets the level.
const PersonalityEnv = "CSVLAG_PERSONALITY"

// PersonalityLevel defines the verbosity and richness of CLI output
type PersonalityLevel string

const (
	// PersonalityFull enables colors, icons and boxes
	PersonalityFull PersonalityLevel = "full"

	// PersonalityStandard enables colors and icons without boxes
	PersonalityStandard PersonalityLevel = "standard"

	// PersonalityMinimal uses icons and basic formatting only
	PersonalityMinimal PersonalityLevel = "minimal"

	// PersonalityMachine outputs plain text suitable for scripting and parsing
	PersonalityMachine PersonalityLevel = "machine"
)

// Personality holds the current UX personality configuration
type Personality struct {
	// Level controls overall verbosity (full, standard, minimal, machine)
	Level PersonalityLevel
}

var (
	currentPersonality = DefaultPersonality()
	personalityMu      sync.RWMutex
)

// GetPersonality returns the current personality settings
func GetPersonality() Personality {
	personalityMu.RLock()
	defer personalityMu.RUnlock()
	return currentPersonality
}

// SetPersonalityLevel updates the personality level
func SetPersonalityLevel(level PersonalityLevel) {
	personalityMu.Lock()
	defer personalityMu.Unlock()
	currentPersonality.Level = level
}

// ParsePersonalityLevel converts a string to PersonalityLevel
func ParsePersonalityLevel(s string) PersonalityLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "f":
		return PersonalityFull
	case "standard", "std", "s":
		return PersonalityStandard
	case "minimal", "min", "m":
		return PersonalityMinimal
	case "machine", "quiet", "q":
		return PersonalityMachine
	default:
		return PersonalityStandard
	}
}

// InitPersonality picks the level from, in order: an explicit value (flag
// or config), CSVLAG_PERSONALITY, and finally machine output when stdout is
// not a terminal.
func InitPersonality(explicit string) {
	if explicit != "" {
		SetPersonalityLevel(ParsePersonalityLevel(explicit))
		return
	}
	if envLevel := os.Getenv(PersonalityEnv); envLevel != "" {
		SetPersonalityLevel(ParsePersonalityLevel(envLevel))
		return
	}
	if !IsTerminal(os.Stdout) {
		SetPersonalityLevel(PersonalityMachine)
		return
	}
	SetPersonalityLevel(PersonalityFull)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// IsInteractive returns true if prompts and the classifier may be shown:
// both stdin and stdout are terminals and the level is not machine.
func IsInteractive() bool {
	return GetPersonality().Level != PersonalityMachine &&
		IsTerminal(os.Stdin) && IsTerminal(os.Stdout)
}

// DefaultPersonality returns the default personality settings
func DefaultPersonality() Personality {
	return Personality{Level: PersonalityFull}
}
