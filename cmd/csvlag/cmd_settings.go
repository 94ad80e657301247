// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/csvlag/pkg/ux"
	"github.com/AleutianAI/csvlag/services/lagframe/settings"
	"github.com/AleutianAI/csvlag/services/lagframe/tui"
)

func (a *app) store() *settings.Store {
	return settings.NewStore(a.cfg.SettingsPath, settings.WithLogger(a.logger.Slog()))
}

// checkInputArg is the Args validator for the settings subcommands that
// take one input file.
func checkInputArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return NewUsageError("settings "+cmd.Name(), err)
	}
	if !hasCSVExtension(args[0]) {
		return NewUsageError("settings "+cmd.Name(), fmt.Errorf("input file %q must have a .csv extension", args[0]))
	}
	return nil
}

// runSettingsList prints every saved classification.
func (a *app) runSettingsList(cmd *cobra.Command, args []string) error {
	records := a.store().Records()
	if len(records) == 0 {
		ux.Info(fmt.Sprintf("no saved settings in %s", a.cfg.SettingsPath))
		return nil
	}

	ux.Title(fmt.Sprintf("Saved settings (%d)", len(records)))
	for _, rec := range records {
		ux.Box(rec.Path, describeEntry(rec.Entry))
	}
	return nil
}

func describeEntry(e settings.Entry) []string {
	lines := []string{
		fmt.Sprintf("fields: %d", len(e.AllFields)),
		fmt.Sprintf("windowed: %s", joinOrNone(e.FieldsToWindow)),
		fmt.Sprintf("dropped: %s", joinOrNone(e.FieldsToDrop)),
	}
	if e.SavedAt != nil {
		lines = append(lines, fmt.Sprintf("saved: %s", e.SavedAt.Format(time.RFC3339)))
	}
	return lines
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

// runSettingsShow prints the classification a transform of the file would
// start from, including a match by file name.
func (a *app) runSettingsShow(cmd *cobra.Command, args []string) error {
	c, match, err := a.store().Load(args[0])
	if err != nil {
		return WrapCommandError("settings show", ExitFailure, err)
	}
	if match == settings.MatchNone {
		ux.Info(fmt.Sprintf("no saved settings for %s", args[0]))
		return nil
	}

	lines := make([]string, 0, c.Len())
	for _, name := range c.Fields() {
		state, err := c.State(name)
		if err != nil {
			return WrapCommandError("settings show", ExitFailure, err)
		}
		lines = append(lines, tui.FieldLine(state, name))
	}
	ux.KeyValue("match", match.String())
	ux.Box(args[0], lines)
	return nil
}

// runSettingsForget removes the exact entry for a file. Entries matched
// only by file name are left alone.
func (a *app) runSettingsForget(cmd *cobra.Command, args []string) error {
	removed, err := a.store().Forget(args[0])
	if err != nil {
		return WrapCommandError("settings forget", ExitFailure, err)
	}
	if !removed {
		ux.Info(fmt.Sprintf("no saved settings for %s", args[0]))
		return nil
	}
	a.logger.Info("settings forgotten", "input", args[0])
	ux.Success(fmt.Sprintf("forgot settings for %s", args[0]))
	return nil
}
