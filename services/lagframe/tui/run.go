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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AleutianAI/csvlag/services/lagframe/classification"
)

// RunOptions configures Run.
type RunOptions struct {
	// AltScreen draws on the alternate screen buffer.
	AltScreen bool

	// Input overrides stdin. Nil uses the terminal.
	Input io.Reader

	// Output overrides stdout. Nil uses the terminal.
	Output io.Writer

	// Logger receives session events. Nil uses slog.Default().
	Logger *slog.Logger
}

// Run shows the classifier and blocks until the user confirms or quits.
//
// # Description
//
// The program owns the terminal for the duration of the session and
// restores it before Run returns on every path, including a panic inside
// the event loop and cancellation of ctx.
//
// # Inputs
//
//   - ctx: Cancelling it ends the session as Aborted.
//   - c: Initial classification.
//   - opts: Terminal options.
//
// # Outputs
//
//   - classification.Result: Confirmed with the final classification, or
//     Aborted.
//   - error: Non-nil if the terminal could not be driven or ctx was
//     cancelled. The result is Aborted in that case.
func Run(ctx context.Context, c classification.FieldClassification, opts RunOptions) (classification.Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}

	logger.Debug("classifier: starting", "fields", c.Len(), "alt_screen", opts.AltScreen)

	p := tea.NewProgram(NewModel(c), progOpts...)
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			logger.Debug("classifier: cancelled", "error", ctx.Err())
			return classification.Aborted(), fmt.Errorf("classifier cancelled: %w", ctx.Err())
		}
		return classification.Aborted(), fmt.Errorf("run classifier: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return classification.Aborted(), fmt.Errorf("run classifier: unexpected model %T", final)
	}

	res := m.Result()
	logger.Debug("classifier: finished", "outcome", res.Outcome.String())
	return res, nil
}
