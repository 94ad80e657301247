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
	"errors"
	"fmt"
)

// Exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
)

// CommandError carries a failed command's exit code alongside the cause.
//
// # Description
//
// CommandError separates usage problems (bad arguments, invalid config)
// from failures while the command was doing its work. Both exit with
// ExitFailure; usage errors additionally point the user at --help.
//
// # Example
//
//	if err := validateArgs(a); err != nil {
//	    return NewUsageError("transform", err)
//	}
type CommandError struct {
	// Command that failed (e.g., "transform", "settings forget")
	Command string

	// ExitCode returned to the shell
	ExitCode int

	// Usage is true for argument and configuration errors
	Usage bool

	// Wrapped is the underlying error
	Wrapped error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Wrapped == nil {
		return fmt.Sprintf("%s failed (exit %d)", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Wrapped)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *CommandError) Unwrap() error {
	return e.Wrapped
}

// NewUsageError wraps an argument or configuration error.
func NewUsageError(cmd string, err error) *CommandError {
	return &CommandError{
		Command:  cmd,
		ExitCode: ExitFailure,
		Usage:    true,
		Wrapped:  err,
	}
}

// WrapCommandError wraps err as a CommandError if it isn't one already.
//
// # Outputs
//
//   - error: nil if err is nil, the existing CommandError, or a new one
func WrapCommandError(cmd string, exitCode int, err error) error {
	if err == nil {
		return nil
	}

	// Don't double-wrap
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return err
	}

	return &CommandError{Command: cmd, ExitCode: exitCode, Wrapped: err}
}

// ExitCodeOf maps an error returned by the command tree to a process exit
// code.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitOK
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode != 0 {
		return cmdErr.ExitCode
	}
	return ExitFailure
}

// IsUsageError reports whether err is, or wraps, a usage CommandError.
func IsUsageError(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr) && cmdErr.Usage
}
