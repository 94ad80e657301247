// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classification

// =============================================================================
// Events
// =============================================================================

// Event is a user intent applied to a session.
type Event int

const (
	// EventNone is produced for unrecognized input and changes nothing.
	EventNone Event = iota

	// EventMoveUp moves the cursor one field up.
	EventMoveUp

	// EventMoveDown moves the cursor one field down.
	EventMoveDown

	// EventMarkWindow marks the current field windowed and advances.
	EventMarkWindow

	// EventMarkDrop marks the current field dropped and advances.
	EventMarkDrop

	// EventMarkKeep marks the current field kept and advances.
	EventMarkKeep

	// EventConfirm ends the session with the current classification.
	EventConfirm

	// EventQuit ends the session without a classification.
	EventQuit
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventMoveUp:
		return "move-up"
	case EventMoveDown:
		return "move-down"
	case EventMarkWindow:
		return "mark-window"
	case EventMarkDrop:
		return "mark-drop"
	case EventMarkKeep:
		return "mark-keep"
	case EventConfirm:
		return "confirm"
	case EventQuit:
		return "quit"
	default:
		return "none"
	}
}

// =============================================================================
// Outcome and Result
// =============================================================================

// Outcome tells whether a session is still editing or how it ended.
type Outcome int

const (
	// OutcomePending means the session is still accepting events.
	OutcomePending Outcome = iota

	// OutcomeConfirmed means the user accepted the classification.
	OutcomeConfirmed

	// OutcomeAborted means the user quit; nothing may be persisted.
	OutcomeAborted
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeAborted:
		return "aborted"
	default:
		return "pending"
	}
}

// Result is the finalized output of a session.
//
// # Description
//
// A Confirmed result carries the classification to persist and apply.
// An Aborted result carries nothing; callers restore the terminal and
// exit without writing anything.
type Result struct {
	Outcome        Outcome
	Classification FieldClassification
}

// Confirmed builds a confirmed result.
func Confirmed(c FieldClassification) Result {
	return Result{Outcome: OutcomeConfirmed, Classification: c}
}

// Aborted builds an aborted result.
func Aborted() Result {
	return Result{Outcome: OutcomeAborted}
}

// IsConfirmed reports whether the result holds a classification.
func (r Result) IsConfirmed() bool {
	return r.Outcome == OutcomeConfirmed
}

// =============================================================================
// Reducer
// =============================================================================

// State is the full render state of a session: the classification being
// edited, the cursor position and whether the session has ended.
type State struct {
	Classification FieldClassification
	Cursor         int
	Outcome        Outcome
}

// NewState starts an editing state with the cursor on the first field.
func NewState(c FieldClassification) State {
	return State{Classification: c}
}

// Done reports whether the session has ended.
func (s State) Done() bool {
	return s.Outcome != OutcomePending
}

// Current returns the field under the cursor.
func (s State) Current() (string, bool) {
	return s.Classification.Field(s.Cursor)
}

// Result returns the session result. A pending state yields Aborted.
func (s State) Result() Result {
	if s.Outcome == OutcomeConfirmed {
		return Confirmed(s.Classification)
	}
	return Aborted()
}

// Reduce applies one event to a state and returns the next state.
//
// # Description
//
// Reduce is pure: the input state is never modified. The cursor is
// clamped to [0, len(fields)-1] after every move. Marking a field moves
// it out of its previous state and advances the cursor. Once the state
// is Done, every event is ignored.
//
// # Inputs
//
//   - s: Current state.
//   - ev: Event to apply.
//
// # Outputs
//
//   - State: The next state.
func Reduce(s State, ev Event) State {
	if s.Done() {
		return s
	}

	switch ev {
	case EventMoveUp:
		s.Cursor = clamp(s.Cursor-1, s.Classification.Len())
	case EventMoveDown:
		s.Cursor = clamp(s.Cursor+1, s.Classification.Len())
	case EventMarkWindow:
		s = mark(s, StateWindowed)
	case EventMarkDrop:
		s = mark(s, StateDropped)
	case EventMarkKeep:
		s = mark(s, StateKept)
	case EventConfirm:
		s.Outcome = OutcomeConfirmed
	case EventQuit:
		s.Outcome = OutcomeAborted
	}
	return s
}

func mark(s State, state FieldState) State {
	field, ok := s.Current()
	if !ok {
		return s
	}
	next, err := s.Classification.With(field, state)
	if err != nil {
		return s
	}
	s.Classification = next
	s.Cursor = clamp(s.Cursor+1, next.Len())
	return s
}

func clamp(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}

// =============================================================================
// Session
// =============================================================================

// Session is a mutable wrapper around the reducer for callers that do
// not want to thread State values themselves.
type Session struct {
	state State
}

// NewSession starts a session on a classification.
func NewSession(c FieldClassification) *Session {
	return &Session{state: NewState(c)}
}

// Apply feeds one event to the session. Events after the end are ignored.
func (s *Session) Apply(ev Event) {
	s.state = Reduce(s.state, ev)
}

// State returns the current render state.
func (s *Session) State() State {
	return s.state
}

// Cursor returns the cursor position.
func (s *Session) Cursor() int {
	return s.state.Cursor
}

// Done reports whether the session has ended.
func (s *Session) Done() bool {
	return s.state.Done()
}

// Result returns the finalized result. Before the end it reports Aborted.
func (s *Session) Result() Result {
	return s.state.Result()
}
