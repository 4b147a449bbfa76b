package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrReadOnly is returned when asked to collect values for a form that
	// has no editable fields.
	ErrReadOnly = errors.New("tui: form has no editable fields")
)
