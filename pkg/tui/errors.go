package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (Ctrl+C or the quit action).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoPage is returned when the wizard does not write to a page.Memory.
	ErrNoPage = errors.New("tui: wizard page must be a *page.Memory")
)
