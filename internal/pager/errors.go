// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pager

import (
	"errors"
	"fmt"
)

// ErrNoTerminal is returned by the built-in viewer when stdout is not a
// terminal.
var ErrNoTerminal = errors.New("stdout is not a terminal")

// BuiltinCommand names the built-in viewer in errors and logs.
const BuiltinCommand = "builtin"

// Error is a pager failure.
type Error struct {
	// Op is "start" when the pager never ran and "wait" when it ran and
	// exited unsuccessfully.
	Op      string
	Command string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pager %q %s: %v", e.Command, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsStartFailure reports whether err means the pager could not be
// started, in which case the text was never shown.
func IsStartFailure(err error) bool {
	var pagerErr *Error
	return errors.As(err, &pagerErr) && pagerErr.Op == "start"
}
