// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for omd.
//
// USABILITY: TTY detection decides between the line editor and plain
// line reading, and whether colors are emitted at all:
// - Interactive terminals (line editing, history, colors)
// - Piped input or output (no prompts echoed by the editor, no colors)
// - NO_COLOR set (no colors)

package cli

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/jeranaias/omd/internal/ui/styles"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// isTerminal reports whether stream is a terminal file.
func isTerminal(stream any) bool {
	f, ok := stream.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// =============================================================================
// TERMINAL WIDTH DETECTION
// =============================================================================

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the minimum width we'll use for wrapping
	MinTerminalWidth = 40
)

// GetTerminalWidth returns the current terminal width.
// Returns DefaultTerminalWidth (80) if width cannot be determined.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// wrapWidth caps the configured markdown wrap width at the terminal width.
// A configured width of 0 disables wrapping and is kept.
func wrapWidth(configured int) int {
	if configured == 0 {
		return 0
	}
	if w := GetTerminalWidth(); IsStdoutTTY() && w < configured {
		return w
	}
	return configured
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

// ColorProfile returns the color profile for w.
// Returns Ascii (no colors) for non-TTY or when NO_COLOR is set.
// See https://no-color.org/ for the NO_COLOR specification.
func ColorProfile(w io.Writer) termenv.Profile {
	if os.Getenv("NO_COLOR") != "" || !isTerminal(w) {
		return termenv.Ascii
	}
	return termenv.NewOutput(w).EnvColorProfile()
}

// newTheme builds the theme for output written to w.
func newTheme(w io.Writer) *styles.Theme {
	profile := ColorProfile(w)
	dark := true
	if profile != termenv.Ascii {
		dark = termenv.NewOutput(w).HasDarkBackground()
	}
	return styles.NewThemeFor(w, profile, dark)
}
