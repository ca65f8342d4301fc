// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for omd.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. Every colored status line also carries an ASCII indicator such
as [Error] so that meaning survives NO_COLOR.

# Color System (colors.go)

  - Purple - Assistant label and pager title
  - Cyan - User prompt and info lines
  - Emerald - Success states
  - Amber - Warnings and fallbacks
  - Rose - Errors

# Theme System (theme.go)

The Theme struct binds the palette to a renderer with a detected or
explicit color profile:

	theme := styles.NewTheme()
	fmt.Fprintln(os.Stderr, theme.RenderError("transport", "connection refused"))

	// Tests and piped output
	plain := styles.NewThemeFor(&buf, termenv.Ascii, true)

GlamourStyle maps the same detection onto glamour's standard style names
so the pager and the prompt agree about colors.
*/
package styles
