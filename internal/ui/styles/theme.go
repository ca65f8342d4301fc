// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	renderer *lipgloss.Renderer

	// ==========================================================================
	// PROMPT STYLES
	// ==========================================================================

	UserPrompt      lipgloss.Style
	AssistantPrompt lipgloss.Style

	// ==========================================================================
	// STATUS STYLES
	// ==========================================================================

	ErrorLabel   lipgloss.Style
	ErrorMessage lipgloss.Style
	WarningStyle lipgloss.Style
	InfoStyle    lipgloss.Style
	SuccessStyle lipgloss.Style

	// ==========================================================================
	// PAGER STYLES
	// ==========================================================================

	PagerHeader lipgloss.Style
	PagerTitle  lipgloss.Style
	PagerFooter lipgloss.Style
}

// NewTheme creates a theme for stdout, honouring NO_COLOR.
func NewTheme() *Theme {
	output := termenv.NewOutput(os.Stdout)
	profile := output.EnvColorProfile()
	return NewThemeFor(os.Stdout, profile, output.HasDarkBackground())
}

// NewThemeFor creates a theme rendering to w with an explicit profile.
// termenv.Ascii disables all colors.
func NewThemeFor(w io.Writer, profile termenv.Profile, isDark bool) *Theme {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(profile)
	r.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
		renderer:     r,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	r := t.renderer

	t.UserPrompt = r.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantPrompt = r.NewStyle().Bold(true).Foreground(Purple)

	t.ErrorLabel = r.NewStyle().Bold(true).Foreground(Rose)
	t.ErrorMessage = r.NewStyle().Foreground(Rose)
	t.WarningStyle = r.NewStyle().Foreground(Amber)
	t.InfoStyle = r.NewStyle().Foreground(Cyan)
	t.SuccessStyle = r.NewStyle().Foreground(Emerald)

	t.PagerHeader = r.NewStyle().
		Background(SurfaceDim).
		Foreground(TextPrimary).
		Padding(0, 1)
	t.PagerTitle = r.NewStyle().Bold(true).Foreground(Purple)
	t.PagerFooter = r.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
}

// ColorsEnabled reports whether the theme emits any color sequences.
func (t *Theme) ColorsEnabled() bool {
	return t.ColorProfile != termenv.Ascii
}

// GlamourStyle maps the terminal to one of glamour's standard style names.
func (t *Theme) GlamourStyle() string {
	switch {
	case !t.ColorsEnabled():
		return "notty"
	case t.IsDark:
		return "dark"
	default:
		return "light"
	}
}

// RenderError formats an error report: "[Error] <kind>: <message>".
func (t *Theme) RenderError(kind, message string) string {
	label := StatusIndicators.Error
	if kind != "" {
		label += " " + kind + ":"
	}
	return t.ErrorLabel.Render(label) + " " + t.ErrorMessage.Render(message)
}

// RenderWarning formats a warning with its indicator.
func (t *Theme) RenderWarning(message string) string {
	return t.WarningStyle.Render(StatusIndicators.Warning + " " + message)
}

// RenderSuccess formats a completed action with its indicator.
func (t *Theme) RenderSuccess(message string) string {
	return t.SuccessStyle.Render(StatusIndicators.Success + " " + message)
}

// RenderInfo formats an informational line with its indicator.
func (t *Theme) RenderInfo(message string) string {
	return t.InfoStyle.Render(StatusIndicators.Info + " " + message)
}
