// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pager

import (
	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer caches one glamour renderer per style/width pair.
type markdownRenderer struct {
	style string
	wrap  int
	term  *glamour.TermRenderer
	err   error
}

func newMarkdownRenderer(style string, wrap int) *markdownRenderer {
	r := &markdownRenderer{style: style, wrap: wrap}
	r.term, r.err = glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(wrap),
		glamour.WithEmoji(),
	)
	return r
}

// render renders markdown for terminal display.
// Returns content unchanged if rendering fails or the renderer is
// unavailable.
func (b *Bridge) render(content string) string {
	style := b.Style
	if style == "" || style == "auto" {
		style = b.theme().GlamourStyle()
	}

	if b.renderer == nil || b.renderer.style != style || b.renderer.wrap != b.WordWrap {
		b.renderer = newMarkdownRenderer(style, b.WordWrap)
	}
	if b.renderer.err != nil {
		b.logger().Warn("markdown renderer unavailable", "style", style, "error", b.renderer.err)
		return content
	}

	rendered, err := b.renderer.term.Render(content)
	if err != nil {
		b.logger().Warn("markdown rendering failed", "error", err)
		return content
	}
	return rendered
}
