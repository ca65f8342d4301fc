// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pager

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/omd/internal/ui/styles"
	"github.com/jeranaias/omd/internal/util"
)

// =============================================================================
// VIEWER MODEL - Scrollable full-screen reply view
// =============================================================================

// viewer is the bubbletea model of the built-in pager: a header with the
// title, the scrollable reply, and a footer with the scroll position.
type viewer struct {
	title    string
	content  string
	theme    *styles.Theme
	viewport viewport.Model
	ready    bool
}

func newViewer(title, content string, theme *styles.Theme) *viewer {
	if title == "" {
		title = "omd"
	}
	return &viewer{
		title:   title,
		content: content,
		theme:   theme,
	}
}

// Init implements tea.Model.
func (v *viewer) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (v *viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return v, tea.Quit
		case "g", "home":
			v.viewport.GotoTop()
			return v, nil
		case "G", "end":
			v.viewport.GotoBottom()
			return v, nil
		}

	case tea.WindowSizeMsg:
		height := msg.Height - lipgloss.Height(v.headerView()) - lipgloss.Height(v.footerView())
		if height < 1 {
			height = 1
		}
		if !v.ready {
			v.viewport = viewport.New(msg.Width, height)
			v.viewport.SetContent(v.content)
			v.ready = true
		} else {
			v.viewport.Width = msg.Width
			v.viewport.Height = height
		}
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// View implements tea.Model.
func (v *viewer) View() string {
	if !v.ready {
		return "\n  Loading..."
	}
	return fmt.Sprintf("%s\n%s\n%s", v.headerView(), v.viewport.View(), v.footerView())
}

func (v *viewer) headerView() string {
	width := v.viewport.Width
	if width <= 0 {
		width = 80
	}
	// Two cells of padding on the header style.
	title := util.TruncateWidth(v.title, width-2)
	line := v.theme.PagerTitle.Render(title)
	return v.theme.PagerHeader.Width(width).Render(line)
}

func (v *viewer) footerView() string {
	width := v.viewport.Width
	if width <= 0 {
		width = 80
	}
	help := "↑/↓ scroll  space/b page  g/G top/bottom  q quit"
	position := fmt.Sprintf("%3.f%%", v.viewport.ScrollPercent()*100)

	gap := width - 2 - util.StringWidth(help) - util.StringWidth(position)
	if gap < 1 {
		help = util.TruncateWidth(help, width-3-util.StringWidth(position))
		gap = 1
	}
	return v.theme.PagerFooter.Width(width).Render(help + strings.Repeat(" ", gap) + position)
}
