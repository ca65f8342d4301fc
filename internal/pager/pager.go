// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pager

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
	"mvdan.cc/sh/v3/shell"

	"github.com/jeranaias/omd/internal/ui/styles"
)

// =============================================================================
// BRIDGE
// =============================================================================

// Bridge hands complete replies to a pager. The zero value uses the
// built-in viewer without markdown rendering.
type Bridge struct {
	// Command is an external pager command line such as "less -R" or
	// "glow -p -". Empty selects the built-in viewer.
	Command string

	// RenderMarkdown renders the text with glamour before paging.
	RenderMarkdown bool
	// Style is a glamour style name or JSON style path. "auto" or empty
	// follows the terminal background.
	Style string
	// WordWrap is the glamour wrap width. 0 disables wrapping.
	WordWrap int

	// Title is shown in the built-in viewer's header.
	Title string

	// Theme defaults to styles.NewTheme().
	Theme *styles.Theme
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Stdin, Stdout and Stderr default to the process's own streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// IsTerminal reports whether the built-in viewer can take over the
	// screen. Defaults to checking Stdout.
	IsTerminal func() bool

	renderer *markdownRenderer
}

// Page shows text and blocks until the user leaves the pager.
func (b *Bridge) Page(ctx context.Context, text string) error {
	content := text
	if b.RenderMarkdown {
		content = b.render(text)
	}

	if strings.TrimSpace(b.Command) == "" {
		return b.builtin(ctx, content)
	}
	return b.external(content)
}

// =============================================================================
// EXTERNAL COMMAND
// =============================================================================

// external runs the pager without tying it to ctx. The pager shares the
// terminal and receives Ctrl-C itself, so it decides when to exit.
func (b *Bridge) external(content string) error {
	args, err := shell.Fields(b.Command, os.Getenv)
	if err != nil {
		return &Error{Op: "start", Command: b.Command, Err: err}
	}
	if len(args) == 0 {
		return &Error{Op: "start", Command: b.Command, Err: errors.New("empty command")}
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = b.stdout()
	cmd.Stderr = b.stderr()

	b.logger().Debug("starting pager", "command", args[0], "args", args[1:], "bytes", len(content))

	if err := cmd.Start(); err != nil {
		return &Error{Op: "start", Command: b.Command, Err: err}
	}
	if err := cmd.Wait(); err != nil {
		return &Error{Op: "wait", Command: b.Command, Err: err}
	}
	return nil
}

// =============================================================================
// BUILT-IN VIEWER
// =============================================================================

func (b *Bridge) builtin(ctx context.Context, content string) error {
	if !b.isTerminal() {
		return &Error{Op: "start", Command: BuiltinCommand, Err: ErrNoTerminal}
	}

	program := tea.NewProgram(
		newViewer(b.Title, content, b.theme()),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
		tea.WithInput(b.stdin()),
		tea.WithOutput(b.stdout()),
	)
	if _, err := program.Run(); err != nil {
		return &Error{Op: "wait", Command: BuiltinCommand, Err: err}
	}
	return nil
}

// =============================================================================
// DEFAULTS
// =============================================================================

func (b *Bridge) isTerminal() bool {
	if b.IsTerminal != nil {
		return b.IsTerminal()
	}
	f, ok := b.stdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (b *Bridge) stdin() io.Reader {
	if b.Stdin != nil {
		return b.Stdin
	}
	return os.Stdin
}

func (b *Bridge) stdout() io.Writer {
	if b.Stdout != nil {
		return b.Stdout
	}
	return os.Stdout
}

func (b *Bridge) stderr() io.Writer {
	if b.Stderr != nil {
		return b.Stderr
	}
	return os.Stderr
}

func (b *Bridge) theme() *styles.Theme {
	if b.Theme == nil {
		b.Theme = styles.NewTheme()
	}
	return b.Theme
}

func (b *Bridge) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}
