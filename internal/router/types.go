// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// DISPLAY MODE
// ============================================================================

// DisplayMode selects how a reply is shown. It is derived once per turn
// and never changes while the reply is streaming.
type DisplayMode int

const (
	// Streaming prints every chunk as soon as it is decoded.
	Streaming DisplayMode = iota
	// Paged buffers the whole reply and hands it to the pager.
	Paged
)

// String returns the human-readable name of the mode.
func (m DisplayMode) String() string {
	switch m {
	case Streaming:
		return "Streaming"
	case Paged:
		return "Paged"
	default:
		return fmt.Sprintf("DisplayMode(%d)", m)
	}
}

// ============================================================================
// COMMAND
// ============================================================================

// Command is a parsed input line.
type Command struct {
	Mode DisplayMode
	// Prompt is the text sent to the model, without the sentinel.
	Prompt string
}

// Parse classifies a raw input line. A line starting with sentinel is
// Paged and has the sentinel removed; anything else is Streaming and is
// passed through unchanged. An empty sentinel disables Paged mode.
func Parse(line, sentinel string) Command {
	if sentinel != "" && strings.HasPrefix(line, sentinel) {
		return Command{Mode: Paged, Prompt: strings.TrimPrefix(line, sentinel)}
	}
	return Command{Mode: Streaming, Prompt: line}
}

// ============================================================================
// TURN
// ============================================================================

// Turn is one request/response cycle of a session. It lives only until
// its reply has been displayed.
type Turn struct {
	ID       uuid.UUID
	Input    string
	Command  Command
	Started  time.Time
	Response string
	Err      error
}

// NewTurn parses input and stamps the turn with a fresh ID.
func NewTurn(input, sentinel string) *Turn {
	return &Turn{
		ID:      uuid.New(),
		Input:   input,
		Command: Parse(input, sentinel),
		Started: time.Now(),
	}
}

// Elapsed returns the time since the turn started.
func (t *Turn) Elapsed() time.Duration {
	return time.Since(t.Started)
}
