// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pager shows a complete reply in a scrollable view.
//
// A Bridge either pipes the text into an external command (pager.command,
// OMD_PAGER or --pager, split with shell quoting rules) or, when no command
// is configured, runs a built-in alt-screen viewer built on bubbletea and
// the bubbles viewport. Markdown is optionally rendered with glamour first.
//
// Failing to start the pager is distinguishable from the pager exiting
// badly: IsStartFailure reports the former, and callers fall back to
// printing the raw text.
//
// # Usage
//
//	bridge := &pager.Bridge{Command: "less -R", RenderMarkdown: true, WordWrap: 100}
//	if err := bridge.Page(ctx, reply); pager.IsStartFailure(err) {
//	    fmt.Println(reply)
//	}
package pager
