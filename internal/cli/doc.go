// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the omd command line: the cobra root command, the
// interactive session loop and its slash commands.
//
// # Session Loop
//
// Each line read at the "User:" prompt is one turn. A line starting with
// the sentinel (default "!") is sent without it and the complete reply is
// shown in a pager; any other line streams the reply to the terminal as it
// arrives:
//
//	User: hello
//	Assistant: Hi!
//	User: !summarize this file
//	(reply opens in the pager)
//
// # Exit Codes
//
//   - 0: Success
//   - 1: Startup configuration error or failed one-shot turn
//
// # Input Handling
//
// When stdin is a terminal, input is read with liner (line editing and
// persistent history). Otherwise lines are read from stdin as-is, so omd
// can be scripted:
//
//	printf 'hello\n!explain\n' | omd
package cli
