// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions shared by the omd packages.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis, for log fields
//   - TruncateWidth, StringWidth, PadRight: display-cell aware helpers
//     backed by go-runewidth, for the pager header and model tables
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync, for the
//     prompt history file
//
// # Usage
//
//	title := util.TruncateWidth(model+" | "+prompt, width-10)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
