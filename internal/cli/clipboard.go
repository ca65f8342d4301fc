// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
)

// ClipboardToken in a prompt is replaced with the clipboard contents.
const ClipboardToken = "::CL::"

// Clipboard is the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// systemClipboard uses the platform clipboard tools.
type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error) {
	return clipboard.ReadAll()
}

func (systemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// SystemClipboard returns the platform clipboard, or nil when no clipboard
// tool is available.
func SystemClipboard() Clipboard {
	if clipboard.Unsupported {
		return nil
	}
	return systemClipboard{}
}

// expandClipboard substitutes every ClipboardToken in prompt.
func expandClipboard(prompt string, cb Clipboard) (string, error) {
	if !strings.Contains(prompt, ClipboardToken) {
		return prompt, nil
	}
	if cb == nil {
		return "", fmt.Errorf("prompt contains %s but no clipboard is available", ClipboardToken)
	}
	contents, err := cb.ReadAll()
	if err != nil {
		return "", fmt.Errorf("could not read clipboard: %w", err)
	}
	return strings.ReplaceAll(prompt, ClipboardToken, contents), nil
}
