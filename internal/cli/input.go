// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/omd/internal/util"
)

// ErrInterrupted is returned by a LineReader when Ctrl-C is pressed at the
// prompt.
var ErrInterrupted = errors.New("interrupted")

// LineReader reads one line of user input per call. ReadLine returns
// io.EOF at end of input and ErrInterrupted on Ctrl-C.
type LineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// =============================================================================
// LINE EDITOR
// =============================================================================

// EditorReader provides input history and line editing for interactive use.
// USABILITY: Supports arrow keys for history navigation and line editing.
type EditorReader struct {
	line        *liner.State
	historyFile string
	logger      *slog.Logger
}

// NewEditorReader creates a line editor. History is loaded from and saved
// to historyFile when it is non-empty.
func NewEditorReader(historyFile string, logger *slog.Logger) *EditorReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &EditorReader{
		line:        line,
		historyFile: historyFile,
		logger:      logger,
	}
	r.loadHistory()
	return r
}

func (r *EditorReader) loadHistory() {
	if r.historyFile == "" {
		return
	}
	f, err := os.Open(r.historyFile)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Debug("could not open history", "file", r.historyFile, "error", err)
		}
		return
	}
	defer f.Close()
	if _, err := r.line.ReadHistory(f); err != nil {
		r.logger.Debug("could not read history", "file", r.historyFile, "error", err)
	}
}

// ReadLine reads a line of input with the given prompt.
func (r *EditorReader) ReadLine(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", ErrInterrupted
		}
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// saveHistory persists history with owner-only permissions.
func (r *EditorReader) saveHistory() error {
	if r.historyFile == "" {
		return nil
	}
	return util.AtomicWrite(r.historyFile, 0600, func(w io.Writer) error {
		_, err := r.line.WriteHistory(w)
		return err
	})
}

// Close saves history and restores the terminal.
func (r *EditorReader) Close() error {
	if err := r.saveHistory(); err != nil {
		r.logger.Warn("could not save history", "file", r.historyFile, "error", err)
	}
	return r.line.Close()
}

// =============================================================================
// PLAIN READER
// =============================================================================

// PlainReader reads lines from a non-terminal input such as a pipe. The
// prompt is still written so transcripts read naturally.
type PlainReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPlainReader reads lines from in and writes prompts to out.
func NewPlainReader(in io.Reader, out io.Writer) *PlainReader {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &PlainReader{scanner: scanner, out: out}
}

// ReadLine returns the next line without its line ending.
func (r *PlainReader) ReadLine(prompt string) (string, error) {
	if r.out != nil {
		fmt.Fprint(r.out, prompt)
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(r.scanner.Text(), "\r"), nil
}

// Close is a no-op; the underlying reader belongs to the caller.
func (r *PlainReader) Close() error {
	return nil
}
