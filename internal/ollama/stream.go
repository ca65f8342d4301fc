// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
)

// =============================================================================
// STREAM
// =============================================================================

// Stream is a lazy, finite, non-restartable sequence of Chunks decoded from
// one newline-delimited JSON response body.
//
// Next returns io.EOF once the server has sent its done line. Any other
// error is terminal: the body is closed and the same error is returned by
// every later call. A Stream is not safe for concurrent use.
type Stream struct {
	body   io.ReadCloser
	reader *bufio.Reader

	stats  Stats
	done   bool
	err    error
	closed bool
}

// NewStream wraps a response body. The Stream takes ownership of body.
func NewStream(body io.ReadCloser) *Stream {
	return &Stream{
		body:   body,
		reader: bufio.NewReader(body),
	}
}

// Next decodes the next chunk. Blocks until the server flushes a line.
func (s *Stream) Next() (Chunk, error) {
	if s.err != nil {
		return Chunk{}, s.err
	}
	if s.done {
		return Chunk{}, io.EOF
	}

	for {
		line, readErr := s.reader.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			// A partial line cut off by a dropped connection is not worth decoding.
			return Chunk{}, s.fail(transportError("connection lost while streaming", readErr))
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if readErr == io.EOF {
				return Chunk{}, s.fail(transportError("stream ended before completion", io.ErrUnexpectedEOF))
			}
			continue
		}

		chunk, ok, err := s.decode(line)
		if err != nil {
			return Chunk{}, s.fail(err)
		}
		if s.done {
			s.Close()
		}
		if ok {
			return chunk, nil
		}
		if s.done {
			return Chunk{}, io.EOF
		}
		if readErr == io.EOF {
			return Chunk{}, s.fail(transportError("stream ended before completion", io.ErrUnexpectedEOF))
		}
	}
}

// decode parses one line. ok is false when the line carries no chunk to
// deliver (an empty done line).
func (s *Stream) decode(line []byte) (chunk Chunk, ok bool, err error) {
	if line[0] != '{' {
		return Chunk{}, false, decodeError(line, errors.New("expected a JSON object"))
	}

	var l streamLine
	if err := json.Unmarshal(line, &l); err != nil {
		return Chunk{}, false, decodeError(line, err)
	}

	if l.Error != "" {
		return Chunk{}, false, serverError(0, l.Error)
	}

	text := l.text()
	if !l.Done {
		return Chunk{Content: text}, true, nil
	}

	s.done = true
	s.stats = statsFromLine(&l)
	if text == "" {
		return Chunk{}, false, nil
	}
	return Chunk{Content: text, Done: true}, true, nil
}

// All returns an iterator over the remaining chunks. Iteration stops after
// the done line or after yielding the first error.
func (s *Stream) All() iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		for {
			chunk, err := s.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Chunk{}, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Stats returns the figures from the done line. Zero until Next has
// returned io.EOF.
func (s *Stream) Stats() Stats {
	return s.stats
}

// Close releases the connection. Safe to call more than once.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

func (s *Stream) fail(err error) error {
	s.err = err
	s.Close()
	return err
}
