// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/jeranaias/omd/internal/ollama"
	"github.com/jeranaias/omd/internal/pager"
)

// ChunkStream is the decoded reply of one request. *ollama.Stream
// satisfies it.
type ChunkStream interface {
	// Next returns the next chunk, io.EOF after the last one, or a
	// terminal error.
	Next() (ollama.Chunk, error)
	Close() error
}

// Pager displays a complete reply. *pager.Bridge satisfies it.
type Pager interface {
	Page(ctx context.Context, text string) error
}

// WriteError means Out stopped accepting the reply, e.g. a closed pipe.
// The stream is abandoned.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return "write reply: " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Router consumes one ChunkStream per turn. The accumulator is local to
// Route, so a Router may be reused across turns but not concurrently.
type Router struct {
	// Out receives streamed chunks and the raw-text fallback.
	Out io.Writer
	// Pager receives Paged replies. When nil, Paged replies are printed raw.
	Pager Pager
	// Force routes every turn as Paged.
	Force bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Route drains stream according to mode and returns the accumulated text.
//
// Streaming writes each chunk to Out as it arrives. If the stream fails
// after something was printed, a newline ends the partial line and the
// partial text is returned with the error.
//
// Paged writes nothing while the stream is read. A failed stream discards
// the buffer and returns "" with the error. A complete reply goes to the
// Pager; if the pager cannot start, the text is printed raw and returned
// together with the pager error.
//
// The stream is closed before Route returns.
func (r *Router) Route(ctx context.Context, mode DisplayMode, stream ChunkStream) (string, error) {
	defer stream.Close()

	if r.Force {
		mode = Paged
	}

	switch mode {
	case Paged:
		return r.paged(ctx, stream)
	default:
		return r.streaming(stream)
	}
}

func (r *Router) streaming(stream ChunkStream) (string, error) {
	var acc strings.Builder
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			return acc.String(), nil
		}
		if err != nil {
			if acc.Len() > 0 {
				io.WriteString(r.Out, "\n")
			}
			return acc.String(), err
		}
		if chunk.Content == "" {
			continue
		}
		if _, err := io.WriteString(r.Out, chunk.Content); err != nil {
			return acc.String(), &WriteError{Err: err}
		}
		acc.WriteString(chunk.Content)
	}
}

func (r *Router) paged(ctx context.Context, stream ChunkStream) (string, error) {
	var acc strings.Builder
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		acc.WriteString(chunk.Content)
	}
	text := acc.String()

	if r.Pager == nil {
		return text, r.printRaw(text)
	}

	if err := r.Pager.Page(ctx, text); err != nil {
		if pager.IsStartFailure(err) {
			r.logger().Warn("pager unavailable, printing raw text", "error", err)
			if werr := r.printRaw(text); werr != nil {
				return text, werr
			}
		}
		return text, err
	}
	return text, nil
}

func (r *Router) printRaw(text string) error {
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := io.WriteString(r.Out, text); err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

func (r *Router) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
