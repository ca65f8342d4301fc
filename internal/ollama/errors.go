// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"errors"
	"strconv"

	"github.com/jeranaias/omd/internal/util"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorKind categorizes client errors for handling.
type ErrorKind int

const (
	// KindTransport covers refused, reset and dropped connections, including
	// a stream that ends before the server signalled done.
	KindTransport ErrorKind = iota + 1
	// KindDecode is a streamed line that is not a JSON object.
	KindDecode
	// KindServer is an error reported by the server itself, either as a
	// non-200 status or an "error" field in the stream.
	KindServer
)

// String returns the human-readable name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindServer:
		return "server"
	default:
		return "ErrorKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Kind    ErrorKind
	Message string
	// Line holds the offending stream line for KindDecode.
	Line   string
	Status int
	Cause  error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Kind == KindDecode && e.Line != "" {
		msg += " " + strconv.Quote(truncateLine(e.Line))
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by kind and status so that
// errors.Is(err, ErrModelNotFound) works for any 404.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Status != 0 && t.Status == e.Status
}

// ErrModelNotFound is returned when the server answers 404 for a model.
var ErrModelNotFound = &ClientError{Kind: KindServer, Status: 404, Message: "model not found"}

func transportError(msg string, cause error) *ClientError {
	return &ClientError{Kind: KindTransport, Message: msg, Cause: cause}
}

func decodeError(line []byte, cause error) *ClientError {
	return &ClientError{Kind: KindDecode, Message: "malformed stream line", Line: string(line), Cause: cause}
}

func serverError(status int, msg string) *ClientError {
	return &ClientError{Kind: KindServer, Status: status, Message: msg}
}

// truncateLine keeps diagnostic output readable for very long lines.
func truncateLine(s string) string {
	return util.TruncateRunes(s, 200)
}

func kindOf(err error) ErrorKind {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Kind
	}
	return 0
}

// IsTransport checks if an error is a connection-level failure.
func IsTransport(err error) bool {
	return kindOf(err) == KindTransport
}

// IsDecode checks if an error is a malformed stream line.
func IsDecode(err error) bool {
	return kindOf(err) == KindDecode
}

// IsServer checks if an error was reported by the server.
func IsServer(err error) bool {
	return kindOf(err) == KindServer
}

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool {
	return errors.Is(err, ErrModelNotFound)
}
