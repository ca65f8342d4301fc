// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"unicode"

	"github.com/jeranaias/omd/internal/config"
	"github.com/jeranaias/omd/internal/ollama"
	"github.com/jeranaias/omd/internal/pager"
	"github.com/jeranaias/omd/internal/router"
	"github.com/jeranaias/omd/internal/ui/styles"
)

// =============================================================================
// SESSION STATE
// =============================================================================

// Session holds the state for an interactive chat session.
type Session struct {
	Client *ollama.Client
	Model  string
	// API is config.APIChat or config.APIGenerate.
	API      string
	System   string
	Sentinel string

	Router *router.Router
	Input  LineReader
	// ShowLabels prefixes streamed replies with "Assistant:".
	ShowLabels bool

	// Clipboard serves ::CL:: substitution and CopyReplies. May be nil.
	Clipboard   Clipboard
	CopyReplies bool

	Theme  *styles.Theme
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer

	// messages is the conversation so far, for the chat API.
	messages []ollama.Message

	// interruptContext derives a per-turn context that Ctrl-C cancels.
	interruptContext func(context.Context) (context.Context, context.CancelFunc)
}

// Messages returns the conversation kept for the chat API.
func (s *Session) Messages() []ollama.Message {
	return s.messages
}

// =============================================================================
// SESSION LOOP
// =============================================================================

// Run reads and answers prompts until the user exits or input ends.
// Per-turn failures are reported on Stderr and never end the loop.
func (s *Session) Run(ctx context.Context) error {
	prompt := s.Theme.UserPrompt.Render("User:") + " "

	for {
		fmt.Fprintln(s.Stdout)
		input, err := s.Input.ReadLine(prompt)
		if err != nil {
			// Ctrl-C or Ctrl-D at the prompt ends the session.
			if err == io.EOF || errors.Is(err, ErrInterrupted) {
				fmt.Fprintln(s.Stdout)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		if isExitCommand(trimmed) {
			return nil
		}
		if isSlashCommand(trimmed) {
			if err := s.handleSlashCommand(ctx, trimmed); err != nil {
				s.reportError("", err)
			}
			continue
		}

		turn := s.Turn(ctx, input)
		if turn.Err != nil {
			s.report(turn)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// isSlashCommand reports whether input is addressed to omd rather than
// the model. Only a leading word made of letters (or "/?") counts, so
// prompts such as "/etc/hosts: explain this" are sent as written.
func isSlashCommand(input string) bool {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return false
	}
	name, ok := strings.CutPrefix(fields[0], "/")
	if !ok {
		return false
	}
	if name == "?" {
		return true
	}
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func isExitCommand(input string) bool {
	switch strings.ToLower(input) {
	case "/bye", "/exit", "/quit", "exit", "quit":
		return true
	}
	return false
}

// =============================================================================
// TURN PROCESSING
// =============================================================================

// Turn sends one prompt and displays the reply. The returned Turn carries
// the reply text and the error, if any. Errors are not reported here.
func (s *Session) Turn(ctx context.Context, input string) *router.Turn {
	turn := router.NewTurn(input, s.Sentinel)
	mode := turn.Command.Mode
	if s.Router.Force {
		mode = router.Paged
	}
	logger := s.logger().With("turn", turn.ID.String(), "mode", mode.String())

	prompt, err := expandClipboard(turn.Command.Prompt, s.Clipboard)
	if err != nil {
		turn.Err = err
		return turn
	}

	ctx, cancel := s.turnContext(ctx)
	defer cancel()

	logger.Debug("sending prompt", "model", s.Model, "api", s.API, "chars", len(prompt))

	var userMessage ollama.Message
	var stream *ollama.Stream
	if s.API == config.APIGenerate {
		stream, err = s.Client.Generate(ctx, ollama.GenerateRequest{
			Model:  s.Model,
			Prompt: prompt,
			System: s.System,
		})
	} else {
		userMessage = ollama.NewUserMessage(prompt)
		stream, err = s.Client.Chat(ctx, s.Model, s.chatMessages(userMessage))
	}
	if err != nil {
		turn.Err = err
		return turn
	}

	if mode == router.Streaming && s.ShowLabels {
		fmt.Fprint(s.Stdout, s.Theme.AssistantPrompt.Render("Assistant:")+" ")
	}
	if bridge, ok := s.Router.Pager.(*pager.Bridge); ok {
		bridge.Title = s.Model + " | " + prompt
	}

	text, err := s.Router.Route(ctx, mode, stream)
	turn.Response = text

	var pagerErr *pager.Error
	switch {
	case err == nil:
	case errors.As(err, &pagerErr):
		// The reply arrived; only its display failed.
		if !pager.IsStartFailure(err) {
			s.warn(fmt.Sprintf("pager exited with an error: %v", pagerErr.Err))
		} else {
			s.warn(fmt.Sprintf("pager %q unavailable, printed reply as plain text", pagerErr.Command))
		}
	default:
		if mode == router.Streaming && s.ShowLabels && text == "" {
			fmt.Fprintln(s.Stdout)
		}
		logger.Debug("turn failed", "error", err, "elapsed", turn.Elapsed())
		turn.Err = err
		return turn
	}

	if mode == router.Streaming {
		fmt.Fprintln(s.Stdout)
	}

	if s.API != config.APIGenerate {
		s.messages = append(s.messages, userMessage, ollama.NewAssistantMessage(text))
	}

	if s.CopyReplies {
		s.copyReply(text, logger)
	}

	stats := stream.Stats()
	logger.Debug("turn complete",
		"elapsed", turn.Elapsed(),
		"chars", len(text),
		"stats", stats.String(),
		"done_reason", stats.DoneReason,
	)
	return turn
}

// chatMessages builds the request history: the system prompt, the
// conversation so far, then the new user message.
func (s *Session) chatMessages(user ollama.Message) []ollama.Message {
	msgs := make([]ollama.Message, 0, len(s.messages)+2)
	if s.System != "" {
		msgs = append(msgs, ollama.NewSystemMessage(s.System))
	}
	msgs = append(msgs, s.messages...)
	return append(msgs, user)
}

func (s *Session) copyReply(text string, logger *slog.Logger) {
	if s.Clipboard == nil {
		s.warn("no clipboard available, reply not copied")
		return
	}
	if err := s.Clipboard.WriteAll(text); err != nil {
		s.warn(fmt.Sprintf("could not copy reply to clipboard: %v", err))
		return
	}
	logger.Debug("reply copied to clipboard", "chars", len(text))
}

func (s *Session) turnContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.interruptContext != nil {
		return s.interruptContext(ctx)
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}

// =============================================================================
// REPORTING
// =============================================================================

// report prints a failed turn to Stderr.
func (s *Session) report(turn *router.Turn) {
	var clientErr *ollama.ClientError
	if errors.As(turn.Err, &clientErr) {
		s.reportError(clientErr.Kind.String(), clientErr)
		if ollama.IsModelNotFound(turn.Err) {
			s.info(fmt.Sprintf("Pull it with: ollama pull %s, or pick another with /model", s.Model))
		}
		return
	}
	s.reportError("", turn.Err)
}

func (s *Session) reportError(kind string, err error) {
	fmt.Fprintln(s.Stderr, s.Theme.RenderError(kind, err.Error()))
}

func (s *Session) warn(message string) {
	fmt.Fprintln(s.Stderr, s.Theme.RenderWarning(message))
}

func (s *Session) success(message string) {
	fmt.Fprintln(s.Stdout, s.Theme.RenderSuccess(message))
}

func (s *Session) info(message string) {
	fmt.Fprintln(s.Stdout, s.Theme.RenderInfo(message))
}

func (s *Session) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
