// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/omd/internal/config"
	"github.com/jeranaias/omd/internal/ollama"
	"github.com/jeranaias/omd/internal/pager"
	"github.com/jeranaias/omd/internal/router"
	"github.com/jeranaias/omd/internal/ui/styles"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// mockOllama is an httptest Ollama server that records request bodies.
type mockOllama struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []map[string]any
	paths    []string
}

func newMockOllama(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, n int)) *mockOllama {
	t.Helper()
	m := &mockOllama{}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil && r.Method == http.MethodPost {
			json.NewDecoder(r.Body).Decode(&body)
		}
		m.mu.Lock()
		m.requests = append(m.requests, body)
		m.paths = append(m.paths, r.URL.Path)
		n := len(m.requests)
		m.mu.Unlock()
		handler(w, r, n)
	}))
	t.Cleanup(m.server.Close)
	return m
}

// hiServer streams "Hi" then "!" for every generate or chat request.
func hiServer(t *testing.T) *mockOllama {
	return newMockOllama(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		switch r.URL.Path {
		case "/api/generate":
			writeLines(w, `{"response":"Hi","done":false}`, `{"response":"!","done":true}`)
		case "/api/chat":
			writeLines(w,
				`{"message":{"role":"assistant","content":"Hi"},"done":false}`,
				`{"message":{"role":"assistant","content":"!"},"done":true,"eval_count":2}`)
		default:
			http.NotFound(w, r)
		}
	})
}

// droppingServer sends one chunk and then drops the connection.
func droppingServer(t *testing.T) *mockOllama {
	return newMockOllama(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, buf, err := hj.Hijack()
		require.NoError(t, err)
		buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: application/x-ndjson\r\nTransfer-Encoding: chunked\r\n\r\n")
		line := `{"response":"Hi","done":false}` + "\n"
		buf.WriteString(strconv.FormatInt(int64(len(line)), 16) + "\r\n" + line + "\r\n")
		buf.Flush()
		conn.Close()
	})
}

func (m *mockOllama) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockOllama) request(i int) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[i]
}

func writeLines(w http.ResponseWriter, lines ...string) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)
	for _, line := range lines {
		io.WriteString(w, line+"\n")
		if flusher != nil {
			flusher.Flush()
		}
	}
}

type fakeReader struct {
	lines   []string
	err     error // returned once lines run out; io.EOF when nil
	prompts []string
	closed  bool
}

func (r *fakeReader) ReadLine(prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	if len(r.lines) == 0 {
		if r.err != nil {
			return "", r.err
		}
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type fakePager struct {
	calls []string
	err   error
}

func (p *fakePager) Page(_ context.Context, text string) error {
	p.calls = append(p.calls, text)
	return p.err
}

type fakeClipboard struct {
	contents string
	readErr  error
	written  []string
}

func (c *fakeClipboard) ReadAll() (string, error) {
	return c.contents, c.readErr
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.written = append(c.written, text)
	return nil
}

type sessionHarness struct {
	session *Session
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	pager   *fakePager
}

func newSession(t *testing.T, m *mockOllama, api string) *sessionHarness {
	t.Helper()
	h := &sessionHarness{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		pager:  &fakePager{},
	}
	theme := styles.NewThemeFor(h.stdout, termenv.Ascii, true)
	h.session = &Session{
		Client:   ollama.NewClient(config.MustEndpoint(m.server.URL)),
		Model:    "llama3",
		API:      api,
		Sentinel: config.DefaultSentinel,
		Router:   &router.Router{Out: h.stdout, Pager: h.pager},
		Theme:    theme,
		Stdout:   h.stdout,
		Stderr:   h.stderr,
		interruptContext: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithCancel(ctx)
		},
	}
	return h
}

// =============================================================================
// END-TO-END SCENARIOS
// =============================================================================

func TestSession_ScenarioA_Streaming(t *testing.T) {
	m := hiServer(t)
	h := newSession(t, m, config.APIGenerate)

	turn := h.session.Turn(context.Background(), "hello")

	require.NoError(t, turn.Err)
	assert.Equal(t, router.Streaming, turn.Command.Mode)
	assert.Equal(t, "Hi!", turn.Response)
	assert.Equal(t, "Hi!\n", h.stdout.String())
	assert.Empty(t, h.pager.calls)
	assert.Equal(t, "hello", m.request(0)["prompt"])
	assert.Equal(t, "llama3", m.request(0)["model"])
}

func TestSession_ScenarioB_Paged(t *testing.T) {
	m := hiServer(t)
	h := newSession(t, m, config.APIGenerate)
	h.session.ShowLabels = true

	turn := h.session.Turn(context.Background(), "!summarize x")

	require.NoError(t, turn.Err)
	assert.Equal(t, router.Paged, turn.Command.Mode)
	assert.Equal(t, []string{"Hi!"}, h.pager.calls)
	assert.Empty(t, h.stdout.String())
	assert.Equal(t, "summarize x", m.request(0)["prompt"])
}

func TestSession_ScenarioC_DroppedConnection(t *testing.T) {
	t.Run("streaming", func(t *testing.T) {
		h := newSession(t, droppingServer(t), config.APIGenerate)

		turn := h.session.Turn(context.Background(), "hello")

		require.Error(t, turn.Err)
		assert.True(t, ollama.IsTransport(turn.Err))
		assert.Equal(t, "Hi\n", h.stdout.String())

		h.session.report(turn)
		assert.Contains(t, h.stderr.String(), "[Error] transport:")
	})

	t.Run("paged", func(t *testing.T) {
		h := newSession(t, droppingServer(t), config.APIGenerate)

		turn := h.session.Turn(context.Background(), "!hello")

		require.Error(t, turn.Err)
		assert.True(t, ollama.IsTransport(turn.Err))
		assert.Empty(t, h.stdout.String())
		assert.Empty(t, h.pager.calls)
	})
}

func TestSession_IdenticalRepliesAcrossModes(t *testing.T) {
	m := hiServer(t)
	h := newSession(t, m, config.APIGenerate)

	streamed := h.session.Turn(context.Background(), "same prompt")
	paged := h.session.Turn(context.Background(), "!same prompt")

	require.NoError(t, streamed.Err)
	require.NoError(t, paged.Err)
	assert.Equal(t, streamed.Response, paged.Response)
	assert.Equal(t, m.request(0)["prompt"], m.request(1)["prompt"])
}

// =============================================================================
// CONVERSATION
// =============================================================================

func TestSession_ChatKeepsConversation(t *testing.T) {
	m := hiServer(t)
	h := newSession(t, m, config.APIChat)
	h.session.System = "be brief"

	require.NoError(t, h.session.Turn(context.Background(), "first").Err)
	require.NoError(t, h.session.Turn(context.Background(), "!second").Err)

	second := m.request(1)["messages"].([]any)
	require.Len(t, second, 4)
	roles := make([]string, 0, len(second))
	for _, msg := range second {
		roles = append(roles, msg.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
	assert.Equal(t, "second", second[3].(map[string]any)["content"])

	assert.Len(t, h.session.Messages(), 4)
}

func TestSession_FailedTurnDropsUserMessage(t *testing.T) {
	m := newMockOllama(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"out of memory"}`)
	})
	h := newSession(t, m, config.APIChat)

	turn := h.session.Turn(context.Background(), "hello")

	require.Error(t, turn.Err)
	assert.True(t, ollama.IsServer(turn.Err))
	assert.Empty(t, h.session.Messages())
}

func TestSession_GenerateSendsSystemPrompt(t *testing.T) {
	m := hiServer(t)
	h := newSession(t, m, config.APIGenerate)
	h.session.System = "be brief"

	require.NoError(t, h.session.Turn(context.Background(), "hello").Err)
	assert.Equal(t, "be brief", m.request(0)["system"])
	assert.Empty(t, h.session.Messages())
}

// =============================================================================
// PAGER HANDLING
// =============================================================================

func TestSession_PagerStartFailureKeepsReply(t *testing.T) {
	m := hiServer(t)
	h := newSession(t, m, config.APIChat)
	h.pager.err = &pager.Error{Op: "start", Command: "nope", Err: errors.New("not found")}

	turn := h.session.Turn(context.Background(), "!hello")

	require.NoError(t, turn.Err)
	assert.Equal(t, "Hi!\n", h.stdout.String())
	assert.Contains(t, h.stderr.String(), `pager "nope" unavailable`)
	assert.Len(t, h.session.Messages(), 2)
}

func TestSession_ForceMarkdown(t *testing.T) {
	m := hiServer(t)
	h := newSession(t, m, config.APIGenerate)
	h.session.Router.Force = true
	h.session.ShowLabels = true

	require.NoError(t, h.session.Turn(context.Background(), "hello").Err)
	assert.Equal(t, []string{"Hi!"}, h.pager.calls)
	assert.Empty(t, h.stdout.String())
}

func TestSession_SetsBridgeTitle(t *testing.T) {
	m := hiServer(t)
	h := newSession(t, m, config.APIGenerate)
	bridge := &pager.Bridge{IsTerminal: func() bool { return false }, Stdout: h.stdout}
	h.session.Router.Pager = bridge

	h.session.Turn(context.Background(), "!summarize x")
	assert.Equal(t, "llama3 | summarize x", bridge.Title)
	// No terminal: the built-in viewer cannot start and the reply is printed.
	assert.Equal(t, "Hi!\n", h.stdout.String())
}

// =============================================================================
// CLIPBOARD
// =============================================================================

func TestSession_ClipboardSubstitution(t *testing.T) {
	m := hiServer(t)
	h := newSession(t, m, config.APIGenerate)
	h.session.Clipboard = &fakeClipboard{contents: "func main() {}"}

	require.NoError(t, h.session.Turn(context.Background(), "explain ::CL:: please").Err)
	assert.Equal(t, "explain func main() {} please", m.request(0)["prompt"])
}

func TestSession_ClipboardUnavailable(t *testing.T) {
	m := hiServer(t)
	h := newSession(t, m, config.APIGenerate)

	turn := h.session.Turn(context.Background(), "explain ::CL::")

	require.Error(t, turn.Err)
	assert.Contains(t, turn.Err.Error(), "no clipboard")
	assert.Zero(t, m.count())
}

func TestSession_CopyReplies(t *testing.T) {
	m := hiServer(t)
	h := newSession(t, m, config.APIGenerate)
	cb := &fakeClipboard{}
	h.session.Clipboard = cb
	h.session.CopyReplies = true

	require.NoError(t, h.session.Turn(context.Background(), "hello").Err)
	assert.Equal(t, []string{"Hi!"}, cb.written)
}

// =============================================================================
// SESSION LOOP
// =============================================================================

func TestSession_RunExitCommands(t *testing.T) {
	for _, word := range []string{"/bye", "/exit", "/quit", "exit", "quit", "QUIT"} {
		t.Run(word, func(t *testing.T) {
			m := hiServer(t)
			h := newSession(t, m, config.APIChat)
			h.session.Input = &fakeReader{lines: []string{word, "hello"}}

			require.NoError(t, h.session.Run(context.Background()))
			assert.Zero(t, m.count())
		})
	}
}

func TestSession_RunEndsOnEOFAndInterrupt(t *testing.T) {
	for _, readErr := range []error{io.EOF, ErrInterrupted} {
		t.Run(readErr.Error(), func(t *testing.T) {
			m := hiServer(t)
			h := newSession(t, m, config.APIChat)
			reader := &fakeReader{lines: []string{"hello"}, err: readErr}
			h.session.Input = reader

			require.NoError(t, h.session.Run(context.Background()))
			assert.Equal(t, 1, m.count())
			assert.Len(t, reader.prompts, 2)
			assert.Equal(t, "User: ", reader.prompts[0])
		})
	}
}

func TestSession_RunReturnsReadErrors(t *testing.T) {
	h := newSession(t, hiServer(t), config.APIChat)
	h.session.Input = &fakeReader{err: errors.New("tty gone")}

	err := h.session.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tty gone")
}

func TestSession_RunSkipsEmptyLines(t *testing.T) {
	m := hiServer(t)
	h := newSession(t, m, config.APIChat)
	h.session.Input = &fakeReader{lines: []string{"", "   ", "\t"}}

	require.NoError(t, h.session.Run(context.Background()))
	assert.Zero(t, m.count())
}

func TestSession_RunContinuesAfterError(t *testing.T) {
	m := newMockOllama(t, func(w http.ResponseWriter, _ *http.Request, n int) {
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"error":"model crashed"}`)
			return
		}
		writeLines(w, `{"message":{"role":"assistant","content":"ok"},"done":true}`)
	})
	h := newSession(t, m, config.APIChat)
	h.session.ShowLabels = true
	h.session.Input = &fakeReader{lines: []string{"one", "two"}}

	require.NoError(t, h.session.Run(context.Background()))

	assert.Equal(t, 2, m.count())
	assert.Contains(t, h.stderr.String(), "[Error] server: model crashed")
	assert.Contains(t, h.stdout.String(), "Assistant: ok\n")
	assert.Len(t, h.session.Messages(), 2)
}

func TestSession_RunReportsConnectionFailure(t *testing.T) {
	m := hiServer(t)
	h := newSession(t, m, config.APIChat)
	m.server.Close()
	h.session.Input = &fakeReader{lines: []string{"hello"}}

	require.NoError(t, h.session.Run(context.Background()))
	assert.Contains(t, h.stderr.String(), "[Error] transport: could not connect to Ollama at "+m.server.URL)
}

func TestSession_RunSlashCommands(t *testing.T) {
	m := newMockOllama(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		switch r.URL.Path {
		case "/api/tags":
			io.WriteString(w, `{"models":[{"name":"llama3:latest","size":4700000000,"details":{"parameter_size":"8B"}},{"name":"qwen2.5:7b","size":4400000000}]}`)
		default:
			writeLines(w, `{"message":{"role":"assistant","content":"ok"},"done":true}`)
		}
	})
	h := newSession(t, m, config.APIChat)
	h.session.Model = "llama3:latest"
	h.session.Input = &fakeReader{lines: []string{
		"hello",
		"/clear",
		"/models",
		"/model qwen2.5:7b",
		"/model missing",
		"/frobnicate",
		"/help",
	}}

	require.NoError(t, h.session.Run(context.Background()))

	out := h.stdout.String()
	assert.Contains(t, out, "Conversation cleared")
	assert.Contains(t, out, "llama3:latest *")
	assert.Contains(t, out, "qwen2.5:7b")
	assert.Contains(t, out, "Switched to model: qwen2.5:7b")
	assert.Contains(t, out, "/model [name]")
	assert.Contains(t, h.stderr.String(), `model "missing" not found`)
	assert.Contains(t, h.stderr.String(), "unknown command: /frobnicate")

	assert.Equal(t, "qwen2.5:7b", h.session.Model)
	assert.Empty(t, h.session.Messages())
}

func TestSession_ModelCommandWithServerDown(t *testing.T) {
	m := hiServer(t)
	h := newSession(t, m, config.APIChat)
	m.server.Close()

	require.NoError(t, h.session.handleSlashCommand(context.Background(), "/model mistral"))
	assert.Equal(t, "mistral", h.session.Model)
	assert.Contains(t, h.stderr.String(), `could not verify model "mistral"`)
}

func TestIsSlashCommand(t *testing.T) {
	for _, input := range []string{"/", "/?", "/help", "/model qwen2.5:7b", "/Models", "/frobnicate now"} {
		assert.True(t, isSlashCommand(input), input)
	}
	for _, input := range []string{"/etc/hosts: explain this file", "/usr/bin/env", "/2 + 2", "hello /help", "!/help"} {
		assert.False(t, isSlashCommand(input), input)
	}
}

func TestSession_RunSendsPathPrompts(t *testing.T) {
	m := hiServer(t)
	h := newSession(t, m, config.APIChat)
	h.session.Input = &fakeReader{lines: []string{"/etc/hosts: explain this file"}}

	require.NoError(t, h.session.Run(context.Background()))

	assert.Empty(t, h.stderr.String())
	require.Len(t, h.session.Messages(), 2)
	assert.Equal(t, "/etc/hosts: explain this file", h.session.Messages()[0].Content)
}

func TestIsExitCommand(t *testing.T) {
	assert.True(t, isExitCommand("/bye"))
	assert.True(t, isExitCommand("Exit"))
	assert.False(t, isExitCommand("exit now"))
	assert.False(t, isExitCommand("/clear"))
}

func TestExpandClipboard(t *testing.T) {
	cb := &fakeClipboard{contents: "X"}

	got, err := expandClipboard("a ::CL:: b ::CL::", cb)
	require.NoError(t, err)
	assert.Equal(t, "a X b X", got)

	got, err = expandClipboard("no token", nil)
	require.NoError(t, err)
	assert.Equal(t, "no token", got)

	_, err = expandClipboard("::CL::", &fakeClipboard{readErr: errors.New("no xclip")})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no xclip"))
}

func TestSession_ModelNotFoundHint(t *testing.T) {
	m := newMockOllama(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"model \"llama3\" not found, try pulling it first"}`)
	})
	h := newSession(t, m, config.APIChat)
	h.session.Input = &fakeReader{lines: []string{"hello"}}

	require.NoError(t, h.session.Run(context.Background()))
	assert.Contains(t, h.stderr.String(), "[Error] server: model not found")
	assert.Contains(t, h.stdout.String(), "ollama pull llama3")
}
