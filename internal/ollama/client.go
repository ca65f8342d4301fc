// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/omd/internal/config"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// Endpoint is the resolved server base URL.
	Endpoint config.Endpoint

	// DialTimeout bounds connection establishment (default: 10s).
	// There is deliberately no overall request timeout: generation may
	// take as long as the model needs.
	DialTimeout time.Duration

	// UserAgent is sent with every request when set.
	UserAgent string

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
//
// The Client is safe for concurrent use, though omd only ever has one
// request in flight.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewClient creates a new Ollama client for endpoint with default settings.
func NewClient(endpoint config.Endpoint) *Client {
	return NewClientWithConfig(ClientConfig{Endpoint: endpoint})
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(cfg ClientConfig) *Client {
	if cfg.Endpoint.IsZero() {
		cfg.Endpoint = config.MustEndpoint(config.DefaultHost)
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
		httpClient = &http.Client{Transport: transport}
	}

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Endpoint returns the server base URL the client talks to.
func (c *Client) Endpoint() config.Endpoint {
	return c.config.Endpoint
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that Ollama is reachable and running.
func (c *Client) CheckRunning(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return serverError(resp.StatusCode, "unexpected status from Ollama: "+resp.Status)
	}
	return nil
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all locally available models (/api/tags).
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return c.models(ctx, "/api/tags")
}

// LoadedModels retrieves the models currently loaded in memory (/api/ps).
func (c *Client) LoadedModels(ctx context.Context) ([]ModelInfo, error) {
	return c.models(ctx, "/api/ps")
}

func (c *Client) models(ctx context.Context, path string) ([]ModelInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Kind: KindDecode, Message: "failed to decode " + path + " response", Cause: err}
	}
	return result.Models, nil
}

// =============================================================================
// STREAMING OPERATIONS
// =============================================================================

// Chat sends a streaming /api/chat request with the conversation so far.
// It returns once response headers arrive; the caller must consume or
// Close the Stream.
func (c *Client) Chat(ctx context.Context, model string, messages []Message) (*Stream, error) {
	return c.stream(ctx, "/api/chat", ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	})
}

// Generate sends a streaming /api/generate request for a single prompt.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Stream, error) {
	req.Stream = true
	return c.stream(ctx, "/api/generate", req)
}

func (c *Client) stream(ctx context.Context, path string, body any) (*Stream, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ClientError{Kind: KindTransport, Message: "failed to marshal request", Cause: err}
	}

	resp, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}

	if err := checkStatus(resp); err != nil {
		drainAndClose(resp.Body)
		return nil, err
	}

	return NewStream(resp.Body), nil
}

// =============================================================================
// HTTP HELPERS
// =============================================================================

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.Endpoint.Join(path), body)
	if err != nil {
		return nil, transportError("failed to create request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/x-ndjson, application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, transportError("request cancelled", err)
		}
		return nil, transportError("could not connect to Ollama at "+c.config.Endpoint.String(), err)
	}
	return resp, nil
}

// checkStatus turns a non-200 response into a KindServer error carrying
// the server's own message when it sent one.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	msg := resp.Status
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var apiErr ErrorResponse
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
		msg = apiErr.Error
	} else if text := strings.TrimSpace(string(data)); text != "" {
		msg = resp.Status + ": " + truncateLine(text)
	}

	if resp.StatusCode == http.StatusNotFound {
		return &ClientError{Kind: KindServer, Status: http.StatusNotFound, Message: ErrModelNotFound.Message + ": " + msg}
	}
	return serverError(resp.StatusCode, msg)
}

// drainAndClose lets the transport reuse the connection.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(r, 64<<10))
	r.Close()
}
