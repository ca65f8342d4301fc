// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"net/url"
	"strings"
)

// DefaultHost is the Ollama server's conventional listen address.
const DefaultHost = "http://localhost:11434"

// Endpoint is the immutable base URL of the Ollama server. It is resolved
// once at startup and passed explicitly to whatever needs it.
type Endpoint struct {
	raw  string
	base url.URL
}

// ResolveEndpoint turns a host setting into an Endpoint. An empty host
// selects DefaultHost. A non-empty host must parse as a URL carrying at
// least a scheme and a host; anything else is a *ConfigError. No network
// I/O happens here.
func ResolveEndpoint(host string) (Endpoint, error) {
	host = clean(host)
	if host == "" {
		host = DefaultHost
	}

	u, err := url.Parse(host)
	if err != nil {
		return Endpoint{}, &ConfigError{Key: "OLLAMA_HOST", Value: host, Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return Endpoint{}, &ConfigError{
			Key:   "OLLAMA_HOST",
			Value: host,
			Err:   errors.New("expected a URL with scheme and host, e.g. http://localhost:11434"),
		}
	}

	return Endpoint{raw: host, base: *u}, nil
}

// MustEndpoint is like ResolveEndpoint but panics on error. For tests and
// compile-time constants only.
func MustEndpoint(host string) Endpoint {
	e, err := ResolveEndpoint(host)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the endpoint exactly as it was configured.
func (e Endpoint) String() string {
	return e.raw
}

// URL returns a copy of the parsed base URL.
func (e Endpoint) URL() *url.URL {
	u := e.base
	return &u
}

// IsZero reports whether the endpoint was never resolved.
func (e Endpoint) IsZero() bool {
	return e.raw == ""
}

// Join returns the absolute URL of an API path such as "/api/chat".
func (e Endpoint) Join(path string) string {
	u := e.base.JoinPath(strings.Split(strings.Trim(path, "/"), "/")...)
	if strings.HasSuffix(path, "/") && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}
