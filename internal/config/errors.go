// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import "errors"

// ConfigError reports malformed configuration. It is only ever raised
// before the first request is sent and is fatal to the process.
type ConfigError struct {
	Key   string // offending setting, e.g. "OLLAMA_HOST" or "api"
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	msg := "invalid configuration"
	if e.Key != "" {
		msg += " " + e.Key
	}
	if e.Value != "" {
		msg += " " + quote(e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

func quote(s string) string {
	return "\"" + s + "\""
}
