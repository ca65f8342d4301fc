// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and endpoint resolution for omd.
//
// Configuration is layered, later layers winning:
//   - Built-in defaults
//   - ~/.omd/config.toml (or the file named by OMD_CONFIG)
//   - Environment variables (OLLAMA_HOST, OLLAMA_MODEL, OMD_*)
//   - Command-line flags (applied by the cli package)
//
// # Key Types
//
//   - Config: Main configuration structure
//   - Endpoint: Immutable base URL of the Ollama server
//   - ConfigError: Malformed configuration, fatal at startup
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	endpoint, err := config.ResolveEndpoint(cfg.Host)
//	if err != nil {
//	    log.Fatal(err) // *config.ConfigError
//	}
package config
