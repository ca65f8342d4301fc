// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// API selects which Ollama endpoint a turn is sent to.
const (
	APIChat     = "chat"
	APIGenerate = "generate"
)

// DefaultSentinel is the input prefix that selects paged display.
const DefaultSentinel = "!"

// Config represents the complete omd configuration.
type Config struct {
	// Host is the Ollama server URL. OLLAMA_HOST takes precedence.
	Host string `toml:"host"`
	// Model is the model to chat with. Empty means negotiate with the server.
	Model string `toml:"model"`
	// API is "chat" (conversation kept for the session) or "generate" (stateless).
	API string `toml:"api"`
	// System is an optional system prompt sent with every request.
	System string `toml:"system"`
	// Sentinel is the input prefix that selects paged display.
	Sentinel string `toml:"sentinel"`

	Pager   PagerConfig   `toml:"pager"`
	History HistoryConfig `toml:"history"`
	Log     LogConfig     `toml:"log"`
}

// PagerConfig controls how paged responses are displayed.
type PagerConfig struct {
	// Command is an external pager command line (e.g. "less -R" or "glow -p -").
	// Empty selects the built-in viewer.
	Command string `toml:"command"`
	// RenderMarkdown renders markdown to ANSI before it reaches the pager.
	RenderMarkdown bool `toml:"render_markdown"`
	// Style is a glamour style name ("auto", "dark", "light", "notty", ...).
	Style string `toml:"style"`
	// WordWrap is the markdown wrap width; 0 disables wrapping.
	WordWrap int `toml:"word_wrap"`
}

// HistoryConfig controls line-editor input history.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	File    string `toml:"file"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
	// File receives log output instead of stderr when set.
	File string `toml:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		API:      APIChat,
		Sentinel: DefaultSentinel,
		Pager: PagerConfig{
			RenderMarkdown: true,
			Style:          "auto",
			WordWrap:       100,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the omd configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".omd"), nil
}

// ConfigPath returns the path to the TOML config file.
// OMD_CONFIG overrides the default location.
func ConfigPath() (string, error) {
	if p := os.Getenv("OMD_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DotenvPath returns the path of the user-level .env file.
func DotenvPath() string {
	dir, err := ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, ".env")
}

// HistoryPath returns the history file to use, or "" when history is disabled.
func (c *Config) HistoryPath() string {
	if !c.History.Enabled {
		return ""
	}
	if c.History.File != "" {
		return c.History.File
	}
	dir, err := ConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "omd_history")
	}
	return filepath.Join(dir, "history")
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotenv loads KEY=VALUE pairs from the given files into the process
// environment. Variables that are already set are left alone and missing
// files are skipped.
func LoadDotenv(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the configuration file at path (or ConfigPath when path is
// empty), applies environment overrides and validates the result.
// A missing file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, &ConfigError{Key: "file", Value: path, Err: err}
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, &ConfigError{Key: "file", Value: path, Err: err}
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file on top of cfg. Keys absent from the file
// keep their current values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	fillDefaults(cfg)
	return nil
}

// fillDefaults fills in values an explicit empty setting would break.
func fillDefaults(cfg *Config) {
	defaults := Default()
	if cfg.API == "" {
		cfg.API = defaults.API
	}
	if cfg.Sentinel == "" {
		cfg.Sentinel = defaults.Sentinel
	}
	if cfg.Pager.Style == "" {
		cfg.Pager.Style = defaults.Pager.Style
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - OLLAMA_HOST: overrides host
//   - OLLAMA_MODEL: overrides model
//   - OMD_API: overrides api
//   - OMD_PAGER: overrides pager.command
//   - OMD_RENDER_MARKDOWN: overrides pager.render_markdown
//   - OMD_LOG_LEVEL: overrides log.level
//   - OMD_NOHISTORY: disables history when true
func (c *Config) ApplyEnvOverrides() {
	if host, ok := os.LookupEnv("OLLAMA_HOST"); ok && clean(host) != "" {
		c.Host = host
	}

	if model := clean(os.Getenv("OLLAMA_MODEL")); model != "" {
		c.Model = model
	}

	if api := clean(os.Getenv("OMD_API")); api != "" {
		c.API = strings.ToLower(api)
	}

	if pager, ok := os.LookupEnv("OMD_PAGER"); ok {
		c.Pager.Command = strings.TrimSpace(pager)
	}

	if render := clean(os.Getenv("OMD_RENDER_MARKDOWN")); render != "" {
		if b, err := strconv.ParseBool(render); err == nil {
			c.Pager.RenderMarkdown = b
		}
	}

	if level := clean(os.Getenv("OMD_LOG_LEVEL")); level != "" {
		c.Log.Level = strings.ToLower(level)
	}

	if noHistory := clean(os.Getenv("OMD_NOHISTORY")); noHistory != "" {
		if b, err := strconv.ParseBool(noHistory); err == nil && b {
			c.History.Enabled = false
		}
	}
}

// clean strips quotes and spaces from an environment value.
func clean(v string) string {
	return strings.Trim(v, "\"' ")
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration and returns a *ConfigError for the
// first problem found.
func (c *Config) Validate() error {
	switch c.API {
	case APIChat, APIGenerate:
	default:
		return &ConfigError{Key: "api", Value: c.API, Err: errors.New(`must be "chat" or "generate"`)}
	}

	if c.Sentinel == "" {
		return &ConfigError{Key: "sentinel", Err: errors.New("must not be empty")}
	}
	if strings.TrimSpace(c.Sentinel) != c.Sentinel {
		return &ConfigError{Key: "sentinel", Value: c.Sentinel, Err: errors.New("must not contain whitespace")}
	}

	if c.Pager.WordWrap < 0 {
		return &ConfigError{Key: "pager.word_wrap", Value: strconv.Itoa(c.Pager.WordWrap), Err: errors.New("must not be negative")}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Key: "log.level", Value: c.Log.Level, Err: errors.New("must be one of debug, info, warn, error")}
	}

	return nil
}
