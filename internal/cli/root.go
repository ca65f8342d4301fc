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
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/omd/internal/config"
	"github.com/jeranaias/omd/internal/ollama"
	"github.com/jeranaias/omd/internal/pager"
	"github.com/jeranaias/omd/internal/router"
)

// errTurnFailed marks a one-shot turn whose error was already reported.
var errTurnFailed = errors.New("turn failed")

// rootOptions holds the parsed command line flags.
type rootOptions struct {
	version    string
	configPath string
	model      string
	api        string
	pager      string
	forceMD    bool
	listModels bool
	clipboard  bool
	verbose    bool

	// newInput overrides input selection in tests.
	newInput func(cfg *config.Config) LineReader
	// clipboardImpl overrides the system clipboard in tests.
	clipboardImpl Clipboard
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCommand creates the omd command.
func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(&rootOptions{version: version})
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "omd [flags] [prompt...]",
		Short: "Chat with a local Ollama model in the terminal",
		Long: `omd is an interactive Ollama client.

Replies stream to the terminal as they are generated. Start a prompt with
"!" to have the complete reply rendered as markdown and shown in a pager.
Any arguments after the flags are sent as a single prompt and omd exits.`,
		Example: `  omd
  omd -m qwen2.5-coder "explain this regex: ^a+$"
  omd "!write a README for a todo app"
  OMD_PAGER="less -R" omd`,
		Version:       opts.version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.model, "model", "m", "", "model to chat with (default: first loaded model)")
	flags.BoolVarP(&opts.forceMD, "force-md", "f", false, "show every reply in the pager")
	flags.BoolVarP(&opts.listModels, "list-models", "l", false, "list installed models and exit")
	flags.BoolVarP(&opts.clipboard, "clipboard", "c", false, "copy each reply to the clipboard")
	flags.StringVar(&opts.configPath, "config", "", "config file (default: ~/.omd/config.toml)")
	flags.StringVar(&opts.api, "api", "", `API to use: "chat" or "generate"`)
	flags.StringVar(&opts.pager, "pager", "", `pager command, e.g. "less -R" ("builtin" for the built-in viewer)`)
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context, version string) int {
	return execute(ctx, NewRootCommand(version), os.Stderr)
}

func execute(ctx context.Context, cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if !errors.Is(err, errTurnFailed) {
		kind := ""
		if config.IsConfigError(err) {
			kind = "config"
		}
		fmt.Fprintln(stderr, newTheme(stderr).RenderError(kind, err.Error()))
	}
	return 1
}

// =============================================================================
// STARTUP
// =============================================================================

func (o *rootOptions) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	if err := config.LoadDotenv(".env", config.DotenvPath()); err != nil {
		return &config.ConfigError{Key: ".env", Err: err}
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if err := o.applyFlags(cmd, cfg); err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg.Log, o.verbose, stderr)
	if err != nil {
		return &config.ConfigError{Key: "log.file", Value: cfg.Log.File, Err: err}
	}
	defer closeLog()

	endpoint, err := config.ResolveEndpoint(cfg.Host)
	if err != nil {
		return err
	}
	logger.Debug("resolved endpoint", "endpoint", endpoint.String())

	client := ollama.NewClientWithConfig(ollama.ClientConfig{
		Endpoint:  endpoint,
		UserAgent: "omd/" + o.version,
	})
	theme := newTheme(stdout)

	if o.listModels {
		models, err := client.ListModels(ctx)
		if err != nil {
			return err
		}
		printModels(stdout, models, cfg.Model)
		return nil
	}

	discovery, err := client.DiscoverModel(ctx, cfg.Model)
	if err != nil {
		return &config.ConfigError{Key: "model", Value: cfg.Model, Err: err}
	}
	if discovery.Err != nil {
		logger.Warn("could not query models, using fallback", "model", discovery.Model, "error", discovery.Err)
		if err := client.CheckRunning(ctx); ollama.IsTransport(err) {
			fmt.Fprintln(stderr, theme.RenderWarning(fmt.Sprintf("Ollama is not reachable at %s; is it running?", endpoint)))
		}
	}
	logger.Debug("selected model", "model", discovery.Model, "available", len(discovery.Available))

	bridge := &pager.Bridge{
		Command:        cfg.Pager.Command,
		RenderMarkdown: cfg.Pager.RenderMarkdown,
		Style:          cfg.Pager.Style,
		WordWrap:       wrapWidth(cfg.Pager.WordWrap),
		Theme:          theme,
		Logger:         logger,
		Stdin:          cmd.InOrStdin(),
		Stdout:         stdout,
		Stderr:         stderr,
	}

	session := &Session{
		Client:   client,
		Model:    discovery.Model,
		API:      cfg.API,
		System:   cfg.System,
		Sentinel: cfg.Sentinel,
		Router: &router.Router{
			Out:    stdout,
			Pager:  bridge,
			Force:  o.forceMD,
			Logger: logger,
		},
		CopyReplies: o.clipboard,
		Clipboard:   o.clipboardImpl,
		Theme:       theme,
		Logger:      logger,
		Stdout:      stdout,
		Stderr:      stderr,
	}
	if session.Clipboard == nil {
		session.Clipboard = SystemClipboard()
	}

	// One-shot mode: the arguments are a single prompt.
	if len(args) > 0 {
		turn := session.Turn(ctx, strings.Join(args, " "))
		if turn.Err != nil {
			session.report(turn)
			return errTurnFailed
		}
		return nil
	}

	input := o.input(cmd, cfg, logger)
	defer input.Close()

	session.Input = input
	session.ShowLabels = true
	session.info(fmt.Sprintf("Chatting with %s at %s. Type /help for commands.", session.Model, endpoint))

	if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// applyFlags layers explicitly set flags over the loaded configuration.
func (o *rootOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model = o.model
	}
	if flags.Changed("api") {
		cfg.API = strings.ToLower(o.api)
	}
	if flags.Changed("pager") {
		cfg.Pager.Command = o.pager
	}
	if cfg.Pager.Command == pager.BuiltinCommand {
		cfg.Pager.Command = ""
	}
	return cfg.Validate()
}

// input picks the line editor for terminals and a plain reader otherwise.
func (o *rootOptions) input(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) LineReader {
	if o.newInput != nil {
		return o.newInput(cfg)
	}
	in := cmd.InOrStdin()
	if isTerminal(in) && isTerminal(cmd.OutOrStdout()) {
		return NewEditorReader(cfg.HistoryPath(), logger)
	}
	return NewPlainReader(in, cmd.OutOrStdout())
}
