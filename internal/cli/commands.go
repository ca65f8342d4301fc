// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/jeranaias/omd/internal/ollama"
)

// modelQueryTimeout bounds the model list requests made by slash commands.
const modelQueryTimeout = 5 * time.Second

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes a slash command. Exit commands are handled
// by the loop before this is called.
func (s *Session) handleSlashCommand(ctx context.Context, input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		s.printHelp()
		return nil

	case "/clear", "/c":
		s.messages = nil
		s.success("Conversation cleared")
		return nil

	case "/model", "/m":
		return s.handleModelCommand(ctx, args)

	case "/models":
		return s.handleModelsCommand(ctx)

	default:
		return fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

// handleModelCommand shows or switches the session model.
func (s *Session) handleModelCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		s.info("Current model: " + s.Model)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, modelQueryTimeout)
	defer cancel()

	requested := args[0]
	available, err := s.Client.ListModels(ctx)
	if err != nil {
		// Server unreachable; trust the name and let the next turn fail.
		s.warn(fmt.Sprintf("could not verify model %q: %v", requested, err))
		s.Model = requested
		s.success("Switched to model: " + s.Model)
		return nil
	}

	model, err := ollama.SelectModel(requested, nil, available)
	if err != nil {
		return err
	}
	s.Model = model
	s.success("Switched to model: " + s.Model)
	return nil
}

// handleModelsCommand lists the models the server has.
func (s *Session) handleModelsCommand(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, modelQueryTimeout)
	defer cancel()

	models, err := s.Client.ListModels(ctx)
	if err != nil {
		return err
	}
	printModels(s.Stdout, models, s.Model)
	return nil
}

// printModels writes the models as a table. The current model is marked.
func printModels(w io.Writer, models []ollama.ModelInfo, current string) {
	if len(models) == 0 {
		fmt.Fprintln(w, "No models installed. Pull one with: ollama pull <model>")
		return
	}

	data := make([][]string, 0, len(models))
	for i := range models {
		m := &models[i]
		name := m.Name
		if name == current {
			name += " *"
		}
		data = append(data, []string{name, m.Details.Family, m.Details.ParameterSize, m.FormatSize()})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"NAME", "FAMILY", "PARAMETERS", "SIZE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

func (s *Session) printHelp() {
	sentinel := s.Sentinel
	fmt.Fprintf(s.Stdout, `Commands:
  /help            Show this help
  /clear           Forget the conversation so far
  /model [name]    Show or switch the model
  /models          List installed models
  /bye             Exit (also /exit, /quit, Ctrl-D)

Prompts:
  %s<prompt>        Show the complete reply in the pager
  %s                Replaced with the clipboard contents
`, sentinel, ClipboardToken)
}
