// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router decides, per user turn, how a streamed reply reaches the
// terminal.
//
// A leading sentinel character (default "!") on the input line selects
// Paged mode: the whole reply is buffered and handed to a pager once the
// stream completes. Any other input selects Streaming mode: every chunk is
// printed the moment it is decoded.
//
// # Key Types
//
//   - DisplayMode: Streaming or Paged, fixed for one turn
//   - Command: Parsed input line (mode plus prompt with the sentinel stripped)
//   - Turn: One request/response cycle, for logging and history
//   - Router: Consumes a ChunkStream according to a DisplayMode
//
// # Usage
//
//	cmd := router.Parse(line, "!")
//	stream, err := client.Generate(ctx, ollama.GenerateRequest{Model: model, Prompt: cmd.Prompt})
//	if err != nil {
//	    return err
//	}
//	r := &router.Router{Out: os.Stdout, Pager: bridge}
//	text, err := r.Route(ctx, cmd.Mode, stream)
package router
