// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// Requests are sent with streaming enabled and the newline-delimited JSON
// reply is decoded lazily, one line per Next call, so the first chunk is
// available as soon as the server flushes it.
//
// # Key Types
//
//   - Client: HTTP client bound to a resolved config.Endpoint
//   - Stream: Finite, non-restartable sequence of Chunks over one response body
//   - Chunk: One piece of decoded response text
//   - ClientError: Transport, decode and server failures
//
// # Usage
//
//	client := ollama.NewClient(endpoint)
//	stream, err := client.Chat(ctx, "llama3.1", []ollama.Message{ollama.NewUserMessage("Hello")})
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for chunk, err := range stream.All() {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(chunk.Content)
//	}
package ollama
