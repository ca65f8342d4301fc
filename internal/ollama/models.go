// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"fmt"
	"strings"
)

// DefaultModel is used when neither the user nor the server suggests one.
const DefaultModel = "llama3.1:latest"

// SelectModel picks the model for a session.
//
// A requested model must exist in available (a missing ":latest" tag is
// tolerated) unless available is empty, in which case it is trusted.
// Without a request, the first loaded model wins, then the first available
// one, then DefaultModel.
func SelectModel(requested string, loaded, available []ModelInfo) (string, error) {
	if requested != "" {
		if len(available) == 0 {
			return requested, nil
		}
		for _, candidate := range []string{requested, requested + ":latest"} {
			for _, m := range available {
				if m.Name == candidate {
					return candidate, nil
				}
			}
		}
		names := make([]string, 0, len(available))
		for _, m := range available {
			names = append(names, m.Name)
		}
		return "", fmt.Errorf("model %q not found; available models: %s", requested, strings.Join(names, ", "))
	}

	if len(loaded) > 0 {
		return loaded[0].Name, nil
	}
	if len(available) > 0 {
		return available[0].Name, nil
	}
	return DefaultModel, nil
}

// Discovery is the outcome of asking the server which models it has.
type Discovery struct {
	Model     string
	Available []ModelInfo
	Loaded    []ModelInfo
	// Err records why the server could not be asked. The fallback model
	// is still set.
	Err error
}

// DiscoverModel queries /api/tags and /api/ps and applies SelectModel.
// Network failures are reported in Discovery.Err rather than returned, so
// an unreachable server never prevents the session from starting. A
// requested model that the server does not have is returned as an error.
func (c *Client) DiscoverModel(ctx context.Context, requested string) (Discovery, error) {
	var d Discovery

	available, err := c.ListModels(ctx)
	if err != nil {
		d.Err = err
		d.Model = requested
		if d.Model == "" {
			d.Model = DefaultModel
		}
		return d, nil
	}
	d.Available = available

	if loaded, err := c.LoadedModels(ctx); err == nil {
		d.Loaded = loaded
	} else {
		d.Err = err
	}

	model, err := SelectModel(requested, d.Loaded, d.Available)
	if err != nil {
		return d, err
	}
	d.Model = model
	return d, nil
}
