// Copyright 2025 The AgentLLM Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tool defines the toolkit and tool contracts exposed to agent
// runtimes, plus the service-backed toolkit implementations (Jira,
// GitHub, Google Drive, Red Hat Customer Portal, web fetch, color).
//
// A Toolkit groups the tools of one integration and is constructed
// per user with that user's stored credentials. Tools return their
// results as plain strings; structured results are JSON-encoded so the
// display layer can detect and pretty-print them.
package tool

import (
	"context"
	"fmt"
)

// Parameter describes one tool argument for function-calling schemas.
type Parameter struct {
	Name        string
	Type        string // "string", "integer", "number", "boolean"
	Description string
	Required    bool
	Enum        []string
}

// Tool is a single callable exposed to the model.
type Tool interface {
	Name() string
	Description() string
	Parameters() []Parameter
	Call(ctx context.Context, args map[string]any) (string, error)
}

// Toolkit groups related tools behind one integration.
type Toolkit interface {
	Name() string
	Tools() []Tool
}

// FuncTool adapts a plain function into a Tool.
type FuncTool struct {
	ToolName        string
	ToolDescription string
	ToolParameters  []Parameter
	Fn              func(ctx context.Context, args map[string]any) (string, error)
}

func (t *FuncTool) Name() string            { return t.ToolName }
func (t *FuncTool) Description() string     { return t.ToolDescription }
func (t *FuncTool) Parameters() []Parameter { return t.ToolParameters }

func (t *FuncTool) Call(ctx context.Context, args map[string]any) (string, error) {
	return t.Fn(ctx, args)
}

// StringArg extracts a required string argument.
func StringArg(args map[string]any, name string) (string, error) {
	raw, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", name, raw)
	}
	return s, nil
}

// OptionalStringArg extracts an optional string argument, returning the
// fallback when absent.
func OptionalStringArg(args map[string]any, name, fallback string) string {
	if raw, ok := args[name]; ok {
		if s, ok := raw.(string); ok {
			return s
		}
	}
	return fallback
}

// IntArg extracts an optional integer argument. JSON decoding yields
// float64 for numbers, so both are accepted.
func IntArg(args map[string]any, name string, fallback int) int {
	raw, ok := args[name]
	if !ok {
		return fallback
	}
	switch v := raw.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
