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

// Package runtime defines the agent runtime contract.
//
// The rest of the module treats an agent as an opaque conversational
// collaborator: it takes a message, may call tools, and produces text.
// Configuration handling, credential extraction, and stream formatting
// all happen outside this boundary.
package runtime

import (
	"context"
	"iter"

	"github.com/agentllm/agentllm/pkg/tool"
)

// EventKind discriminates streamed agent events.
type EventKind int

const (
	// EventContent is a fragment of the agent's answer text.
	EventContent EventKind = iota
	// EventThinking is a fragment of the model's reasoning text.
	EventThinking
	// EventToolCallStarted marks the start of a tool invocation.
	EventToolCallStarted
	// EventToolCallCompleted carries a finished tool invocation with its
	// arguments and result.
	EventToolCallCompleted
	// EventCompleted is the terminal event; it may carry usage totals.
	EventCompleted
)

// ToolCall describes one tool invocation made by the agent.
type ToolCall struct {
	ID     string
	Name   string
	Args   map[string]any
	Result string
}

// Usage aggregates token counts for one run.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Event is one element of an agent's output stream.
type Event struct {
	Kind     EventKind
	Text     string
	ToolCall *ToolCall
	Usage    *Usage
}

// Response is a fully buffered agent answer.
type Response struct {
	Text      string
	ToolCalls []ToolCall
	Usage     Usage
}

// Params describes the agent to build. Instructions are joined in order
// with blank lines between entries to form the system instruction.
type Params struct {
	Name        string
	Description string
	Model       string

	Temperature     *float64
	MaxOutputTokens int

	Instructions []string
	Toolkits     []tool.Toolkit

	// UserID and SessionID bind the agent to one conversation.
	UserID    string
	SessionID string

	// ModelOptions carries provider-specific extras (e.g. thinking
	// budgets) that agent definitions may set.
	ModelOptions map[string]any
}

// Agent is a conversational agent bound to one user and session. It
// keeps its own conversation history across calls.
type Agent interface {
	// Run sends a message and returns the buffered response.
	Run(ctx context.Context, message string) (*Response, error)

	// RunStream sends a message and yields events as they arrive. The
	// sequence ends with EventCompleted unless an error is yielded.
	RunStream(ctx context.Context, message string) iter.Seq2[*Event, error]
}

// Builder constructs an Agent from resolved parameters.
type Builder func(ctx context.Context, params Params) (Agent, error)
