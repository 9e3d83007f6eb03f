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

// Package wrapper binds a configurator to an agent lifecycle and
// translates agent event streams into uniform proxy chunks.
//
// One Wrapper serves one (user, session) pair. It lazily builds a
// single agent through its configurator and caches it until a
// credential store invalidates it. The streaming translator guarantees
// a well-formed chunk sequence: every stream ends with exactly one stop
// chunk, and errors surface as chunks, never as panics mid-iteration.
package wrapper

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agentllm/agentllm/pkg/configurator"
	"github.com/agentllm/agentllm/pkg/logger"
	"github.com/agentllm/agentllm/pkg/runtime"
)

// EnvMaxToolResultLength is the global default for the tool result
// display budget.
const EnvMaxToolResultLength = "AGENTLLM_MAX_TOOL_RESULT_LENGTH"

// FinishReasonStop marks the terminal chunk of a stream.
const FinishReasonStop = "stop"

// Chunk is the uniform streaming unit handed to the proxy layer.
type Chunk struct {
	Text         string
	FinishReason string
	Index        int
	IsFinished   bool
	ToolUse      *runtime.ToolCall
	Usage        runtime.Usage
}

// streamState tracks the translator's position in the event stream.
type streamState int

const (
	stateIdle streamState = iota
	stateReasoningBuffering
	stateEmitting
	stateDone
	stateErrored
)

// Wrapper owns the agent lifecycle for one (user, session) pair.
type Wrapper struct {
	cfg *configurator.Configurator
	log *slog.Logger

	// maxToolResultLength caps the displayed tool result; 0 = unlimited.
	maxToolResultLength int

	mu    sync.Mutex
	agent runtime.Agent
}

// Option customizes a Wrapper.
type Option func(*Wrapper)

// WithMaxToolResultLength overrides the tool result display budget.
// Takes precedence over the environment default.
func WithMaxToolResultLength(n int) Option {
	return func(w *Wrapper) { w.maxToolResultLength = n }
}

// New creates a wrapper around the given configurator. The tool result
// budget resolves as explicit option, then environment variable, then
// unlimited.
func New(cfg *configurator.Configurator, opts ...Option) *Wrapper {
	w := &Wrapper{
		cfg: cfg,
		log: logger.New("wrapper").With(
			"agent", cfg.Definition().Name(),
			"user_id", cfg.UserID(),
		),
	}

	if env := os.Getenv(EnvMaxToolResultLength); env != "" {
		if n, err := strconv.Atoi(env); err == nil && n > 0 {
			w.maxToolResultLength = n
		} else {
			w.log.Warn("ignoring invalid tool result length", "value", env)
		}
	}

	for _, opt := range opts {
		opt(w)
	}
	return w
}

// InvalidateAgentCache drops the cached agent so the next run rebuilds
// it from current credential state.
func (w *Wrapper) InvalidateAgentCache() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.agent != nil {
		w.agent = nil
		w.log.Debug("invalidated cached agent")
	}
}

func (w *Wrapper) getOrCreateAgent(ctx context.Context) (runtime.Agent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.agent != nil {
		return w.agent, nil
	}

	agent, err := w.cfg.BuildAgent(ctx)
	if err != nil {
		return nil, err
	}
	w.agent = agent
	return agent, nil
}

// Run executes one turn, buffered. Configuration responses come back as
// plain responses without reaching the agent.
func (w *Wrapper) Run(ctx context.Context, message string) (*runtime.Response, error) {
	config, err := w.cfg.HandleConfiguration(ctx, message)
	if err != nil {
		return nil, err
	}
	if config != nil {
		if config.Stored {
			w.InvalidateAgentCache()
		}
		return &runtime.Response{Text: config.Text}, nil
	}

	agent, err := w.getOrCreateAgent(ctx)
	if err != nil {
		return nil, err
	}
	return agent.Run(ctx, message)
}

// RunStream executes one turn as a chunk stream. The sequence always
// ends with exactly one stop chunk; configuration responses and errors
// are delivered as chunks.
func (w *Wrapper) RunStream(ctx context.Context, message string) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		config, err := w.cfg.HandleConfiguration(ctx, message)
		if err != nil {
			w.yieldErrorPair(yield, err)
			return
		}
		if config != nil {
			if config.Stored {
				w.InvalidateAgentCache()
			}
			if !yield(Chunk{Text: config.Text}) {
				return
			}
			yield(Chunk{FinishReason: FinishReasonStop, IsFinished: true})
			return
		}

		agent, err := w.getOrCreateAgent(ctx)
		if err != nil {
			w.yieldErrorPair(yield, err)
			return
		}

		w.translate(ctx, agent, message, yield)
	}
}

// translate runs the streaming state machine over one agent turn.
func (w *Wrapper) translate(ctx context.Context, agent runtime.Agent, message string, yield func(Chunk) bool) {
	state := stateIdle
	var reasoning strings.Builder
	var reasoningStart time.Time
	reasoningFlushed := false
	var usage runtime.Usage

	// flushReasoning emits the buffered thinking as one collapsible
	// block. Returns false when the consumer stopped pulling.
	flushReasoning := func() bool {
		if reasoningFlushed || reasoning.Len() == 0 {
			return true
		}
		reasoningFlushed = true
		seconds := int(time.Since(reasoningStart).Seconds())
		return yield(Chunk{Text: reasoningBlock(reasoning.String(), seconds)})
	}

	for event, err := range agent.RunStream(ctx, message) {
		if err != nil {
			state = stateErrored
			w.yieldErrorPair(yield, err)
			return
		}

		switch event.Kind {
		case runtime.EventThinking:
			if state != stateReasoningBuffering {
				state = stateReasoningBuffering
				if reasoning.Len() == 0 {
					reasoningStart = time.Now()
				}
			}
			reasoning.WriteString(event.Text)

		case runtime.EventContent:
			if event.Text == "" {
				continue
			}
			state = stateEmitting
			if !flushReasoning() {
				return
			}
			if !yield(Chunk{Text: event.Text}) {
				return
			}

		case runtime.EventToolCallStarted:
			if event.ToolCall != nil {
				w.log.Debug("tool call started", "tool", event.ToolCall.Name)
			}

		case runtime.EventToolCallCompleted:
			if event.ToolCall == nil {
				continue
			}
			state = stateEmitting
			if !flushReasoning() {
				return
			}
			block := toolCallBlock(event.ToolCall.Name, event.ToolCall.Args,
				event.ToolCall.Result, w.maxToolResultLength)
			if !yield(Chunk{Text: block, ToolUse: event.ToolCall}) {
				return
			}

		case runtime.EventCompleted:
			state = stateDone
			if event.Usage != nil {
				usage = *event.Usage
			}
		}

		if state == stateDone {
			break
		}
	}

	// A turn that was pure thinking still surfaces the reasoning.
	if !flushReasoning() {
		return
	}

	yield(Chunk{FinishReason: FinishReasonStop, IsFinished: true, Usage: usage})
}

// yieldErrorPair emits the terminal error chunk pair: an error-text
// chunk followed by the stop chunk. The proxy layer always sees a
// well-formed stream.
func (w *Wrapper) yieldErrorPair(yield func(Chunk) bool, err error) {
	w.log.Error("stream failed", "error", err)
	if !yield(Chunk{Text: fmt.Sprintf("❌ Error: %v", err)}) {
		return
	}
	yield(Chunk{FinishReason: FinishReasonStop, IsFinished: true})
}
