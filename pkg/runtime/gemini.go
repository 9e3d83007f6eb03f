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

package runtime

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/agentllm/agentllm/pkg/logger"
	"github.com/agentllm/agentllm/pkg/tool"
)

// maxToolIterations bounds the model/tool round-trip loop per message.
const maxToolIterations = 10

// geminiAgent is a Gemini-backed Agent using the official genai SDK.
// It keeps the conversation history for its (user, session) binding and
// executes tool calls between model turns.
type geminiAgent struct {
	client *genai.Client
	params Params
	tools  map[string]tool.Tool
	log    interface {
		Debug(msg string, args ...any)
		Warn(msg string, args ...any)
	}

	mu      sync.Mutex
	history []*genai.Content
}

// NewGeminiBuilder returns a Builder producing Gemini-backed agents.
// The API key is resolved once; each built agent shares the client
// configuration but keeps its own history.
func NewGeminiBuilder(apiKey string) (Builder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	return func(ctx context.Context, params Params) (Agent, error) {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: apiKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}

		if params.Model == "" {
			params.Model = "gemini-2.0-flash"
		}

		tools := make(map[string]tool.Tool)
		for _, tk := range params.Toolkits {
			for _, t := range tk.Tools() {
				tools[t.Name()] = t
			}
		}

		return &geminiAgent{
			client: client,
			params: params,
			tools:  tools,
			log:    logger.New("runtime.gemini"),
		}, nil
	}, nil
}

func (a *geminiAgent) systemInstruction() *genai.Content {
	if len(a.params.Instructions) == 0 {
		return nil
	}
	return &genai.Content{
		Parts: []*genai.Part{{Text: strings.Join(a.params.Instructions, "\n\n")}},
		Role:  "user",
	}
}

func (a *geminiAgent) buildConfig() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		SystemInstruction: a.systemInstruction(),
	}

	if a.params.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*a.params.Temperature))
	}
	if a.params.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(a.params.MaxOutputTokens)
	}

	thinking := &genai.ThinkingConfig{IncludeThoughts: true}
	if raw, ok := a.params.ModelOptions["thinking_budget"]; ok {
		if budget, ok := raw.(int); ok && budget > 0 {
			b := int32(budget)
			thinking.ThinkingBudget = &b
		}
	}
	config.ThinkingConfig = thinking

	if len(a.tools) > 0 {
		config.Tools = a.buildTools()
	}

	return config
}

func (a *geminiAgent) buildTools() []*genai.Tool {
	var genaiTools []*genai.Tool
	for _, tk := range a.params.Toolkits {
		for _, t := range tk.Tools() {
			genaiTools = append(genaiTools, &genai.Tool{
				FunctionDeclarations: []*genai.FunctionDeclaration{
					{
						Name:        t.Name(),
						Description: t.Description(),
						Parameters:  toGenaiSchema(t.Parameters()),
					},
				},
			})
		}
	}
	return genaiTools
}

func toGenaiSchema(params []tool.Parameter) *genai.Schema {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema),
	}

	for _, p := range params {
		prop := &genai.Schema{Description: p.Description}
		switch p.Type {
		case "integer":
			prop.Type = genai.TypeInteger
		case "number":
			prop.Type = genai.TypeNumber
		case "boolean":
			prop.Type = genai.TypeBoolean
		default:
			prop.Type = genai.TypeString
		}
		if len(p.Enum) > 0 {
			prop.Enum = p.Enum
		}
		schema.Properties[p.Name] = prop
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}

	return schema
}

// stableCallID derives a deterministic ID for a function call when the
// provider omits one.
func stableCallID(name string, args map[string]any) string {
	data, _ := json.Marshal(map[string]any{"name": name, "args": args})
	hash := sha256.Sum256(data)
	return fmt.Sprintf("call-%x", hash[:8])
}

func (a *geminiAgent) executeTool(ctx context.Context, call *genai.FunctionCall) *ToolCall {
	tc := &ToolCall{
		ID:   call.ID,
		Name: call.Name,
		Args: call.Args,
	}
	if tc.ID == "" {
		tc.ID = stableCallID(call.Name, call.Args)
	}

	t, ok := a.tools[call.Name]
	if !ok {
		tc.Result = fmt.Sprintf("Error: unknown tool %q", call.Name)
		a.log.Warn("model requested unknown tool", "tool", call.Name)
		return tc
	}

	result, err := t.Call(ctx, call.Args)
	if err != nil {
		// Tool failures are reported back to the model as results so it
		// can recover or explain, rather than aborting the run.
		tc.Result = fmt.Sprintf("Error: %v", err)
		a.log.Warn("tool call failed", "tool", call.Name, "error", err)
		return tc
	}

	tc.Result = result
	a.log.Debug("tool call completed", "tool", call.Name, "result_chars", len(result))
	return tc
}

func functionResponseContent(calls []*ToolCall) *genai.Content {
	parts := make([]*genai.Part, 0, len(calls))
	for _, tc := range calls {
		parts = append(parts, &genai.Part{
			FunctionResponse: &genai.FunctionResponse{
				ID:       tc.ID,
				Name:     tc.Name,
				Response: map[string]any{"result": tc.Result},
			},
		})
	}
	return &genai.Content{Parts: parts, Role: "user"}
}

// Run sends a message and buffers the full response, executing tool
// calls between model turns.
func (a *geminiAgent) Run(ctx context.Context, message string) (*Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = append(a.history, &genai.Content{
		Parts: []*genai.Part{{Text: message}},
		Role:  "user",
	})

	config := a.buildConfig()
	resp := &Response{}
	var text strings.Builder

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		genResp, err := a.client.Models.GenerateContent(ctx, a.params.Model, a.history, config)
		if err != nil {
			return nil, fmt.Errorf("generation failed: %w", err)
		}
		if len(genResp.Candidates) == 0 || genResp.Candidates[0].Content == nil {
			return nil, fmt.Errorf("empty response from model")
		}

		if genResp.UsageMetadata != nil {
			resp.Usage.PromptTokens += int(genResp.UsageMetadata.PromptTokenCount)
			resp.Usage.CompletionTokens += int(genResp.UsageMetadata.CandidatesTokenCount)
			resp.Usage.TotalTokens += int(genResp.UsageMetadata.TotalTokenCount)
		}

		candidate := genResp.Candidates[0]
		a.history = append(a.history, candidate.Content)

		var calls []*ToolCall
		for _, part := range candidate.Content.Parts {
			if part.Text != "" && !part.Thought {
				text.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				calls = append(calls, a.executeTool(ctx, part.FunctionCall))
			}
		}

		if len(calls) == 0 {
			resp.Text = text.String()
			return resp, nil
		}

		for _, tc := range calls {
			resp.ToolCalls = append(resp.ToolCalls, *tc)
		}
		a.history = append(a.history, functionResponseContent(calls))
	}

	return nil, fmt.Errorf("tool iteration limit reached (%d)", maxToolIterations)
}

// RunStream sends a message and yields events as the model produces
// them. Tool calls are executed inline between streaming turns.
func (a *geminiAgent) RunStream(ctx context.Context, message string) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.history = append(a.history, &genai.Content{
			Parts: []*genai.Part{{Text: message}},
			Role:  "user",
		})

		config := a.buildConfig()
		usage := &Usage{}

		for iteration := 0; iteration < maxToolIterations; iteration++ {
			pendingCalls, done, ok := a.streamOneTurn(ctx, config, usage, yield)
			if !ok {
				return
			}
			if done {
				yield(&Event{Kind: EventCompleted, Usage: usage}, nil)
				return
			}

			var executed []*ToolCall
			for _, call := range pendingCalls {
				started := &ToolCall{ID: call.ID, Name: call.Name, Args: call.Args}
				if started.ID == "" {
					started.ID = stableCallID(call.Name, call.Args)
				}
				if !yield(&Event{Kind: EventToolCallStarted, ToolCall: started}, nil) {
					return
				}

				tc := a.executeTool(ctx, call)
				if !yield(&Event{Kind: EventToolCallCompleted, ToolCall: tc}, nil) {
					return
				}
				executed = append(executed, tc)
			}
			a.history = append(a.history, functionResponseContent(executed))
		}

		yield(nil, fmt.Errorf("tool iteration limit reached (%d)", maxToolIterations))
	}
}

// streamOneTurn streams a single model turn. It returns the function
// calls requested (if any), whether the conversation turn is finished,
// and whether the consumer is still listening.
func (a *geminiAgent) streamOneTurn(
	ctx context.Context,
	config *genai.GenerateContentConfig,
	usage *Usage,
	yield func(*Event, error) bool,
) (calls []*genai.FunctionCall, done bool, ok bool) {
	var modelParts []*genai.Part
	seenCallIDs := make(map[string]bool)

	for genResp, err := range a.client.Models.GenerateContentStream(ctx, a.params.Model, a.history, config) {
		if err != nil {
			yield(nil, fmt.Errorf("streaming generation failed: %w", err))
			return nil, false, false
		}
		if len(genResp.Candidates) == 0 {
			continue
		}

		if genResp.UsageMetadata != nil {
			// Usage metadata is cumulative per turn; overwrite rather
			// than accumulate within the turn.
			usage.PromptTokens = int(genResp.UsageMetadata.PromptTokenCount)
			usage.CompletionTokens = int(genResp.UsageMetadata.CandidatesTokenCount)
			usage.TotalTokens = int(genResp.UsageMetadata.TotalTokenCount)
		}

		candidate := genResp.Candidates[0]
		if candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			modelParts = append(modelParts, part)

			if part.Text != "" {
				kind := EventContent
				if part.Thought {
					kind = EventThinking
				}
				if !yield(&Event{Kind: kind, Text: part.Text}, nil) {
					return nil, false, false
				}
			}

			if part.FunctionCall != nil {
				id := part.FunctionCall.ID
				if id == "" {
					id = stableCallID(part.FunctionCall.Name, part.FunctionCall.Args)
				}
				if seenCallIDs[id] {
					continue
				}
				seenCallIDs[id] = true
				calls = append(calls, part.FunctionCall)
			}
		}
	}

	if len(modelParts) > 0 {
		a.history = append(a.history, &genai.Content{Parts: modelParts, Role: "model"})
	}

	return calls, len(calls) == 0, true
}
