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

package wrapper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentllm/agentllm/pkg/configurator"
	"github.com/agentllm/agentllm/pkg/knowledge"
	"github.com/agentllm/agentllm/pkg/runtime"
	"github.com/agentllm/agentllm/pkg/tool"
	"github.com/agentllm/agentllm/pkg/toolkit"
)

// promptConfig is a minimal required config that prompts until it sees
// its trigger word in a message.
type promptConfig struct {
	configured bool
}

func (c *promptConfig) Name() string               { return "prompt" }
func (c *promptConfig) Required() bool             { return true }
func (c *promptConfig) Configured(string) bool     { return c.configured }
func (c *promptConfig) ConfigPrompt(string) string { return "please provide your token" }

func (c *promptConfig) ExtractAndStore(_ context.Context, message, _ string) (string, error) {
	if strings.Contains(message, "secret") {
		c.configured = true
		return "✅ token stored", nil
	}
	return "", nil
}

func (c *promptConfig) Toolkit(context.Context, string) (tool.Toolkit, error) { return nil, nil }
func (c *promptConfig) CheckAuthorizationRequest(string, string) string       { return "" }
func (c *promptConfig) AgentInstructions(context.Context, string) ([]string, error) {
	return nil, nil
}

// testDefinition is an agent definition with optional configs.
type testDefinition struct {
	configs []toolkit.Config
}

func (d *testDefinition) Name() string                 { return "test-agent" }
func (d *testDefinition) Description() string          { return "test" }
func (d *testDefinition) Model() string                { return "" }
func (d *testDefinition) Instructions() []string       { return nil }
func (d *testDefinition) Configs() []toolkit.Config    { return d.configs }
func (d *testDefinition) Knowledge() *knowledge.Config { return nil }
func (d *testDefinition) ModelOptions() map[string]any { return nil }

func newWrapper(agent *runtime.ScriptedAgent, configs []toolkit.Config, opts ...Option) *Wrapper {
	cfg := configurator.New(&testDefinition{configs: configs}, runtime.ScriptedBuilder(agent), "u1", "s1")
	return New(cfg, opts...)
}

func collect(stream func(func(Chunk) bool)) []Chunk {
	var chunks []Chunk
	for chunk := range stream {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// requireWellFormed asserts the stream ends with exactly one stop chunk.
func requireWellFormed(t *testing.T, chunks []Chunk) {
	t.Helper()
	require.NotEmpty(t, chunks)
	last := chunks[len(chunks)-1]
	assert.True(t, last.IsFinished)
	assert.Equal(t, FinishReasonStop, last.FinishReason)
	for _, chunk := range chunks[:len(chunks)-1] {
		assert.False(t, chunk.IsFinished)
	}
}

func TestRunStreamPlainText(t *testing.T) {
	agent := &runtime.ScriptedAgent{Script: runtime.TextScript("hello there")}
	w := newWrapper(agent, nil)

	chunks := collect(w.RunStream(context.Background(), "hi"))
	requireWellFormed(t, chunks)
	require.Len(t, chunks, 2)
	assert.Equal(t, "hello there", chunks[0].Text)
}

func TestRunStreamBuffersReasoningIntoOneBlock(t *testing.T) {
	agent := &runtime.ScriptedAgent{Script: []runtime.ScriptedEvent{
		{Event: &runtime.Event{Kind: runtime.EventThinking, Text: "step one\n"}},
		{Event: &runtime.Event{Kind: runtime.EventThinking, Text: "step two"}},
		{Event: &runtime.Event{Kind: runtime.EventContent, Text: "the answer"}},
		{Event: &runtime.Event{Kind: runtime.EventCompleted}},
	}}
	w := newWrapper(agent, nil)

	chunks := collect(w.RunStream(context.Background(), "why?"))
	requireWellFormed(t, chunks)
	require.Len(t, chunks, 3)

	reasoning := chunks[0].Text
	assert.Contains(t, reasoning, `<details type="reasoning" done="true"`)
	assert.Contains(t, reasoning, "Thought for")
	assert.Contains(t, reasoning, "> step one")
	assert.Contains(t, reasoning, "> step two")
	assert.Equal(t, 1, strings.Count(reasoning, "<details"))

	assert.Equal(t, "the answer", chunks[1].Text)
}

func TestRunStreamPureThinkingTurnStillSurfacesReasoning(t *testing.T) {
	agent := &runtime.ScriptedAgent{Script: []runtime.ScriptedEvent{
		{Event: &runtime.Event{Kind: runtime.EventThinking, Text: "hmm"}},
		{Event: &runtime.Event{Kind: runtime.EventCompleted}},
	}}
	w := newWrapper(agent, nil)

	chunks := collect(w.RunStream(context.Background(), "hi"))
	requireWellFormed(t, chunks)
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].Text, "> hmm")
}

func TestRunStreamRendersToolCallBlock(t *testing.T) {
	call := &runtime.ToolCall{
		Name:   "search_issues",
		Args:   map[string]any{"jql": "project = RHIDP"},
		Result: `{"total": 2}`,
	}
	agent := &runtime.ScriptedAgent{Script: []runtime.ScriptedEvent{
		{Event: &runtime.Event{Kind: runtime.EventToolCallStarted, ToolCall: call}},
		{Event: &runtime.Event{Kind: runtime.EventToolCallCompleted, ToolCall: call}},
		{Event: &runtime.Event{Kind: runtime.EventContent, Text: "found 2 issues"}},
		{Event: &runtime.Event{Kind: runtime.EventCompleted}},
	}}
	w := newWrapper(agent, nil)

	chunks := collect(w.RunStream(context.Background(), "search"))
	requireWellFormed(t, chunks)
	require.Len(t, chunks, 3)

	block := chunks[0].Text
	assert.Contains(t, block, `<details type="tool_call" open="true">`)
	assert.Contains(t, block, "🔧 Tool: search_issues")
	assert.Contains(t, block, `"jql": "project = RHIDP"`)
	assert.Contains(t, block, "```json")
	assert.Contains(t, block, `"total": 2`)
	assert.Contains(t, block, "✅ Completed")
	assert.Same(t, call, chunks[0].ToolUse)
}

func TestRunStreamCarriesUsageOnStopChunk(t *testing.T) {
	agent := &runtime.ScriptedAgent{Script: []runtime.ScriptedEvent{
		{Event: &runtime.Event{Kind: runtime.EventContent, Text: "ok"}},
		{Event: &runtime.Event{Kind: runtime.EventCompleted,
			Usage: &runtime.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}},
	}}
	w := newWrapper(agent, nil)

	chunks := collect(w.RunStream(context.Background(), "hi"))
	requireWellFormed(t, chunks)
	assert.Equal(t, 15, chunks[len(chunks)-1].Usage.TotalTokens)
}

func TestRunStreamAgentErrorYieldsErrorPair(t *testing.T) {
	agent := &runtime.ScriptedAgent{Script: []runtime.ScriptedEvent{
		{Event: &runtime.Event{Kind: runtime.EventContent, Text: "partial"}},
		{Err: errors.New("model overloaded")},
	}}
	w := newWrapper(agent, nil)

	chunks := collect(w.RunStream(context.Background(), "hi"))
	requireWellFormed(t, chunks)
	require.Len(t, chunks, 3)
	assert.Equal(t, "partial", chunks[0].Text)
	assert.Equal(t, "❌ Error: model overloaded", chunks[1].Text)
}

func TestRunStreamConfigPromptShortCircuitsAgent(t *testing.T) {
	agent := &runtime.ScriptedAgent{Script: runtime.TextScript("never reached")}
	w := newWrapper(agent, []toolkit.Config{&promptConfig{}})

	chunks := collect(w.RunStream(context.Background(), "hello"))
	requireWellFormed(t, chunks)
	require.Len(t, chunks, 2)
	assert.Equal(t, "please provide your token", chunks[0].Text)
	assert.Empty(t, agent.Messages())
}

func TestRunInvalidatesAgentOnCredentialStore(t *testing.T) {
	cfg := &promptConfig{configured: true}
	def := &testDefinition{configs: []toolkit.Config{cfg}}

	builds := 0
	builder := func(_ context.Context, params runtime.Params) (runtime.Agent, error) {
		builds++
		return &runtime.ScriptedAgent{Script: runtime.TextScript("ok"), Params: params}, nil
	}
	w := New(configurator.New(def, builder, "u1", "s1"))

	// First turn builds and caches the agent.
	_, err := w.Run(context.Background(), "hello")
	require.NoError(t, err)
	_, err = w.Run(context.Background(), "hello again")
	require.NoError(t, err)
	assert.Equal(t, 1, builds)

	// Storing a credential invalidates the cache.
	resp, err := w.Run(context.Background(), "here is my secret")
	require.NoError(t, err)
	assert.Equal(t, "✅ token stored", resp.Text)

	_, err = w.Run(context.Background(), "hello once more")
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
}

func TestRunBuildFailureIsAnError(t *testing.T) {
	builder := func(context.Context, runtime.Params) (runtime.Agent, error) {
		return nil, errors.New("no api key")
	}
	w := New(configurator.New(&testDefinition{}, builder, "u1", "s1"))

	_, err := w.Run(context.Background(), "hello")
	require.Error(t, err)

	// The streaming path surfaces the same failure as chunks.
	chunks := collect(w.RunStream(context.Background(), "hello"))
	requireWellFormed(t, chunks)
	assert.Contains(t, chunks[0].Text, "❌ Error:")
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 500)

	assert.Equal(t, long, truncate(long, 0))
	assert.Equal(t, "short", truncate("short", 100))

	cut := truncate(long, 100)
	assert.True(t, strings.HasPrefix(cut, strings.Repeat("x", 100)))
	assert.True(t, strings.HasSuffix(cut, "... (truncated, 500 chars total)"))
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	multibyte := strings.Repeat("héllo wörld ", 50)

	cut := truncate(multibyte, 100)
	assert.True(t, utf8.ValidString(cut))
	assert.True(t, strings.HasPrefix(cut, string([]rune(multibyte)[:100])))
	assert.True(t, strings.HasSuffix(cut,
		fmt.Sprintf("... (truncated, %d chars total)", utf8.RuneCountInString(multibyte))))

	// A string that fits its rune budget is returned as-is even when its
	// byte length exceeds it.
	emoji := strings.Repeat("🔧", 80)
	assert.Equal(t, emoji, truncate(emoji, 80))
}

func TestFormatToolResult(t *testing.T) {
	tests := []struct {
		name   string
		result string
		budget int
		want   []string
	}{
		{"plain text passes through", "all good", 0, []string{"all good"}},
		{"json object gets fenced", `{"b":1,"a":2}`, 0, []string{"```json", `"a": 2`, `"b": 1`}},
		{"json array gets fenced", `[1,2,3]`, 0, []string{"```json", "1,\n  2,\n  3"}},
		{"bare json scalar stays text", `42`, 0, []string{"42"}},
		{"truncated inside fence", `{"key":"` + strings.Repeat("v", 300) + `"}`, 50,
			[]string{"```json", "truncated,"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatToolResult(tt.result, tt.budget)
			for _, fragment := range tt.want {
				assert.Contains(t, got, fragment)
			}
		})
	}
}

func TestMaxToolResultLengthResolution(t *testing.T) {
	cfg := func() *configurator.Configurator {
		agent := &runtime.ScriptedAgent{Script: runtime.TextScript("ok")}
		return configurator.New(&testDefinition{}, runtime.ScriptedBuilder(agent), "u1", "s1")
	}

	t.Run("default is unlimited", func(t *testing.T) {
		assert.Equal(t, 0, New(cfg()).maxToolResultLength)
	})

	t.Run("environment sets the budget", func(t *testing.T) {
		t.Setenv(EnvMaxToolResultLength, "2048")
		assert.Equal(t, 2048, New(cfg()).maxToolResultLength)
	})

	t.Run("option wins over environment", func(t *testing.T) {
		t.Setenv(EnvMaxToolResultLength, "2048")
		assert.Equal(t, 100, New(cfg(), WithMaxToolResultLength(100)).maxToolResultLength)
	})

	t.Run("invalid environment value is ignored", func(t *testing.T) {
		t.Setenv(EnvMaxToolResultLength, "not-a-number")
		assert.Equal(t, 0, New(cfg()).maxToolResultLength)
	})
}

func TestToolCallBlockEmptyArgs(t *testing.T) {
	block := toolCallBlock("get_issue", nil, "done", 0)
	assert.Contains(t, block, "```json\n{}\n```")
	assert.Contains(t, block, fmt.Sprintf("🔧 Tool: %s", "get_issue"))
}
