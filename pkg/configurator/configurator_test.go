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

package configurator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentllm/agentllm/pkg/knowledge"
	"github.com/agentllm/agentllm/pkg/runtime"
	"github.com/agentllm/agentllm/pkg/tool"
	"github.com/agentllm/agentllm/pkg/toolkit"
)

// fakeToolkit is an empty toolkit used to check wiring.
type fakeToolkit struct{ name string }

func (tk *fakeToolkit) Name() string       { return tk.name }
func (tk *fakeToolkit) Tools() []tool.Tool { return nil }

// fakeConfig is a scriptable toolkit.Config. Extraction fires when the
// message contains the trigger; the auth prompt fires on the keyword.
type fakeConfig struct {
	name         string
	required     bool
	configured   bool
	trigger      string
	confirmation string
	extractErr   error
	prompt       string
	keyword      string
	authPrompt   string
	instructions []string
	tk           tool.Toolkit

	extractCalls int
}

func (c *fakeConfig) Name() string               { return c.name }
func (c *fakeConfig) Required() bool             { return c.required }
func (c *fakeConfig) Configured(string) bool     { return c.configured }
func (c *fakeConfig) ConfigPrompt(string) string { return c.prompt }

func (c *fakeConfig) ExtractAndStore(_ context.Context, message, _ string) (string, error) {
	c.extractCalls++
	if c.extractErr != nil {
		return "", c.extractErr
	}
	if c.trigger != "" && strings.Contains(message, c.trigger) {
		c.configured = true
		return c.confirmation, nil
	}
	return "", nil
}

func (c *fakeConfig) Toolkit(context.Context, string) (tool.Toolkit, error) {
	return c.tk, nil
}

func (c *fakeConfig) CheckAuthorizationRequest(message, _ string) string {
	if c.keyword != "" && strings.Contains(message, c.keyword) && !c.configured {
		return c.authPrompt
	}
	return ""
}

func (c *fakeConfig) AgentInstructions(context.Context, string) ([]string, error) {
	return c.instructions, nil
}

// fakeListener watches another config by name.
type fakeListener struct {
	fakeConfig
	watches  []string
	notified []string
}

func (c *fakeListener) Watches() []string { return c.watches }

func (c *fakeListener) OnCredentialStored(configName, _ string) {
	c.notified = append(c.notified, configName)
}

// fakeDefinition is a minimal agent definition for configurator tests.
type fakeDefinition struct {
	name         string
	model        string
	instructions []string
	configs      []toolkit.Config
	modelOptions map[string]any
}

func (d *fakeDefinition) Name() string                 { return d.name }
func (d *fakeDefinition) Description() string          { return "test agent" }
func (d *fakeDefinition) Model() string                { return d.model }
func (d *fakeDefinition) Instructions() []string       { return d.instructions }
func (d *fakeDefinition) Configs() []toolkit.Config    { return d.configs }
func (d *fakeDefinition) Knowledge() *knowledge.Config { return nil }
func (d *fakeDefinition) ModelOptions() map[string]any { return d.modelOptions }

func newTestConfigurator(t *testing.T, def *fakeDefinition, opts ...Option) *Configurator {
	t.Helper()
	builder := runtime.ScriptedBuilder(&runtime.ScriptedAgent{Script: runtime.TextScript("ok")})
	return New(def, builder, "u1", "s1", opts...)
}

func TestHandleConfigurationFirstMatchWins(t *testing.T) {
	first := &fakeConfig{name: "first", required: true, trigger: "token", confirmation: "✅ first stored"}
	second := &fakeConfig{name: "second", required: true, trigger: "token", confirmation: "✅ second stored"}
	c := newTestConfigurator(t, &fakeDefinition{name: "a", configs: []toolkit.Config{first, second}})

	resp, err := c.HandleConfiguration(context.Background(), "here is my token ABC")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "✅ first stored", resp.Text)
	assert.True(t, resp.Stored)
	assert.False(t, resp.IsError)

	// The winning extraction short-circuits the sweep.
	assert.Equal(t, 1, first.extractCalls)
	assert.Equal(t, 0, second.extractCalls)
}

func TestHandleConfigurationValidationErrorStopsSweep(t *testing.T) {
	first := &fakeConfig{name: "first", required: true,
		extractErr: toolkit.Validationf("Invalid color 'ultraviolet'")}
	second := &fakeConfig{name: "second", required: true, trigger: "ultraviolet", confirmation: "never"}
	c := newTestConfigurator(t, &fakeDefinition{name: "a", configs: []toolkit.Config{first, second}})

	resp, err := c.HandleConfiguration(context.Background(), "my favorite color is ultraviolet")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.IsError)
	assert.False(t, resp.Stored)
	assert.Equal(t, "❌ Configuration Error: Invalid color 'ultraviolet'", resp.Text)

	// A malformed credential is never offered to later configs.
	assert.Equal(t, 0, second.extractCalls)
}

func TestHandleConfigurationInfrastructureErrorPropagates(t *testing.T) {
	boom := errors.New("database unreachable")
	first := &fakeConfig{name: "first", required: true, extractErr: boom}
	c := newTestConfigurator(t, &fakeDefinition{name: "a", configs: []toolkit.Config{first}})

	resp, err := c.HandleConfiguration(context.Background(), "anything")
	require.ErrorIs(t, err, boom)
	assert.Nil(t, resp)
}

func TestHandleConfigurationPromptsFirstRequiredUnconfigured(t *testing.T) {
	done := &fakeConfig{name: "done", required: true, configured: true, prompt: "done prompt"}
	missing := &fakeConfig{name: "missing", required: true, prompt: "please provide your token"}
	later := &fakeConfig{name: "later", required: true, prompt: "later prompt"}
	optional := &fakeConfig{name: "opt", keyword: "anything", authPrompt: "optional prompt"}
	c := newTestConfigurator(t, &fakeDefinition{name: "a",
		configs: []toolkit.Config{done, missing, later, optional}})

	resp, err := c.HandleConfiguration(context.Background(), "hello, can you help with anything?")
	require.NoError(t, err)
	require.NotNil(t, resp)

	// Required configs are prompted in registration order, and optional
	// configs never preempt a pending required one.
	assert.Equal(t, "please provide your token", resp.Text)
	assert.False(t, resp.Stored)
}

func TestHandleConfigurationOptionalPromptOnMention(t *testing.T) {
	required := &fakeConfig{name: "req", required: true, configured: true}
	optional := &fakeConfig{name: "opt", keyword: "github", authPrompt: "🔑 provide your GitHub token"}
	c := newTestConfigurator(t, &fakeDefinition{name: "a",
		configs: []toolkit.Config{required, optional}})

	resp, err := c.HandleConfiguration(context.Background(), "prioritize my github reviews")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "🔑 provide your GitHub token", resp.Text)
}

func TestHandleConfigurationSilentWhenNothingToDo(t *testing.T) {
	required := &fakeConfig{name: "req", required: true, configured: true}
	optional := &fakeConfig{name: "opt", keyword: "github", authPrompt: "prompt"}
	c := newTestConfigurator(t, &fakeDefinition{name: "a",
		configs: []toolkit.Config{required, optional}})

	resp, err := c.HandleConfiguration(context.Background(), "what is the release schedule?")
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestHandleConfigurationNotifiesWatchers(t *testing.T) {
	source := &fakeConfig{name: "gdrive", required: true, trigger: "4/0code", confirmation: "✅ authorized"}
	watcher := &fakeListener{
		fakeConfig: fakeConfig{name: "sysprompt", required: true, configured: true},
		watches:    []string{"gdrive"},
	}
	bystander := &fakeListener{
		fakeConfig: fakeConfig{name: "other", required: true, configured: true},
		watches:    []string{"jira"},
	}
	c := newTestConfigurator(t, &fakeDefinition{name: "a",
		configs: []toolkit.Config{source, watcher, bystander}})

	resp, err := c.HandleConfiguration(context.Background(), "4/0code")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Stored)

	assert.Equal(t, []string{"gdrive"}, watcher.notified)
	assert.Empty(t, bystander.notified)
}

func TestBuildParamsAssemblyOrder(t *testing.T) {
	jiraTK := &fakeToolkit{name: "jira"}
	configured := &fakeConfig{name: "jira", required: true, configured: true,
		instructions: []string{"jira line one", "jira line two"}, tk: jiraTK}
	unconfigured := &fakeConfig{name: "github",
		instructions: []string{"github line"}, tk: &fakeToolkit{name: "github"}}

	def := &fakeDefinition{
		name:         "release-manager",
		instructions: []string{"base one", "base two"},
		configs:      []toolkit.Config{configured, unconfigured},
		modelOptions: map[string]any{"thinking_budget": 200},
	}
	c := newTestConfigurator(t, def)

	params, err := c.BuildParams(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "release-manager", params.Name)
	assert.Equal(t, "gemini-2.5-flash", params.Model)
	assert.Equal(t, "u1", params.UserID)
	assert.Equal(t, "s1", params.SessionID)
	assert.Equal(t, def.modelOptions, params.ModelOptions)

	// Base instructions first, then each configured config's block.
	// Unconfigured configs contribute nothing.
	require.Equal(t, []string{
		"base one",
		"base two",
		"jira line one\njira line two",
	}, params.Instructions)

	require.Len(t, params.Toolkits, 1)
	assert.Same(t, jiraTK, params.Toolkits[0])
}

func TestBuildParamsKeepsExplicitModel(t *testing.T) {
	def := &fakeDefinition{name: "a", model: "gemini-2.5-pro"}
	c := newTestConfigurator(t, def, WithTemperature(0.2), WithMaxOutputTokens(512))

	params, err := c.BuildParams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", params.Model)
	require.NotNil(t, params.Temperature)
	assert.Equal(t, 0.2, *params.Temperature)
	assert.Equal(t, 512, params.MaxOutputTokens)
}

func TestBuildAgentPassesParamsToBuilder(t *testing.T) {
	agent := &runtime.ScriptedAgent{Script: runtime.TextScript("hi")}
	def := &fakeDefinition{name: "demo-agent", instructions: []string{"be helpful"}}
	c := New(def, runtime.ScriptedBuilder(agent), "u1", "s1")

	built, err := c.BuildAgent(context.Background())
	require.NoError(t, err)
	assert.Same(t, agent, built.(*runtime.ScriptedAgent))
	assert.Equal(t, "demo-agent", agent.Params.Name)
	assert.Equal(t, []string{"be helpful"}, agent.Params.Instructions)
}

func TestBuildAgentWrapsBuilderError(t *testing.T) {
	failing := func(context.Context, runtime.Params) (runtime.Agent, error) {
		return nil, errors.New("no api key")
	}
	c := New(&fakeDefinition{name: "demo-agent"}, failing, "u1", "s1")

	_, err := c.BuildAgent(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "demo-agent")
}
