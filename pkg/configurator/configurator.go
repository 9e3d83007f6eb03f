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

// Package configurator drives the configuration conversation and builds
// agents from definitions.
//
// A Configurator is bound to one user and session at construction. Every
// incoming message passes through HandleConfiguration first; only when
// it returns nil does the message reach the agent. Agent construction
// itself is stateless: BuildAgent resolves instructions and toolkits
// from the current credential state on every call and never caches.
package configurator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agentllm/agentllm/pkg/knowledge"
	"github.com/agentllm/agentllm/pkg/logger"
	"github.com/agentllm/agentllm/pkg/runtime"
	"github.com/agentllm/agentllm/pkg/toolkit"
)

const defaultModel = "gemini-2.5-flash"

// Definition describes one agent type. Implementations live in
// pkg/agents; the configurator walks the definition without knowing
// which agent it is.
type Definition interface {
	// Name is the agent identifier ("demo-agent", "release-manager").
	// It doubles as the model name on the completion proxy surface.
	Name() string

	// Description is a short human-readable summary.
	Description() string

	// Model returns the model ID, or "" for the default.
	Model() string

	// Instructions returns the agent's base system instructions.
	Instructions() []string

	// Configs returns the toolkit configs in registration order. Order
	// is behavior: extraction, prompting, and instruction assembly all
	// follow it.
	Configs() []toolkit.Config

	// Knowledge returns the agent's knowledge base config, or nil.
	Knowledge() *knowledge.Config

	// ModelOptions returns provider-specific extras (e.g. thinking
	// budgets), or nil.
	ModelOptions() map[string]any
}

// Response is a conversational configuration reply that short-circuits
// the agent. IsError marks validation failures. Stored is true when a
// credential was persisted this turn; any store may have changed the
// tool set or instructions, so callers holding a built agent must
// discard it.
type Response struct {
	Text    string
	IsError bool
	Stored  bool
}

// Configurator manages configuration state and agent construction for
// one (user, session) pair.
type Configurator struct {
	def       Definition
	builder   runtime.Builder
	userID    string
	sessionID string

	temperature     *float64
	maxOutputTokens int

	log *slog.Logger
}

// Option customizes a Configurator.
type Option func(*Configurator)

// WithTemperature sets the model temperature.
func WithTemperature(t float64) Option {
	return func(c *Configurator) { c.temperature = &t }
}

// WithMaxOutputTokens caps response length.
func WithMaxOutputTokens(n int) Option {
	return func(c *Configurator) { c.maxOutputTokens = n }
}

// New creates a configurator bound to the given user and session.
func New(def Definition, builder runtime.Builder, userID, sessionID string, opts ...Option) *Configurator {
	c := &Configurator{
		def:       def,
		builder:   builder,
		userID:    userID,
		sessionID: sessionID,
		log:       logger.New("configurator").With("agent", def.Name(), "user_id", userID),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserID returns the bound user.
func (c *Configurator) UserID() string { return c.userID }

// SessionID returns the bound session.
func (c *Configurator) SessionID() string { return c.sessionID }

// Definition returns the agent definition.
func (c *Configurator) Definition() Definition { return c.def }

// HandleConfiguration runs the three-phase configuration check for one
// message. A non-nil Response must be shown to the user instead of
// running the agent; nil means the message proceeds.
//
// Phase 1 offers the message to every config for credential extraction.
// The first non-empty confirmation wins, and a validation failure stops
// the sweep immediately so a malformed credential is never re-matched by
// a later config. Phase 2 prompts for the first required config the
// user has not completed. Phase 3 lets optional configs answer messages
// that mention their features.
func (c *Configurator) HandleConfiguration(ctx context.Context, message string) (*Response, error) {
	for _, cfg := range c.def.Configs() {
		confirmation, err := cfg.ExtractAndStore(ctx, message, c.userID)
		if err != nil {
			var verr *toolkit.ValidationError
			if errors.As(err, &verr) {
				c.log.Info("credential validation failed", "config", cfg.Name())
				return &Response{
					Text:    fmt.Sprintf("❌ Configuration Error: %s", verr.Message),
					IsError: true,
				}, nil
			}
			return nil, fmt.Errorf("configuration extraction failed for %s: %w", cfg.Name(), err)
		}

		if confirmation != "" {
			c.log.Info("credential stored", "config", cfg.Name())
			c.notifyWatchers(cfg.Name())
			return &Response{Text: confirmation, Stored: true}, nil
		}
	}

	for _, cfg := range c.def.Configs() {
		if cfg.Required() && !cfg.Configured(c.userID) {
			if prompt := cfg.ConfigPrompt(c.userID); prompt != "" {
				c.log.Debug("prompting for required config", "config", cfg.Name())
				return &Response{Text: prompt}, nil
			}
		}
	}

	for _, cfg := range c.def.Configs() {
		if cfg.Required() {
			continue
		}
		if prompt := cfg.CheckAuthorizationRequest(message, c.userID); prompt != "" {
			c.log.Debug("optional config requested authorization", "config", cfg.Name())
			return &Response{Text: prompt}, nil
		}
	}

	return nil, nil
}

// notifyWatchers tells every config watching the stored config's name
// that a credential changed. Watches are declared by name, so a config
// never inspects another config's type.
func (c *Configurator) notifyWatchers(storedName string) {
	for _, cfg := range c.def.Configs() {
		listener, ok := cfg.(toolkit.CredentialListener)
		if !ok {
			continue
		}
		for _, watched := range listener.Watches() {
			if watched == storedName {
				listener.OnCredentialStored(storedName, c.userID)
				break
			}
		}
	}
}

// BuildParams resolves agent parameters from the current credential
// state: base instructions first, then each configured config's
// instructions and toolkit in registration order, then the knowledge
// toolkit, then user and session binding.
func (c *Configurator) BuildParams(ctx context.Context) (runtime.Params, error) {
	params := runtime.Params{
		Name:            c.def.Name(),
		Description:     c.def.Description(),
		Model:           c.def.Model(),
		Temperature:     c.temperature,
		MaxOutputTokens: c.maxOutputTokens,
		ModelOptions:    c.def.ModelOptions(),
		UserID:          c.userID,
		SessionID:       c.sessionID,
	}
	if params.Model == "" {
		params.Model = defaultModel
	}

	params.Instructions = append(params.Instructions, c.def.Instructions()...)

	for _, cfg := range c.def.Configs() {
		if !cfg.Configured(c.userID) {
			continue
		}

		instructions, err := cfg.AgentInstructions(ctx, c.userID)
		if err != nil {
			return runtime.Params{}, fmt.Errorf("failed to build %s instructions: %w", cfg.Name(), err)
		}
		if len(instructions) > 0 {
			params.Instructions = append(params.Instructions, strings.Join(instructions, "\n"))
		}

		tk, err := cfg.Toolkit(ctx, c.userID)
		if err != nil {
			return runtime.Params{}, fmt.Errorf("failed to build %s toolkit: %w", cfg.Name(), err)
		}
		if tk != nil {
			params.Toolkits = append(params.Toolkits, tk)
		}
	}

	if kcfg := c.def.Knowledge(); kcfg != nil {
		manager, err := knowledge.GetOrCreate(c.def.Name(), *kcfg)
		if err != nil {
			return runtime.Params{}, fmt.Errorf("failed to load knowledge base: %w", err)
		}
		params.Toolkits = append(params.Toolkits, manager.Toolkit())
		params.Instructions = append(params.Instructions,
			"You have a knowledge base. Use search_knowledge_base to look up "+
				"relevant information before answering questions in your domain.")
	}

	return params, nil
}

// BuildAgent constructs a fresh agent from the current configuration
// state. It never caches; callers that want reuse hold the result.
func (c *Configurator) BuildAgent(ctx context.Context) (runtime.Agent, error) {
	params, err := c.BuildParams(ctx)
	if err != nil {
		return nil, err
	}

	c.log.Debug("building agent",
		"model", params.Model,
		"toolkits", len(params.Toolkits),
		"instructions", len(params.Instructions))

	agent, err := c.builder(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to build agent %s: %w", c.def.Name(), err)
	}
	return agent, nil
}
