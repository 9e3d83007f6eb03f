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

// Package agents holds the built-in agent definitions and the registry
// that maps proxy model names to them.
//
// A definition is built once per process; its toolkit configs carry the
// per-user caches, so sharing one definition across all users and
// sessions of an agent type is required, not just an optimization.
package agents

import (
	"fmt"
	"sort"
	"sync"

	"github.com/agentllm/agentllm/pkg/config"
	"github.com/agentllm/agentllm/pkg/configurator"
	"github.com/agentllm/agentllm/pkg/credstore"
	"github.com/agentllm/agentllm/pkg/knowledge"
	"github.com/agentllm/agentllm/pkg/toolkit"
)

// thinkingBudget is the Gemini native thinking token allocation shared
// by all built-in agents.
const thinkingBudget = 200

// Definition is a concrete, immutable agent definition.
type Definition struct {
	name         string
	description  string
	model        string
	instructions []string
	configs      []toolkit.Config
	knowledge    *knowledge.Config
	modelOptions map[string]any
}

func (d *Definition) Name() string                 { return d.name }
func (d *Definition) Description() string          { return d.description }
func (d *Definition) Model() string                { return d.model }
func (d *Definition) Instructions() []string       { return d.instructions }
func (d *Definition) Configs() []toolkit.Config    { return d.configs }
func (d *Definition) Knowledge() *knowledge.Config { return d.knowledge }
func (d *Definition) ModelOptions() map[string]any { return d.modelOptions }

var _ configurator.Definition = (*Definition)(nil)

// Deps carries the shared dependencies agent definitions are built
// from.
type Deps struct {
	Store credstore.Store
	Cfg   *config.Config

	// Embedder powers knowledge bases. Nil disables knowledge for
	// agents that would otherwise have one.
	Embedder knowledge.Embedder
}

// Registry maps agent names (the proxy's model names) to definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry builds the registry with all built-in agents.
func NewRegistry(deps Deps) *Registry {
	r := &Registry{defs: make(map[string]*Definition)}
	r.register(NewDemoAgent(deps))
	r.register(NewReleaseManager(deps))
	r.register(NewGitHubPRPrioritization(deps))
	r.register(NewRHAIRoadmapPublisher(deps))
	r.register(NewRHDHSupport(deps))
	return r
}

func (r *Registry) register(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Name()] = def
}

// Get returns the definition for the given agent name.
func (r *Registry) Get(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q (available: %v)", name, r.names())
	}
	return def, nil
}

// Names lists registered agent names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
