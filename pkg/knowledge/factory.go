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

package knowledge

import (
	"sync"

	"github.com/agentllm/agentllm/pkg/logger"
)

// Factory caches one Manager per agent name so every user of an agent
// shares the same indexed collection. Indexing a knowledge base is
// expensive; a per-configurator manager would redo it for every session.
type Factory struct {
	mu       sync.Mutex
	managers map[string]*Manager
}

var defaultFactory = &Factory{managers: make(map[string]*Manager)}

// GetOrCreate returns the cached manager for the agent, creating it on
// first request.
func GetOrCreate(agentName string, cfg Config) (*Manager, error) {
	return defaultFactory.getOrCreate(agentName, cfg)
}

func (f *Factory) getOrCreate(agentName string, cfg Config) (*Manager, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if m, ok := f.managers[agentName]; ok {
		logger.New("knowledge.factory").Debug("knowledge manager cache hit", "agent", agentName)
		return m, nil
	}

	m, err := NewManager(cfg)
	if err != nil {
		return nil, err
	}
	f.managers[agentName] = m
	logger.New("knowledge.factory").Info("created knowledge manager", "agent", agentName, "path", cfg.Path)
	return m, nil
}

// Reset clears the manager cache. Tests only.
func Reset() {
	defaultFactory.mu.Lock()
	defer defaultFactory.mu.Unlock()
	defaultFactory.managers = make(map[string]*Manager)
}
