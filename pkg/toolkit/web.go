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

package toolkit

import (
	"context"
	"sync"

	"github.com/agentllm/agentllm/pkg/tool"
)

// WebConfig provides public documentation fetching. There is nothing
// to configure: no credentials, no prompts, always configured.
type WebConfig struct {
	opts []tool.WebOption

	once    sync.Once
	toolkit *tool.WebToolkit
}

// NewWebConfig creates a web config. Options are passed through to the
// shared toolkit (domain allow-list, user agent).
func NewWebConfig(opts ...tool.WebOption) *WebConfig {
	return &WebConfig{opts: opts}
}

func (c *WebConfig) Name() string   { return "web" }
func (c *WebConfig) Required() bool { return false }

func (c *WebConfig) Configured(string) bool { return true }

func (c *WebConfig) ExtractAndStore(context.Context, string, string) (string, error) {
	return "", nil
}

func (c *WebConfig) ConfigPrompt(string) string { return "" }

// Toolkit returns the shared web toolkit. Web access carries no
// per-user state, so a single instance serves all users.
func (c *WebConfig) Toolkit(context.Context, string) (tool.Toolkit, error) {
	c.once.Do(func() {
		c.toolkit = tool.NewWebToolkit(c.opts...)
	})
	return c.toolkit, nil
}

func (c *WebConfig) CheckAuthorizationRequest(string, string) string { return "" }

func (c *WebConfig) AgentInstructions(context.Context, string) ([]string, error) {
	return []string{
		"You have access to a web tool (fetch_url) for fetching public Red Hat " +
			"documentation pages. Use it when users ask about documentation content.",
	}, nil
}
