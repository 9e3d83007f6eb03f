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
	"fmt"
	"log/slog"
	"sync"

	"github.com/agentllm/agentllm/pkg/credstore"
	"github.com/agentllm/agentllm/pkg/logger"
	"github.com/agentllm/agentllm/pkg/tool"
)

// SystemPromptExtensionConfig extends an agent's system prompt with the
// content of a Google Drive document.
//
// It piggybacks on GoogleDriveConfig: it never prompts, never extracts,
// and provides no toolkit. It is configured exactly when a document URL
// is resolved AND the user's Drive credentials exist. With both in
// place, the document fetch happens at instruction-build time and a
// fetch failure fails agent creation; the operator asked for an
// external prompt, so silently running without it would be wrong.
//
// Register it AFTER GoogleDriveConfig in a definition's config list.
type SystemPromptExtensionConfig struct {
	gdrive *GoogleDriveConfig
	docURL string
	log    *slog.Logger

	// Per-user cache of fetched prompt content. Invalidated when the
	// user's Drive credentials change.
	mu      sync.Mutex
	prompts map[string]string
}

// NewSystemPromptExtensionConfig creates a system prompt extension.
// docURL may be empty, in which case the extension stays dormant.
func NewSystemPromptExtensionConfig(gdrive *GoogleDriveConfig, docURL string) *SystemPromptExtensionConfig {
	return &SystemPromptExtensionConfig{
		gdrive:  gdrive,
		docURL:  docURL,
		log:     logger.New("toolkit.sysprompt"),
		prompts: make(map[string]string),
	}
}

func (c *SystemPromptExtensionConfig) Name() string   { return "system_prompt_extension" }
func (c *SystemPromptExtensionConfig) Required() bool { return true }

func (c *SystemPromptExtensionConfig) Configured(userID string) bool {
	return c.docURL != "" && c.gdrive.Configured(userID)
}

func (c *SystemPromptExtensionConfig) ExtractAndStore(context.Context, string, string) (string, error) {
	return "", nil
}

func (c *SystemPromptExtensionConfig) ConfigPrompt(string) string { return "" }

func (c *SystemPromptExtensionConfig) Toolkit(context.Context, string) (tool.Toolkit, error) {
	return nil, nil
}

func (c *SystemPromptExtensionConfig) CheckAuthorizationRequest(string, string) string { return "" }

// Watches declares the cross-config dependency: a new Drive credential
// may grant access to a different account, so cached prompt content
// fetched under the old credential is stale.
func (c *SystemPromptExtensionConfig) Watches() []string {
	return []string{credstore.ServiceGDrive}
}

// OnCredentialStored drops the user's cached prompt content.
func (c *SystemPromptExtensionConfig) OnCredentialStored(configName, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.prompts[userID]; ok {
		delete(c.prompts, userID)
		c.log.Debug("invalidated cached system prompt", "user_id", userID, "trigger", configName)
	}
}

func (c *SystemPromptExtensionConfig) fetchPrompt(ctx context.Context, userID string) (string, error) {
	c.mu.Lock()
	if cached, ok := c.prompts[userID]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	tk, err := c.gdrive.Toolkit(ctx, userID)
	if err != nil {
		return "", err
	}
	drive, ok := tk.(*tool.GoogleDriveToolkit)
	if !ok || drive == nil {
		return "", fmt.Errorf("google drive toolkit unavailable for system prompt fetch")
	}

	content, err := drive.Export(ctx, c.docURL, "txt")
	if err != nil {
		return "", fmt.Errorf("failed to fetch extended system prompt from %s: %w", c.docURL, err)
	}

	c.mu.Lock()
	c.prompts[userID] = content
	c.mu.Unlock()
	c.log.Info("fetched extended system prompt", "user_id", userID, "chars", len(content))

	return content, nil
}

// AgentInstructions fetches the extended prompt. Dormant (no doc URL)
// or Drive-unconfigured users get nothing; a fetch failure for a
// configured user propagates and fails agent creation.
func (c *SystemPromptExtensionConfig) AgentInstructions(ctx context.Context, userID string) ([]string, error) {
	if c.docURL == "" {
		return nil, nil
	}
	if !c.gdrive.Configured(userID) {
		c.log.Debug("system prompt extension skipped: google drive not configured", "user_id", userID)
		return nil, nil
	}

	content, err := c.fetchPrompt(ctx, userID)
	if err != nil {
		return nil, err
	}

	return []string{
		"=== EXTENDED SYSTEM PROMPT (from Google Drive) ===",
		fmt.Sprintf("Source: %s", c.docURL),
		"NOTE: Users can update this external prompt by editing the Google Doc directly.",
		content,
	}, nil
}
