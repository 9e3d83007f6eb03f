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

// RHAIToolkitConfig provides the Red Hat AI release toolkit, which
// reads the release schedule sheet through the user's Google Drive
// credentials.
//
// Like SystemPromptExtensionConfig it piggybacks on GoogleDriveConfig:
// it never prompts and never extracts, and it is configured exactly
// when a release sheet URL is resolved AND the user's Drive credentials
// exist. Register it AFTER GoogleDriveConfig in a definition's config
// list.
type RHAIToolkitConfig struct {
	gdrive   *GoogleDriveConfig
	sheetURL string
	log      *slog.Logger

	// Per-user toolkit cache. A new Drive credential may grant access
	// under a different account, so the cache drops on credential change.
	mu       sync.Mutex
	toolkits map[string]*tool.RHAIToolkit
}

// NewRHAIToolkitConfig creates a release toolkit config. sheetURL may
// be empty, in which case the config stays dormant.
func NewRHAIToolkitConfig(gdrive *GoogleDriveConfig, sheetURL string) *RHAIToolkitConfig {
	return &RHAIToolkitConfig{
		gdrive:   gdrive,
		sheetURL: sheetURL,
		log:      logger.New("toolkit.rhai"),
		toolkits: make(map[string]*tool.RHAIToolkit),
	}
}

func (c *RHAIToolkitConfig) Name() string   { return "rhai_releases" }
func (c *RHAIToolkitConfig) Required() bool { return true }

func (c *RHAIToolkitConfig) Configured(userID string) bool {
	return c.sheetURL != "" && c.gdrive.Configured(userID)
}

func (c *RHAIToolkitConfig) ExtractAndStore(context.Context, string, string) (string, error) {
	return "", nil
}

// ConfigPrompt is empty: when Drive is missing, GoogleDriveConfig does
// the prompting; when the sheet URL is missing, only the operator can
// fix that.
func (c *RHAIToolkitConfig) ConfigPrompt(string) string { return "" }

func (c *RHAIToolkitConfig) CheckAuthorizationRequest(string, string) string { return "" }

// Watches declares the Drive dependency so stored credentials drop the
// cached toolkit.
func (c *RHAIToolkitConfig) Watches() []string {
	return []string{credstore.ServiceGDrive}
}

// OnCredentialStored drops the user's cached release toolkit.
func (c *RHAIToolkitConfig) OnCredentialStored(configName, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.toolkits[userID]; ok {
		delete(c.toolkits, userID)
		c.log.Debug("invalidated cached release toolkit", "user_id", userID, "trigger", configName)
	}
}

func (c *RHAIToolkitConfig) Toolkit(ctx context.Context, userID string) (tool.Toolkit, error) {
	if !c.Configured(userID) {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if tk, ok := c.toolkits[userID]; ok {
		return tk, nil
	}

	gtk, err := c.gdrive.Toolkit(ctx, userID)
	if err != nil {
		return nil, err
	}
	drive, ok := gtk.(*tool.GoogleDriveToolkit)
	if !ok || drive == nil {
		return nil, fmt.Errorf("google drive toolkit unavailable for release sheet access")
	}

	tk := tool.NewRHAIToolkit(drive, c.sheetURL)
	c.toolkits[userID] = tk
	c.log.Debug("built release toolkit", "user_id", userID)
	return tk, nil
}

func (c *RHAIToolkitConfig) AgentInstructions(_ context.Context, userID string) ([]string, error) {
	if !c.Configured(userID) {
		return nil, nil
	}
	return []string{
		"Use the get_releases tool to read the planned Red Hat AI release " +
			"schedule (release name, details, planned release date) whenever the " +
			"roadmap needs target versions or release timing.",
	}, nil
}
