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
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/agentllm/agentllm/pkg/credstore"
	"github.com/agentllm/agentllm/pkg/logger"
	"github.com/agentllm/agentllm/pkg/tool"
)

// validColors is the closed set accepted by the demo config.
var validColors = []string{
	"red", "blue", "green", "darkseagreen4", "yellow", "purple",
	"orange", "pink", "black", "white", "brown",
}

// colorPatterns are tried in order; the first capture wins.
var colorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:my\s+)?favorite\s+color\s+(?:is|=|:)\s+(\w+)`),
	regexp.MustCompile(`(?i)I\s+(?:like|love|prefer)\s+(\w+)`),
	regexp.MustCompile(`(?i)(?:set|configure)\s+color\s+(?:to\s+)?(\w+)`),
	regexp.MustCompile(`(?i)color\s*[:=]\s*(\w+)`),
}

var colorReconfigurePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)change.*color`),
	regexp.MustCompile(`(?i)update.*color`),
	regexp.MustCompile(`(?i)reconfigure.*color`),
	regexp.MustCompile(`(?i)reset.*color`),
}

// FavoriteColorConfig is the demo agent's required configuration. It
// exists to exercise the full configuration flow without external
// services: natural-language extraction, a closed validation set, and
// persistence.
type FavoriteColorConfig struct {
	store credstore.Store
	log   *slog.Logger

	mu       sync.Mutex
	toolkits map[string]*tool.ColorToolkit
}

// NewFavoriteColorConfig creates the demo color config.
func NewFavoriteColorConfig(store credstore.Store) *FavoriteColorConfig {
	return &FavoriteColorConfig{
		store:    store,
		log:      logger.New("toolkit.color"),
		toolkits: make(map[string]*tool.ColorToolkit),
	}
}

func (c *FavoriteColorConfig) Name() string   { return credstore.ServiceFavoriteColor }
func (c *FavoriteColorConfig) Required() bool { return true }

func (c *FavoriteColorConfig) Configured(userID string) bool {
	_, err := c.store.GetFavoriteColor(context.Background(), userID)
	return err == nil
}

func extractColor(message string) string {
	for _, pattern := range colorPatterns {
		if m := pattern.FindStringSubmatch(message); m != nil {
			return strings.ToLower(m[1])
		}
	}
	return ""
}

func (c *FavoriteColorConfig) ExtractAndStore(ctx context.Context, message, userID string) (string, error) {
	color := extractColor(message)
	if color == "" {
		return "", nil
	}

	valid := false
	for _, v := range validColors {
		if color == v {
			valid = true
			break
		}
	}
	if !valid {
		return "", Validationf("Invalid color '%s'. Supported colors: %s", color, strings.Join(validColors, ", "))
	}

	if err := c.store.UpsertFavoriteColor(ctx, userID, color); err != nil {
		return "", fmt.Errorf("failed to save favorite color: %w", err)
	}

	c.mu.Lock()
	delete(c.toolkits, userID)
	c.mu.Unlock()

	c.log.Info("stored favorite color", "user_id", userID, "color", color)
	return fmt.Sprintf("✅ **Favorite Color Configured!**\n\n"+
		"Your favorite color has been set to: **%s**\n\n"+
		"The demo agent will now use this preference in conversations and tools.", color), nil
}

func (c *FavoriteColorConfig) ConfigPrompt(userID string) string {
	if c.Configured(userID) {
		return ""
	}

	return fmt.Sprintf("🎨 **Welcome to the Demo Agent!**\n\n"+
		"Before we begin, I need to know your favorite color.\n\n"+
		"**Please tell me your favorite color:**\n\n"+
		"Examples:\n"+
		"- 'My favorite color is blue'\n"+
		"- 'I like green'\n"+
		"- 'Set color to red'\n\n"+
		"**Supported colors:** %s", strings.Join(validColors, ", "))
}

func (c *FavoriteColorConfig) Toolkit(ctx context.Context, userID string) (tool.Toolkit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tk, ok := c.toolkits[userID]; ok {
		return tk, nil
	}

	color, err := c.store.GetFavoriteColor(ctx, userID)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load favorite color: %w", err)
	}

	tk := tool.NewColorToolkit(color)
	c.toolkits[userID] = tk
	return tk, nil
}

func (c *FavoriteColorConfig) CheckAuthorizationRequest(message, userID string) string {
	for _, pattern := range colorReconfigurePatterns {
		if pattern.MatchString(message) {
			return c.ConfigPrompt(userID)
		}
	}
	return ""
}

func (c *FavoriteColorConfig) AgentInstructions(ctx context.Context, userID string) ([]string, error) {
	color, err := c.store.GetFavoriteColor(ctx, userID)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load favorite color: %w", err)
	}

	return []string{
		fmt.Sprintf("The user's favorite color is %s.", color),
		fmt.Sprintf("When relevant to the conversation, incorporate references to %s.", color),
		"Use the color tools to generate palettes and themes based on this preference.",
	}, nil
}
