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

const defaultJiraServer = "https://issues.redhat.com"

var jiraTokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:my\s+)?jira[ _-]token\s+(?:is|=|:)\s+(\S+)`),
	regexp.MustCompile(`(?i)set\s+jira[ _-]token\s+to\s+(\S+)`),
	regexp.MustCompile(`(?i)jira[ _-]token:\s*(\S+)`),
}

// jiraBareTokenPattern catches a personal access token pasted on its
// own: 30+ base64-ish characters containing both letters and digits.
var jiraBareTokenPattern = regexp.MustCompile(`(?:^|\s)([A-Za-z0-9+/=]{30,})(?:\s|$)`)

var jiraKeywords = []string{"jira", "issue", "ticket", "issues.redhat.com"}

// JiraConfig manages Jira personal access tokens.
type JiraConfig struct {
	store     credstore.Store
	serverURL string
	log       *slog.Logger

	mu       sync.Mutex
	toolkits map[string]*tool.JiraToolkit
}

// JiraConfigOption configures a JiraConfig.
type JiraConfigOption func(*JiraConfig)

// WithJiraServer overrides the Jira server URL.
func WithJiraServer(serverURL string) JiraConfigOption {
	return func(c *JiraConfig) { c.serverURL = serverURL }
}

// NewJiraConfig creates a Jira config. The default server is Red Hat's
// public Jira.
func NewJiraConfig(store credstore.Store, opts ...JiraConfigOption) *JiraConfig {
	c := &JiraConfig{
		store:     store,
		serverURL: defaultJiraServer,
		log:       logger.New("toolkit.jira"),
		toolkits:  make(map[string]*tool.JiraToolkit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *JiraConfig) Name() string   { return credstore.ServiceJira }
func (c *JiraConfig) Required() bool { return true }

func (c *JiraConfig) Configured(userID string) bool {
	_, err := c.store.GetJiraToken(context.Background(), userID)
	return err == nil
}

func extractJiraToken(message string) string {
	for _, pattern := range jiraTokenPatterns {
		if m := pattern.FindStringSubmatch(message); m != nil {
			return m[1]
		}
	}

	if m := jiraBareTokenPattern.FindStringSubmatch(message); m != nil {
		candidate := m[1]
		hasLetter := strings.ContainsFunc(candidate, func(r rune) bool {
			return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		})
		hasDigit := strings.ContainsFunc(candidate, func(r rune) bool {
			return r >= '0' && r <= '9'
		})
		if hasLetter && hasDigit {
			return candidate
		}
	}

	return ""
}

func (c *JiraConfig) ExtractAndStore(ctx context.Context, message, userID string) (string, error) {
	token := extractJiraToken(message)
	if token == "" {
		return "", nil
	}

	c.log.Info("validating jira token", "user_id", userID)

	tk := tool.NewJiraToolkit(c.serverURL, token, "")
	identity, err := tk.Validate(ctx)
	if err != nil {
		c.log.Warn("jira token validation failed", "user_id", userID, "error", err)
		return "", &ValidationError{Message: "Failed to validate Jira token", Err: err}
	}

	if err := c.store.UpsertJiraToken(ctx, &credstore.JiraToken{
		UserID:    userID,
		Token:     token,
		ServerURL: c.serverURL,
	}); err != nil {
		return "", fmt.Errorf("failed to save jira token: %w", err)
	}

	c.mu.Lock()
	c.toolkits[userID] = tk
	c.mu.Unlock()

	return fmt.Sprintf("✅ JIRA configured successfully!\n\n"+
		"Connected as: %s\n\n"+
		"You can now ask me to search for issues or get issue details.", identity), nil
}

func (c *JiraConfig) ConfigPrompt(userID string) string {
	if c.Configured(userID) {
		return ""
	}

	return fmt.Sprintf("🔑 **JIRA Configuration Required**\n\n"+
		"To access JIRA, please provide your API token:\n\n"+
		"Say: 'My Jira token is YOUR_TOKEN_HERE'\n\n"+
		"To get a JIRA API token:\n"+
		"1. Go to %s\n"+
		"2. Click your profile icon → Account Settings\n"+
		"3. Go to Security → API Tokens\n"+
		"4. Create a new token and copy it\n"+
		"5. Send it to me in the format above", c.serverURL)
}

func (c *JiraConfig) Toolkit(ctx context.Context, userID string) (tool.Toolkit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tk, ok := c.toolkits[userID]; ok {
		return tk, nil
	}

	record, err := c.store.GetJiraToken(ctx, userID)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load jira token: %w", err)
	}

	tk := tool.NewJiraToolkit(record.ServerURL, record.Token, record.Username)
	c.toolkits[userID] = tk
	c.log.Debug("rebuilt jira toolkit from stored token", "user_id", userID)
	return tk, nil
}

func (c *JiraConfig) CheckAuthorizationRequest(message, userID string) string {
	messageLower := strings.ToLower(message)
	mentions := false
	for _, kw := range jiraKeywords {
		if strings.Contains(messageLower, kw) {
			mentions = true
			break
		}
	}
	if !mentions || c.Configured(userID) {
		return ""
	}
	return c.ConfigPrompt(userID)
}

func (c *JiraConfig) AgentInstructions(_ context.Context, userID string) ([]string, error) {
	if !c.Configured(userID) {
		return nil, nil
	}
	return []string{
		fmt.Sprintf("You have access to JIRA tools to search issues and get issue details "+
			"from %s. Use these tools when users ask about JIRA issues.", c.serverURL),
	}, nil
}
