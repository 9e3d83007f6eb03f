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

const defaultGitHubServer = "https://api.github.com"

var githubTokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:my\s+)?github[ _-]token\s+(?:is|=|:)\s+(\S+)`),
	regexp.MustCompile(`(?i)set\s+github[ _-]token\s+to\s+(\S+)`),
	regexp.MustCompile(`(?i)github[ _-]token:\s*(\S+)`),
}

// Bare-token heuristics: classic tokens (ghp_, gho_, ghu_, ghs_, ghr_)
// and fine-grained tokens (github_pat_).
var (
	githubClassicTokenPattern     = regexp.MustCompile(`(?:^|\s)(gh[oprsu]_[A-Za-z0-9]{20,})(?:\s|$)`)
	githubFineGrainedTokenPattern = regexp.MustCompile(`(?:^|\s)(github_pat_[A-Za-z0-9_]{20,})(?:\s|$)`)
)

var githubKeywords = []string{"github", "pull request", "pr", "review", "repository", "repo"}

// GitHubConfig manages GitHub personal access tokens. It is optional:
// the agent runs without it, and the user is only prompted when a
// message mentions GitHub features.
type GitHubConfig struct {
	store     credstore.Store
	serverURL string
	log       *slog.Logger

	mu       sync.Mutex
	toolkits map[string]*tool.GitHubToolkit
}

// GitHubConfigOption configures a GitHubConfig.
type GitHubConfigOption func(*GitHubConfig)

// WithGitHubServer overrides the GitHub API base URL.
func WithGitHubServer(serverURL string) GitHubConfigOption {
	return func(c *GitHubConfig) { c.serverURL = serverURL }
}

// NewGitHubConfig creates a GitHub config.
func NewGitHubConfig(store credstore.Store, opts ...GitHubConfigOption) *GitHubConfig {
	c := &GitHubConfig{
		store:     store,
		serverURL: defaultGitHubServer,
		log:       logger.New("toolkit.github"),
		toolkits:  make(map[string]*tool.GitHubToolkit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *GitHubConfig) Name() string   { return credstore.ServiceGitHub }
func (c *GitHubConfig) Required() bool { return false }

func (c *GitHubConfig) Configured(userID string) bool {
	_, err := c.store.GetGitHubToken(context.Background(), userID)
	return err == nil
}

func extractGitHubToken(message string) string {
	for _, pattern := range githubTokenPatterns {
		if m := pattern.FindStringSubmatch(message); m != nil {
			return m[1]
		}
	}
	if m := githubFineGrainedTokenPattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	if m := githubClassicTokenPattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return ""
}

func (c *GitHubConfig) ExtractAndStore(ctx context.Context, message, userID string) (string, error) {
	token := extractGitHubToken(message)
	if token == "" {
		return "", nil
	}

	c.log.Info("validating github token", "user_id", userID)

	tk := tool.NewGitHubToolkit(c.serverURL, token)
	login, err := tk.Validate(ctx)
	if err != nil {
		c.log.Warn("github token validation failed", "user_id", userID, "error", err)
		return "", &ValidationError{Message: "Failed to validate GitHub token", Err: err}
	}

	if err := c.store.UpsertGitHubToken(ctx, &credstore.GitHubToken{
		UserID:    userID,
		Token:     token,
		ServerURL: c.serverURL,
		Username:  login,
	}); err != nil {
		return "", fmt.Errorf("failed to save github token: %w", err)
	}

	c.mu.Lock()
	c.toolkits[userID] = tk
	c.mu.Unlock()

	return fmt.Sprintf("✅ GitHub configured successfully!\n\n"+
		"Connected as: %s\n\n"+
		"You can now ask me to analyze pull requests and manage your review queue.", login), nil
}

func (c *GitHubConfig) ConfigPrompt(userID string) string {
	if c.Configured(userID) {
		return ""
	}

	return "🔑 **GitHub Configuration Required**\n\n" +
		"To access GitHub, please provide your personal access token:\n\n" +
		"Say: 'My GitHub token is YOUR_TOKEN_HERE'\n\n" +
		"To create a GitHub personal access token:\n" +
		"1. Go to https://github.com/settings/tokens\n" +
		"2. Choose either:\n" +
		"   - **Fine-grained token** (recommended): format `github_pat_...`\n" +
		"   - **Classic token** with `repo` scope: format `ghp_...`\n" +
		"3. Give it a descriptive name\n" +
		"4. Click 'Generate token' and copy it\n" +
		"5. Send it to me in the format above\n\n" +
		"**Note**: Keep your token secure and never share it publicly!"
}

func (c *GitHubConfig) Toolkit(ctx context.Context, userID string) (tool.Toolkit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tk, ok := c.toolkits[userID]; ok {
		return tk, nil
	}

	record, err := c.store.GetGitHubToken(ctx, userID)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load github token: %w", err)
	}

	tk := tool.NewGitHubToolkit(record.ServerURL, record.Token)
	c.toolkits[userID] = tk
	c.log.Debug("rebuilt github toolkit from stored token", "user_id", userID)
	return tk, nil
}

func (c *GitHubConfig) CheckAuthorizationRequest(message, userID string) string {
	messageLower := strings.ToLower(message)
	mentions := false
	for _, kw := range githubKeywords {
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

func (c *GitHubConfig) AgentInstructions(_ context.Context, userID string) ([]string, error) {
	if !c.Configured(userID) {
		return nil, nil
	}
	return []string{
		"You have access to GitHub tools to manage pull request reviews. " +
			"Use these tools when users ask about PR prioritization, review queues, or GitHub repositories.",
	}, nil
}
