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

var rhcpTokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:my\s+)?rhcp\s+(?:offline\s+)?token\s+(?:is|=|:)\s+(\S+)`),
	regexp.MustCompile(`(?i)set\s+rhcp\s+(?:offline\s+)?token\s+to\s+(\S+)`),
	regexp.MustCompile(`(?i)rhcp\s+(?:offline\s+)?token:\s*(\S+)`),
	regexp.MustCompile(`(?i)(?:my\s+)?offline\s+token\s+(?:is|=|:)\s+(\S+)`),
}

// rhcpBareTokenPattern catches an offline token pasted on its own.
// They are JWTs, typically 200+ characters starting with "eyJ".
var rhcpBareTokenPattern = regexp.MustCompile(`(?:^|\s)([A-Za-z0-9_\-.]{100,})(?:\s|$)`)

var rhcpKeywords = []string{
	"rhcp", "customer portal", "customer case", "case number", "entitlement", "access.redhat.com",
}

// RHCPConfig manages Red Hat Customer Portal offline tokens. Optional;
// the resulting toolkit is strictly read-only.
type RHCPConfig struct {
	store credstore.Store
	opts  []tool.RHCPOption
	log   *slog.Logger

	mu       sync.Mutex
	toolkits map[string]*tool.RHCPToolkit
}

// NewRHCPConfig creates an RHCP config. Toolkit options are passed
// through to every constructed toolkit (tests override endpoints).
func NewRHCPConfig(store credstore.Store, opts ...tool.RHCPOption) *RHCPConfig {
	return &RHCPConfig{
		store:    store,
		opts:     opts,
		log:      logger.New("toolkit.rhcp"),
		toolkits: make(map[string]*tool.RHCPToolkit),
	}
}

func (c *RHCPConfig) Name() string   { return credstore.ServiceRHCP }
func (c *RHCPConfig) Required() bool { return false }

func (c *RHCPConfig) Configured(userID string) bool {
	_, err := c.store.GetRHCPToken(context.Background(), userID)
	return err == nil
}

func extractRHCPToken(message string) string {
	for _, pattern := range rhcpTokenPatterns {
		if m := pattern.FindStringSubmatch(message); m != nil {
			return m[1]
		}
	}
	if m := rhcpBareTokenPattern.FindStringSubmatch(message); m != nil {
		if strings.HasPrefix(m[1], "eyJ") {
			return m[1]
		}
	}
	return ""
}

func (c *RHCPConfig) ExtractAndStore(ctx context.Context, message, userID string) (string, error) {
	offlineToken := extractRHCPToken(message)
	if offlineToken == "" {
		return "", nil
	}

	c.log.Info("validating rhcp offline token", "user_id", userID)

	tk := tool.NewRHCPToolkit(offlineToken, c.opts...)
	if _, err := tk.Validate(ctx); err != nil {
		c.log.Warn("rhcp token validation failed", "user_id", userID, "error", err)
		return "", &ValidationError{Message: "Failed to validate RHCP offline token", Err: err}
	}

	if err := c.store.UpsertRHCPToken(ctx, &credstore.RHCPToken{
		UserID:       userID,
		OfflineToken: offlineToken,
	}); err != nil {
		return "", fmt.Errorf("failed to save rhcp token: %w", err)
	}

	c.mu.Lock()
	c.toolkits[userID] = tk
	c.mu.Unlock()

	return "🎉 **RHCP Integration Active!**\n\n" +
		"I now have access to Red Hat Customer Portal tools. You can ask me to:\n" +
		"- Get customer case information by case number\n" +
		"- Search for customer cases\n" +
		"- Check case severity and escalation status\n" +
		"- Verify customer entitlements and SLA information\n\n" +
		"Note: I have READ-ONLY access - I cannot create or modify cases.", nil
}

func (c *RHCPConfig) ConfigPrompt(userID string) string {
	if c.Configured(userID) {
		return ""
	}

	return "🔑 **Red Hat Customer Portal (RHCP) Configuration Required**\n\n" +
		"To access customer case information, please provide your RHCP offline token:\n\n" +
		"Say: 'My RHCP offline token is YOUR_OFFLINE_TOKEN_HERE'\n\n" +
		"To get an RHCP offline token:\n" +
		"1. Go to https://access.redhat.com/management/api\n" +
		"2. Click 'Generate Token' under 'Offline Token'\n" +
		"3. Copy the token (it will be a long string)\n" +
		"4. Send it to me in the format above\n\n" +
		"See also: https://access.redhat.com/articles/3626371"
}

func (c *RHCPConfig) Toolkit(ctx context.Context, userID string) (tool.Toolkit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tk, ok := c.toolkits[userID]; ok {
		return tk, nil
	}

	record, err := c.store.GetRHCPToken(ctx, userID)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rhcp token: %w", err)
	}

	tk := tool.NewRHCPToolkit(record.OfflineToken, c.opts...)
	c.toolkits[userID] = tk
	c.log.Debug("rebuilt rhcp toolkit from stored token", "user_id", userID)
	return tk, nil
}

func (c *RHCPConfig) CheckAuthorizationRequest(message, userID string) string {
	messageLower := strings.ToLower(message)
	mentions := false
	for _, kw := range rhcpKeywords {
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

func (c *RHCPConfig) AgentInstructions(_ context.Context, userID string) ([]string, error) {
	if !c.Configured(userID) {
		return nil, nil
	}
	return []string{
		"Red Hat Customer Portal (RHCP) Integration:",
		"- You have READ-ONLY access to customer case information",
		"- Use get_case(case_number) for details of a specific customer case",
		"- Use search_cases(query, limit) to search for customer cases",
		"- Case data includes severity, status, escalation status, entitlement level, and SLA information",
		"- ALWAYS use RHCP tools when asked about customer cases or case numbers",
		"- Do NOT create, update, or modify customer cases",
		"- Cross-reference JIRA issues with RHCP customer cases: JIRA stores case numbers " +
			"in customfield_12313441 (use cf[12313441] in JQL queries)",
	}, nil
}
