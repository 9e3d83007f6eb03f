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

package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agentllm/agentllm/pkg/httpclient"
)

const (
	defaultRHCPSSOURL = "https://sso.redhat.com"
	defaultRHCPAPIURL = "https://api.access.redhat.com"
)

// RHCPToolkit reads customer cases from the Red Hat Customer Portal.
// It is strictly read-only: no case creation or modification tools
// exist. The stored offline token is exchanged for short-lived access
// tokens against Red Hat SSO and cached until expiry.
type RHCPToolkit struct {
	offlineToken string
	ssoURL       string
	apiURL       string
	http         *httpclient.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// RHCPOption configures an RHCPToolkit.
type RHCPOption func(*RHCPToolkit)

// WithRHCPEndpoints overrides the SSO and API base URLs (tests).
func WithRHCPEndpoints(ssoURL, apiURL string) RHCPOption {
	return func(tk *RHCPToolkit) {
		tk.ssoURL = strings.TrimRight(ssoURL, "/")
		tk.apiURL = strings.TrimRight(apiURL, "/")
	}
}

// NewRHCPToolkit creates an RHCP toolkit for one user's offline token.
func NewRHCPToolkit(offlineToken string, opts ...RHCPOption) *RHCPToolkit {
	tk := &RHCPToolkit{
		offlineToken: offlineToken,
		ssoURL:       defaultRHCPSSOURL,
		apiURL:       defaultRHCPAPIURL,
		http:         httpclient.New(),
	}
	for _, opt := range opts {
		opt(tk)
	}
	return tk
}

func (tk *RHCPToolkit) Name() string { return "rhcp_tools" }

// accessTokenLocked exchanges the offline token when no valid cached
// access token exists.
func (tk *RHCPToolkit) getAccessToken(ctx context.Context) (string, error) {
	tk.mu.Lock()
	defer tk.mu.Unlock()

	if tk.accessToken != "" && time.Now().Before(tk.tokenExpiry) {
		return tk.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {"rhsm-api"},
		"refresh_token": {tk.offlineToken},
	}

	tokenURL := tk.ssoURL + "/auth/realms/redhat-external/protocol/openid-connect/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tk.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to exchange offline token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil || tokenResp.AccessToken == "" {
		return "", fmt.Errorf("unexpected token response from Red Hat SSO")
	}

	expiresIn := tokenResp.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 300
	}
	tk.accessToken = tokenResp.AccessToken
	// Refresh 30s early so in-flight requests never carry a token that
	// expires mid-call.
	tk.tokenExpiry = time.Now().Add(time.Duration(expiresIn-30) * time.Second)

	return tk.accessToken, nil
}

// Validate exchanges the offline token for an access token.
func (tk *RHCPToolkit) Validate(ctx context.Context) (string, error) {
	if _, err := tk.getAccessToken(ctx); err != nil {
		return "", fmt.Errorf("rhcp validation failed: %w", err)
	}
	return "Red Hat Customer Portal", nil
}

func (tk *RHCPToolkit) Tools() []Tool {
	return []Tool{
		&FuncTool{
			ToolName:        "get_case",
			ToolDescription: "Get customer case information by case number (read-only).",
			ToolParameters: []Parameter{
				{Name: "case_number", Type: "string", Description: "Customer case number", Required: true},
			},
			Fn: tk.getCase,
		},
		&FuncTool{
			ToolName:        "search_cases",
			ToolDescription: "Search customer cases with a query string (read-only).",
			ToolParameters: []Parameter{
				{Name: "query", Type: "string", Description: "Search query", Required: true},
				{Name: "limit", Type: "integer", Description: "Maximum results (default 10)"},
			},
			Fn: tk.searchCases,
		},
	}
}

type rhcpCase struct {
	CaseNumber       string `json:"case_number"`
	Severity         string `json:"severity,omitempty"`
	Status           string `json:"status,omitempty"`
	Summary          string `json:"summary,omitempty"`
	Description      string `json:"description,omitempty"`
	Product          string `json:"product,omitempty"`
	Version          string `json:"version,omitempty"`
	IsEscalated      bool   `json:"is_escalated"`
	ServiceLevel     string `json:"entitlement_service_level,omitempty"`
	CreatedDate      string `json:"created_date,omitempty"`
	LastModifiedDate string `json:"last_modified_date,omitempty"`
}

// flexString accepts the RHCP API's habit of returning some string
// fields as single-element lists.
func flexString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		var parts []string
		for _, item := range val {
			if item != nil {
				parts = append(parts, fmt.Sprint(item))
			}
		}
		return strings.Join(parts, ", ")
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

func parseRHCPCase(raw map[string]any) rhcpCase {
	escalated, _ := raw["case_customer_escalation"].(bool)
	return rhcpCase{
		CaseNumber:       flexString(raw["case_caseNumber"]),
		Severity:         flexString(raw["case_severity"]),
		Status:           flexString(raw["case_status"]),
		Summary:          flexString(raw["case_summary"]),
		Description:      flexString(raw["case_description"]),
		Product:          flexString(raw["case_product"]),
		Version:          flexString(raw["case_version"]),
		IsEscalated:      escalated,
		ServiceLevel:     flexString(raw["case_entitlement_service_level_label"]),
		CreatedDate:      flexString(raw["case_createdDate"]),
		LastModifiedDate: flexString(raw["case_lastModifiedDate"]),
	}
}

func (tk *RHCPToolkit) searchCaseDocs(ctx context.Context, query string, limit int) ([]map[string]any, error) {
	accessToken, err := tk.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{"q": {query}}
	if limit > 0 {
		params.Set("rows", strconv.Itoa(limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		tk.apiURL+"/support/search/cases?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := tk.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result struct {
		Response struct {
			Docs []map[string]any `json:"docs"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unexpected response from RHCP API: %w", err)
	}

	return result.Response.Docs, nil
}

func (tk *RHCPToolkit) getCase(ctx context.Context, args map[string]any) (string, error) {
	caseNumber, err := StringArg(args, "case_number")
	if err != nil {
		return "", err
	}

	docs, err := tk.searchCaseDocs(ctx, caseNumber, 1)
	if err != nil {
		return fmt.Sprintf("Error fetching case %s: %v", caseNumber, err), nil
	}
	if len(docs) == 0 {
		return fmt.Sprintf("No case found with case number: %s", caseNumber), nil
	}

	caseData := parseRHCPCase(docs[0])
	if caseData.CaseNumber == "" {
		caseData.CaseNumber = caseNumber
	}

	out, err := json.MarshalIndent(caseData, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (tk *RHCPToolkit) searchCases(ctx context.Context, args map[string]any) (string, error) {
	query, err := StringArg(args, "query")
	if err != nil {
		return "", err
	}
	limit := IntArg(args, "limit", 10)

	docs, err := tk.searchCaseDocs(ctx, query, limit)
	if err != nil {
		return fmt.Sprintf("Error searching cases: %v", err), nil
	}
	if len(docs) == 0 {
		return fmt.Sprintf("No cases found for query: %s", query), nil
	}

	cases := make([]rhcpCase, 0, len(docs))
	for _, doc := range docs {
		cases = append(cases, parseRHCPCase(doc))
	}

	out, err := json.MarshalIndent(cases, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
