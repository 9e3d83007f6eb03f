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
	"regexp"
	"strconv"
	"strings"

	"github.com/agentllm/agentllm/pkg/httpclient"
	"github.com/agentllm/agentllm/pkg/logger"
)

var githubPRURLPattern = regexp.MustCompile(`https://github\.com/[\w.-]+/[\w.-]+/pull/\d+`)

// JiraToolkit talks to a Jira server's REST API v2 with a personal
// access token. With a username set it uses basic auth; without one it
// uses bearer token auth (Red Hat Jira convention).
type JiraToolkit struct {
	serverURL string
	token     string
	username  string
	http      *httpclient.Client
}

// NewJiraToolkit creates a Jira toolkit for one user's credentials.
func NewJiraToolkit(serverURL, token, username string, opts ...httpclient.Option) *JiraToolkit {
	return &JiraToolkit{
		serverURL: strings.TrimRight(serverURL, "/"),
		token:     token,
		username:  username,
		http:      httpclient.New(opts...),
	}
}

func (tk *JiraToolkit) Name() string { return "jira_tools" }

func (tk *JiraToolkit) authorize(req *http.Request) {
	if tk.username != "" {
		req.SetBasicAuth(tk.username, tk.token)
		return
	}
	req.Header.Set("Authorization", "Bearer "+tk.token)
}

func (tk *JiraToolkit) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := tk.serverURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	tk.authorize(req)

	resp, err := tk.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// Validate checks the token by fetching the authenticated user's
// profile. On success it returns the user's display name.
func (tk *JiraToolkit) Validate(ctx context.Context) (string, error) {
	body, err := tk.get(ctx, "/rest/api/2/myself", nil)
	if err != nil {
		return "", fmt.Errorf("jira validation failed: %w", err)
	}

	var profile struct {
		DisplayName string `json:"displayName"`
		Name        string `json:"name"`
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return "", fmt.Errorf("unexpected response from jira: %w", err)
	}

	name := profile.DisplayName
	if name == "" {
		name = profile.Name
	}
	logger.New("tool.jira").Debug("jira token validated", "user", name)
	return name, nil
}

func (tk *JiraToolkit) Tools() []Tool {
	return []Tool{
		&FuncTool{
			ToolName:        "get_issue",
			ToolDescription: "Get full details of a Jira issue by key, including comments and any GitHub pull request links found in them.",
			ToolParameters: []Parameter{
				{Name: "issue_key", Type: "string", Description: "Issue key, e.g. PROJ-123", Required: true},
			},
			Fn: tk.getIssue,
		},
		&FuncTool{
			ToolName:        "search_issues",
			ToolDescription: "Search Jira issues with a JQL query.",
			ToolParameters: []Parameter{
				{Name: "jql_query", Type: "string", Description: "JQL query string", Required: true},
				{Name: "max_results", Type: "integer", Description: "Maximum results to return (default 50)"},
			},
			Fn: tk.searchIssues,
		},
	}
}

type jiraComment struct {
	ID          string   `json:"id,omitempty"`
	Author      string   `json:"author"`
	Created     string   `json:"created"`
	Body        string   `json:"body"`
	PRURLsFound []string `json:"pr_urls_found"`
}

type jiraIssue struct {
	Key          string        `json:"key"`
	Summary      string        `json:"summary"`
	Description  string        `json:"description"`
	Status       string        `json:"status"`
	Priority     string        `json:"priority"`
	Assignee     string        `json:"assignee,omitempty"`
	Reporter     string        `json:"reporter,omitempty"`
	CreatedDate  string        `json:"created_date,omitempty"`
	UpdatedDate  string        `json:"updated_date,omitempty"`
	Components   []string      `json:"components"`
	Labels       []string      `json:"labels"`
	PullRequests []string      `json:"pull_requests"`
	Comments     []jiraComment `json:"comments,omitempty"`
}

type rawJiraIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Status      struct {
			Name string `json:"name"`
		} `json:"status"`
		Priority struct {
			Name string `json:"name"`
		} `json:"priority"`
		Assignee *struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		Reporter *struct {
			DisplayName string `json:"displayName"`
		} `json:"reporter"`
		Created    string `json:"created"`
		Updated    string `json:"updated"`
		Components []struct {
			Name string `json:"name"`
		} `json:"components"`
		Labels  []string `json:"labels"`
		Comment struct {
			Comments []struct {
				ID     string `json:"id"`
				Author struct {
					DisplayName string `json:"displayName"`
				} `json:"author"`
				Created string `json:"created"`
				Body    string `json:"body"`
			} `json:"comments"`
		} `json:"comment"`
	} `json:"fields"`
}

func formatJiraIssue(raw *rawJiraIssue) *jiraIssue {
	issue := &jiraIssue{
		Key:          raw.Key,
		Summary:      raw.Fields.Summary,
		Description:  raw.Fields.Description,
		Status:       raw.Fields.Status.Name,
		Priority:     raw.Fields.Priority.Name,
		CreatedDate:  raw.Fields.Created,
		UpdatedDate:  raw.Fields.Updated,
		Labels:       raw.Fields.Labels,
		Components:   []string{},
		PullRequests: []string{},
	}
	if raw.Fields.Assignee != nil {
		issue.Assignee = raw.Fields.Assignee.DisplayName
	}
	if raw.Fields.Reporter != nil {
		issue.Reporter = raw.Fields.Reporter.DisplayName
	}
	for _, c := range raw.Fields.Components {
		issue.Components = append(issue.Components, c.Name)
	}
	if issue.Labels == nil {
		issue.Labels = []string{}
	}

	seen := make(map[string]bool)
	addPRs := func(text string) []string {
		found := githubPRURLPattern.FindAllString(text, -1)
		for _, u := range found {
			if !seen[u] {
				seen[u] = true
				issue.PullRequests = append(issue.PullRequests, u)
			}
		}
		return found
	}

	addPRs(issue.Description)
	for _, c := range raw.Fields.Comment.Comments {
		issue.Comments = append(issue.Comments, jiraComment{
			ID:          c.ID,
			Author:      c.Author.DisplayName,
			Created:     c.Created,
			Body:        c.Body,
			PRURLsFound: addPRs(c.Body),
		})
	}

	return issue
}

func (tk *JiraToolkit) getIssue(ctx context.Context, args map[string]any) (string, error) {
	issueKey, err := StringArg(args, "issue_key")
	if err != nil {
		return "", err
	}

	body, err := tk.get(ctx, "/rest/api/2/issue/"+url.PathEscape(issueKey), url.Values{
		"expand": {"comments"},
	})
	if err != nil {
		return fmt.Sprintf("Error fetching issue %s: %v", issueKey, err), nil
	}

	var raw rawJiraIssue
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Sprintf("Error parsing issue %s: %v", issueKey, err), nil
	}

	out, err := json.MarshalIndent(formatJiraIssue(&raw), "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (tk *JiraToolkit) searchIssues(ctx context.Context, args map[string]any) (string, error) {
	jql, err := StringArg(args, "jql_query")
	if err != nil {
		return "", err
	}
	maxResults := IntArg(args, "max_results", 50)

	body, err := tk.get(ctx, "/rest/api/2/search", url.Values{
		"jql":        {jql},
		"maxResults": {strconv.Itoa(maxResults)},
	})
	if err != nil {
		return fmt.Sprintf("Error searching issues: %v", err), nil
	}

	var result struct {
		Total  int            `json:"total"`
		Issues []rawJiraIssue `json:"issues"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Sprintf("Error parsing search results: %v", err), nil
	}

	issues := make([]*jiraIssue, 0, len(result.Issues))
	for i := range result.Issues {
		issues = append(issues, formatJiraIssue(&result.Issues[i]))
	}

	out, err := json.MarshalIndent(map[string]any{
		"total":  result.Total,
		"issues": issues,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
