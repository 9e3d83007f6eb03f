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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jiraIssuePayload = `{
	"key": "RHIDP-123",
	"fields": {
		"summary": "Plugin loading fails on startup",
		"description": "See https://github.com/redhat-developer/rhdh/pull/99 for a candidate fix.",
		"status": {"name": "In Progress"},
		"priority": {"name": "Critical"},
		"assignee": {"displayName": "Jane Doe"},
		"reporter": {"displayName": "John Smith"},
		"created": "2025-04-01T10:00:00.000+0000",
		"updated": "2025-04-10T10:00:00.000+0000",
		"components": [{"name": "plugins"}],
		"labels": ["regression"],
		"comment": {
			"comments": [
				{
					"id": "1001",
					"author": {"displayName": "Jane Doe"},
					"created": "2025-04-05T10:00:00.000+0000",
					"body": "Fix merged via https://github.com/redhat-developer/rhdh/pull/101"
				}
			]
		}
	}
}`

func TestGetIssueExtractsPullRequestLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/issue/RHIDP-123", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(jiraIssuePayload))
	}))
	defer srv.Close()

	tk := NewJiraToolkit(srv.URL, "tok", "")
	out, err := tk.getIssue(context.Background(), map[string]any{"issue_key": "RHIDP-123"})
	require.NoError(t, err)

	var issue jiraIssue
	require.NoError(t, json.Unmarshal([]byte(out), &issue))

	assert.Equal(t, "RHIDP-123", issue.Key)
	assert.Equal(t, "In Progress", issue.Status)
	assert.Equal(t, "Critical", issue.Priority)
	assert.Equal(t, "Jane Doe", issue.Assignee)
	assert.Equal(t, []string{"plugins"}, issue.Components)

	// PR links come from the description and every comment, deduplicated.
	assert.Equal(t, []string{
		"https://github.com/redhat-developer/rhdh/pull/99",
		"https://github.com/redhat-developer/rhdh/pull/101",
	}, issue.PullRequests)
	require.Len(t, issue.Comments, 1)
	assert.Equal(t, []string{"https://github.com/redhat-developer/rhdh/pull/101"}, issue.Comments[0].PRURLsFound)
}

func TestSearchIssues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/search", r.URL.Path)
		assert.Equal(t, "project = RHIDP", r.URL.Query().Get("jql"))
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total": 1, "issues": [` + jiraIssuePayload + `]}`))
	}))
	defer srv.Close()

	tk := NewJiraToolkit(srv.URL, "tok", "")
	out, err := tk.searchIssues(context.Background(), map[string]any{
		"jql_query":   "project = RHIDP",
		"max_results": 5,
	})
	require.NoError(t, err)

	var result struct {
		Total  int         `json:"total"`
		Issues []jiraIssue `json:"issues"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "RHIDP-123", result.Issues[0].Key)
}

func TestJiraBasicAuthWithUsername(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "jdoe", user)
		assert.Equal(t, "tok", pass)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"displayName":"Jane Doe"}`))
	}))
	defer srv.Close()

	tk := NewJiraToolkit(srv.URL, "tok", "jdoe")
	name, err := tk.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", name)
}

func TestJiraAPIErrorsAreToolOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	tk := NewJiraToolkit(srv.URL, "tok", "")
	out, err := tk.getIssue(context.Background(), map[string]any{"issue_key": "RHIDP-1"})
	require.NoError(t, err)
	assert.Contains(t, out, "Error fetching issue RHIDP-1")
}
