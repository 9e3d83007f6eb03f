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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentllm/agentllm/pkg/credstore"
)

func TestColorExtraction(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"favorite color is", "my favorite color is blue", "blue"},
		{"favorite color colon", "favorite color: green", "green"},
		{"i like", "I like green", "green"},
		{"i love", "I love purple", "purple"},
		{"set color to", "set color to red", "red"},
		{"color colon", "color: purple", "purple"},
		{"uppercase", "My Favorite Color Is RED", "red"},
		{"no color", "hello there", ""},
		{"unrelated question", "what can you do?", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractColor(tt.message))
		})
	}
}

func TestFavoriteColorConfigScenario(t *testing.T) {
	store := credstore.NewMemoryStore()
	cfg := NewFavoriteColorConfig(store)
	ctx := context.Background()

	require.False(t, cfg.Configured("u1"))

	// An invalid color is a validation error and must not configure.
	_, err := cfg.ExtractAndStore(ctx, "my favorite color is ultraviolet", "u1")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "ultraviolet")
	assert.False(t, cfg.Configured("u1"))

	confirmation, err := cfg.ExtractAndStore(ctx, "I like green", "u1")
	require.NoError(t, err)
	assert.Contains(t, confirmation, "green")
	assert.True(t, cfg.Configured("u1"))

	color, err := store.GetFavoriteColor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "green", color)
}

func TestFavoriteColorPersistsAcrossInstances(t *testing.T) {
	store := credstore.NewMemoryStore()
	ctx := context.Background()

	first := NewFavoriteColorConfig(store)
	_, err := first.ExtractAndStore(ctx, "set color to blue", "u1")
	require.NoError(t, err)

	// A fresh config over the same store sees the stored credential.
	second := NewFavoriteColorConfig(store)
	assert.True(t, second.Configured("u1"))

	instructions, err := second.AgentInstructions(ctx, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, instructions)
	assert.Contains(t, instructions[0], "blue")
}

func TestJiraTokenExtraction(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"phrase is", "my jira token is SECRET123", "SECRET123"},
		{"phrase set to", "set jira token to SECRET123", "SECRET123"},
		{"phrase colon", "jira token: SECRET123", "SECRET123"},
		{"underscore", "my jira_token is SECRET123", "SECRET123"},
		{"bare token", "NDQzNjQzMTg2NTIzOqGmXAcOuqai5TTtJtcHqy", "NDQzNjQzMTg2NTIzOqGmXAcOuqai5TTtJtcHqy"},
		{"bare all letters ignored", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", ""},
		{"nothing", "can you check my tickets?", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJiraToken(tt.message))
		})
	}
}

func TestJiraExtractAndStoreValidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/api/2/myself", r.URL.Path)
		require.Equal(t, "Bearer SECRET123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"displayName":"Jane Doe","name":"jdoe"}`))
	}))
	defer srv.Close()

	store := credstore.NewMemoryStore()
	cfg := NewJiraConfig(store, WithJiraServer(srv.URL))

	confirmation, err := cfg.ExtractAndStore(context.Background(), "my jira token is SECRET123", "u1")
	require.NoError(t, err)
	assert.Contains(t, confirmation, "Jane Doe")

	record, err := store.GetJiraToken(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "SECRET123", record.Token)
	assert.Equal(t, srv.URL, record.ServerURL)
}

func TestJiraInvalidTokenIsValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := credstore.NewMemoryStore()
	cfg := NewJiraConfig(store, WithJiraServer(srv.URL))

	_, err := cfg.ExtractAndStore(context.Background(), "my jira token is BADTOKEN", "u1")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.False(t, cfg.Configured("u1"))
}

func TestJiraToolkitIdempotence(t *testing.T) {
	store := credstore.NewMemoryStore()
	require.NoError(t, store.UpsertJiraToken(context.Background(), &credstore.JiraToken{
		UserID:    "u1",
		Token:     "tok",
		ServerURL: "https://issues.example.com",
	}))

	cfg := NewJiraConfig(store)
	first, err := cfg.Toolkit(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := cfg.Toolkit(context.Background(), "u1")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestJiraToolkitNilForUnconfiguredUser(t *testing.T) {
	cfg := NewJiraConfig(credstore.NewMemoryStore())
	tk, err := cfg.Toolkit(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, tk)
}

func TestGitHubTokenExtraction(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"phrase", "my github token is ghp_abc", "ghp_abc"},
		{"bare classic", "ghp_abcdefghij1234567890ABCD", "ghp_abcdefghij1234567890ABCD"},
		{"bare fine grained", "github_pat_11ABCDEFG0123456789_abcdef", "github_pat_11ABCDEFG0123456789_abcdef"},
		{"classic in sentence", "here you go ghs_abcdefghij1234567890 thanks", "ghs_abcdefghij1234567890"},
		{"nothing", "prioritize my pull requests", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractGitHubToken(tt.message))
		})
	}
}

func TestGitHubAuthorizationPromptOnlyWhenMentioned(t *testing.T) {
	store := credstore.NewMemoryStore()
	cfg := NewGitHubConfig(store)

	// Unrelated message: optional config stays silent.
	assert.Empty(t, cfg.CheckAuthorizationRequest("what's the weather?", "u1"))

	// GitHub mention from an unconfigured user triggers the prompt.
	prompt := cfg.CheckAuthorizationRequest("show me my pull request queue", "u1")
	assert.Contains(t, prompt, "GitHub")

	// Configured users are never prompted.
	require.NoError(t, store.UpsertGitHubToken(context.Background(), &credstore.GitHubToken{
		UserID: "u1", Token: "tok", ServerURL: "https://api.github.com",
	}))
	assert.Empty(t, cfg.CheckAuthorizationRequest("show me my pull request queue", "u1"))
}

func TestGitHubExtractAndStoreValidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"octocat"}`))
	}))
	defer srv.Close()

	store := credstore.NewMemoryStore()
	cfg := NewGitHubConfig(store, WithGitHubServer(srv.URL))

	confirmation, err := cfg.ExtractAndStore(context.Background(),
		"my github token is ghp_abcdefghij1234567890", "u1")
	require.NoError(t, err)
	assert.Contains(t, confirmation, "octocat")

	record, err := store.GetGitHubToken(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "octocat", record.Username)
}

func TestRHCPTokenExtraction(t *testing.T) {
	long := "eyJ" + strings.Repeat("abc123", 20)

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"rhcp phrase", "my rhcp token is OFFLINE123", "OFFLINE123"},
		{"offline phrase", "my offline token is OFFLINE123", "OFFLINE123"},
		{"bare jwt", long, long},
		{"bare without jwt prefix ignored", "Ab1" + long[3:], ""},
		{"nothing", "look up case 04312027", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractRHCPToken(tt.message))
		})
	}
}

func TestGDriveCodeExtraction(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"redirect url", "http://localhost/?code=4/0AeaYSHBabc123&scope=drive", "4/0AeaYSHBabc123"},
		{"bare param", "code=4/0Xyz_abc-def", "4/0Xyz_abc-def"},
		{"phrase", "my gdrive code is 4/0AeaYSHBabc123", "4/0AeaYSHBabc123"},
		{"bare code", "4/0AeaYSHBabc123", "4/0AeaYSHBabc123"},
		{"code param without google prefix", "code=abcdef", ""},
		{"nothing", "open my google doc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractGDriveCode(tt.message))
		})
	}
}

func TestGDrivePromptWithoutClientCredentials(t *testing.T) {
	cfg := NewGoogleDriveConfig(credstore.NewMemoryStore(), "", "")

	prompt := cfg.ConfigPrompt("u1")
	assert.Contains(t, prompt, "administrator")

	_, err := cfg.ExtractAndStore(context.Background(), "4/0AeaYSHBabc123", "u1")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestGDriveAuthURLBindsUserAsState(t *testing.T) {
	cfg := NewGoogleDriveConfig(credstore.NewMemoryStore(), "client-id", "client-secret")

	url, err := cfg.authURL("user-42")
	require.NoError(t, err)
	assert.Contains(t, url, "state=user-42")
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "prompt=consent")
}

func TestSystemPromptExtensionWatchesGDrive(t *testing.T) {
	gdrive := NewGoogleDriveConfig(credstore.NewMemoryStore(), "id", "secret")
	cfg := NewSystemPromptExtensionConfig(gdrive, "https://docs.google.com/document/d/abc123/edit")

	assert.Equal(t, []string{credstore.ServiceGDrive}, cfg.Watches())

	// A new Drive credential drops the cached prompt content.
	cfg.mu.Lock()
	cfg.prompts["u1"] = "cached prompt"
	cfg.mu.Unlock()

	cfg.OnCredentialStored(credstore.ServiceGDrive, "u1")

	cfg.mu.Lock()
	_, ok := cfg.prompts["u1"]
	cfg.mu.Unlock()
	assert.False(t, ok)
}

func TestSystemPromptExtensionDormantWithoutDocURL(t *testing.T) {
	gdrive := NewGoogleDriveConfig(credstore.NewMemoryStore(), "id", "secret")
	cfg := NewSystemPromptExtensionConfig(gdrive, "")

	assert.False(t, cfg.Configured("u1"))

	instructions, err := cfg.AgentInstructions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, instructions)
}

func TestRHAIToolkitConfigDormantWithoutSheetURL(t *testing.T) {
	gdrive := NewGoogleDriveConfig(credstore.NewMemoryStore(), "id", "secret")
	cfg := NewRHAIToolkitConfig(gdrive, "")

	assert.False(t, cfg.Configured("u1"))

	tk, err := cfg.Toolkit(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, tk)

	instructions, err := cfg.AgentInstructions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, instructions)
}

func TestRHAIToolkitConfigRequiresGDrive(t *testing.T) {
	store := credstore.NewMemoryStore()
	gdrive := NewGoogleDriveConfig(store, "id", "secret")
	cfg := NewRHAIToolkitConfig(gdrive, "https://docs.google.com/spreadsheets/d/sheet-id/edit")

	// Sheet URL alone is not enough; Drive credentials gate the toolkit.
	assert.False(t, cfg.Configured("u1"))
	assert.Empty(t, cfg.ConfigPrompt("u1"))

	require.NoError(t, store.UpsertGDriveToken(context.Background(), &credstore.GDriveToken{
		UserID:       "u1",
		AccessToken:  "at",
		RefreshToken: "rt",
	}))
	assert.True(t, cfg.Configured("u1"))

	tk, err := cfg.Toolkit(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, tk)
	assert.Equal(t, "rhai_tools", tk.Name())

	instructions, err := cfg.AgentInstructions(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, instructions, 1)
	assert.Contains(t, instructions[0], "get_releases")
}

func TestRHAIToolkitCacheDropsOnGDriveChange(t *testing.T) {
	store := credstore.NewMemoryStore()
	gdrive := NewGoogleDriveConfig(store, "id", "secret")
	cfg := NewRHAIToolkitConfig(gdrive, "https://docs.google.com/spreadsheets/d/sheet-id/edit")

	require.NoError(t, store.UpsertGDriveToken(context.Background(), &credstore.GDriveToken{
		UserID:       "u1",
		AccessToken:  "at",
		RefreshToken: "rt",
	}))

	assert.Equal(t, []string{credstore.ServiceGDrive}, cfg.Watches())

	first, err := cfg.Toolkit(context.Background(), "u1")
	require.NoError(t, err)
	second, err := cfg.Toolkit(context.Background(), "u1")
	require.NoError(t, err)
	assert.Same(t, first, second)

	cfg.OnCredentialStored(credstore.ServiceGDrive, "u1")

	third, err := cfg.Toolkit(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestWebConfigAlwaysConfigured(t *testing.T) {
	cfg := NewWebConfig()
	assert.True(t, cfg.Configured("anyone"))
	assert.False(t, cfg.Required())

	first, err := cfg.Toolkit(context.Background(), "u1")
	require.NoError(t, err)
	second, err := cfg.Toolkit(context.Background(), "u2")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestValidationErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &ValidationError{Message: "failed", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "failed")
}
