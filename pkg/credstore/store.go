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

// Package credstore persists per-(user, service) credentials.
//
// One live record exists per (user, service) pair; writes are upserts
// keyed on user_id. Records are never deleted automatically. The store
// is the durable source of truth: toolkit configs keep in-memory adapter
// caches on top of it, but those caches are best-effort and are rebuilt
// from here after a restart.
package credstore

import (
	"context"
	"errors"
	"time"
)

// Service identifiers used as cross-config invalidation keys.
const (
	ServiceJira          = "jira"
	ServiceGitHub        = "github"
	ServiceGDrive        = "gdrive"
	ServiceRHCP          = "rhcp"
	ServiceFavoriteColor = "favorite_color"
)

// ErrNotFound is returned when no record exists for the given user.
var ErrNotFound = errors.New("credential not found")

// JiraToken is a stored Jira API token.
type JiraToken struct {
	UserID    string
	Token     string
	ServerURL string
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GitHubToken is a stored GitHub personal access token.
type GitHubToken struct {
	UserID    string
	Token     string
	ServerURL string
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GDriveToken is a stored Google Drive OAuth credential. It carries
// everything needed to reconstruct an oauth2 token source without
// re-authorization, as long as RefreshToken is set.
type GDriveToken struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenURI     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Expiry       time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RHCPToken is a stored Red Hat Customer Portal offline token.
type RHCPToken struct {
	UserID       string
	OfflineToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store is the credential persistence interface.
//
// Get methods return ErrNotFound when no record exists. Delete methods
// return ErrNotFound when there was nothing to delete.
type Store interface {
	UpsertJiraToken(ctx context.Context, token *JiraToken) error
	GetJiraToken(ctx context.Context, userID string) (*JiraToken, error)
	DeleteJiraToken(ctx context.Context, userID string) error
	ListJiraUsers(ctx context.Context) ([]string, error)

	UpsertGitHubToken(ctx context.Context, token *GitHubToken) error
	GetGitHubToken(ctx context.Context, userID string) (*GitHubToken, error)
	DeleteGitHubToken(ctx context.Context, userID string) error
	ListGitHubUsers(ctx context.Context) ([]string, error)

	UpsertGDriveToken(ctx context.Context, token *GDriveToken) error
	GetGDriveToken(ctx context.Context, userID string) (*GDriveToken, error)
	DeleteGDriveToken(ctx context.Context, userID string) error
	ListGDriveUsers(ctx context.Context) ([]string, error)

	UpsertRHCPToken(ctx context.Context, token *RHCPToken) error
	GetRHCPToken(ctx context.Context, userID string) (*RHCPToken, error)
	DeleteRHCPToken(ctx context.Context, userID string) error
	ListRHCPUsers(ctx context.Context) ([]string, error)

	UpsertFavoriteColor(ctx context.Context, userID, color string) error
	GetFavoriteColor(ctx context.Context, userID string) (string, error)
	DeleteFavoriteColor(ctx context.Context, userID string) error

	Close() error
}
