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

package credstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories returns both implementations so every behavior is
// exercised against the SQL store and the in-memory store.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"sqlite": func(t *testing.T) Store {
			dbPath := filepath.Join(t.TempDir(), "creds.db")
			store, err := Open("sqlite", dbPath)
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
	}
}

func TestJiraTokenRoundtrip(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			err := store.UpsertJiraToken(ctx, &JiraToken{
				UserID:    "u1",
				Token:     "tok",
				ServerURL: "https://issues.example.com",
			})
			require.NoError(t, err)

			got, err := store.GetJiraToken(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "tok", got.Token)
			assert.Equal(t, "https://issues.example.com", got.ServerURL)
			assert.False(t, got.CreatedAt.IsZero())
			assert.False(t, got.UpdatedAt.IsZero())
		})
	}
}

func TestJiraTokenUpsertReplaces(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			require.NoError(t, store.UpsertJiraToken(ctx, &JiraToken{
				UserID: "u1", Token: "old", ServerURL: "https://a.example.com",
			}))
			require.NoError(t, store.UpsertJiraToken(ctx, &JiraToken{
				UserID: "u1", Token: "new", ServerURL: "https://b.example.com",
			}))

			got, err := store.GetJiraToken(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "new", got.Token)
			assert.Equal(t, "https://b.example.com", got.ServerURL)

			users, err := store.ListJiraUsers(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"u1"}, users)
		})
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			_, err := store.GetJiraToken(ctx, "nobody")
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = store.GetGitHubToken(ctx, "nobody")
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = store.GetGDriveToken(ctx, "nobody")
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = store.GetRHCPToken(ctx, "nobody")
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = store.GetFavoriteColor(ctx, "nobody")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestDeleteMissingReturnsNotFound(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			assert.ErrorIs(t, store.DeleteJiraToken(ctx, "nobody"), ErrNotFound)
			assert.ErrorIs(t, store.DeleteGDriveToken(ctx, "nobody"), ErrNotFound)
		})
	}
}

func TestGDriveTokenRoundtrip(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
			err := store.UpsertGDriveToken(ctx, &GDriveToken{
				UserID:       "u1",
				AccessToken:  "ya29.access",
				RefreshToken: "1//refresh",
				TokenURI:     "https://oauth2.googleapis.com/token",
				ClientID:     "client-id",
				ClientSecret: "client-secret",
				Scopes: []string{
					"https://www.googleapis.com/auth/drive.readonly",
					"https://www.googleapis.com/auth/documents.readonly",
				},
				Expiry: expiry,
			})
			require.NoError(t, err)

			got, err := store.GetGDriveToken(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "ya29.access", got.AccessToken)
			assert.Equal(t, "1//refresh", got.RefreshToken)
			assert.Len(t, got.Scopes, 2)
			assert.True(t, got.Expiry.Equal(expiry), "expiry mismatch: %v != %v", got.Expiry, expiry)
		})
	}
}

func TestFavoriteColorRoundtrip(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			require.NoError(t, store.UpsertFavoriteColor(ctx, "u1", "blue"))

			color, err := store.GetFavoriteColor(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "blue", color)

			require.NoError(t, store.UpsertFavoriteColor(ctx, "u1", "green"))
			color, err = store.GetFavoriteColor(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "green", color)

			require.NoError(t, store.DeleteFavoriteColor(ctx, "u1"))
			_, err = store.GetFavoriteColor(ctx, "u1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestUsersAreIsolatedPerService(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			require.NoError(t, store.UpsertJiraToken(ctx, &JiraToken{
				UserID: "u1", Token: "jt", ServerURL: "https://issues.example.com",
			}))
			require.NoError(t, store.UpsertGitHubToken(ctx, &GitHubToken{
				UserID: "u2", Token: "ghp_x", ServerURL: "https://api.github.com",
			}))

			jiraUsers, err := store.ListJiraUsers(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"u1"}, jiraUsers)

			githubUsers, err := store.ListGitHubUsers(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"u2"}, githubUsers)

			_, err = store.GetJiraToken(ctx, "u2")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
