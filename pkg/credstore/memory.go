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
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in tests and in single-process
// setups that do not need persistence across restarts.
type MemoryStore struct {
	mu             sync.RWMutex
	jiraTokens     map[string]*JiraToken
	githubTokens   map[string]*GitHubToken
	gdriveTokens   map[string]*GDriveToken
	rhcpTokens     map[string]*RHCPToken
	favoriteColors map[string]string
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jiraTokens:     make(map[string]*JiraToken),
		githubTokens:   make(map[string]*GitHubToken),
		gdriveTokens:   make(map[string]*GDriveToken),
		rhcpTokens:     make(map[string]*RHCPToken),
		favoriteColors: make(map[string]string),
	}
}

func (s *MemoryStore) Close() error { return nil }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *MemoryStore) UpsertJiraToken(_ context.Context, token *JiraToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored := *token
	stored.UpdatedAt = now
	if existing, ok := s.jiraTokens[token.UserID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	s.jiraTokens[token.UserID] = &stored
	return nil
}

func (s *MemoryStore) GetJiraToken(_ context.Context, userID string) (*JiraToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.jiraTokens[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (s *MemoryStore) DeleteJiraToken(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jiraTokens[userID]; !ok {
		return ErrNotFound
	}
	delete(s.jiraTokens, userID)
	return nil
}

func (s *MemoryStore) ListJiraUsers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.jiraTokens), nil
}

func (s *MemoryStore) UpsertGitHubToken(_ context.Context, token *GitHubToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored := *token
	stored.UpdatedAt = now
	if existing, ok := s.githubTokens[token.UserID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	s.githubTokens[token.UserID] = &stored
	return nil
}

func (s *MemoryStore) GetGitHubToken(_ context.Context, userID string) (*GitHubToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.githubTokens[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (s *MemoryStore) DeleteGitHubToken(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.githubTokens[userID]; !ok {
		return ErrNotFound
	}
	delete(s.githubTokens, userID)
	return nil
}

func (s *MemoryStore) ListGitHubUsers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.githubTokens), nil
}

func (s *MemoryStore) UpsertGDriveToken(_ context.Context, token *GDriveToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored := *token
	stored.Scopes = append([]string(nil), token.Scopes...)
	stored.UpdatedAt = now
	if existing, ok := s.gdriveTokens[token.UserID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	s.gdriveTokens[token.UserID] = &stored
	return nil
}

func (s *MemoryStore) GetGDriveToken(_ context.Context, userID string) (*GDriveToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.gdriveTokens[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *token
	copied.Scopes = append([]string(nil), token.Scopes...)
	return &copied, nil
}

func (s *MemoryStore) DeleteGDriveToken(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.gdriveTokens[userID]; !ok {
		return ErrNotFound
	}
	delete(s.gdriveTokens, userID)
	return nil
}

func (s *MemoryStore) ListGDriveUsers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.gdriveTokens), nil
}

func (s *MemoryStore) UpsertRHCPToken(_ context.Context, token *RHCPToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored := *token
	stored.UpdatedAt = now
	if existing, ok := s.rhcpTokens[token.UserID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	s.rhcpTokens[token.UserID] = &stored
	return nil
}

func (s *MemoryStore) GetRHCPToken(_ context.Context, userID string) (*RHCPToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.rhcpTokens[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (s *MemoryStore) DeleteRHCPToken(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rhcpTokens[userID]; !ok {
		return ErrNotFound
	}
	delete(s.rhcpTokens, userID)
	return nil
}

func (s *MemoryStore) ListRHCPUsers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.rhcpTokens), nil
}

func (s *MemoryStore) UpsertFavoriteColor(_ context.Context, userID, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.favoriteColors[userID] = color
	return nil
}

func (s *MemoryStore) GetFavoriteColor(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	color, ok := s.favoriteColors[userID]
	if !ok {
		return "", ErrNotFound
	}
	return color, nil
}

func (s *MemoryStore) DeleteFavoriteColor(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.favoriteColors[userID]; !ok {
		return ErrNotFound
	}
	delete(s.favoriteColors, userID)
	return nil
}
