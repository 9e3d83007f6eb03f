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
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agentllm/agentllm/pkg/logger"

	// Database drivers
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore implements Store with a SQL backend.
// Supports PostgreSQL, MySQL, and SQLite via database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect string // "postgres", "mysql", or "sqlite"
	log     interface {
		Debug(msg string, args ...any)
		Error(msg string, args ...any)
	}
}

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS jira_tokens (
    user_id VARCHAR(255) PRIMARY KEY,
    token TEXT NOT NULL,
    server_url VARCHAR(1024) NOT NULL,
    username VARCHAR(255),
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS github_tokens (
    user_id VARCHAR(255) PRIMARY KEY,
    token TEXT NOT NULL,
    server_url VARCHAR(1024) NOT NULL,
    username VARCHAR(255),
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS gdrive_tokens (
    user_id VARCHAR(255) PRIMARY KEY,
    access_token TEXT NOT NULL,
    refresh_token TEXT,
    token_uri VARCHAR(1024),
    client_id VARCHAR(1024),
    client_secret VARCHAR(1024),
    scopes TEXT,
    expiry TIMESTAMP NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS rhcp_tokens (
    user_id VARCHAR(255) PRIMARY KEY,
    offline_token TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS favorite_colors (
    user_id VARCHAR(255) PRIMARY KEY,
    color VARCHAR(64) NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// NewSQLStore creates a SQL-backed credential store over an existing
// database connection.
func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	switch dialect {
	case "postgres", "mysql", "sqlite":
		// Valid
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &SQLStore{
		db:      db,
		dialect: dialect,
		log:     logger.New("credstore"),
	}

	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Open opens a database connection for the given driver and DSN and
// wraps it in a SQLStore. Driver is one of "sqlite", "postgres", "mysql".
func Open(driver, dsn string) (*SQLStore, error) {
	// database/sql registers go-sqlite3 as "sqlite3"
	driverName := driver
	if driverName == "sqlite" {
		driverName = "sqlite3"
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewSQLStore(db, driver)
}

func (s *SQLStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// SQLite and MySQL accept multiple statements only one at a time
	// through some drivers, so execute per statement.
	for _, stmt := range strings.Split(createTablesSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind converts ? placeholders to $n for the postgres dialect.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// upsert runs an update-then-insert pair. database/sql has no portable
// ON CONFLICT across the three dialects, and a credential upsert is not
// contended enough to justify dialect-specific SQL.
func (s *SQLStore) upsert(ctx context.Context, update, insert string, updateArgs, insertArgs []any) error {
	res, err := s.db.ExecContext(ctx, s.rebind(update), updateArgs...)
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err == nil && affected > 0 {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, s.rebind(insert), insertArgs...); err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}

	return nil
}

func (s *SQLStore) deleteFrom(ctx context.Context, table, userID string) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM "+table+" WHERE user_id = ?"), userID)
	if err != nil {
		return fmt.Errorf("delete from %s failed: %w", table, err)
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLStore) listUsers(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT user_id FROM "+table+" ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("list users from %s failed: %w", table, err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		users = append(users, userID)
	}

	return users, rows.Err()
}

// Jira

func (s *SQLStore) UpsertJiraToken(ctx context.Context, token *JiraToken) error {
	now := time.Now().UTC()
	err := s.upsert(ctx,
		`UPDATE jira_tokens SET token = ?, server_url = ?, username = ?, updated_at = ? WHERE user_id = ?`,
		`INSERT INTO jira_tokens (user_id, token, server_url, username, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		[]any{token.Token, token.ServerURL, token.Username, now, token.UserID},
		[]any{token.UserID, token.Token, token.ServerURL, token.Username, now, now},
	)
	if err != nil {
		s.log.Error("failed to upsert jira token", "user_id", token.UserID, "error", err)
		return err
	}

	s.log.Debug("stored jira token", "user_id", token.UserID)
	return nil
}

func (s *SQLStore) GetJiraToken(ctx context.Context, userID string) (*JiraToken, error) {
	query := `SELECT user_id, token, server_url, COALESCE(username, ''), created_at, updated_at FROM jira_tokens WHERE user_id = ?`

	token := &JiraToken{}
	err := s.db.QueryRowContext(ctx, s.rebind(query), userID).Scan(
		&token.UserID, &token.Token, &token.ServerURL, &token.Username,
		&token.CreatedAt, &token.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get jira token: %w", err)
	}

	return token, nil
}

func (s *SQLStore) DeleteJiraToken(ctx context.Context, userID string) error {
	return s.deleteFrom(ctx, "jira_tokens", userID)
}

func (s *SQLStore) ListJiraUsers(ctx context.Context) ([]string, error) {
	return s.listUsers(ctx, "jira_tokens")
}

// GitHub

func (s *SQLStore) UpsertGitHubToken(ctx context.Context, token *GitHubToken) error {
	now := time.Now().UTC()
	err := s.upsert(ctx,
		`UPDATE github_tokens SET token = ?, server_url = ?, username = ?, updated_at = ? WHERE user_id = ?`,
		`INSERT INTO github_tokens (user_id, token, server_url, username, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		[]any{token.Token, token.ServerURL, token.Username, now, token.UserID},
		[]any{token.UserID, token.Token, token.ServerURL, token.Username, now, now},
	)
	if err != nil {
		s.log.Error("failed to upsert github token", "user_id", token.UserID, "error", err)
		return err
	}

	s.log.Debug("stored github token", "user_id", token.UserID)
	return nil
}

func (s *SQLStore) GetGitHubToken(ctx context.Context, userID string) (*GitHubToken, error) {
	query := `SELECT user_id, token, server_url, COALESCE(username, ''), created_at, updated_at FROM github_tokens WHERE user_id = ?`

	token := &GitHubToken{}
	err := s.db.QueryRowContext(ctx, s.rebind(query), userID).Scan(
		&token.UserID, &token.Token, &token.ServerURL, &token.Username,
		&token.CreatedAt, &token.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get github token: %w", err)
	}

	return token, nil
}

func (s *SQLStore) DeleteGitHubToken(ctx context.Context, userID string) error {
	return s.deleteFrom(ctx, "github_tokens", userID)
}

func (s *SQLStore) ListGitHubUsers(ctx context.Context) ([]string, error) {
	return s.listUsers(ctx, "github_tokens")
}

// Google Drive

func (s *SQLStore) UpsertGDriveToken(ctx context.Context, token *GDriveToken) error {
	scopesJSON, err := json.Marshal(token.Scopes)
	if err != nil {
		return fmt.Errorf("failed to serialize scopes: %w", err)
	}

	now := time.Now().UTC()
	var expiry any
	if !token.Expiry.IsZero() {
		expiry = token.Expiry.UTC()
	}

	err = s.upsert(ctx,
		`UPDATE gdrive_tokens SET access_token = ?, refresh_token = ?, token_uri = ?, client_id = ?, client_secret = ?, scopes = ?, expiry = ?, updated_at = ? WHERE user_id = ?`,
		`INSERT INTO gdrive_tokens (user_id, access_token, refresh_token, token_uri, client_id, client_secret, scopes, expiry, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		[]any{token.AccessToken, token.RefreshToken, token.TokenURI, token.ClientID, token.ClientSecret, string(scopesJSON), expiry, now, token.UserID},
		[]any{token.UserID, token.AccessToken, token.RefreshToken, token.TokenURI, token.ClientID, token.ClientSecret, string(scopesJSON), expiry, now, now},
	)
	if err != nil {
		s.log.Error("failed to upsert gdrive token", "user_id", token.UserID, "error", err)
		return err
	}

	s.log.Debug("stored gdrive token", "user_id", token.UserID)
	return nil
}

func (s *SQLStore) GetGDriveToken(ctx context.Context, userID string) (*GDriveToken, error) {
	query := `SELECT user_id, access_token, COALESCE(refresh_token, ''), COALESCE(token_uri, ''), COALESCE(client_id, ''), COALESCE(client_secret, ''), COALESCE(scopes, '[]'), expiry, created_at, updated_at FROM gdrive_tokens WHERE user_id = ?`

	token := &GDriveToken{}
	var scopesJSON string
	var expiry sql.NullTime

	err := s.db.QueryRowContext(ctx, s.rebind(query), userID).Scan(
		&token.UserID, &token.AccessToken, &token.RefreshToken,
		&token.TokenURI, &token.ClientID, &token.ClientSecret,
		&scopesJSON, &expiry, &token.CreatedAt, &token.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gdrive token: %w", err)
	}

	if err := json.Unmarshal([]byte(scopesJSON), &token.Scopes); err != nil {
		return nil, fmt.Errorf("failed to deserialize scopes: %w", err)
	}
	if expiry.Valid {
		token.Expiry = expiry.Time
	}

	return token, nil
}

func (s *SQLStore) DeleteGDriveToken(ctx context.Context, userID string) error {
	return s.deleteFrom(ctx, "gdrive_tokens", userID)
}

func (s *SQLStore) ListGDriveUsers(ctx context.Context) ([]string, error) {
	return s.listUsers(ctx, "gdrive_tokens")
}

// Red Hat Customer Portal

func (s *SQLStore) UpsertRHCPToken(ctx context.Context, token *RHCPToken) error {
	now := time.Now().UTC()
	err := s.upsert(ctx,
		`UPDATE rhcp_tokens SET offline_token = ?, updated_at = ? WHERE user_id = ?`,
		`INSERT INTO rhcp_tokens (user_id, offline_token, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		[]any{token.OfflineToken, now, token.UserID},
		[]any{token.UserID, token.OfflineToken, now, now},
	)
	if err != nil {
		s.log.Error("failed to upsert rhcp token", "user_id", token.UserID, "error", err)
		return err
	}

	s.log.Debug("stored rhcp token", "user_id", token.UserID)
	return nil
}

func (s *SQLStore) GetRHCPToken(ctx context.Context, userID string) (*RHCPToken, error) {
	query := `SELECT user_id, offline_token, created_at, updated_at FROM rhcp_tokens WHERE user_id = ?`

	token := &RHCPToken{}
	err := s.db.QueryRowContext(ctx, s.rebind(query), userID).Scan(
		&token.UserID, &token.OfflineToken, &token.CreatedAt, &token.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rhcp token: %w", err)
	}

	return token, nil
}

func (s *SQLStore) DeleteRHCPToken(ctx context.Context, userID string) error {
	return s.deleteFrom(ctx, "rhcp_tokens", userID)
}

func (s *SQLStore) ListRHCPUsers(ctx context.Context) ([]string, error) {
	return s.listUsers(ctx, "rhcp_tokens")
}

// Favorite color (demo agent preference table)

func (s *SQLStore) UpsertFavoriteColor(ctx context.Context, userID, color string) error {
	now := time.Now().UTC()
	err := s.upsert(ctx,
		`UPDATE favorite_colors SET color = ?, updated_at = ? WHERE user_id = ?`,
		`INSERT INTO favorite_colors (user_id, color, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		[]any{color, now, userID},
		[]any{userID, color, now, now},
	)
	if err != nil {
		s.log.Error("failed to upsert favorite color", "user_id", userID, "error", err)
		return err
	}

	return nil
}

func (s *SQLStore) GetFavoriteColor(ctx context.Context, userID string) (string, error) {
	query := `SELECT color FROM favorite_colors WHERE user_id = ?`

	var color string
	err := s.db.QueryRowContext(ctx, s.rebind(query), userID).Scan(&color)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get favorite color: %w", err)
	}

	return color, nil
}

func (s *SQLStore) DeleteFavoriteColor(ctx context.Context, userID string) error {
	return s.deleteFrom(ctx, "favorite_colors", userID)
}
