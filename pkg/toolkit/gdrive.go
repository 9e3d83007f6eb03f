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

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/agentllm/agentllm/pkg/credstore"
	"github.com/agentllm/agentllm/pkg/logger"
	"github.com/agentllm/agentllm/pkg/tool"
)

// gdriveScopes are read-only: the integration downloads documents and
// never writes to the user's Drive.
var gdriveScopes = []string{
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/documents.readonly",
	"https://www.googleapis.com/auth/spreadsheets.readonly",
	"https://www.googleapis.com/auth/presentations.readonly",
}

// Authorization code shapes, most specific first: a pasted redirect URL
// (or bare code= parameter), explicit phrases, then a standalone code.
// Google OAuth codes start with "4/".
var (
	gdriveCodeURLPattern = regexp.MustCompile(`(?i)(?:https?://\S*[?&])?code=([^&\s]+)`)
	gdriveCodePhrases    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:my\s+)?(?:google\s+drive|gdrive|drive)\s+(?:auth\s+)?code\s+(?:is|=|:)\s+(\S+)`),
		regexp.MustCompile(`(?i)set\s+(?:google\s+drive|gdrive|drive)\s+code\s+to\s+(\S+)`),
	}
	gdriveBareCodePattern = regexp.MustCompile(`(?:^|\s)(4/[A-Za-z0-9_\-.]+)(?:\s|$)`)
)

var gdriveKeywords = []string{
	"google drive", "gdrive", "google doc", "google sheet", "google slides", "drive.google.com",
}

// GoogleDriveConfig manages the Google Drive OAuth flow. The OAuth
// state parameter carries the user ID so the authorization is bound to
// the requesting user; offline access with forced consent guarantees a
// refresh token on first authorization.
type GoogleDriveConfig struct {
	store        credstore.Store
	clientID     string
	clientSecret string
	redirectURI  string
	endpoint     oauth2.Endpoint
	log          *slog.Logger

	mu       sync.Mutex
	toolkits map[string]*tool.GoogleDriveToolkit
}

// GDriveConfigOption configures a GoogleDriveConfig.
type GDriveConfigOption func(*GoogleDriveConfig)

// WithGDriveEndpoint overrides the OAuth endpoint (tests).
func WithGDriveEndpoint(endpoint oauth2.Endpoint) GDriveConfigOption {
	return func(c *GoogleDriveConfig) { c.endpoint = endpoint }
}

// NewGoogleDriveConfig creates a Drive config. Empty client credentials
// are allowed; the config then reports itself unconfigurable in its
// prompts instead of failing at startup.
func NewGoogleDriveConfig(store credstore.Store, clientID, clientSecret string, opts ...GDriveConfigOption) *GoogleDriveConfig {
	c := &GoogleDriveConfig{
		store:        store,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  "http://localhost",
		endpoint:     google.Endpoint,
		log:          logger.New("toolkit.gdrive"),
		toolkits:     make(map[string]*tool.GoogleDriveToolkit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *GoogleDriveConfig) Name() string   { return credstore.ServiceGDrive }
func (c *GoogleDriveConfig) Required() bool { return true }

func (c *GoogleDriveConfig) Configured(userID string) bool {
	_, err := c.store.GetGDriveToken(context.Background(), userID)
	return err == nil
}

func (c *GoogleDriveConfig) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		RedirectURL:  c.redirectURI,
		Scopes:       gdriveScopes,
		Endpoint:     c.endpoint,
	}
}

func extractGDriveCode(message string) string {
	if m := gdriveCodeURLPattern.FindStringSubmatch(message); m != nil {
		if strings.HasPrefix(m[1], "4/") {
			return m[1]
		}
	}
	for _, pattern := range gdriveCodePhrases {
		if m := pattern.FindStringSubmatch(message); m != nil {
			return m[1]
		}
	}
	if m := gdriveBareCodePattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return ""
}

// authURL builds the authorization URL for one user.
func (c *GoogleDriveConfig) authURL(userID string) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", fmt.Errorf("Google Drive OAuth is not configured. Please set GDRIVE_CLIENT_ID " +
			"and GDRIVE_CLIENT_SECRET environment variables")
	}

	return c.oauthConfig().AuthCodeURL(userID,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

func (c *GoogleDriveConfig) ExtractAndStore(ctx context.Context, message, userID string) (string, error) {
	code := extractGDriveCode(message)
	if code == "" {
		return "", nil
	}

	if c.clientID == "" || c.clientSecret == "" {
		return "", Validationf("Google Drive OAuth is not configured. Please contact your administrator.")
	}

	c.log.Info("exchanging google drive authorization code", "user_id", userID)

	token, err := c.oauthConfig().Exchange(ctx, code)
	if err != nil {
		c.log.Warn("authorization code exchange failed", "user_id", userID, "error", err)
		return "", &ValidationError{Message: "Failed to authorize Google Drive: invalid authorization code", Err: err}
	}

	// Validate by fetching the authenticated user before persisting.
	tk := tool.NewGoogleDriveToolkit(oauth2.StaticTokenSource(token))
	identity, err := tk.Validate(ctx)
	if err != nil {
		return "", &ValidationError{Message: "Failed to authorize Google Drive", Err: err}
	}

	record := &credstore.GDriveToken{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenURI:     c.endpoint.TokenURL,
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Scopes:       gdriveScopes,
		Expiry:       token.Expiry,
	}
	if err := c.store.UpsertGDriveToken(ctx, record); err != nil {
		return "", fmt.Errorf("failed to save google drive credentials: %w", err)
	}

	c.mu.Lock()
	delete(c.toolkits, userID)
	c.mu.Unlock()

	return fmt.Sprintf("✅ Google Drive authorized successfully!\n\n"+
		"Connected as: %s\n\n"+
		"You can now ask me to access your Google Drive documents, sheets, and presentations.", identity), nil
}

func (c *GoogleDriveConfig) ConfigPrompt(userID string) string {
	if c.Configured(userID) {
		return ""
	}

	oauthURL, err := c.authURL(userID)
	if err != nil {
		return fmt.Sprintf("❌ %v\n\n"+
			"Google Drive integration requires OAuth credentials to be configured. "+
			"Please contact your administrator.", err)
	}

	return fmt.Sprintf("🔐 **Google Drive Authorization Required**\n\n"+
		"To use this agent, you need to authorize Google Drive access:\n\n"+
		"1. **Visit this URL**: %s\n"+
		"2. Sign in and authorize the application\n"+
		"3. After authorizing, you'll be redirected to a page that won't load\n"+
		"4. **Copy the entire URL** from your browser's address bar\n"+
		"   It will look like: `http://localhost?code=4/0AeaYSHB...`\n"+
		"5. **Paste the URL here** (or just the code starting with '4/')\n\n"+
		"Once authorized, you'll be able to use the agent.", oauthURL)
}

// persistingTokenSource re-persists the stored record whenever the
// underlying source refreshes the access token, so a restart never
// forces re-authorization while the refresh token is valid.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	store  credstore.Store
	record *credstore.GDriveToken
	log    *slog.Logger

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		updated := *s.record
		updated.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			updated.RefreshToken = token.RefreshToken
		}
		updated.Expiry = token.Expiry
		if err := s.store.UpsertGDriveToken(context.Background(), &updated); err != nil {
			s.log.Warn("failed to persist refreshed google drive token",
				"user_id", s.record.UserID, "error", err)
		}
	}

	return token, nil
}

func (c *GoogleDriveConfig) Toolkit(ctx context.Context, userID string) (tool.Toolkit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tk, ok := c.toolkits[userID]; ok {
		return tk, nil
	}

	record, err := c.store.GetGDriveToken(ctx, userID)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load google drive credentials: %w", err)
	}

	if record.RefreshToken == "" && record.AccessToken == "" {
		return nil, fmt.Errorf("stored Google Drive credentials are unusable; please re-authorize")
	}

	token := &oauth2.Token{
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		Expiry:       record.Expiry,
	}

	// Rebuild the oauth client from the stored record so credentials
	// authorized under an earlier client configuration keep working.
	conf := &oauth2.Config{
		ClientID:     record.ClientID,
		ClientSecret: record.ClientSecret,
		RedirectURL:  c.redirectURI,
		Scopes:       record.Scopes,
		Endpoint:     c.endpoint,
	}
	if record.TokenURI != "" {
		conf.Endpoint.TokenURL = record.TokenURI
	}

	source := &persistingTokenSource{
		base:   conf.TokenSource(ctx, token),
		store:  c.store,
		record: record,
		log:    c.log,
		last:   record.AccessToken,
	}

	tk := tool.NewGoogleDriveToolkit(source)
	c.toolkits[userID] = tk
	c.log.Debug("rebuilt google drive toolkit from stored credentials", "user_id", userID)
	return tk, nil
}

func (c *GoogleDriveConfig) CheckAuthorizationRequest(message, userID string) string {
	messageLower := strings.ToLower(message)
	mentions := false
	for _, kw := range gdriveKeywords {
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

func (c *GoogleDriveConfig) AgentInstructions(_ context.Context, userID string) ([]string, error) {
	if !c.Configured(userID) {
		return nil, nil
	}
	return []string{
		"You have access to Google Drive tools to download and manage " +
			"Google Docs, Sheets, and Presentations. Use these tools when users " +
			"ask about Google Drive documents.",
	}, nil
}
