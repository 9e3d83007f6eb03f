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

// Package config loads AgentLLM's environment-driven configuration.
//
// The module is configured entirely through environment variables (no
// config files), matching the deployment model of the proxy it plugs
// into. A .env file is honored for local development but never overrides
// variables already present in the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variable names recognized by AgentLLM.
const (
	EnvGDriveClientID     = "GDRIVE_CLIENT_ID"
	EnvGDriveClientSecret = "GDRIVE_CLIENT_SECRET"

	// Per-agent Google Drive document URLs for system prompt extensions.
	EnvReleaseManagerPromptDoc = "AGENTLLM_RELEASE_MANAGER_PROMPT_DOC"
	EnvRHDHSupportPromptDoc    = "AGENTLLM_RHDH_SUPPORT_PROMPT_DOC"

	// Google Sheets URL holding the Red Hat AI release schedule.
	EnvRHAIReleaseSheet = "AGENTLLM_RHAI_ROADMAP_PUBLISHER_RELEASE_SHEET"

	// Global default character budget for tool results shown in the UI.
	EnvMaxToolResultLength = "AGENTLLM_MAX_TOOL_RESULT_LENGTH"

	// Either variable satisfies the other: some deployments set only the
	// Google-branded name, some only the Gemini-branded one.
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvGoogleAPIKey = "GOOGLE_API_KEY"

	EnvDBDriver = "AGENTLLM_DB_DRIVER"
	EnvDBDSN    = "AGENTLLM_DB_DSN"
)

// Config holds the resolved environment configuration.
type Config struct {
	// GDriveClientID and GDriveClientSecret are the OAuth client
	// credentials for the Google Drive integration. Empty means the
	// integration reports itself unconfigurable rather than failing at
	// startup.
	GDriveClientID     string
	GDriveClientSecret string

	// GeminiAPIKey is the resolved model API key (GEMINI_API_KEY with
	// GOOGLE_API_KEY as fallback alias).
	GeminiAPIKey string

	// RHAIReleaseSheet is the Google Sheets URL of the Red Hat AI
	// release schedule. Empty leaves the release toolkit dormant.
	RHAIReleaseSheet string

	// MaxToolResultLength is the default tool-result truncation budget in
	// characters. Zero means unlimited.
	MaxToolResultLength int

	// DBDriver is one of "sqlite", "postgres", "mysql". DBDSN is the
	// driver connection string (for sqlite, a file path).
	DBDriver string
	DBDSN    string
}

// LoadDotEnv loads variables from a .env file in the working directory,
// if present. Existing environment variables are not overwritten.
// Safe to call multiple times.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}

	return nil
}

// FromEnv resolves the configuration from the current environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		GDriveClientID:     os.Getenv(EnvGDriveClientID),
		GDriveClientSecret: os.Getenv(EnvGDriveClientSecret),
		GeminiAPIKey:       resolveAPIKey(),
		RHAIReleaseSheet:   os.Getenv(EnvRHAIReleaseSheet),
		DBDriver:           os.Getenv(EnvDBDriver),
		DBDSN:              os.Getenv(EnvDBDSN),
	}

	if cfg.DBDriver == "" {
		cfg.DBDriver = "sqlite"
	}
	if cfg.DBDSN == "" {
		cfg.DBDSN = "agentllm.db"
	}

	if raw := os.Getenv(EnvMaxToolResultLength); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid %s=%q: must be a non-negative integer", EnvMaxToolResultLength, raw)
		}
		cfg.MaxToolResultLength = n
	}

	return cfg, nil
}

// resolveAPIKey returns the Gemini API key, treating GEMINI_API_KEY and
// GOOGLE_API_KEY as aliases (the canonical one wins when both are set).
func resolveAPIKey() string {
	if key := os.Getenv(EnvGeminiAPIKey); key != "" {
		return key
	}
	return os.Getenv(EnvGoogleAPIKey)
}

// PromptDocURL resolves a system-prompt document URL with the usual
// precedence: an explicit value wins over the named environment variable.
func PromptDocURL(explicit, envVar string) string {
	if explicit != "" {
		return explicit
	}
	if envVar == "" {
		return ""
	}
	return os.Getenv(envVar)
}
