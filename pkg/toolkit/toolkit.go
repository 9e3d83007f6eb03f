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

// Package toolkit implements the per-service configuration family.
//
// Each Config owns one credential kind end to end: recognizing it in
// chat messages, validating it against the live service, persisting it,
// prompting for it when missing, and turning it into a tool.Toolkit for
// configured users. The configurator walks a Definition's ordered
// Config list without knowing any service specifics.
package toolkit

import (
	"context"
	"fmt"

	"github.com/agentllm/agentllm/pkg/tool"
)

// Config manages one credential kind for all users of an agent.
//
// ExtractAndStore returns "" when the message contains nothing for this
// config, a confirmation message on successful extraction and storage,
// and a *ValidationError when the message did contain a credential but
// it failed validation. Other errors indicate system faults.
type Config interface {
	// Name identifies the config ("jira", "gdrive", ...). It doubles as
	// the invalidation key for CredentialListener watches.
	Name() string

	// Required reports whether the agent cannot run without this config.
	// Optional configs only prompt when the user mentions their features.
	Required() bool

	// Configured reports whether the user has a stored credential.
	Configured(userID string) bool

	// ExtractAndStore attempts to pull this config's credential out of a
	// chat message, validate it, and persist it.
	ExtractAndStore(ctx context.Context, message, userID string) (string, error)

	// ConfigPrompt returns the prompt asking the user to provide this
	// config's credential, or "" when already configured.
	ConfigPrompt(userID string) string

	// Toolkit returns the user's toolkit adapter, or (nil, nil) when the
	// user is not configured or the config provides no tools. Repeated
	// calls for a configured user return the identical cached adapter.
	Toolkit(ctx context.Context, userID string) (tool.Toolkit, error)

	// CheckAuthorizationRequest returns an authorization prompt when the
	// message mentions this config's features and the user is not yet
	// configured, "" otherwise.
	CheckAuthorizationRequest(message, userID string) string

	// AgentInstructions returns extra system instructions contributed by
	// this config for a configured user.
	AgentInstructions(ctx context.Context, userID string) ([]string, error)
}

// CredentialListener is implemented by configs that cache state derived
// from another config's credential. After any successful store, the
// configurator notifies every listener whose Watches list contains the
// stored config's name.
type CredentialListener interface {
	// Watches lists the config names whose stores invalidate this
	// config's derived state.
	Watches() []string

	// OnCredentialStored is called after the named config stored a
	// credential for the user.
	OnCredentialStored(configName, userID string)
}

// ValidationError is a user-facing credential failure: the message did
// contain something for the config, but it did not validate. The
// configurator converts it into a conversational response instead of an
// error.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validationf builds a *ValidationError.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
