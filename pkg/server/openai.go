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

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// anonymousUser is used when the request carries no user identity.
// Configuration state is per-user, so unidentified callers share one.
const anonymousUser = "anonymous"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	User        string        `json:"user,omitempty"`

	// Metadata carries proxy extras (chat_id, user_id from pipe
	// functions).
	Metadata map[string]string `json:"metadata,omitempty"`
}

type chatCompletionChoice struct {
	Index        int          `json:"index"`
	Message      *chatMessage `json:"message,omitempty"`
	Delta        *chatMessage `json:"delta,omitempty"`
	FinishReason *string      `json:"finish_reason"`
}

type usagePayload struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []chatCompletionChoice `json:"choices"`
	Usage   *usagePayload          `json:"usage,omitempty"`
}

type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

type modelList struct {
	Object string       `json:"object"`
	Data   []modelEntry `json:"data"`
}

// identity resolves user and session for a request. Headers forwarded
// by the chat frontend win over body fields.
func identity(r *http.Request, req *chatCompletionRequest) (userID, sessionID string) {
	userID = r.Header.Get("X-OpenWebUI-User-Id")
	if userID == "" {
		userID = r.Header.Get("X-OpenWebUI-User-Email")
	}
	if userID == "" && req.Metadata != nil {
		userID = req.Metadata["user_id"]
	}
	if userID == "" {
		userID = req.User
	}
	if userID == "" {
		userID = anonymousUser
	}

	sessionID = r.Header.Get("X-OpenWebUI-Chat-Id")
	if sessionID == "" && req.Metadata != nil {
		if sessionID = req.Metadata["session_id"]; sessionID == "" {
			sessionID = req.Metadata["chat_id"]
		}
	}
	return userID, sessionID
}

// lastUserMessage returns the newest message with role "user".
func lastUserMessage(messages []chatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func (s *Server) handleListModels(w http.ResponseWriter, _ *http.Request) {
	list := modelList{Object: "list"}
	for _, name := range s.registry.Names() {
		list.Data = append(list.Data, modelEntry{ID: name, Object: "model", OwnedBy: "agentllm"})
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	// Model names may arrive prefixed by the proxy's provider tag.
	agentName := strings.TrimPrefix(req.Model, "agentllm/")
	message := lastUserMessage(req.Messages)
	if message == "" {
		writeError(w, http.StatusBadRequest, "no user message in request")
		return
	}

	userID, sessionID := identity(r, &req)

	wrap, err := s.getOrCreateWrapper(agentName, userID, sessionID, req.Temperature, req.MaxTokens)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	if req.Stream {
		s.streamCompletion(w, r, wrap, agentName, message)
		return
	}

	resp, err := wrap.Run(r.Context(), message)
	if err != nil {
		s.log.Error("agent run failed", "agent", agentName, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("agent error: %v", err))
		return
	}

	finish := "stop"
	writeJSON(w, http.StatusOK, chatCompletionResponse{
		ID:      completionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatCompletionChoice{{
			Message:      &chatMessage{Role: "assistant", Content: resp.Text},
			FinishReason: &finish,
		}},
		Usage: &usagePayload{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	})
}

// streamCompletion writes the wrapper's chunk stream as OpenAI-style
// server-sent events.
func (s *Server) streamCompletion(w http.ResponseWriter, r *http.Request, wrap wrapperRunner, model, message string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id := completionID()
	created := time.Now().Unix()

	for chunk := range wrap.RunStream(r.Context(), message) {
		event := chatCompletionResponse{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   model,
			Choices: []chatCompletionChoice{{
				Index: chunk.Index,
				Delta: &chatMessage{Role: "assistant", Content: chunk.Text},
			}},
		}
		if chunk.IsFinished {
			reason := chunk.FinishReason
			event.Choices[0].FinishReason = &reason
			event.Choices[0].Delta = &chatMessage{}
			event.Usage = &usagePayload{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}

		payload, err := json.Marshal(event)
		if err != nil {
			s.log.Error("failed to encode stream chunk", "error", err)
			break
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func completionID() string {
	return "chatcmpl-" + uuid.NewString()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"message": message, "type": "agentllm_error"},
	})
}
