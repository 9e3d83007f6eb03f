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

// Package server exposes the agents behind an OpenAI-compatible chat
// completions surface.
//
// Each registered agent appears as a model name. The server keeps one
// Wrapper per (agent, user, session) triple so conversation history and
// the configuration state machine survive across requests.
package server

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agentllm/agentllm/pkg/agents"
	"github.com/agentllm/agentllm/pkg/configurator"
	"github.com/agentllm/agentllm/pkg/logger"
	"github.com/agentllm/agentllm/pkg/runtime"
	"github.com/agentllm/agentllm/pkg/wrapper"
)

// wrapperRunner is the slice of wrapper.Wrapper the handlers use.
// Tests substitute scripted implementations.
type wrapperRunner interface {
	Run(ctx context.Context, message string) (*runtime.Response, error)
	RunStream(ctx context.Context, message string) iter.Seq[wrapper.Chunk]
}

// wrapperKey identifies one conversation's wrapper.
type wrapperKey struct {
	agent     string
	userID    string
	sessionID string
}

// Server is the HTTP dispatch layer.
type Server struct {
	registry *agents.Registry
	builder  runtime.Builder
	log      *slog.Logger

	// maxToolResultLength is the display budget forwarded to wrappers.
	maxToolResultLength int

	mu       sync.Mutex
	wrappers map[wrapperKey]*wrapper.Wrapper
}

// Option customizes a Server.
type Option func(*Server)

// WithMaxToolResultLength sets the tool result display budget forwarded
// to every wrapper.
func WithMaxToolResultLength(n int) Option {
	return func(s *Server) { s.maxToolResultLength = n }
}

// New creates a server dispatching to the given registry.
func New(registry *agents.Registry, builder runtime.Builder, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		builder:  builder,
		log:      logger.New("server"),
		wrappers: make(map[wrapperKey]*wrapper.Wrapper),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(metricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", metricsHandler().ServeHTTP)
	r.Get("/v1/models", s.handleListModels)
	r.Post("/v1/chat/completions", s.handleChatCompletions)

	return r
}

// ListenAndServe runs the server until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// getOrCreateWrapper returns the cached wrapper for the conversation,
// creating it under the lock on first request. The configurator inside
// is bound to the user and session for the wrapper's whole lifetime.
func (s *Server) getOrCreateWrapper(agentName, userID, sessionID string, temperature *float64, maxTokens int) (*wrapper.Wrapper, error) {
	key := wrapperKey{agent: agentName, userID: userID, sessionID: sessionID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.wrappers[key]; ok {
		return w, nil
	}

	def, err := s.registry.Get(agentName)
	if err != nil {
		return nil, err
	}

	var copts []configurator.Option
	if temperature != nil {
		copts = append(copts, configurator.WithTemperature(*temperature))
	}
	if maxTokens > 0 {
		copts = append(copts, configurator.WithMaxOutputTokens(maxTokens))
	}

	cfg := configurator.New(def, s.builder, userID, sessionID, copts...)

	var wopts []wrapper.Option
	if s.maxToolResultLength > 0 {
		wopts = append(wopts, wrapper.WithMaxToolResultLength(s.maxToolResultLength))
	}

	w := wrapper.New(cfg, wopts...)
	s.wrappers[key] = w
	s.log.Info("created wrapper", "agent", agentName, "user_id", userID, "session_id", sessionID)
	return w, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}
