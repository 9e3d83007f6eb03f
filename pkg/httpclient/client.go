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

// Package httpclient provides a retrying HTTP client shared by the
// toolkit service clients (Jira, GitHub, Google Drive, RHCP, web).
//
// Validation calls made during credential extraction run on the request
// path, so the retry budget is deliberately small: transient server
// errors get one or two quick retries, rate limits honor Retry-After,
// everything else fails fast and surfaces to the user.
package httpclient

import (
	"fmt"
	"math"
	"net/http"
	"time"
)

// RetryStrategy selects how a failed request is retried.
type RetryStrategy int

const (
	// NoRetry fails immediately.
	NoRetry RetryStrategy = iota
	// ConservativeRetry performs up to two quick retries (server errors).
	ConservativeRetry
	// SmartRetry backs off exponentially and honors Retry-After (rate limits).
	SmartRetry
)

// RateLimitInfo carries rate-limit hints parsed from response headers.
type RateLimitInfo struct {
	RetryAfter time.Duration
	ResetTime  int64
}

// Client wraps http.Client with status-aware retries.
type Client struct {
	client     *http.Client
	maxRetries int
	baseDelay  time.Duration
	strategy   func(statusCode int) RetryStrategy
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// WithTimeout sets the per-request timeout on the underlying client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.client.Timeout = timeout }
}

// WithMaxRetries sets the retry budget.
func WithMaxRetries(max int) Option {
	return func(c *Client) { c.maxRetries = max }
}

// WithBaseDelay sets the base backoff delay.
func WithBaseDelay(delay time.Duration) Option {
	return func(c *Client) { c.baseDelay = delay }
}

// WithRetryStrategy replaces the status-code to strategy mapping.
func WithRetryStrategy(strategy func(int) RetryStrategy) Option {
	return func(c *Client) { c.strategy = strategy }
}

// New creates a retrying client. Defaults: 30s timeout, 3 retries,
// 1s base delay, DefaultRetryStrategy.
func New(opts ...Option) *Client {
	client := &Client{
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		baseDelay:  time.Second,
		strategy:   DefaultRetryStrategy,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// DefaultRetryStrategy maps HTTP status codes to retry strategies.
func DefaultRetryStrategy(statusCode int) RetryStrategy {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusServiceUnavailable:
		return SmartRetry
	case http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusGatewayTimeout:
		return ConservativeRetry
	default:
		return NoRetry
	}
}

// Do executes the request, retrying per the configured strategy.
// Non-2xx terminal responses are returned alongside a *StatusError so
// callers can inspect the body for a service-specific message.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to recreate request body for retry: %w", err)
			}
			req.Body = body
		}

		resp, err := c.client.Do(req)
		if err != nil {
			// Transport errors are not retried: the HTTP client already
			// applies its own timeout, and a refused connection will not
			// heal within our retry window.
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		info := parseRateLimitHeaders(resp.Header)
		strategy := c.strategy(resp.StatusCode)
		lastResp = resp
		lastErr = &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}

		delay := c.calculateDelay(strategy, attempt, info)
		if strategy == NoRetry || delay <= 0 || attempt == c.maxRetries {
			return resp, lastErr
		}

		_ = resp.Body.Close()
		time.Sleep(delay)
	}

	return lastResp, lastErr
}

func (c *Client) calculateDelay(strategy RetryStrategy, attempt int, info RateLimitInfo) time.Duration {
	switch strategy {
	case SmartRetry:
		if info.RetryAfter > 0 {
			return info.RetryAfter
		}
		if info.ResetTime > 0 {
			if delay := time.Until(time.Unix(info.ResetTime, 0)); delay > 0 {
				return delay
			}
		}
		exponential := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
		jitter := time.Duration(float64(exponential) * 0.1)
		return exponential + jitter

	case ConservativeRetry:
		if attempt >= 2 {
			return 0
		}
		return time.Duration(1+attempt) * time.Second

	default:
		return 0
	}
}
