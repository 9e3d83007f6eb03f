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

package httpclient

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRetryStrategy(t *testing.T) {
	tests := []struct {
		status int
		want   RetryStrategy
	}{
		{http.StatusTooManyRequests, SmartRetry},
		{http.StatusServiceUnavailable, SmartRetry},
		{http.StatusInternalServerError, ConservativeRetry},
		{http.StatusBadGateway, ConservativeRetry},
		{http.StatusNotFound, NoRetry},
		{http.StatusUnauthorized, NoRetry},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultRetryStrategy(tt.status), "status %d", tt.status)
	}
}

func TestDoSuccess(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New()
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), requests.Load())
}

func TestDoNonRetryableFailsFast(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New()
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, int32(1), requests.Load())
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(WithBaseDelay(time.Millisecond))
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), requests.Load())
}

func TestDoExhaustsRetryBudget(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(WithBaseDelay(time.Millisecond), WithMaxRetries(1))
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, int32(2), requests.Load())
}

func TestParseRateLimitHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "7")
	h.Set("X-RateLimit-Reset", "1735689600")

	info := parseRateLimitHeaders(h)
	assert.Equal(t, 7*time.Second, info.RetryAfter)
	assert.Equal(t, int64(1735689600), info.ResetTime)

	assert.Zero(t, parseRateLimitHeaders(http.Header{}))
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(&StatusError{StatusCode: http.StatusUnauthorized}))
	assert.True(t, IsAuthError(&StatusError{StatusCode: http.StatusForbidden}))
	assert.False(t, IsAuthError(&StatusError{StatusCode: http.StatusInternalServerError}))
	assert.False(t, IsAuthError(errors.New("plain")))
}
