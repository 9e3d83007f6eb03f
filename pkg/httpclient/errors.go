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
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// StatusError is returned alongside a non-2xx response after retries are
// exhausted (or when the status is not retryable).
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("HTTP %s", e.Status)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// IsAuthError reports whether the error is an authentication or
// authorization failure, which the toolkit layer turns into a
// user-facing "invalid credential" message.
func IsAuthError(err error) bool {
	se, ok := err.(*StatusError)
	return ok && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden)
}

// parseRateLimitHeaders extracts standard rate-limit hints.
// Retry-After may be delay-seconds; X-RateLimit-Reset is epoch seconds
// (GitHub's convention).
func parseRateLimitHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{}

	if retryAfter := headers.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			info.RetryAfter = time.Duration(seconds) * time.Second
		}
	}

	if reset := headers.Get("X-RateLimit-Reset"); reset != "" {
		if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
			info.ResetTime = epoch
		}
	}

	return info
}
