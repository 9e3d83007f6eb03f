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

package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rhcpTokenPath = "/auth/realms/redhat-external/protocol/openid-connect/token"

// newRHCPTestServer serves both the SSO token endpoint and the case
// search API from one server.
func newRHCPTestServer(t *testing.T, exchanges *atomic.Int32, docs []map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case rhcpTokenPath:
			exchanges.Add(1)
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
			assert.Equal(t, "rhsm-api", r.PostForm.Get("client_id"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"short-lived","expires_in":900}`))

		case "/support/search/cases":
			assert.Equal(t, "Bearer short-lived", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"response": map[string]any{"docs": docs},
			})

		default:
			http.NotFound(w, r)
		}
	}))
}

func TestRHCPGetCase(t *testing.T) {
	var exchanges atomic.Int32
	srv := newRHCPTestServer(t, &exchanges, []map[string]any{{
		"case_caseNumber":                      "04312027",
		"case_severity":                        []any{"2 (High)"},
		"case_status":                          "Waiting on Red Hat",
		"case_summary":                         "Pods crash after upgrade",
		"case_customer_escalation":             true,
		"case_entitlement_service_level_label": "Premium",
	}})
	defer srv.Close()

	tk := NewRHCPToolkit("offline-token", WithRHCPEndpoints(srv.URL, srv.URL))
	out, err := tk.getCase(context.Background(), map[string]any{"case_number": "04312027"})
	require.NoError(t, err)

	var got rhcpCase
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "04312027", got.CaseNumber)
	assert.Equal(t, "2 (High)", got.Severity)
	assert.Equal(t, "Waiting on Red Hat", got.Status)
	assert.True(t, got.IsEscalated)
	assert.Equal(t, "Premium", got.ServiceLevel)
}

func TestRHCPAccessTokenIsCached(t *testing.T) {
	var exchanges atomic.Int32
	srv := newRHCPTestServer(t, &exchanges, nil)
	defer srv.Close()

	tk := NewRHCPToolkit("offline-token", WithRHCPEndpoints(srv.URL, srv.URL))

	_, err := tk.searchCases(context.Background(), map[string]any{"query": "upgrade"})
	require.NoError(t, err)
	_, err = tk.searchCases(context.Background(), map[string]any{"query": "crash"})
	require.NoError(t, err)

	// The offline token is exchanged once; later calls reuse the cached
	// access token until it nears expiry.
	assert.Equal(t, int32(1), exchanges.Load())
}

func TestRHCPSearchCasesEmpty(t *testing.T) {
	var exchanges atomic.Int32
	srv := newRHCPTestServer(t, &exchanges, nil)
	defer srv.Close()

	tk := NewRHCPToolkit("offline-token", WithRHCPEndpoints(srv.URL, srv.URL))
	out, err := tk.searchCases(context.Background(), map[string]any{"query": "nothing"})
	require.NoError(t, err)
	assert.Contains(t, out, "No cases found")
}

func TestRHCPValidateRejectsBadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	tk := NewRHCPToolkit("expired-token", WithRHCPEndpoints(srv.URL, srv.URL))
	_, err := tk.Validate(context.Background())
	assert.Error(t, err)
}

func TestFlexString(t *testing.T) {
	assert.Equal(t, "plain", flexString("plain"))
	assert.Equal(t, "a, b", flexString([]any{"a", "b"}))
	assert.Equal(t, "", flexString(nil))
	assert.Equal(t, "3", flexString(3))
}
