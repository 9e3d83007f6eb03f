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
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/agentllm/agentllm/pkg/httpclient"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// WebToolkit fetches public documentation pages. Access is restricted
// to an allow-list of domain suffixes; everything else is refused
// before any request is made.
type WebToolkit struct {
	allowedDomains []string
	userAgent      string
	http           *httpclient.Client
}

// WebOption configures a WebToolkit.
type WebOption func(*WebToolkit)

// WithAllowedDomains replaces the domain allow-list. Each entry allows
// the domain itself and all of its subdomains.
func WithAllowedDomains(domains ...string) WebOption {
	return func(tk *WebToolkit) { tk.allowedDomains = domains }
}

// WithUserAgent overrides the request user agent.
func WithUserAgent(ua string) WebOption {
	return func(tk *WebToolkit) { tk.userAgent = ua }
}

// NewWebToolkit creates a web toolkit. The default allow-list covers
// redhat.com and its subdomains.
func NewWebToolkit(opts ...WebOption) *WebToolkit {
	tk := &WebToolkit{
		allowedDomains: []string{"redhat.com"},
		userAgent:      defaultUserAgent,
		http:           httpclient.New(),
	}
	for _, opt := range opts {
		opt(tk)
	}
	return tk
}

func (tk *WebToolkit) Name() string { return "web_tools" }

func (tk *WebToolkit) Tools() []Tool {
	return []Tool{
		&FuncTool{
			ToolName:        "fetch_url",
			ToolDescription: "Fetch a documentation page and return its readable text (or raw HTML). Only allowed domains are accessible.",
			ToolParameters: []Parameter{
				{Name: "url", Type: "string", Description: "HTTP or HTTPS URL to fetch", Required: true},
				{Name: "extract_text", Type: "boolean", Description: "Extract readable text instead of raw HTML (default true)"},
			},
			Fn: tk.fetchURL,
		},
	}
}

func (tk *WebToolkit) domainAllowed(host string) bool {
	host = strings.ToLower(host)
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	for _, domain := range tk.allowedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func (tk *WebToolkit) fetchURL(ctx context.Context, args map[string]any) (string, error) {
	rawURL, err := StringArg(args, "url")
	if err != nil {
		return "", err
	}
	extractText := true
	if v, ok := args["extract_text"].(bool); ok {
		extractText = v
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return fmt.Sprintf("Error: Invalid URL. Must start with http:// or https://. Got: %s", rawURL), nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Sprintf("Error: Invalid URL: %v", err), nil
	}
	if !tk.domainAllowed(parsed.Host) {
		return fmt.Sprintf("Error: Access denied. Only %s domains are allowed. Got: %s",
			strings.Join(tk.allowedDomains, ", "), parsed.Host), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", tk.userAgent)

	resp, err := tk.http.Do(req)
	if err != nil {
		return fmt.Sprintf("Error fetching %s: %v", rawURL, err), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("Error reading response from %s: %v", rawURL, err), nil
	}

	if !extractText {
		return string(body), nil
	}

	text, err := extractReadableText(strings.NewReader(string(body)))
	if err != nil {
		return fmt.Sprintf("Error parsing HTML from %s: %v", rawURL, err), nil
	}
	return text, nil
}

// extractReadableText strips tags, scripts, and styles from HTML and
// collapses the remaining text into readable lines.
func extractReadableText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.TrimSpace(b.String()), nil
}
