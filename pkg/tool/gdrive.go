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
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/oauth2"

	"github.com/agentllm/agentllm/pkg/httpclient"
)

const driveAPIBase = "https://www.googleapis.com/drive/v3"

// docIDPatterns match Google Drive document URLs. Checked in order;
// the final bare-ID pattern accepts an ID pasted on its own.
var docIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/document/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`/presentation/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`^([a-zA-Z0-9_-]{20,})$`),
}

// exportMIMETypes maps short format names to Drive export MIME types.
var exportMIMETypes = map[string]string{
	"md":   "text/markdown",
	"txt":  "text/plain",
	"html": "text/html",
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"csv":  "text/csv",
}

// ExtractDocumentID pulls a Drive document ID out of a URL, an id=
// query parameter, or a bare ID string.
func ExtractDocumentID(urlOrID string) (string, error) {
	urlOrID = strings.TrimSpace(urlOrID)

	if parsed, err := url.Parse(urlOrID); err == nil {
		if id := parsed.Query().Get("id"); id != "" {
			return id, nil
		}
	}

	for _, pattern := range docIDPatterns {
		if m := pattern.FindStringSubmatch(urlOrID); m != nil {
			return m[1], nil
		}
	}

	return "", fmt.Errorf("could not extract a document ID from %q", urlOrID)
}

// GoogleDriveToolkit exports Google Drive documents on behalf of one
// user. The oauth2 token source refreshes access tokens transparently.
type GoogleDriveToolkit struct {
	source oauth2.TokenSource
	http   *httpclient.Client
}

// NewGoogleDriveToolkit creates a Drive toolkit over a token source.
func NewGoogleDriveToolkit(source oauth2.TokenSource, opts ...httpclient.Option) *GoogleDriveToolkit {
	return &GoogleDriveToolkit{
		source: source,
		http:   httpclient.New(opts...),
	}
}

func (tk *GoogleDriveToolkit) Name() string { return "gdrive_tools" }

func (tk *GoogleDriveToolkit) get(ctx context.Context, rawURL string) ([]byte, error) {
	token, err := tk.source.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	token.SetAuthHeader(req)

	resp, err := tk.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// Validate checks the credential against the Drive about endpoint. On
// success it returns the authenticated user's email address.
func (tk *GoogleDriveToolkit) Validate(ctx context.Context) (string, error) {
	body, err := tk.get(ctx, driveAPIBase+"/about?fields=user")
	if err != nil {
		return "", fmt.Errorf("google drive validation failed: %w", err)
	}

	var about struct {
		User struct {
			EmailAddress string `json:"emailAddress"`
			DisplayName  string `json:"displayName"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &about); err != nil {
		return "", fmt.Errorf("unexpected response from google drive: %w", err)
	}

	if about.User.EmailAddress != "" {
		return about.User.EmailAddress, nil
	}
	return about.User.DisplayName, nil
}

func (tk *GoogleDriveToolkit) Tools() []Tool {
	return []Tool{
		&FuncTool{
			ToolName:        "download_document",
			ToolDescription: "Download a Google Drive document in a given export format.",
			ToolParameters: []Parameter{
				{Name: "url_or_id", Type: "string", Description: "Google Drive URL or document ID", Required: true},
				{Name: "format", Type: "string", Description: "Export format (default md)", Enum: []string{"md", "txt", "html", "pdf", "docx", "csv"}},
			},
			Fn: tk.downloadDocument,
		},
		&FuncTool{
			ToolName:        "get_document_content",
			ToolDescription: "Get the plain-text content of a Google Drive document.",
			ToolParameters: []Parameter{
				{Name: "url_or_id", Type: "string", Description: "Google Drive URL or document ID", Required: true},
			},
			Fn: tk.getDocumentContent,
		},
		&FuncTool{
			ToolName:        "extract_document_id",
			ToolDescription: "Extract the document ID from a Google Drive URL.",
			ToolParameters: []Parameter{
				{Name: "url", Type: "string", Description: "Google Drive URL", Required: true},
			},
			Fn: tk.extractID,
		},
	}
}

// Export downloads a document's content in the given format. Used both
// by the model-facing tools and by system prompt extension fetching.
func (tk *GoogleDriveToolkit) Export(ctx context.Context, urlOrID, format string) (string, error) {
	docID, err := ExtractDocumentID(urlOrID)
	if err != nil {
		return "", err
	}

	mimeType, ok := exportMIMETypes[format]
	if !ok {
		return "", fmt.Errorf("unsupported export format %q", format)
	}

	body, err := tk.get(ctx, fmt.Sprintf("%s/files/%s/export?mimeType=%s",
		driveAPIBase, url.PathEscape(docID), url.QueryEscape(mimeType)))
	if err != nil {
		return "", fmt.Errorf("failed to export document %s: %w", docID, err)
	}

	return string(body), nil
}

func (tk *GoogleDriveToolkit) downloadDocument(ctx context.Context, args map[string]any) (string, error) {
	urlOrID, err := StringArg(args, "url_or_id")
	if err != nil {
		return "", err
	}
	format := OptionalStringArg(args, "format", "md")

	content, err := tk.Export(ctx, urlOrID, format)
	if err != nil {
		return fmt.Sprintf("Error downloading document %s: %v", urlOrID, err), nil
	}
	return content, nil
}

func (tk *GoogleDriveToolkit) getDocumentContent(ctx context.Context, args map[string]any) (string, error) {
	urlOrID, err := StringArg(args, "url_or_id")
	if err != nil {
		return "", err
	}

	content, err := tk.Export(ctx, urlOrID, "txt")
	if err != nil {
		return fmt.Sprintf("Error fetching document %s: %v", urlOrID, err), nil
	}
	return content, nil
}

func (tk *GoogleDriveToolkit) extractID(_ context.Context, args map[string]any) (string, error) {
	rawURL, err := StringArg(args, "url")
	if err != nil {
		return "", err
	}

	docID, err := ExtractDocumentID(rawURL)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	return docID, nil
}
