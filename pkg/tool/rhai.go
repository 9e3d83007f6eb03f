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
	"strings"
	"time"

	"github.com/agentllm/agentllm/pkg/logger"
)

// DocumentExporter is the slice of GoogleDriveToolkit the release sheet
// reader needs.
type DocumentExporter interface {
	Export(ctx context.Context, urlOrID, format string) (string, error)
}

// RHAIRelease is one row of the Red Hat AI release sheet.
type RHAIRelease struct {
	Release     string `json:"release"`
	Details     string `json:"details"`
	ReleaseDate string `json:"release_date"` // ISO 8601 (YYYY-MM-DD)
}

// releaseDateLayouts are tried in order. The sheet is hand-maintained,
// so dates show up as ISO, "Thu Nov-13-2025", day/month/year, or
// month/day/year.
var releaseDateLayouts = []string{
	"2006-01-02",
	"Mon Jan-2-2006",
	"2/1/2006",
	"1/2/2006",
}

// RHAIToolkit reads the Red Hat AI release schedule from a Google
// Sheets document exported as CSV.
type RHAIToolkit struct {
	exporter DocumentExporter
	sheetURL string
}

// NewRHAIToolkit creates a release toolkit over a document exporter
// (normally the user's Google Drive toolkit).
func NewRHAIToolkit(exporter DocumentExporter, sheetURL string) *RHAIToolkit {
	return &RHAIToolkit{exporter: exporter, sheetURL: sheetURL}
}

func (tk *RHAIToolkit) Name() string { return "rhai_tools" }

func (tk *RHAIToolkit) Tools() []Tool {
	return []Tool{
		&FuncTool{
			ToolName: "get_releases",
			ToolDescription: "Get the list of planned Red Hat AI releases " +
				"(release name, details, planned release date) from the release sheet.",
			Fn: tk.getReleases,
		},
	}
}

func (tk *RHAIToolkit) getReleases(ctx context.Context, _ map[string]any) (string, error) {
	content, err := tk.exporter.Export(ctx, tk.sheetURL, "csv")
	if err != nil {
		return fmt.Sprintf("Error fetching releases: %v", err), nil
	}

	releases := parseRHAIReleases(content)
	if len(releases) == 0 {
		return "No releases found in the release sheet.", nil
	}

	out, err := json.MarshalIndent(releases, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode releases: %w", err)
	}
	return string(out), nil
}

// parseRHAIReleases parses the CSV export of the release sheet. The
// first line is the header; rows need at least Release, Details, and
// Planned Release Date columns (extras are ignored). Rows with too few
// columns or an unparseable date are skipped, not fatal.
func parseRHAIReleases(content string) []RHAIRelease {
	log := logger.New("tool.rhai")

	var releases []RHAIRelease
	lines := strings.Split(strings.TrimSpace(content), "\n")
	for i, line := range lines {
		if i == 0 {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			log.Warn("skipping release row: insufficient columns", "line", i+1, "columns", len(parts))
			continue
		}

		date, ok := parseReleaseDate(strings.TrimSpace(parts[2]))
		if !ok {
			log.Warn("skipping release row: unparseable date", "line", i+1, "date", strings.TrimSpace(parts[2]))
			continue
		}

		releases = append(releases, RHAIRelease{
			Release:     parts[0],
			Details:     parts[1],
			ReleaseDate: date.Format("2006-01-02"),
		})
	}
	return releases
}

func parseReleaseDate(s string) (time.Time, bool) {
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
