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
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agentllm/agentllm/pkg/httpclient"
)

// GitHubToolkit talks to the GitHub REST API with a personal access
// token. The default server is api.github.com; GitHub Enterprise hosts
// work by passing their API base URL.
type GitHubToolkit struct {
	serverURL string
	token     string
	http      *httpclient.Client
}

// NewGitHubToolkit creates a GitHub toolkit for one user's token.
// serverURL defaults to https://api.github.com when empty.
func NewGitHubToolkit(serverURL, token string, opts ...httpclient.Option) *GitHubToolkit {
	if serverURL == "" {
		serverURL = "https://api.github.com"
	}
	return &GitHubToolkit{
		serverURL: strings.TrimRight(serverURL, "/"),
		token:     token,
		http:      httpclient.New(opts...),
	}
}

func (tk *GitHubToolkit) Name() string { return "github_tools" }

func (tk *GitHubToolkit) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := tk.serverURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+tk.token)

	resp, err := tk.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// Validate checks the token by fetching the authenticated user. On
// success it returns the user's login.
func (tk *GitHubToolkit) Validate(ctx context.Context) (string, error) {
	body, err := tk.get(ctx, "/user", nil)
	if err != nil {
		return "", fmt.Errorf("github validation failed: %w", err)
	}

	var user struct {
		Login string `json:"login"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return "", fmt.Errorf("unexpected response from github: %w", err)
	}
	return user.Login, nil
}

func (tk *GitHubToolkit) Tools() []Tool {
	return []Tool{
		&FuncTool{
			ToolName:        "list_prs",
			ToolDescription: "List pull requests for a repository with summary details.",
			ToolParameters: []Parameter{
				{Name: "repo", Type: "string", Description: "Repository as owner/name", Required: true},
				{Name: "state", Type: "string", Description: "PR state filter", Enum: []string{"open", "closed", "all"}},
				{Name: "limit", Type: "integer", Description: "Maximum PRs to return (default 20)"},
			},
			Fn: tk.listPRs,
		},
		&FuncTool{
			ToolName:        "prioritize_prs",
			ToolDescription: "Score and rank open pull requests by review priority (age, size, activity, labels).",
			ToolParameters: []Parameter{
				{Name: "repo", Type: "string", Description: "Repository as owner/name", Required: true},
				{Name: "limit", Type: "integer", Description: "Maximum PRs to rank (default 10)"},
			},
			Fn: tk.prioritizePRs,
		},
	}
}

func splitRepo(repo string) (owner, name string, err error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repo must be in owner/name form, got %q", repo)
	}
	return parts[0], parts[1], nil
}

type githubPR struct {
	Number         int    `json:"number"`
	Title          string `json:"title"`
	HTMLURL        string `json:"html_url"`
	State          string `json:"state"`
	Draft          bool   `json:"draft"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
	Additions      int    `json:"additions"`
	Deletions      int    `json:"deletions"`
	Comments       int    `json:"comments"`
	ReviewComments int    `json:"review_comments"`
	User           struct {
		Login string `json:"login"`
	} `json:"user"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

func (tk *GitHubToolkit) fetchPRs(ctx context.Context, repo, state string, limit int) ([]githubPR, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	body, err := tk.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls", owner, name), url.Values{
		"state":    {state},
		"per_page": {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, err
	}

	var prs []githubPR
	if err := json.Unmarshal(body, &prs); err != nil {
		return nil, fmt.Errorf("unexpected response from github: %w", err)
	}
	return prs, nil
}

func (tk *GitHubToolkit) listPRs(ctx context.Context, args map[string]any) (string, error) {
	repo, err := StringArg(args, "repo")
	if err != nil {
		return "", err
	}
	state := OptionalStringArg(args, "state", "open")
	limit := IntArg(args, "limit", 20)

	prs, err := tk.fetchPRs(ctx, repo, state, limit)
	if err != nil {
		return fmt.Sprintf("Error listing pull requests for %s: %v", repo, err), nil
	}
	if len(prs) == 0 {
		return fmt.Sprintf("No %s pull requests found in %s", state, repo), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Pull requests in %s (%s)\n\n", repo, state)
	for _, pr := range prs {
		draft := ""
		if pr.Draft {
			draft = " (draft)"
		}
		fmt.Fprintf(&b, "### [#%d](%s) %s%s\n", pr.Number, pr.HTMLURL, pr.Title, draft)
		fmt.Fprintf(&b, "- Author: %s\n- Created: %s\n", pr.User.Login, pr.CreatedAt)
		if len(pr.Labels) > 0 {
			names := make([]string, 0, len(pr.Labels))
			for _, l := range pr.Labels {
				names = append(names, l.Name)
			}
			fmt.Fprintf(&b, "- Labels: %s\n", strings.Join(names, ", "))
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

type prScore struct {
	Number    int            `json:"number"`
	Title     string         `json:"title"`
	URL       string         `json:"url"`
	Author    string         `json:"author"`
	Score     float64        `json:"total_score"`
	Tier      string         `json:"priority_tier"`
	Breakdown map[string]any `json:"breakdown"`
	Reasoning string         `json:"reasoning"`
}

// scorePR computes a 0-80 review priority score:
// age (25), size (20), activity (15), labels (10), author (10).
func scorePR(pr *githubPR, now time.Time) prScore {
	var ageScore float64
	if created, err := time.Parse(time.RFC3339, pr.CreatedAt); err == nil {
		ageDays := now.Sub(created).Hours() / 24
		ageScore = min(ageDays/7.0, 1.0) * 25
	}

	changes := pr.Additions + pr.Deletions
	sizeScore := 20.0
	if changes > 0 {
		sizeScore = max(0, 20-float64(changes)/100)
	}

	activity := float64(pr.Comments + pr.ReviewComments)
	activityScore := min(activity/10.0, 1.0) * 15

	var labelNames []string
	for _, l := range pr.Labels {
		labelNames = append(labelNames, strings.ToLower(l.Name))
	}
	labels := strings.Join(labelNames, " ")
	labelScore := 0.0
	switch {
	case strings.Contains(labels, "urgent") || strings.Contains(labels, "hotfix") ||
		strings.Contains(labels, "blocking") || strings.Contains(labels, "critical"):
		labelScore = 10
	case strings.Contains(labels, "high-priority") || strings.Contains(labels, "important"):
		labelScore = 7
	}

	authorScore := 5.0
	total := ageScore + sizeScore + activityScore + labelScore + authorScore

	var tier string
	switch {
	case total >= 65:
		tier = "CRITICAL"
	case total >= 50:
		tier = "HIGH"
	case total >= 35:
		tier = "MEDIUM"
	default:
		tier = "LOW"
	}

	var reasons []string
	if ageScore >= 20 {
		reasons = append(reasons, "open for a while and risks going stale")
	}
	if sizeScore >= 15 {
		reasons = append(reasons, "small enough to review quickly")
	}
	if activityScore >= 10 {
		reasons = append(reasons, "active discussion suggests importance")
	}
	if labelScore >= 10 {
		reasons = append(reasons, "marked urgent/hotfix/blocking")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "standard priority, ready for review")
	}

	round := func(v float64) float64 { return float64(int(v*100+0.5)) / 100 }
	return prScore{
		Number: pr.Number,
		Title:  pr.Title,
		URL:    pr.HTMLURL,
		Author: pr.User.Login,
		Score:  round(total),
		Tier:   tier,
		Breakdown: map[string]any{
			"age":      round(ageScore),
			"size":     round(sizeScore),
			"activity": round(activityScore),
			"labels":   round(labelScore),
			"author":   round(authorScore),
		},
		Reasoning: strings.Join(reasons, "; "),
	}
}

func (tk *GitHubToolkit) prioritizePRs(ctx context.Context, args map[string]any) (string, error) {
	repo, err := StringArg(args, "repo")
	if err != nil {
		return "", err
	}
	limit := IntArg(args, "limit", 10)

	prs, err := tk.fetchPRs(ctx, repo, "open", limit)
	if err != nil {
		return fmt.Sprintf("Error fetching pull requests for %s: %v", repo, err), nil
	}
	if len(prs) == 0 {
		return fmt.Sprintf("No open pull requests found in %s", repo), nil
	}

	now := time.Now().UTC()
	scores := make([]prScore, 0, len(prs))
	for i := range prs {
		if prs[i].Draft {
			continue
		}
		scores = append(scores, scorePR(&prs[i], now))
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })

	out, err := json.MarshalIndent(map[string]any{
		"repo":    repo,
		"ranked":  scores,
		"scoring": "age (25) + size (20) + activity (15) + labels (10) + author (10)",
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
