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

package wrapper

import (
	"encoding/json"
	"fmt"
	"strings"
)

// formatReasoning renders buffered thinking text as markdown block
// quotes so chat UIs display it inside the collapsible section.
func formatReasoning(content string) string {
	lines := strings.Split(content, "\n")
	formatted := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			formatted = append(formatted, "> "+line)
		} else {
			formatted = append(formatted, ">")
		}
	}
	return strings.Join(formatted, "\n")
}

// reasoningBlock wraps formatted reasoning in a collapsible details
// element annotated with the elapsed thinking duration.
func reasoningBlock(content string, seconds int) string {
	return fmt.Sprintf("<details type=\"reasoning\" done=\"true\" duration=\"%d\">\n"+
		"<summary>Thought for %d seconds</summary>\n\n"+
		"%s\n\n"+
		"</details>\n\n", seconds, seconds, formatReasoning(content))
}

// truncate cuts s to the budget and appends a notice stating the
// original length. The budget counts runes, not bytes, so a multi-byte
// character is never cut in half. A budget of zero or less means
// unlimited.
func truncate(s string, budget int) string {
	if budget <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= budget {
		return s
	}
	return string(runes[:budget]) + fmt.Sprintf("\n\n... (truncated, %d chars total)", len(runes))
}

// formatToolResult renders a tool result for display. JSON results are
// re-serialized with indentation inside a fenced code block; everything
// else passes through as text. Both paths honor the truncation budget.
func formatToolResult(result string, budget int) string {
	var parsed any
	if err := json.Unmarshal([]byte(result), &parsed); err == nil {
		switch parsed.(type) {
		case map[string]any, []any:
			if pretty, err := json.MarshalIndent(parsed, "", "  "); err == nil {
				return fmt.Sprintf("```json\n%s\n```", truncate(string(pretty), budget))
			}
		}
	}
	return truncate(result, budget)
}

// toolCallBlock renders a completed tool call as a collapsible details
// element with pretty-printed arguments and the formatted result.
func toolCallBlock(name string, args map[string]any, result string, budget int) string {
	argsJSON := "{}"
	if len(args) > 0 {
		if pretty, err := json.MarshalIndent(args, "", "  "); err == nil {
			argsJSON = string(pretty)
		}
	}

	return fmt.Sprintf("\n<details type=\"tool_call\" open=\"true\">\n"+
		"<summary>🔧 Tool: %s</summary>\n\n"+
		"**Arguments:**\n```json\n%s\n```\n\n"+
		"**Result:**\n\n%s\n\n"+
		"✅ Completed\n</details>\n\n",
		name, argsJSON, formatToolResult(result, budget))
}
