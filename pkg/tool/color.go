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
	"sort"
	"strings"
)

var complementaryColors = map[string]string{
	"red":    "green",
	"green":  "red",
	"blue":   "orange",
	"orange": "blue",
	"yellow": "purple",
	"purple": "yellow",
	"pink":   "green",
	"black":  "white",
	"white":  "black",
	"brown":  "blue",
}

var analogousColors = map[string][]string{
	"red":    {"orange", "pink"},
	"orange": {"red", "yellow"},
	"yellow": {"orange", "green"},
	"green":  {"yellow", "blue"},
	"blue":   {"green", "purple"},
	"purple": {"blue", "pink"},
	"pink":   {"purple", "red"},
	"black":  {"brown", "purple"},
	"white":  {"yellow", "pink"},
	"brown":  {"orange", "red"},
}

var colorHexCodes = map[string]string{
	"red":    "#FF0000",
	"green":  "#00FF00",
	"blue":   "#0000FF",
	"orange": "#FFA500",
	"yellow": "#FFFF00",
	"purple": "#800080",
	"pink":   "#FFC0CB",
	"black":  "#000000",
	"white":  "#FFFFFF",
	"brown":  "#A52A2A",
	"gray":   "#808080",
	"silver": "#C0C0C0",
}

// colorMoods scores each color against mood dimensions (0-10).
var colorMoods = map[string]map[string]int{
	"red":    {"energy": 9, "warmth": 8, "calm": 2, "professional": 5, "creativity": 7},
	"blue":   {"energy": 3, "warmth": 2, "calm": 9, "professional": 9, "creativity": 6},
	"green":  {"energy": 5, "warmth": 4, "calm": 8, "professional": 7, "creativity": 5},
	"yellow": {"energy": 8, "warmth": 9, "calm": 3, "professional": 4, "creativity": 9},
	"purple": {"energy": 6, "warmth": 5, "calm": 6, "professional": 6, "creativity": 9},
	"orange": {"energy": 9, "warmth": 9, "calm": 2, "professional": 4, "creativity": 8},
	"pink":   {"energy": 6, "warmth": 7, "calm": 5, "professional": 4, "creativity": 8},
	"black":  {"energy": 4, "warmth": 1, "calm": 5, "professional": 10, "creativity": 5},
	"white":  {"energy": 5, "warmth": 3, "calm": 7, "professional": 8, "creativity": 6},
	"brown":  {"energy": 3, "warmth": 6, "calm": 6, "professional": 7, "creativity": 4},
}

var moodKeywords = map[string][]string{
	"energy":       {"energy", "energetic", "active", "sport", "dynamic", "vibrant", "exciting"},
	"calm":         {"calm", "calming", "meditation", "relax", "peaceful", "tranquil", "serene"},
	"warmth":       {"warm", "welcoming", "friendly", "cozy", "inviting", "comfortable"},
	"professional": {"professional", "corporate", "business", "formal", "executive", "official"},
	"creativity":   {"creative", "artistic", "design", "innovative", "imaginative", "expressive"},
}

// KnownColors lists the colors the demo toolkit understands, sorted.
func KnownColors() []string {
	colors := make([]string, 0, len(colorMoods))
	for c := range colorMoods {
		colors = append(colors, c)
	}
	sort.Strings(colors)
	return colors
}

// ColorToolkit is the demo toolkit. It works entirely from the user's
// stored favorite color, with no network access.
type ColorToolkit struct {
	FavoriteColor string
}

func NewColorToolkit(favoriteColor string) *ColorToolkit {
	return &ColorToolkit{FavoriteColor: strings.ToLower(favoriteColor)}
}

func (tk *ColorToolkit) Name() string { return "color_tools" }

func (tk *ColorToolkit) Tools() []Tool {
	return []Tool{
		&FuncTool{
			ToolName:        "generate_color_palette",
			ToolDescription: "Generate a color palette based on the user's favorite color.",
			ToolParameters: []Parameter{
				{
					Name:        "palette_type",
					Type:        "string",
					Description: "Type of palette to generate",
					Enum:        []string{"complementary", "analogous", "monochromatic"},
				},
			},
			Fn: tk.generatePalette,
		},
		&FuncTool{
			ToolName:        "format_text_with_theme",
			ToolDescription: "Format text using a theme built around the user's favorite color.",
			ToolParameters: []Parameter{
				{Name: "text", Type: "string", Description: "Text to format", Required: true},
			},
			Fn: tk.formatText,
		},
		&FuncTool{
			ToolName:        "design_color_scheme_for_purpose",
			ToolDescription: "Design a complete color scheme for a given purpose, weighing the purpose's mood requirements against the user's favorite color.",
			ToolParameters: []Parameter{
				{Name: "purpose", Type: "string", Description: "Purpose or context, e.g. 'calming meditation app'", Required: true},
			},
			Fn: tk.designScheme,
		},
	}
}

func hexFor(color string) string {
	if hex, ok := colorHexCodes[color]; ok {
		return hex
	}
	return "#808080"
}

func (tk *ColorToolkit) generatePalette(_ context.Context, args map[string]any) (string, error) {
	paletteType := strings.ToLower(OptionalStringArg(args, "palette_type", "complementary"))

	switch paletteType {
	case "complementary":
		complement, ok := complementaryColors[tk.FavoriteColor]
		if !ok {
			complement = "gray"
		}
		return fmt.Sprintf("Complementary palette: %s (%s) and %s (%s)",
			tk.FavoriteColor, hexFor(tk.FavoriteColor), complement, hexFor(complement)), nil

	case "analogous":
		neighbors, ok := analogousColors[tk.FavoriteColor]
		if !ok {
			neighbors = []string{"gray", "silver"}
		}
		parts := []string{fmt.Sprintf("%s (%s)", tk.FavoriteColor, hexFor(tk.FavoriteColor))}
		for _, n := range neighbors {
			parts = append(parts, fmt.Sprintf("%s (%s)", n, hexFor(n)))
		}
		return "Analogous palette: " + strings.Join(parts, ", "), nil

	case "monochromatic":
		return fmt.Sprintf("Monochromatic palette built on %s (%s): light, mid, and dark tints of the same hue",
			tk.FavoriteColor, hexFor(tk.FavoriteColor)), nil

	default:
		return fmt.Sprintf("Invalid palette_type %q. Must be one of: complementary, analogous, monochromatic", paletteType), nil
	}
}

func (tk *ColorToolkit) formatText(_ context.Context, args map[string]any) (string, error) {
	text, err := StringArg(args, "text")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("[theme: %s %s]\n%s\n[/theme]", tk.FavoriteColor, hexFor(tk.FavoriteColor), text), nil
}

func (tk *ColorToolkit) designScheme(_ context.Context, args map[string]any) (string, error) {
	purpose, err := StringArg(args, "purpose")
	if err != nil {
		return "", err
	}
	purposeLower := strings.ToLower(purpose)

	required := make(map[string]bool)
	for mood, keywords := range moodKeywords {
		for _, kw := range keywords {
			if strings.Contains(purposeLower, kw) {
				required[mood] = true
				break
			}
		}
	}

	matchScore := func(color string) int {
		total := 0
		for mood := range required {
			total += colorMoods[color][mood]
		}
		return total
	}

	favoriteScore := matchScore(tk.FavoriteColor)

	bestAlternative, bestScore := "", -1
	for _, color := range KnownColors() {
		if color == tk.FavoriteColor {
			continue
		}
		if score := matchScore(color); score > bestScore {
			bestAlternative, bestScore = color, score
		}
	}

	// Keep the favorite as primary when it scores within 70% of the
	// best alternative; otherwise demote it to an accent.
	var primary, reasoning string
	var supporting []string
	if float64(favoriteScore) >= float64(bestScore)*0.7 {
		primary = tk.FavoriteColor
		reasoning = fmt.Sprintf("Your favorite color (%s) is a good match for this purpose.", tk.FavoriteColor)
		if neighbors, ok := analogousColors[primary]; ok && len(neighbors) > 0 {
			supporting = neighbors[:1]
		} else {
			supporting = []string{"gray"}
		}
	} else {
		primary = bestAlternative
		reasoning = fmt.Sprintf("While %s is your favorite, %s better matches the %q requirements.",
			tk.FavoriteColor, primary, purpose)
		supporting = []string{tk.FavoriteColor}
	}

	accent, ok := complementaryColors[primary]
	if !ok {
		accent = "gray"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Color Scheme Design for: %q\n\n", purpose)
	fmt.Fprintf(&b, "Primary Color: %s (%s)\n  %s\n", primary, hexFor(primary), reasoning)
	fmt.Fprintf(&b, "Supporting: %s\n", strings.Join(supporting, ", "))
	fmt.Fprintf(&b, "Accent: %s (%s)\n", accent, hexFor(accent))
	return b.String(), nil
}
