package chatclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/evalharness/internal/util"
)

// ErrEntityParse signals that a model answer could not be decoded into the
// requested structure.
var ErrEntityParse = errors.New("chatclient: cannot parse structured output")

// FormatInstructions returns the prompt suffix asking for JSON matching the
// schema of out's type.
func FormatInstructions(out any) string {
	schema, err := json.MarshalIndent(util.CreateSchema(out), "", "  ")
	if err != nil {
		schema = []byte("{}")
	}
	return "Your response should be in JSON format.\n" +
		"Do not include any explanations, only provide a RFC8259 compliant JSON response following this format without deviation.\n" +
		"Do not include markdown code blocks in your response.\n" +
		"Here is the JSON Schema instance your output must adhere to:\n```" + string(schema) + "```\n"
}

// DecodeEntity extracts the JSON object from text, checks it against the
// schema of out's type and decodes it into out.
func DecodeEntity(text string, out any) error {
	raw := extractJSON(text)
	if raw == "" {
		return fmt.Errorf("%w: no JSON object in %q", ErrEntityParse, truncate(text, 120))
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return fmt.Errorf("%w: %v", ErrEntityParse, err)
	}
	if err := util.ValidateObject(obj, util.CreateSchema(out)); err != nil {
		return fmt.Errorf("%w: %w", ErrEntityParse, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", ErrEntityParse, err)
	}
	return nil
}

// extractJSON strips markdown fences and surrounding prose, returning the
// outermost {...} span.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
