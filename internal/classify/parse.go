package classify

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseClassification decodes model output into a validated Classification.
// Markdown code fences and text around the JSON object are ignored.
func ParseClassification(text string) (Classification, error) {
	text = stripFences(text)

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return Classification{}, fmt.Errorf("%w: no JSON object in output", ErrInvalidClassification)
	}

	var c Classification
	if err := json.Unmarshal([]byte(text[start:end+1]), &c); err != nil {
		return Classification{}, fmt.Errorf("%w: json.Unmarshal failed: %w", ErrInvalidClassification, err)
	}

	if err := c.Validate(); err != nil {
		return Classification{}, err
	}

	return c.normalize(), nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
