// Package format turns HTML email bodies into plain text.
package format

import (
	"fmt"
	"strings"

	"github.com/jaytaylor/html2text"
)

// Converter converts HTML bodies to text suitable for preprocessing.
type Converter struct{}

// HTML2Text flattens layout tables and renders raw HTML as plain text
// without link targets.
func (c Converter) HTML2Text(raw []byte) (string, error) {
	simplified := UnwrapTableLayout(raw)

	text, err := html2text.FromString(string(simplified), html2text.Options{OmitLinks: true, TextOnly: true})
	if err != nil {
		return "", fmt.Errorf("html2text.FromString failed: %w", err)
	}

	return strings.TrimSpace(text), nil
}
