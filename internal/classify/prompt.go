package classify

import (
	_ "embed"
)

//go:embed prompt.txt
var systemPrompt string

// SystemPrompt returns the instructions sent ahead of every email.
func SystemPrompt() string {
	return systemPrompt
}

func correctionPrompt(text string, err error) string {
	return text + "\n\nYour previous answer was rejected: " + err.Error() +
		"\nReply again with one JSON object that follows the required fields."
}
