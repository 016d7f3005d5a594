package tool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/intent-mcp/internal/preprocess"
)

type PreprocessEmailRequest struct {
	EmailText string `json:"email_text" jsonschema:"raw email text, optionally starting with a Subject: line"`
}

type preprocessor interface {
	Preprocess(raw string) preprocess.ProcessedEmail
}

func NewPreprocessEmail(pre preprocessor) *PreprocessEmail {
	return &PreprocessEmail{pre: pre}
}

type PreprocessEmail struct {
	pre preprocessor
}

func (t *PreprocessEmail) PreprocessEmail(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input PreprocessEmailRequest,
) (*mcp.CallToolResult, preprocess.ProcessedEmail, error) {
	return nil, t.pre.Preprocess(input.EmailText), nil
}
