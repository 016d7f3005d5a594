package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/intent-mcp/internal/classify"
)

type ClassifyEmailRequest struct {
	EmailText         string `json:"email_text" jsonschema:"raw email text, optionally starting with a Subject: line"`
	SkipPreprocessing bool   `json:"skip_preprocessing,omitempty" jsonschema:"send the raw text to the model without cleanup or metadata overrides"`
}

type classifier interface {
	Classify(ctx context.Context, raw string, usePreprocessing bool) (classify.Result, error)
}

func NewClassifyEmail(cls classifier) *ClassifyEmail {
	return &ClassifyEmail{cls: cls}
}

type ClassifyEmail struct {
	cls classifier
}

func (t *ClassifyEmail) ClassifyEmail(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ClassifyEmailRequest,
) (*mcp.CallToolResult, classify.Result, error) {
	res, err := t.cls.Classify(ctx, input.EmailText, !input.SkipPreprocessing)
	if err != nil {
		return nil, classify.Result{}, fmt.Errorf("cls.Classify failed: %w", err)
	}
	return nil, res, nil
}
