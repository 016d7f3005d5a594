// Package llm wraps an OpenAI-compatible chat completions endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// ErrNoChoices indicates a completion response without any choice.
var ErrNoChoices = errors.New("completion returned no choices")

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
}

// Service issues JSON-mode chat completions.
type Service struct {
	client *openai.Client
	logger *log.Logger
	cfg    Config
}

// NewService creates a Service. Retries are left to the caller, so the
// client's own retry loop is disabled.
func NewService(logger *log.Logger, cfg Config) *Service {
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	)
	return &Service{
		client: &client,
		logger: logger,
		cfg:    cfg,
	}
}

// CompleteJSON sends one system and one user message and returns the content
// of the first choice. The model is asked to answer with a JSON object.
func (s *Service) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model:       openai.ChatModel(s.cfg.Model),
		Temperature: openai.Float(s.cfg.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if s.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(s.cfg.MaxTokens)
	}

	completion, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("client.Chat.Completions.New failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", ErrNoChoices
	}

	s.logger.Debug("completion received",
		"model", completion.Model,
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
		"finish_reason", completion.Choices[0].FinishReason,
	)

	return completion.Choices[0].Message.Content, nil
}
