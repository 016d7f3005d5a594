package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/hal9000y/intent-mcp/internal/preprocess"
)

// ErrEmptyEmail indicates there is no text left to classify.
var ErrEmptyEmail = errors.New("email text is empty")

const defaultMaxRetries = 1

type completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type preprocessor interface {
	Preprocess(raw string) preprocess.ProcessedEmail
}

// Result pairs a classification with the preprocessing record it was
// derived from. Preprocessing is nil when preprocessing was skipped.
type Result struct {
	Classification Classification            `json:"classification" jsonschema:"classification returned by the model after metadata overrides"`
	Preprocessing  *preprocess.ProcessedEmail `json:"preprocessing,omitempty" jsonschema:"preprocessing record, absent when skipped"`
}

type Option func(*Classifier)

// WithMaxRetries sets how many times invalid model output is re-requested.
func WithMaxRetries(n int) Option {
	return func(c *Classifier) {
		c.maxRetries = max(n, 0)
	}
}

type Classifier struct {
	logger     *log.Logger
	llm        completer
	pre        preprocessor
	maxRetries int
}

func NewClassifier(logger *log.Logger, llm completer, pre preprocessor, opts ...Option) *Classifier {
	c := &Classifier{
		logger:     logger,
		llm:        llm,
		pre:        pre,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify preprocesses raw when usePreprocessing is set, asks the model for
// a classification and applies preprocessing metadata to the answer.
func (c *Classifier) Classify(ctx context.Context, raw string, usePreprocessing bool) (Result, error) {
	var res Result

	text := raw
	if usePreprocessing {
		processed := c.pre.Preprocess(raw)
		res.Preprocessing = &processed
		text = processed.CleanText

		c.logger.Debug("email preprocessed",
			"subject", processed.Subject,
			"paragraphs", processed.Metadata.ParagraphCount,
			"has_attachments", processed.Metadata.HasAttachments,
			"urgent_indicators", processed.Metadata.UrgentIndicators,
			"entities", processed.Metadata.PotentialEntities,
		)
	}

	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyEmail
	}

	classification, err := c.complete(ctx, text)
	if err != nil {
		return Result{}, err
	}

	if res.Preprocessing != nil {
		classification = ApplyMetadata(classification, res.Preprocessing.Metadata)
	}
	res.Classification = classification

	c.logger.Info("email classified",
		"primary_intent", classification.PrimaryIntent,
		"secondary_intents", len(classification.SecondaryIntents),
		"priority", classification.Priority,
		"confidence", classification.OverallConfidence,
	)

	return res, nil
}

func (c *Classifier) complete(ctx context.Context, text string) (Classification, error) {
	prompt := text
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		out, err := c.llm.CompleteJSON(ctx, SystemPrompt(), prompt)
		if err != nil {
			return Classification{}, fmt.Errorf("llm.CompleteJSON failed: %w", err)
		}

		classification, err := ParseClassification(out)
		if err == nil {
			return classification, nil
		}

		c.logger.Warn("invalid classification output", "attempt", attempt+1, "err", err)
		lastErr = err
		prompt = correctionPrompt(text, err)
	}

	return Classification{}, fmt.Errorf("ParseClassification failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
