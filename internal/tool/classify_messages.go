package tool

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/intent-mcp/internal/classify"
	"github.com/hal9000y/intent-mcp/internal/preprocess"
)

type ClassifyMessagesRequest struct {
	MessageIDs        []string `json:"message_ids" jsonschema:"array of Gmail message IDs to classify"`
	SkipPreprocessing bool     `json:"skip_preprocessing,omitempty" jsonschema:"send raw text to the model without cleanup or metadata overrides"`
}

type ClassifyMessagesResponse struct {
	Results []MessageClassification `json:"results" jsonschema:"one entry per requested message, in request order"`
}

// MessageClassification holds either a classification or the reason it failed.
type MessageClassification struct {
	Summary        MessageSummary             `json:"summary" jsonschema:"message summary"`
	Attachments    []Attachment               `json:"attachments,omitempty" jsonschema:"attachments found in the message"`
	Classification *classify.Classification   `json:"classification,omitempty" jsonschema:"classification, absent on error"`
	Preprocessing  *preprocess.ProcessedEmail `json:"preprocessing,omitempty" jsonschema:"preprocessing record, absent when skipped"`
	Error          string                     `json:"error,omitempty" jsonschema:"error if classification failed"`
}

func NewClassifyMessages(logger *log.Logger, svc messageFetcher, conv htmlConverter, cls classifier) *ClassifyMessages {
	return &ClassifyMessages{
		logger: logger,
		svc:    svc,
		conv:   conv,
		cls:    cls,
	}
}

// ClassifyMessages classifies Gmail messages by ID. Fetch failures abort the
// call; classification failures are reported per message.
type ClassifyMessages struct {
	logger *log.Logger
	svc    messageFetcher
	conv   htmlConverter
	cls    classifier
}

func (t *ClassifyMessages) ClassifyMessages(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ClassifyMessagesRequest,
) (*mcp.CallToolResult, ClassifyMessagesResponse, error) {
	results := make([]MessageClassification, 0, len(input.MessageIDs))

	for _, msgID := range input.MessageIDs {
		fm, err := fetchMessage(ctx, t.svc, t.conv, msgID)
		if err != nil {
			return nil, ClassifyMessagesResponse{}, fmt.Errorf("fetchMessage failed: %w", err)
		}

		item := MessageClassification{
			Summary:     fm.summary,
			Attachments: fm.attachments,
		}

		res, err := t.cls.Classify(ctx, fm.emailText(), !input.SkipPreprocessing)
		if err != nil {
			t.logger.Warn("message classification failed", "id", msgID, "err", err)
			item.Error = err.Error()
			results = append(results, item)
			continue
		}

		if len(fm.attachments) > 0 {
			res.Classification.AttachmentsMentioned = true
		}
		item.Classification = &res.Classification
		item.Preprocessing = res.Preprocessing

		results = append(results, item)
	}

	return nil, ClassifyMessagesResponse{Results: results}, nil
}
