package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/intent-mcp/internal/preprocess"
)

// GetMessagesRequest contains message IDs to retrieve.
type GetMessagesRequest struct {
	MessageIDs []string `json:"message_ids" jsonschema:"array of message IDs to retrieve"`
}

// GetMessagesResponse contains the fetched and preprocessed messages.
type GetMessagesResponse struct {
	Messages []MessageContent `json:"messages" jsonschema:"array of message contents"`
}

// MessageContent is a message body together with its preprocessing record.
type MessageContent struct {
	Summary       MessageSummary            `json:"summary" jsonschema:"summary"`
	BodyText      string                    `json:"body_text,omitempty" jsonschema:"text body, HTML bodies converted to text"`
	Attachments   []Attachment              `json:"attachments,omitempty" jsonschema:"list of attachments"`
	Preprocessing preprocess.ProcessedEmail `json:"preprocessing" jsonschema:"preprocessing of the subject and body"`
}

func NewGetMessages(svc messageFetcher, conv htmlConverter, pre preprocessor) *GetMessages {
	return &GetMessages{
		svc:  svc,
		conv: conv,
		pre:  pre,
	}
}

// GetMessages fetches messages and shows what the classifier would see.
type GetMessages struct {
	svc  messageFetcher
	conv htmlConverter
	pre  preprocessor
}

func (t *GetMessages) GetMessages(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetMessagesRequest,
) (*mcp.CallToolResult, GetMessagesResponse, error) {
	messages := make([]MessageContent, 0, len(input.MessageIDs))

	for _, msgID := range input.MessageIDs {
		fm, err := fetchMessage(ctx, t.svc, t.conv, msgID)
		if err != nil {
			return nil, GetMessagesResponse{}, fmt.Errorf("fetchMessage failed: %w", err)
		}

		messages = append(messages, MessageContent{
			Summary:       fm.summary,
			BodyText:      fm.body,
			Attachments:   fm.attachments,
			Preprocessing: t.pre.Preprocess(fm.emailText()),
		})
	}

	return nil, GetMessagesResponse{Messages: messages}, nil
}
