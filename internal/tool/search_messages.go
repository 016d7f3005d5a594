package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/api/gmail/v1"
)

const (
	defaultSearchResults = 10
	maxSearchResults     = 50
)

type SearchMessagesRequest struct {
	Query      string `json:"query" jsonschema:"the Gmail search query"`
	MaxResults int64  `json:"max_results,omitempty" jsonschema:"max results per page, 10 by default and at most 50"`
	PageToken  string `json:"page_token,omitempty" jsonschema:"token for pagination"`
}

type SearchMessagesResponse struct {
	Messages      []MessageSummary `json:"messages" jsonschema:"array of message summaries"`
	NextPageToken string           `json:"next_page_token,omitempty" jsonschema:"token for next page"`
	TotalResults  int              `json:"total_results" jsonschema:"number of messages returned"`
}

type searchMessagesSvc interface {
	ListMessages(ctx context.Context, q, pageToken string, maxResults int64) (*gmail.ListMessagesResponse, error)
	GetMessageMetadata(ctx context.Context, msgID string) (*gmail.Message, error)
}

func NewSearchMessages(svc searchMessagesSvc) *SearchMessages {
	return &SearchMessages{svc: svc}
}

// SearchMessages finds candidate emails to classify.
type SearchMessages struct {
	svc searchMessagesSvc
}

func (t *SearchMessages) SearchMessages(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchMessagesRequest,
) (*mcp.CallToolResult, SearchMessagesResponse, error) {
	result, err := t.svc.ListMessages(ctx, input.Query, input.PageToken, clampMaxResults(input.MaxResults))
	if err != nil {
		return nil, SearchMessagesResponse{}, fmt.Errorf("svc.ListMessages failed: %w", err)
	}

	messages := make([]MessageSummary, 0, len(result.Messages))
	for _, m := range result.Messages {
		msg, err := t.svc.GetMessageMetadata(ctx, m.Id)
		if err != nil {
			return nil, SearchMessagesResponse{}, fmt.Errorf("get message %s failed: %w", m.Id, err)
		}
		messages = append(messages, extractMessageSummary(msg))
	}

	return nil, SearchMessagesResponse{
		Messages:      messages,
		NextPageToken: result.NextPageToken,
		TotalResults:  len(messages),
	}, nil
}

func clampMaxResults(n int64) int64 {
	if n <= 0 {
		return defaultSearchResults
	}
	return min(n, maxSearchResults)
}
