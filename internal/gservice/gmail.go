// Package gservice wraps the Gmail API calls used by the MCP tools.
package gservice

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const gmailUserID = "me"

type tokenSource interface {
	OAuthToken() (*oauth2.Token, error)
}

type GmailOption func(*Gmail)

// WithEndpoint overrides the Gmail API base URL.
func WithEndpoint(endpoint string) GmailOption {
	return func(g *Gmail) {
		g.endpoint = endpoint
	}
}

func NewGmail(cfg *oauth2.Config, tok tokenSource, opts ...GmailOption) *Gmail {
	g := &Gmail{
		cfg: cfg,
		tok: tok,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Gmail issues read-only Gmail requests with the current OAuth token.
type Gmail struct {
	cfg      *oauth2.Config
	tok      tokenSource
	endpoint string
}

func (g *Gmail) ListMessages(ctx context.Context, q, pageToken string, maxResults int64) (*gmail.ListMessagesResponse, error) {
	svc, err := g.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	result, err := svc.Users.Messages.List(gmailUserID).
		Q(q).
		PageToken(pageToken).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("messages.List failed: %w", err)
	}

	return result, nil
}

// GetMessageMetadata fetches only the headers needed for a summary.
func (g *Gmail) GetMessageMetadata(ctx context.Context, msgID string) (*gmail.Message, error) {
	svc, err := g.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	msg, err := svc.Users.Messages.Get(gmailUserID, msgID).
		Format("metadata").
		MetadataHeaders("From", "To", "Cc", "Subject", "Date").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("messages.Get(%s) failed: %w", msgID, err)
	}

	return msg, nil
}

// GetMessage fetches the full message including body parts.
func (g *Gmail) GetMessage(ctx context.Context, msgID string) (*gmail.Message, error) {
	svc, err := g.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	msg, err := svc.Users.Messages.Get(gmailUserID, msgID).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("messages.Get(%s) failed: %w", msgID, err)
	}

	return msg, nil
}

func (g *Gmail) newSvc(ctx context.Context) (*gmail.Service, error) {
	t, err := g.tok.OAuthToken()
	if err != nil {
		return nil, fmt.Errorf("tok.OAuthToken failed: %w", err)
	}

	opts := []option.ClientOption{option.WithHTTPClient(g.cfg.Client(ctx, t))}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail.NewService failed: %w", err)
	}

	return svc, nil
}
