// Package tool exposes email preprocessing and intent classification as
// MCP tools, optionally backed by a Gmail mailbox.
package tool

import (
	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "email-intent"
	serverVersion = "v1.0.0"
)

type gmailSvc interface {
	searchMessagesSvc
	messageFetcher
}

type serverOptions struct {
	gmail gmailSvc
	conv  htmlConverter
}

type Option func(*serverOptions)

// WithGmail registers the mailbox tools backed by svc.
func WithGmail(svc gmailSvc, conv htmlConverter) Option {
	return func(o *serverOptions) {
		o.gmail = svc
		o.conv = conv
	}
}

// NewServer creates an MCP server with the classification tools.
func NewServer(logger *log.Logger, pre preprocessor, cls classifier, opts ...Option) *mcp.Server {
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "preprocess_email",
		Description: "Clean an email and extract metadata (subject, paragraphs, list, urgency and attachment flags, candidate property and company names)",
	}, NewPreprocessEmail(pre).PreprocessEmail)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "classify_email",
		Description: "Classify the real estate intents, priority and entities of an email",
	}, NewClassifyEmail(cls).ClassifyEmail)

	if o.gmail == nil {
		logger.Info("gmail tools disabled")
		return server
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_messages",
		Description: "Search Gmail messages using Gmail search syntax",
	}, NewSearchMessages(o.gmail).SearchMessages)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_messages",
		Description: "Get message bodies and their preprocessing for specified message IDs",
	}, NewGetMessages(o.gmail, o.conv, pre).GetMessages)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "classify_messages",
		Description: "Classify Gmail messages by ID",
	}, NewClassifyMessages(logger, o.gmail, o.conv, cls).ClassifyMessages)

	return server
}
