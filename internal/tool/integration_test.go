package tool_test

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"

	"github.com/hal9000y/intent-mcp/internal/auth"
	"github.com/hal9000y/intent-mcp/internal/classify"
	"github.com/hal9000y/intent-mcp/internal/config"
	"github.com/hal9000y/intent-mcp/internal/format"
	"github.com/hal9000y/intent-mcp/internal/gservice"
	"github.com/hal9000y/intent-mcp/internal/llm"
	"github.com/hal9000y/intent-mcp/internal/preprocess"
	"github.com/hal9000y/intent-mcp/internal/tool"
)

func TestIntegrationClassifyMailbox(t *testing.T) {
	tokenFile := os.Getenv("GMAIL_TOKEN_FILE")
	searchQuery := os.Getenv("GMAIL_SEARCH_QUERY")

	if tokenFile == "" || searchQuery == "" {
		t.Skip("Skipping integration test: GMAIL_TOKEN_FILE and GMAIL_SEARCH_QUERY env vars must be set")
	}

	conf, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
	}
	if !conf.GmailEnabled() {
		t.Skip("Skipping integration test: OAUTH_GOOGLE_CLIENT_ID and OAUTH_GOOGLE_CLIENT_SECRET must be set")
	}

	session := setupIntegrationSession(t, conf, tokenFile)

	var found tool.SearchMessagesResponse
	errText := callTool(t, session, "search_messages", tool.SearchMessagesRequest{Query: searchQuery, MaxResults: 5}, &found)
	require.Empty(t, errText, "search failed")
	t.Logf("Found %d messages", found.TotalResults)

	ids := make([]string, 0, len(found.Messages))
	for _, msg := range found.Messages {
		ids = append(ids, msg.ID)
	}

	var contents tool.GetMessagesResponse
	errText = callTool(t, session, "get_messages", tool.GetMessagesRequest{MessageIDs: ids}, &contents)
	require.Empty(t, errText, "get messages failed")

	for i, msg := range contents.Messages {
		t.Logf("\n=== MESSAGE %d/%d ===", i+1, len(contents.Messages))
		printPreprocessing(t, msg)
	}

	var classified tool.ClassifyMessagesResponse
	errText = callTool(t, session, "classify_messages", tool.ClassifyMessagesRequest{MessageIDs: ids}, &classified)
	require.Empty(t, errText, "classify messages failed")
	require.Len(t, classified.Results, len(ids))

	for _, res := range classified.Results {
		printClassification(t, res)
	}
}

func setupIntegrationSession(t *testing.T, conf *config.Config, tokenFile string) *mcp.ClientSession {
	oauthConf := &oauth2.Config{
		ClientID:     conf.OAuthClientID,
		ClientSecret: conf.OAuthClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "http://localhost:8080/oauth",
		Scopes:       []string{gmail.GmailReadonlyScope},
	}

	logger := discardLogger()

	tok, err := auth.NewToken(logger, oauthConf, tokenFile)
	require.NoError(t, err, "Failed to create token")

	_, err = tok.OAuthToken()
	require.NoError(t, err, "Token not set - please authenticate first")

	svc := llm.NewService(logger, llm.Config{
		APIKey:      conf.LLMAPIKey,
		BaseURL:     conf.LLMBaseURL,
		Model:       conf.LLMModel,
		Temperature: conf.LLMTemperature,
		MaxTokens:   conf.LLMMaxTokens,
	})
	cls := classify.NewClassifier(logger, svc, preprocess.Default(), classify.WithMaxRetries(conf.LLMMaxRetries))

	server := tool.NewServer(logger, preprocess.Default(), cls,
		tool.WithGmail(gservice.NewGmail(oauthConf, tok), format.Converter{}))

	return connect(t, server)
}

func printPreprocessing(t *testing.T, msg tool.MessageContent) {
	pre := msg.Preprocessing
	t.Logf("ID: %s", msg.Summary.ID)
	t.Logf("From: %s", formatEmails([]tool.EmailAddress{msg.Summary.From}))
	t.Logf("Subject: %s", pre.Subject)
	t.Logf("Body: %d bytes, clean text: %d bytes", len(msg.BodyText), len(pre.CleanText))
	t.Logf("Lines: %d, paragraphs: %d", pre.Metadata.LineCount, pre.Metadata.ParagraphCount)
	t.Logf("Urgent: %v, attachments: %v (%d files)", pre.Metadata.UrgentIndicators, pre.Metadata.HasAttachments, len(msg.Attachments))
	t.Logf("Entities: %s", strings.Join(pre.Metadata.PotentialEntities, "; "))
	t.Logf("Preview: %s", truncateString(pre.CleanText, 200))
}

func printClassification(t *testing.T, res tool.MessageClassification) {
	if res.Error != "" {
		t.Logf("%s: error %s", truncateString(res.Summary.Subject, 40), res.Error)
		return
	}
	c := res.Classification
	t.Logf("%s: %s %v priority=%s confidence=%.2f",
		truncateString(res.Summary.Subject, 40),
		c.PrimaryIntent,
		c.SecondaryIntents,
		c.Priority,
		c.OverallConfidence,
	)
}

func formatEmails(emails []tool.EmailAddress) string {
	if len(emails) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(emails))
	for _, email := range emails {
		if email.Name != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", email.Name, email.Email))
		} else {
			parts = append(parts, email.Email)
		}
	}
	return strings.Join(parts, ", ")
}

func truncateString(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

