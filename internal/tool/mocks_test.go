package tool_test

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"

	"github.com/hal9000y/intent-mcp/internal/classify"
)

type gmailSvcMock struct {
	ListMessagesFunc       func(ctx context.Context, q, pageToken string, maxResults int64) (*gmail.ListMessagesResponse, error)
	GetMessageMetadataFunc func(ctx context.Context, msgID string) (*gmail.Message, error)
	GetMessageFunc         func(ctx context.Context, msgID string) (*gmail.Message, error)
}

func (m *gmailSvcMock) ListMessages(ctx context.Context, q, pageToken string, maxResults int64) (*gmail.ListMessagesResponse, error) {
	if m.ListMessagesFunc == nil {
		panic("gmailSvcMock.ListMessagesFunc: method is nil but ListMessages was just called")
	}
	return m.ListMessagesFunc(ctx, q, pageToken, maxResults)
}

func (m *gmailSvcMock) GetMessageMetadata(ctx context.Context, msgID string) (*gmail.Message, error) {
	if m.GetMessageMetadataFunc == nil {
		panic("gmailSvcMock.GetMessageMetadataFunc: method is nil but GetMessageMetadata was just called")
	}
	return m.GetMessageMetadataFunc(ctx, msgID)
}

func (m *gmailSvcMock) GetMessage(ctx context.Context, msgID string) (*gmail.Message, error) {
	if m.GetMessageFunc == nil {
		panic("gmailSvcMock.GetMessageFunc: method is nil but GetMessage was just called")
	}
	return m.GetMessageFunc(ctx, msgID)
}

type converterMock struct {
	HTML2TextFunc func(raw []byte) (string, error)
}

func (m *converterMock) HTML2Text(raw []byte) (string, error) {
	if m.HTML2TextFunc == nil {
		panic("converterMock.HTML2TextFunc: method is nil but HTML2Text was just called")
	}
	return m.HTML2TextFunc(raw)
}

type classifyCall struct {
	Raw              string
	UsePreprocessing bool
}

type classifierMock struct {
	ClassifyFunc func(ctx context.Context, raw string, usePreprocessing bool) (classify.Result, error)

	mu    sync.Mutex
	calls []classifyCall
}

func (m *classifierMock) Classify(ctx context.Context, raw string, usePreprocessing bool) (classify.Result, error) {
	if m.ClassifyFunc == nil {
		panic("classifierMock.ClassifyFunc: method is nil but Classify was just called")
	}
	m.mu.Lock()
	m.calls = append(m.calls, classifyCall{Raw: raw, UsePreprocessing: usePreprocessing})
	m.mu.Unlock()
	return m.ClassifyFunc(ctx, raw, usePreprocessing)
}

func (m *classifierMock) ClassifyCalls() []classifyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]classifyCall(nil), m.calls...)
}

func mustClassification(t *testing.T, out string) classify.Classification {
	t.Helper()
	c, err := classify.ParseClassification(out)
	require.NoError(t, err)
	return c
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

// connect starts server and returns a connected client session.
func connect(t *testing.T, server *mcp.Server) *mcp.ClientSession {
	t.Helper()

	ctx := context.Background()
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSession.Close() })

	return clientSession
}

// callTool invokes name and decodes the text result into out unless the
// call reports an error, in which case the error text is returned.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args, out any) string {
	t.Helper()

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text := result.Content[0].(*mcp.TextContent).Text
	if result.IsError {
		return text
	}

	require.NoError(t, json.Unmarshal([]byte(text), out))
	return ""
}
