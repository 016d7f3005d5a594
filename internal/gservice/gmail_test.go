package gservice_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/hal9000y/intent-mcp/internal/gservice"
)

type tokenSourceMock struct {
	OAuthTokenFunc func() (*oauth2.Token, error)
}

func (m *tokenSourceMock) OAuthToken() (*oauth2.Token, error) {
	return m.OAuthTokenFunc()
}

func validToken() *tokenSourceMock {
	return &tokenSourceMock{OAuthTokenFunc: func() (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "access", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}, nil
	}}
}

func newGmailServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))
		assert.Equal(t, "from:broker@example.com", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
		assert.Equal(t, "page-2", r.URL.Query().Get("pageToken"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"messages":[{"id":"m1","threadId":"t1"}],"nextPageToken":"page-3"}`)
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "missing" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":404,"message":"Requested entity was not found."}}`)
			return
		}

		format := r.URL.Query().Get("format")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"`+r.PathValue("id")+`","snippet":"`+format+`","payload":{"mimeType":"text/plain"}}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGmail(t *testing.T) {
	srv := newGmailServer(t)
	g := gservice.NewGmail(&oauth2.Config{}, validToken(), gservice.WithEndpoint(srv.URL+"/"))
	ctx := context.Background()

	list, err := g.ListMessages(ctx, "from:broker@example.com", "page-2", 5)
	require.NoError(t, err)
	require.Len(t, list.Messages, 1)
	assert.Equal(t, "m1", list.Messages[0].Id)
	assert.Equal(t, "page-3", list.NextPageToken)

	meta, err := g.GetMessageMetadata(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "metadata", meta.Snippet)

	full, err := g.GetMessage(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, "m2", full.Id)
	assert.Equal(t, "full", full.Snippet)

	_, err = g.GetMessage(ctx, "missing")
	assert.Error(t, err)
}

func TestGmailWithoutToken(t *testing.T) {
	errNoToken := errors.New("no token defined")
	g := gservice.NewGmail(&oauth2.Config{}, &tokenSourceMock{OAuthTokenFunc: func() (*oauth2.Token, error) {
		return nil, errNoToken
	}})

	_, err := g.ListMessages(context.Background(), "q", "", 10)
	assert.ErrorIs(t, err, errNoToken)
}
