package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

type tokenFlow interface {
	AuthorizeCode(ctx context.Context, code, state string) error
	OAuthToken() (*oauth2.Token, error)
	RedirectURL() (string, error)
}

// HTTPHandler serves the OAuth2 consent redirect, the callback and a token
// status page on a single path.
type HTTPHandler struct {
	logger *log.Logger
	tok    tokenFlow
}

func NewHTTPHandler(logger *log.Logger, tok tokenFlow) *HTTPHandler {
	return &HTTPHandler{logger: logger, tok: tok}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch {
	case q.Get("redirect") != "":
		h.redirect(w, r)
	case q.Get("code") != "":
		h.callback(w, r, q.Get("code"), q.Get("state"))
	default:
		h.status(w)
	}
}

func (h *HTTPHandler) redirect(w http.ResponseWriter, r *http.Request) {
	url, err := h.tok.RedirectURL()
	if err != nil {
		h.logger.Error("tok.RedirectURL failed", "err", err)
		http.Error(w, "Unable to start authorization", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *HTTPHandler) callback(w http.ResponseWriter, r *http.Request, code, state string) {
	if err := h.tok.AuthorizeCode(r.Context(), code, state); err != nil {
		h.logger.Warn("tok.AuthorizeCode failed", "err", err)
		http.Error(w, "Unable to authorize provided code", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, r.URL.EscapedPath(), http.StatusFound)
}

func (h *HTTPHandler) status(w http.ResponseWriter) {
	t, err := h.tok.OAuthToken()
	if errors.Is(err, ErrTokenNotSet) {
		http.Error(w, "Token not found", http.StatusUnauthorized)
		return
	}
	if err != nil {
		http.Error(w, "Token unavailable", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "Token: %s, expires: %s", maskLeft(t.AccessToken), t.Expiry.Format(time.RFC3339))
}

// maskLeft hides all but the last four characters.
func maskLeft(s string) string {
	rs := []rune(s)
	for i := 0; i < len(rs)-4; i++ {
		rs[i] = 'X'
	}
	return string(rs)
}
