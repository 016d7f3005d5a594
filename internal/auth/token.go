// Package auth keeps the Google OAuth2 token used for Gmail access.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

const stateTTL = 5 * time.Minute

var (
	// ErrTokenNotSet indicates no OAuth token is available.
	ErrTokenNotSet = errors.New("no token defined")
	// ErrInvalidState indicates an unknown, reused or expired OAuth state.
	ErrInvalidState = errors.New("invalid or expired state parameter")
)

// Token holds the OAuth2 token and pending authorization states.
type Token struct {
	mu          sync.RWMutex
	logger      *log.Logger
	cfg         *oauth2.Config
	token       *oauth2.Token
	persistPath string
	states      map[string]time.Time
}

// NewToken creates a Token, loading a cached token from persistPath when
// the file exists. An empty persistPath disables caching.
func NewToken(logger *log.Logger, cfg *oauth2.Config, persistPath string) (*Token, error) {
	t := &Token{
		logger:      logger,
		cfg:         cfg,
		persistPath: persistPath,
		states:      make(map[string]time.Time),
	}
	if persistPath == "" {
		return t, nil
	}

	data, err := os.ReadFile(persistPath)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("token cache not found, it will be created on shutdown", "path", persistPath)
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile failed: %w", err)
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(%s) failed: %w", persistPath, err)
	}
	t.token = token

	return t, nil
}

// RedirectURL returns the consent page URL bound to a fresh random state.
func (t *Token) RedirectURL() (string, error) {
	state, err := t.newState()
	if err != nil {
		return "", fmt.Errorf("newState failed: %w", err)
	}

	return t.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

func (t *Token) newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read failed: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(b)

	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for s, exp := range t.states {
		if exp.Before(now) {
			delete(t.states, s)
		}
	}
	t.states[state] = now.Add(stateTTL)

	return state, nil
}

// consumeState accepts each state at most once and only before it expires.
func (t *Token) consumeState(state string) bool {
	if state == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	expiry, ok := t.states[state]
	if !ok {
		return false
	}
	delete(t.states, state)

	return !time.Now().After(expiry)
}

// AuthorizeCode validates state and exchanges code for a token.
func (t *Token) AuthorizeCode(ctx context.Context, code, state string) error {
	if !t.consumeState(state) {
		return ErrInvalidState
	}

	tok, err := t.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("cfg.Exchange failed: %w", err)
	}

	t.mu.Lock()
	t.token = tok
	t.mu.Unlock()

	t.logger.Info("oauth token authorized", "expiry", tok.Expiry)

	return nil
}

// OAuthToken returns the current token or ErrTokenNotSet.
func (t *Token) OAuthToken() (*oauth2.Token, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.token == nil {
		return nil, ErrTokenNotSet
	}

	return t.token, nil
}

// Persist writes the token to the cache file, if both exist.
func (t *Token) Persist() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.persistPath == "" || t.token == nil {
		return nil
	}

	data, err := json.Marshal(t.token)
	if err != nil {
		return fmt.Errorf("json.Marshal failed: %w", err)
	}

	if err := os.WriteFile(t.persistPath, data, 0o600); err != nil {
		return fmt.Errorf("os.WriteFile failed: %w", err)
	}

	return nil
}
