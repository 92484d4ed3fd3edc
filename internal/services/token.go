package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/trx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenManager caches a bearer credential and refreshes it on expiry.
//
// The cached-token path is the common case and performs no network call.
// Refresh is single-flight: a caller arriving while a refresh is in flight
// waits for it and receives the same token rather than issuing a duplicate
// exchange. One refresh attempt per call; failures surface as
// [shared.ErrAuthExpired].
type TokenManager struct {
	mu     sync.Mutex
	source oauth2.TokenSource
	token  *oauth2.Token
}

// NewTokenManager wraps any [oauth2.TokenSource]. The sync engine is agnostic
// to whether the source is a per-user or shared service credential.
func NewTokenManager(source oauth2.TokenSource) *TokenManager {
	return &TokenManager{source: source}
}

// NewUserTokenManager builds a manager on the refresh-token grant for a
// per-end-user credential.
func NewUserTokenManager(conf *oauth2.Config, refreshToken string) *TokenManager {
	return NewTokenManager(conf.TokenSource(context.Background(), &oauth2.Token{RefreshToken: refreshToken}))
}

// NewServiceTokenManager builds a manager on the client-credentials grant for
// the shared service account.
func NewServiceTokenManager(conf *clientcredentials.Config) *TokenManager {
	return NewTokenManager(conf.TokenSource(context.Background()))
}

// Token returns the cached access token, refreshing once if expired.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.source == nil {
		return "", shared.ErrNotAuthenticated
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != nil && m.token.Valid() {
		return m.token.AccessToken, nil
	}

	token, err := m.source.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAuthExpired, err)
	}

	m.token = token
	return token.AccessToken, nil
}

// Invalidate drops the cached token so the next Token call refreshes. Used
// when the platform rejects a token before its recorded expiry.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
}
