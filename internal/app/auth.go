// Package app holds the aggregation services sitting between the HTTP
// handlers and the GitLab clients.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/domain"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/gitlab"
)

// AuthService drives the delegated-authorization flow: it produces the
// provider redirect and turns a callback code into a session user record.
type AuthService struct {
	oauth gitlab.OAuthClient
	clock clockwork.Clock
}

func NewAuthService(oauth gitlab.OAuthClient, clock clockwork.Clock) *AuthService {
	return &AuthService{oauth: oauth, clock: clock}
}

// Login returns the provider authorization URL and the anti-forgery state
// value the caller must persist in the session for the callback check.
func (s *AuthService) Login() (authURL, state string, err error) {
	state, err = generateState()
	if err != nil {
		return "", "", err
	}
	return s.oauth.AuthorizeURL(state), state, nil
}

// Callback exchanges the authorization code for tokens. On any failure the
// error propagates and no user record is produced, so the session stays
// unauthenticated.
func (s *AuthService) Callback(ctx context.Context, code string) (*domain.SessionUser, error) {
	tokens, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	return &domain.SessionUser{
		AccessToken: tokens.AccessToken,
		IDToken:     tokens.IDToken,
		ObtainedAt:  s.clock.Now(),
	}, nil
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate OAuth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
