package app

import (
	"context"

	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/domain"
)

// Service names used for container registration and resolution. Resolving
// by name is what lets a test re-register a double under the same name.
const (
	ServiceConfig        = "config"
	ServiceHTTPClient    = "httpClient"
	ServiceOAuthClient   = "oauthClient"
	ServiceGraphQLClient = "graphqlClient"
	ServiceEventsClient  = "eventsClient"
	ServiceAuth          = "authService"
	ServiceResources     = "resourceService"
)

type userContextKey struct{}

// WithUser returns a child context carrying the request's session user, for
// scoped factories to pull.
func WithUser(ctx context.Context, user domain.SessionUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the session user placed by the authentication
// gate, returning false when the request is unauthenticated.
func UserFromContext(ctx context.Context) (domain.SessionUser, bool) {
	user, ok := ctx.Value(userContextKey{}).(domain.SessionUser)
	return user, ok
}
