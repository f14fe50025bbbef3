package gitlab

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/domain"
)

// DecodeIDToken extracts identity claims from an OpenID Connect ID token
// without verifying its signature. The token arrived over the provider's
// TLS-protected token endpoint in direct exchange for a one-time code, so
// it is trusted as-is; no network call is needed to read the claims.
func DecodeIDToken(raw string) (*domain.Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("failed to parse ID token: %w", err)
	}

	subject, _ := claims.GetSubject()

	return &domain.Identity{
		Subject:   subject,
		Email:     stringClaim(claims, "email"),
		Username:  stringClaim(claims, "preferred_username"),
		Name:      stringClaim(claims, "name"),
		AvatarURL: stringClaim(claims, "picture"),
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	value, _ := claims[key].(string)
	return value
}
