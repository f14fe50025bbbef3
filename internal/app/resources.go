package app

import (
	"context"

	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/domain"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/gitlab"
	apperrors "github.com/danderssonsario/oauth-openid-graphql-rest/internal/platform/errors"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100

	// totalActivityCount is the fixed ceiling the provider reports no
	// total for; pagination is clamped against it.
	totalActivityCount = 120
)

// ResourceService aggregates provider data for one authenticated request.
// It is resolved per request scope, bound to that request's session user.
type ResourceService struct {
	graphql gitlab.GraphQLClient
	events  gitlab.EventsClient
	user    domain.SessionUser
}

func NewResourceService(graphql gitlab.GraphQLClient, events gitlab.EventsClient, user domain.SessionUser) *ResourceService {
	return &ResourceService{graphql: graphql, events: events, user: user}
}

// Profile merges the identity claims decoded locally from the session's ID
// token with the last-activity date queried from the provider.
func (s *ResourceService) Profile(ctx context.Context) (*domain.Profile, error) {
	identity, err := gitlab.DecodeIDToken(s.user.IDToken)
	if err != nil {
		return nil, apperrors.InternalError("failed to decode ID token", err)
	}

	lastActivity, err := s.graphql.LastActivityOn(ctx, s.user.AccessToken)
	if err != nil {
		return nil, err
	}

	return &domain.Profile{
		Identity:       *identity,
		LastActivityOn: lastActivity,
	}, nil
}

// Activities returns one page of the user's recent events. The page number
// is clamped to the derived total so the view never walks past the feed.
func (s *ResourceService) Activities(ctx context.Context, page, limit int) (*domain.ActivityPage, error) {
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	totalPages := (totalActivityCount + limit - 1) / limit

	if page < 1 {
		page = defaultPage
	}
	if page > totalPages {
		page = totalPages
	}

	entries, err := s.events.List(ctx, s.user.AccessToken, page, limit)
	if err != nil {
		return nil, err
	}

	return &domain.ActivityPage{
		Entries:    entries,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// Groups returns the nested group/project/commit tree, passed through
// largely unmodified.
func (s *ResourceService) Groups(ctx context.Context) ([]domain.Group, error) {
	return s.graphql.Groups(ctx, s.user.AccessToken)
}
