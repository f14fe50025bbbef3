package app

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/domain"
)

type mockOAuthClient struct {
	mock.Mock
}

func (m *mockOAuthClient) AuthorizeURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *mockOAuthClient) ExchangeCode(ctx context.Context, code string) (*domain.TokenSet, error) {
	args := m.Called(ctx, code)
	if tokens := args.Get(0); tokens != nil {
		return tokens.(*domain.TokenSet), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockGraphQLClient struct {
	mock.Mock
}

func (m *mockGraphQLClient) LastActivityOn(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *mockGraphQLClient) Groups(ctx context.Context, token string) ([]domain.Group, error) {
	args := m.Called(ctx, token)
	if groups := args.Get(0); groups != nil {
		return groups.([]domain.Group), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEventsClient struct {
	mock.Mock
}

func (m *mockEventsClient) List(ctx context.Context, token string, page, perPage int) ([]domain.Activity, error) {
	args := m.Called(ctx, token, page, perPage)
	if activities := args.Get(0); activities != nil {
		return activities.([]domain.Activity), args.Error(1)
	}
	return nil, args.Error(1)
}
