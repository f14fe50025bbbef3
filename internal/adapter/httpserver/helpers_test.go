package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/app"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/container"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/domain"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/platform/config"
)

// Stub provider clients. Nil function fields answer with zero values.

type stubOAuth struct {
	authorizeURL func(state string) string
	exchangeCode func(ctx context.Context, code string) (*domain.TokenSet, error)
}

func (s *stubOAuth) AuthorizeURL(state string) string {
	if s.authorizeURL == nil {
		return "https://gitlab.example.com/oauth/authorize?state=" + url.QueryEscape(state)
	}
	return s.authorizeURL(state)
}

func (s *stubOAuth) ExchangeCode(ctx context.Context, code string) (*domain.TokenSet, error) {
	if s.exchangeCode == nil {
		return &domain.TokenSet{AccessToken: "at-1"}, nil
	}
	return s.exchangeCode(ctx, code)
}

type stubGraphQL struct {
	lastActivityOn func(ctx context.Context, token string) (string, error)
	groups         func(ctx context.Context, token string) ([]domain.Group, error)
}

func (s *stubGraphQL) LastActivityOn(ctx context.Context, token string) (string, error) {
	if s.lastActivityOn == nil {
		return "", nil
	}
	return s.lastActivityOn(ctx, token)
}

func (s *stubGraphQL) Groups(ctx context.Context, token string) ([]domain.Group, error) {
	if s.groups == nil {
		return nil, nil
	}
	return s.groups(ctx, token)
}

type stubEvents struct {
	list func(ctx context.Context, token string, page, perPage int) ([]domain.Activity, error)
}

func (s *stubEvents) List(ctx context.Context, token string, page, perPage int) ([]domain.Activity, error) {
	if s.list == nil {
		return nil, nil
	}
	return s.list(ctx, token, page, perPage)
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:             "development",
		Port:               "0",
		GitLabBaseURL:      "https://gitlab.example.com",
		GitLabClientID:     "client-id",
		GitLabClientSecret: "client-secret",
		GitLabRedirectURI:  "http://localhost/auth/callback",
		OAuthScopes:        "openid profile",
		SessionSecret:      strings.Repeat("s", 32),
		SessionName:        "test-session",
		SessionMaxAge:      time.Hour,
		RateLimitPerSecond: 100,
		RateLimitBurst:     200,
	}
}

func testIDToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":                "42",
		"preferred_username": "dan",
		"name":               "Dan D",
		"email":              "dan@example.com",
	})
	raw, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return raw
}

// fixture is a running server with stub provider clients behind the real
// container registrations, plus a cookie-carrying client that does not
// follow redirects.
type fixture struct {
	ts     *httptest.Server
	client *http.Client
}

func newFixture(t *testing.T, cfg *config.Config, oauth *stubOAuth, graphql *stubGraphQL, events *stubEvents, healthChecks []HealthCheck) *fixture {
	t.Helper()

	services := container.New()
	services.RegisterValue(app.ServiceConfig, cfg)
	services.RegisterConstructor(app.ServiceAuth, container.Singleton, nil, func([]any) (any, error) {
		return app.NewAuthService(oauth, clockwork.NewFakeClock()), nil
	})
	services.RegisterFactory(app.ServiceResources, container.Scoped, func(ctx context.Context, _ container.Resolver) (any, error) {
		user, ok := app.UserFromContext(ctx)
		if !ok {
			return nil, errors.New("no session user on context")
		}
		return app.NewResourceService(graphql, events, user), nil
	})

	srv, err := NewServer(cfg, services, nil, nil, healthChecks)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &fixture{
		ts: ts,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func newTestServer(t *testing.T, oauth *stubOAuth, graphql *stubGraphQL, events *stubEvents) *fixture {
	t.Helper()
	return newFixture(t, testConfig(), oauth, graphql, events, nil)
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := f.client.Get(f.ts.URL + path)
	require.NoError(t, err)
	return resp
}

// login walks the full flow against the stub provider: start at /auth,
// lift the state out of the redirect, and complete the callback.
func (f *fixture) login(t *testing.T) {
	t.Helper()

	resp := f.get(t, "/auth")
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	resp = f.get(t, "/auth/callback?code=the-code&state="+url.QueryEscape(state))
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/home", resp.Header.Get("Location"))
}

// csrfToken reads the CSRF cookie issued on a prior GET. The middleware
// accepts the cookie value back via the X-CSRF-Token header.
func (f *fixture) csrfToken(t *testing.T) string {
	t.Helper()

	base, err := url.Parse(f.ts.URL)
	require.NoError(t, err)

	for _, cookie := range f.client.Jar.Cookies(base) {
		if cookie.Name == "csrf_token" {
			return cookie.Value
		}
	}
	t.Fatal("no csrf_token cookie in jar")
	return ""
}
