package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/domain"
	apperrors "github.com/danderssonsario/oauth-openid-graphql-rest/internal/platform/errors"
)

// OAuthClient performs the provider's authorization-code exchange.
type OAuthClient interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*domain.TokenSet, error)
}

// oauthHTTPClient is the production implementation against the GitLab OAuth
// endpoints.
type oauthHTTPClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	redirectURI  string
	scopes       string
	httpClient   *http.Client
}

// NewOAuthClient creates an OAuth client for the given GitLab instance.
func NewOAuthClient(baseURL, clientID, clientSecret, redirectURI, scopes string, httpClient *http.Client) OAuthClient {
	return &oauthHTTPClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		scopes:       scopes,
		httpClient:   httpClient,
	}
}

// AuthorizeURL builds the provider authorization URL carrying the
// anti-forgery state value.
func (c *oauthHTTPClient) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", c.scopes)
	q.Set("state", state)
	return c.baseURL + "/oauth/authorize?" + q.Encode()
}

// ExchangeCode trades a one-time authorization code for access/ID tokens.
// A single POST, no retries: a failed exchange leaves the caller
// unauthenticated and surfaces a provider-communication error.
func (c *oauthHTTPClient) ExchangeCode(ctx context.Context, code string) (*domain.TokenSet, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ExternalError("token exchange request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.ExternalError("token endpoint rejected the exchange", nil).
			WithField("status", resp.StatusCode)
	}

	var tokens domain.TokenSet
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, apperrors.ExternalError("failed to decode token response", err)
	}
	if tokens.AccessToken == "" {
		return nil, apperrors.ExternalError("token response missing access token", nil)
	}

	return &tokens, nil
}
