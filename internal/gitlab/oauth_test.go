package gitlab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/danderssonsario/oauth-openid-graphql-rest/internal/platform/errors"
)

func newOAuthTestClient(baseURL string) OAuthClient {
	return NewOAuthClient(baseURL, "client-id", "client-secret", "http://localhost/auth/callback", "openid profile", &http.Client{})
}

func TestAuthorizeURL(t *testing.T) {
	client := newOAuthTestClient("https://gitlab.example.com")

	raw := client.AuthorizeURL("state-123")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "/oauth/authorize", parsed.Path)
	q := parsed.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "http://localhost/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "openid profile", q.Get("scope"))
	assert.Equal(t, "state-123", q.Get("state"))
}

func TestExchangeCode_Success(t *testing.T) {
	var gotForm url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/oauth/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","id_token":"idt-1","token_type":"Bearer","expires_in":7200}`))
	}))
	defer ts.Close()

	client := newOAuthTestClient(ts.URL)

	tokens, err := client.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "at-1", tokens.AccessToken)
	assert.Equal(t, "idt-1", tokens.IDToken)
	assert.Equal(t, 7200, tokens.ExpiresIn)

	assert.Equal(t, "client-id", gotForm.Get("client_id"))
	assert.Equal(t, "client-secret", gotForm.Get("client_secret"))
	assert.Equal(t, "the-code", gotForm.Get("code"))
	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "http://localhost/auth/callback", gotForm.Get("redirect_uri"))
}

func TestExchangeCode_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	client := newOAuthTestClient(ts.URL)

	tokens, err := client.ExchangeCode(context.Background(), "bad-code")
	require.Error(t, err)
	assert.Nil(t, tokens)

	structured := apperrors.AsStructuredError(err)
	assert.Equal(t, apperrors.TypeExternal, structured.Type)
	assert.Equal(t, http.StatusUnauthorized, structured.Context["status"])
}

func TestExchangeCode_MalformedPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer ts.Close()

	client := newOAuthTestClient(ts.URL)

	_, err := client.ExchangeCode(context.Background(), "the-code")
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeExternal, apperrors.AsStructuredError(err).Type)
}

func TestExchangeCode_MissingAccessToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer ts.Close()

	client := newOAuthTestClient(ts.URL)

	_, err := client.ExchangeCode(context.Background(), "the-code")
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeExternal, apperrors.AsStructuredError(err).Type)
}
