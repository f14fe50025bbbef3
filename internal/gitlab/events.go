package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/domain"
	apperrors "github.com/danderssonsario/oauth-openid-graphql-rest/internal/platform/errors"
)

// EventsClient lists the authenticated user's recent events via the
// provider's REST API.
type EventsClient interface {
	List(ctx context.Context, token string, page, perPage int) ([]domain.Activity, error)
}

type eventsHTTPClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewEventsClient creates an events client for the given GitLab instance.
func NewEventsClient(baseURL string, httpClient *http.Client) EventsClient {
	return &eventsHTTPClient{
		endpoint:   strings.TrimRight(baseURL, "/") + "/api/v4/events",
		httpClient: httpClient,
	}
}

func (c *eventsHTTPClient) List(ctx context.Context, token string, page, perPage int) ([]domain.Activity, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create events request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ExternalError("events request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.ExternalError("events endpoint returned an error", nil).
			WithField("status", resp.StatusCode)
	}

	var activities []domain.Activity
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		return nil, apperrors.ExternalError("failed to decode events response", err)
	}
	return activities, nil
}
