package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/domain"
	apperrors "github.com/danderssonsario/oauth-openid-graphql-rest/internal/platform/errors"
)

// Fixed queries; the front-end never builds GraphQL dynamically.
const (
	lastActivityQuery = `query { currentUser { lastActivityOn } }`

	groupsQuery = `query($groups: Int!, $projects: Int!) {
  currentUser {
    groups(first: $groups) {
      nodes {
        name
        fullPath
        description
        projects(first: $projects, includeSubgroups: false) {
          nodes {
            name
            path
            description
            repository {
              tree {
                lastCommit {
                  title
                  authorName
                  authoredDate
                }
              }
            }
          }
        }
      }
    }
  }
}`
)

// Group tree bounds, fixed by the views that render them.
const (
	maxGroups           = 3
	maxProjectsPerGroup = 5
)

// GraphQLClient issues the fixed GraphQL queries against the provider.
type GraphQLClient interface {
	LastActivityOn(ctx context.Context, token string) (string, error)
	Groups(ctx context.Context, token string) ([]domain.Group, error)
}

type graphqlHTTPClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewGraphQLClient creates a GraphQL client for the given GitLab instance.
func NewGraphQLClient(baseURL string, httpClient *http.Client) GraphQLClient {
	return &graphqlHTTPClient{
		endpoint:   strings.TrimRight(baseURL, "/") + "/api/graphql",
		httpClient: httpClient,
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// do posts a query and decodes the data payload into out. A GraphQL error
// payload is a provider error even when the HTTP status is 200.
func (c *graphqlHTTPClient) do(ctx context.Context, token, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode GraphQL request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create GraphQL request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.ExternalError("GraphQL request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.ExternalError("GraphQL endpoint returned an error", nil).
			WithField("status", resp.StatusCode)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return apperrors.ExternalError("failed to decode GraphQL response", err)
	}
	if len(envelope.Errors) > 0 {
		return apperrors.ExternalError("GraphQL query failed", nil).
			WithField("message", envelope.Errors[0].Message)
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return apperrors.ExternalError("failed to decode GraphQL data", err)
	}
	return nil
}

func (c *graphqlHTTPClient) LastActivityOn(ctx context.Context, token string) (string, error) {
	var data struct {
		CurrentUser struct {
			LastActivityOn string `json:"lastActivityOn"`
		} `json:"currentUser"`
	}
	if err := c.do(ctx, token, lastActivityQuery, nil, &data); err != nil {
		return "", err
	}
	return data.CurrentUser.LastActivityOn, nil
}

func (c *graphqlHTTPClient) Groups(ctx context.Context, token string) ([]domain.Group, error) {
	var data struct {
		CurrentUser struct {
			Groups struct {
				Nodes []struct {
					Name        string `json:"name"`
					FullPath    string `json:"fullPath"`
					Description string `json:"description"`
					Projects    struct {
						Nodes []struct {
							Name        string `json:"name"`
							Path        string `json:"path"`
							Description string `json:"description"`
							Repository  *struct {
								Tree *struct {
									LastCommit *struct {
										Title        string `json:"title"`
										AuthorName   string `json:"authorName"`
										AuthoredDate string `json:"authoredDate"`
									} `json:"lastCommit"`
								} `json:"tree"`
							} `json:"repository"`
						} `json:"nodes"`
					} `json:"projects"`
				} `json:"nodes"`
			} `json:"groups"`
		} `json:"currentUser"`
	}

	variables := map[string]any{"groups": maxGroups, "projects": maxProjectsPerGroup}
	if err := c.do(ctx, token, groupsQuery, variables, &data); err != nil {
		return nil, err
	}

	groups := make([]domain.Group, 0, len(data.CurrentUser.Groups.Nodes))
	for _, g := range data.CurrentUser.Groups.Nodes {
		group := domain.Group{
			Name:        g.Name,
			FullPath:    g.FullPath,
			Description: g.Description,
		}
		for _, p := range g.Projects.Nodes {
			project := domain.Project{
				Name:        p.Name,
				Path:        p.Path,
				Description: p.Description,
			}
			if p.Repository != nil && p.Repository.Tree != nil && p.Repository.Tree.LastCommit != nil {
				lc := p.Repository.Tree.LastCommit
				project.LatestCommit = &domain.Commit{
					Title:        lc.Title,
					AuthorName:   lc.AuthorName,
					AuthoredDate: lc.AuthoredDate,
				}
			}
			group.Projects = append(group.Projects, project)
		}
		groups = append(groups, group)
	}
	return groups, nil
}
