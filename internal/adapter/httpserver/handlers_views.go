package httpserver

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/app"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/container"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/gitlab"
	apperrors "github.com/danderssonsario/oauth-openid-graphql-rest/internal/platform/errors"
)

func (s *Server) registerViewRoutes(csrfMiddleware, rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/home", s.handleHome, rateLimiter, s.requireAuth, csrfMiddleware)
	s.echo.GET("/profile", s.handleProfile, rateLimiter, s.requireAuth)
	s.echo.GET("/activities", s.handleActivities, rateLimiter, s.requireAuth)
	s.echo.GET("/groups", s.handleGroups, rateLimiter, s.requireAuth)
}

// resources resolves the request-scoped resource service. The scope carries
// this request's session user, so the instance is bound to its tokens.
func (s *Server) resources(c echo.Context) (*app.ResourceService, error) {
	svc, err := container.Resolve[*app.ResourceService](c.Request().Context(), s.services, app.ServiceResources)
	if err != nil {
		return nil, apperrors.InternalError("failed to resolve resource service", err)
	}
	return svc, nil
}

func (s *Server) handleHome(c echo.Context) error {
	user, _ := app.UserFromContext(c.Request().Context())

	identity, err := gitlab.DecodeIDToken(user.IDToken)
	if err != nil {
		return apperrors.InternalError("failed to decode ID token", err)
	}

	data := map[string]any{
		"Username":  identity.Username,
		"Name":      identity.Name,
		"CSRFToken": c.Get("csrf"),
	}
	return s.renderTemplate(c, "home.html", data)
}

func (s *Server) handleProfile(c echo.Context) error {
	svc, err := s.resources(c)
	if err != nil {
		return err
	}

	profile, err := svc.Profile(c.Request().Context())
	if err != nil {
		return apperrors.AsStructuredError(err)
	}

	data := map[string]any{
		"Subject":        profile.Subject,
		"Email":          profile.Email,
		"Username":       profile.Username,
		"Name":           profile.Name,
		"AvatarURL":      profile.AvatarURL,
		"LastActivityOn": profile.LastActivityOn,
	}
	return s.renderTemplate(c, "profile.html", data)
}

func (s *Server) handleActivities(c echo.Context) error {
	page := queryInt(c, "page", 0)
	limit := queryInt(c, "limit", 0)

	svc, err := s.resources(c)
	if err != nil {
		return err
	}

	activities, err := svc.Activities(c.Request().Context(), page, limit)
	if err != nil {
		return apperrors.AsStructuredError(err)
	}

	data := map[string]any{
		"Entries":    activities.Entries,
		"Page":       activities.Page,
		"Limit":      activities.Limit,
		"TotalPages": activities.TotalPages,
	}
	return s.renderTemplate(c, "activities.html", data)
}

func (s *Server) handleGroups(c echo.Context) error {
	svc, err := s.resources(c)
	if err != nil {
		return err
	}

	groups, err := svc.Groups(c.Request().Context())
	if err != nil {
		return apperrors.AsStructuredError(err)
	}

	data := map[string]any{"Groups": groups}
	return s.renderTemplate(c, "groups.html", data)
}

// queryInt parses an integer query parameter, falling back on absent or
// malformed values. Range clamping happens in the service.
func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
