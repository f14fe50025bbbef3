package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/app"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/container"
	apperrors "github.com/danderssonsario/oauth-openid-graphql-rest/internal/platform/errors"
)

const oauthTimeout = 10 * time.Second

func (s *Server) registerAuthRoutes(csrfMiddleware, rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/auth", s.handleLogin, rateLimiter)
	s.echo.GET("/auth/callback", s.handleCallback, rateLimiter)
	s.echo.POST("/auth/logout", s.handleLogout, rateLimiter, s.requireAuth, csrfMiddleware)
}

func (s *Server) handleLanding(c echo.Context) error {
	if s.isAuthenticated(c) {
		if err := c.Redirect(http.StatusFound, "/home"); err != nil {
			return fmt.Errorf("failed to redirect: %w", err)
		}
		return nil
	}
	return s.renderTemplate(c, "landing.html", nil)
}

// handleLogin starts the delegated-authorization flow: store the
// anti-forgery state in the session, then send the browser to the provider.
func (s *Server) handleLogin(c echo.Context) error {
	if s.isAuthenticated(c) {
		if err := c.Redirect(http.StatusFound, "/home"); err != nil {
			return fmt.Errorf("failed to redirect: %w", err)
		}
		return nil
	}

	auth, err := container.Resolve[*app.AuthService](c.Request().Context(), s.services, app.ServiceAuth)
	if err != nil {
		return apperrors.InternalError("failed to resolve auth service", err)
	}

	authURL, state, err := auth.Login()
	if err != nil {
		return apperrors.InternalError("failed to generate OAuth state", err)
	}

	session, err := s.sessionStore.Get(c.Request(), s.config.SessionName)
	if err != nil {
		slog.Error("Failed to get session for OAuth state", "error", err)
	}
	session.Values[sessionKeyOAuthState] = state
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save OAuth state session", err)
	}

	if err := c.Redirect(http.StatusFound, authURL); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

// handleCallback finishes the flow: verify the state, exchange the code for
// tokens, and store the user record in a freshly-issued session.
func (s *Server) handleCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return apperrors.ValidationError("missing code parameter")
	}

	session, err := s.sessionStore.Get(c.Request(), s.config.SessionName)
	if err != nil {
		return apperrors.ValidationError("invalid session")
	}

	expectedState, ok := session.Values[sessionKeyOAuthState].(string)
	if !ok || expectedState == "" {
		return apperrors.ValidationError("missing OAuth state")
	}
	if c.QueryParam("state") != expectedState {
		return apperrors.ValidationError("invalid OAuth state")
	}
	delete(session.Values, sessionKeyOAuthState)

	ctx, cancel := context.WithTimeout(c.Request().Context(), oauthTimeout)
	defer cancel()

	auth, err := container.Resolve[*app.AuthService](ctx, s.services, app.ServiceAuth)
	if err != nil {
		return apperrors.InternalError("failed to resolve auth service", err)
	}

	user, err := auth.Callback(ctx, code)
	if err != nil {
		return apperrors.AsStructuredError(err)
	}

	// Regenerate the session ID after authentication so a pre-auth
	// session ID fixated by an attacker cannot reach the logged-in state.
	session.Options.MaxAge = -1
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to invalidate old session", err)
	}

	session, err = s.sessionStore.New(c.Request(), s.config.SessionName)
	if err != nil {
		return apperrors.InternalError("failed to create new session", err)
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return apperrors.InternalError("failed to encode session user", err)
	}
	session.Values[sessionKeyUser] = string(raw)
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	slog.InfoContext(ctx, "User logged in")

	if err := c.Redirect(http.StatusFound, "/home"); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) handleLogout(c echo.Context) error {
	session, err := s.sessionStore.Get(c.Request(), s.config.SessionName)
	if err != nil {
		slog.Error("Failed to get session during logout", "error", err)
		session, err = s.sessionStore.New(c.Request(), s.config.SessionName)
		if err != nil {
			return apperrors.InternalError("failed to create new session during logout", err)
		}
	}
	session.Options.MaxAge = -1

	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save logout session", err)
	}

	slog.InfoContext(c.Request().Context(), "User logged out")

	if err := c.Redirect(http.StatusFound, "/"); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}
