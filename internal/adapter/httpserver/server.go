// Package httpserver exposes the web front-end: OAuth login flow, protected
// views over proxied provider data, health probes, and metrics.
package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/adapter/metrics"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/container"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/domain"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/platform/config"
	"github.com/danderssonsario/oauth-openid-graphql-rest/web"
)

// Session keys
const (
	sessionKeyUser       = "user"
	sessionKeyOAuthState = "oauth_state"
)

type Server struct {
	echo   *echo.Echo
	config *config.Config

	services     *container.Container
	sessionStore *sessions.CookieStore
	templates    *template.Template

	registry     *metrics.HTTPMetrics
	metricsHTTP  http.Handler
	healthChecks []HealthCheck
	startTime    time.Time
}

// NewServer wires the Echo instance, session store, templates, and routes.
// Controllers pull their services from the container at request time.
func NewServer(cfg *config.Config, services *container.Container, httpMetrics *metrics.HTTPMetrics, metricsHandler http.Handler, healthChecks []HealthCheck) (*Server, error) {
	templates, err := template.ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		services:     services,
		sessionStore: setupSessionStore(cfg),
		templates:    templates,
		registry:     httpMetrics,
		metricsHTTP:  metricsHandler,
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) renderTemplate(c echo.Context, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Template execution failed", "path", c.Request().URL.Path, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	if err := c.HTMLBlob(http.StatusOK, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}

func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// sessionUser reads the authenticated user record from the session. The
// record is stored as JSON so the cookie survives process restarts without
// gob type registration.
func (s *Server) sessionUser(c echo.Context) (domain.SessionUser, bool) {
	session, err := s.sessionStore.Get(c.Request(), s.config.SessionName)
	if err != nil {
		return domain.SessionUser{}, false
	}

	raw, ok := session.Values[sessionKeyUser].(string)
	if !ok || raw == "" {
		return domain.SessionUser{}, false
	}

	var user domain.SessionUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return domain.SessionUser{}, false
	}
	if user.AccessToken == "" {
		return domain.SessionUser{}, false
	}
	return user, true
}

func (s *Server) isAuthenticated(c echo.Context) bool {
	_, ok := s.sessionUser(c)
	return ok
}
