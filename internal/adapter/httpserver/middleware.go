package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/app"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/container"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/platform/correlation"
	apperrors "github.com/danderssonsario/oauth-openid-graphql-rest/internal/platform/errors"
)

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := correlation.WithID(c.Request().Context(), correlation.NewID())
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// scopeMiddleware installs a fresh container scope on the request context.
// Scoped services resolved during this request live exactly this long, and
// concurrent requests never share instances.
func scopeMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := container.WithScope(c.Request().Context())
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// errorHandlingMiddleware is the centralized error responder. Handlers
// return errors instead of writing responses; full detail is always logged
// server-side, but response bodies only carry detail outside production.
func (s *Server) errorHandlingMiddleware() echo.MiddlewareFunc {
	production := s.config.Production()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			// Echo HTTPErrors from built-in middleware (CSRF, rate
			// limiter) keep their status through the default handler.
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			structuredErr := apperrors.AsStructuredError(err)
			if s.registry != nil {
				s.registry.ErrorsTotal.WithLabelValues(string(structuredErr.Type)).Inc()
			}
			logError(c, structuredErr)

			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse(production)); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if err.Cause != nil {
		attrs = append(attrs, "cause", err.Cause)
	}

	ctx := c.Request().Context()
	switch err.Type {
	case apperrors.TypeValidation, apperrors.TypeNotFound, apperrors.TypeUnauthorized:
		slog.InfoContext(ctx, "Request error", attrs...)
	case apperrors.TypeExternal:
		slog.ErrorContext(ctx, "Provider error", attrs...)
	default:
		slog.ErrorContext(ctx, "Internal error", attrs...)
	}
}

// requireAuth is the authentication gate in front of protected views:
// without a session user the browser goes back to the landing page, and the
// controller action never runs.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := s.sessionUser(c)
		if !ok {
			return c.Redirect(http.StatusFound, "/")
		}

		ctx := app.WithUser(c.Request().Context(), user)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
