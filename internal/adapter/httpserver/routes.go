package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	apperrors "github.com/danderssonsario/oauth-openid-graphql-rest/internal/platform/errors"
)

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(s.errorHandlingMiddleware())
	s.echo.Use(scopeMiddleware)
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         63072000, // 2 years; only sent over HTTPS
		HSTSPreloadEnabled: true,
		ContentSecurityPolicy: "default-src 'self'; " +
			"style-src 'self' 'unsafe-inline'; " +
			"img-src 'self' https:; " +
			"frame-ancestors 'none'",
		ReferrerPolicy: "strict-origin-when-cross-origin",
	}))
	if s.registry != nil {
		s.echo.Use(s.registry.Middleware())
	}

	rateLimiter := newRateLimiter(s.config.RateLimitPerSecond, s.config.RateLimitBurst)
	csrfMiddleware := s.setupCSRFMiddleware()

	s.echo.GET("/", s.handleLanding)

	s.registerHealthRoutes()
	s.registerAuthRoutes(csrfMiddleware, rateLimiter)
	s.registerViewRoutes(csrfMiddleware, rateLimiter)

	if s.metricsHTTP != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHTTP))
	}

	// Unmatched routes surface as structured 404s carrying the requested
	// URL, instead of Echo's default error page.
	s.echo.RouteNotFound("/*", func(c echo.Context) error {
		return apperrors.NotFoundError("route not found").
			WithField("url", c.Request().URL.String()).
			WithField("method", c.Request().Method)
	})
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}

func (s *Server) setupCSRFMiddleware() echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "form:csrf_token,header:X-CSRF-Token",
		CookieName:     "csrf_token",
		CookiePath:     "/",
		CookieMaxAge:   int(s.config.SessionMaxAge.Seconds()),
		CookieHTTPOnly: true,
		CookieSecure:   s.config.Production(),
		CookieSameSite: http.SameSiteStrictMode,
	})
}
