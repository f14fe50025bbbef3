package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/adapter/httpserver"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/adapter/metrics"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/app"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/container"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/gitlab"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/platform/config"
	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/platform/logging"
)

// buildContainer registers every service with its lifetime. Construction is
// decoupled from use: handlers resolve by name at request time, which also
// lets tests swap any name for a double.
func buildContainer(cfg *config.Config, clock clockwork.Clock, observer func(string, container.Lifetime)) *container.Container {
	c := container.New(container.WithObserver(observer))

	c.RegisterValue(app.ServiceConfig, cfg)

	c.RegisterFactory(app.ServiceHTTPClient, container.Singleton, func(_ context.Context, _ container.Resolver) (any, error) {
		return gitlab.NewHTTPClient(), nil
	})

	c.RegisterFactory(app.ServiceOAuthClient, container.Singleton, func(ctx context.Context, r container.Resolver) (any, error) {
		httpClient, err := container.Resolve[*http.Client](ctx, r, app.ServiceHTTPClient)
		if err != nil {
			return nil, err
		}
		return gitlab.NewOAuthClient(cfg.GitLabBaseURL, cfg.GitLabClientID, cfg.GitLabClientSecret, cfg.GitLabRedirectURI, cfg.OAuthScopes, httpClient), nil
	})

	c.RegisterConstructor(app.ServiceGraphQLClient, container.Singleton, []string{app.ServiceHTTPClient}, func(deps []any) (any, error) {
		return gitlab.NewGraphQLClient(cfg.GitLabBaseURL, deps[0].(*http.Client)), nil
	})

	c.RegisterConstructor(app.ServiceEventsClient, container.Singleton, []string{app.ServiceHTTPClient}, func(deps []any) (any, error) {
		return gitlab.NewEventsClient(cfg.GitLabBaseURL, deps[0].(*http.Client)), nil
	})

	c.RegisterConstructor(app.ServiceAuth, container.Singleton, []string{app.ServiceOAuthClient}, func(deps []any) (any, error) {
		return app.NewAuthService(deps[0].(gitlab.OAuthClient), clock), nil
	})

	// Scoped: one instance per request, bound to that request's session
	// user pulled off the scope context by the authentication gate.
	c.RegisterFactory(app.ServiceResources, container.Scoped, func(ctx context.Context, r container.Resolver) (any, error) {
		user, ok := app.UserFromContext(ctx)
		if !ok {
			return nil, errors.New("no session user on context")
		}
		graphql, err := container.Resolve[gitlab.GraphQLClient](ctx, r, app.ServiceGraphQLClient)
		if err != nil {
			return nil, err
		}
		events, err := container.Resolve[gitlab.EventsClient](ctx, r, app.ServiceEventsClient)
		if err != nil {
			return nil, err
		}
		return app.NewResourceService(graphql, events, user), nil
	})

	return c
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	registry := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)
	containerMetrics := metrics.NewContainerMetrics(registry)

	clock := clockwork.NewRealClock()
	services := buildContainer(cfg, clock, containerMetrics.Observer())

	healthChecks := []httpserver.HealthCheck{
		{
			Name: "container",
			Check: func(ctx context.Context) error {
				_, err := services.Resolve(ctx, app.ServiceAuth)
				return err
			},
		},
	}

	srv, err := httpserver.NewServer(cfg, services, httpMetrics, metrics.Handler(registry), healthChecks)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}

func runGracefulShutdown(srv *httpserver.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}
