package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/phrazzld/scry-ingest/internal/api"
	apiMiddleware "github.com/phrazzld/scry-ingest/internal/api/middleware"
	"github.com/phrazzld/scry-ingest/internal/auth"
	"github.com/phrazzld/scry-ingest/internal/batch"
)

// controlHandler builds the control API for sched. State-changing routes
// require an operator token when an auth secret is configured.
func (app *application) controlHandler(sched *batch.Scheduler) (http.Handler, error) {
	var opts []api.RouterOption

	if app.cfg.Server.AuthSecret != "" {
		tokens, err := auth.NewTokenService(app.cfg.Server.AuthSecret, app.cfg.Server.TokenLifetime())
		if err != nil {
			return nil, fmt.Errorf("failed to create token service: %w", err)
		}
		opts = append(opts, api.WithAuth(apiMiddleware.NewAuthMiddleware(tokens)))
	} else {
		app.logger.Warn("control API is unauthenticated, restricted to loopback",
			"host", app.cfg.Server.Host)
	}

	return api.NewRouter(sched, app.metrics.Handler(), app.logger, opts...), nil
}

// startControlServer serves the control API in the background and returns
// a function that shuts it down.
func (app *application) startControlServer(sched *batch.Scheduler) (func(), error) {
	handler, err := app.controlHandler(sched)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:              app.cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		app.logger.Info("starting control server",
			"addr", server.Addr,
			"auth", app.cfg.Server.AuthSecret != "")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("control server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			app.logger.Error("control server shutdown failed", "error", err)
		}
	}, nil
}

// mintOperatorToken mints a control API token for subject.
func mintOperatorToken(ctx context.Context, secret string, lifetime time.Duration, subject string) (string, error) {
	if secret == "" {
		return "", errors.New("server.auth_secret is not configured")
	}
	tokens, err := auth.NewTokenService(secret, lifetime)
	if err != nil {
		return "", err
	}
	return tokens.GenerateToken(ctx, subject)
}
