package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/scry-ingest/internal/api/middleware"
)

type routerOptions struct {
	auth *apiMiddleware.AuthMiddleware
}

// RouterOption configures NewRouter.
type RouterOption func(*routerOptions)

// WithAuth requires an operator token on every route that changes run state.
func WithAuth(auth *apiMiddleware.AuthMiddleware) RouterOption {
	return func(o *routerOptions) {
		o.auth = auth
	}
}

// NewRouter wires the control endpoints. metrics may be nil.
func NewRouter(
	controller Controller,
	metrics http.Handler,
	logger *slog.Logger,
	opts ...RouterOption,
) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(logger))

	h := NewBatchHandler(controller)

	// Read-only routes
	r.Get("/status", h.GetStatus)
	r.Get("/items/{id}", h.GetItem)

	// State-changing routes
	r.Group(func(r chi.Router) {
		if o.auth != nil {
			r.Use(o.auth.Authenticate)
		}

		r.Post("/pause", h.Pause)
		r.Post("/resume", h.Resume)
		r.Post("/cancel", h.Cancel)
		r.Post("/retry-failed", h.RetryFailed)
		r.Post("/items/skip", h.SkipItems)
		r.Post("/items/{id}/skip", h.SkipItem)
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
