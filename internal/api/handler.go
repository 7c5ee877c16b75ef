package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/costnav/costnav/internal/config"
	"github.com/costnav/costnav/internal/directory"
	"github.com/costnav/costnav/internal/nl2sql"
	"github.com/costnav/costnav/internal/observability"
	"github.com/costnav/costnav/internal/query"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// ProviderSearcher is the read surface of the provider directory.
type ProviderSearcher interface {
	Search(ctx context.Context, filter directory.SearchFilter) ([]directory.Provider, error)
}

type Dependencies struct {
	Logger         *slog.Logger
	HealthCheck    HealthCheck
	HealthTimeout  time.Duration
	AuthMiddleware func(http.Handler) http.Handler
	Directory      ProviderSearcher
	QueryEngine    query.Engine
	Translator     nl2sql.Translator
	Answerer       nl2sql.AnswerGenerator
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Healthcare Cost Navigator API"})
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if deps.HealthCheck != nil {
			timeout := deps.HealthTimeout
			if timeout <= 0 {
				timeout = 2 * time.Second
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			if err := deps.HealthCheck(ctx); err != nil {
				writeError(r.Context(), w, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", err.Error(), true, nil)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "service": cfg.Service.Name})
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("GET /providers", func(w http.ResponseWriter, r *http.Request) {
		handleProviders(deps, w, r)
	})
	protected.HandleFunc("POST /ask", func(w http.ResponseWriter, r *http.Request) {
		handleAsk(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if deps.AuthMiddleware != nil {
		protectedHandler = deps.AuthMiddleware(protectedHandler)
	}
	mux.Handle("GET /providers", protectedHandler)
	mux.Handle("POST /ask", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	middlewares = append(middlewares, observability.MetricsMiddleware, corsMiddleware)
	return chain(mux, middlewares...)
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
