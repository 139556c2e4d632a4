package controlapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rafaeljc/pollconf/internal/logger"
	"github.com/rafaeljc/pollconf/internal/observability"
	"github.com/rafaeljc/pollconf/internal/tenant"
)

// RequestLogger injects a request-scoped logger into the context and logs the
// outcome of each request (Info for success, Warn for 4xx, Error for 5xx).
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Get RequestID set by Chi's RequestID middleware
		reqLogger := logger.FromContext(r.Context()).With(
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		ctx := logger.WithContext(r.Context(), reqLogger)

		// Wrap the ResponseWriter to capture the status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		level := slog.LevelInfo
		status := ww.Status()
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}

		reqLogger.Log(ctx, level, "HTTP request completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote_ip", r.RemoteAddr),
		)
	})
}

// Metrics records request count and latency per route pattern.
// Patterns keep label cardinality bounded (tenant ids never become labels).
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		observability.ControlAPIReqDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		observability.ControlAPIReqTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

// TenantContext validates the {tenant} URL parameter and binds it to the
// request context (and its logger).
func TenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "tenant")
		if err := tenant.ValidateID(id); err != nil {
			renderError(w, r, http.StatusBadRequest, "ERR_INVALID_TENANT",
				"Tenant must be a lowercase slug of 2 to 63 characters")
			return
		}

		ctx := tenant.WithContext(r.Context(), id)
		ctx = logger.WithAttrs(ctx, slog.String("tenant", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
