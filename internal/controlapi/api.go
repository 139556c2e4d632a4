// Package controlapi implements the REST API over the poll interval resolver.
package controlapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/rafaeljc/pollconf/internal/cache"
	"github.com/rafaeljc/pollconf/internal/pollinterval"
	"github.com/rafaeljc/pollconf/internal/validation"
)

// PropertiesStore persists administrator overrides of the global poll properties.
// Implemented by *cache.RedisPropertiesSource.
type PropertiesStore interface {
	Overrides(ctx context.Context) (pollinterval.Properties, error)
	SetProperties(ctx context.Context, p pollinterval.Properties) error
	ClearProperties(ctx context.Context) error
}

// ReloadPublisher tells the other instances to reload. Implemented by *cache.ReloadBus.
type ReloadPublisher interface {
	Publish(ctx context.Context, reason string) (cache.ReloadEvent, error)
}

// API is the main struct that holds dependencies and the router.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	resolver *pollinterval.Resolver

	// properties and bus are nil when Redis is not configured.
	properties PropertiesStore
	bus        ReloadPublisher
}

// NewAPI creates a new API instance. properties and bus are optional (nil
// disables global overrides and cross-instance reloads respectively).
func NewAPI(resolver *pollinterval.Resolver, properties PropertiesStore, bus ReloadPublisher) *API {
	validation.AssertNotNil(resolver, "resolver")

	api := &API{
		Router:     chi.NewRouter(),
		resolver:   resolver,
		properties: properties,
		bus:        bus,
	}

	api.configureRoutes()
	return api
}

// configureRoutes registers the global middleware stack and API endpoints.
func (a *API) configureRoutes() {
	// 1. Global Middleware Stack
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(RequestLogger)
	a.Router.Use(Metrics)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	// 2. Probes
	a.Router.Get("/health", a.handleHealthCheck)

	// 3. Administration
	a.Router.Route("/api/v1", func(r chi.Router) {
		r.Route("/poll", func(r chi.Router) {
			r.Get("/", a.handleGetPoll)
			r.Put("/", a.handleUpdatePoll)
			r.Delete("/", a.handleClearPoll)
			r.Post("/reload", a.handleReload)
		})

		r.Route("/tenants/{tenant}/poll", func(r chi.Router) {
			r.Use(TenantContext)
			r.Get("/", a.handleGetTenantPoll)
			r.Put("/", a.handleUpdateTenantPoll)
			r.Delete("/", a.handleDeleteTenantPoll)
		})
	})

	// 4. Controller-facing poll advice
	a.Router.With(TenantContext).Get("/{tenant}/controller/v1/{controllerId}", a.handleControllerBase)
}

// handleHealthCheck reports that the HTTP server is serving.
// Dependency checks live on the observability server's readiness probe.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// renderError writes a structured error with the given status.
func renderError(w http.ResponseWriter, r *http.Request, status int, code, message string, details ...ErrorDetail) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Code: code, Message: message, Details: details})
}
