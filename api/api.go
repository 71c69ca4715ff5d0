// Package api exposes license issuing and validation over HTTP.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmcleod/bequest/license"
	"github.com/jmcleod/bequest/storage"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	manager   *license.Manager
	store     storage.Store
	licenseRL *failureRateLimiter
	ipRL      *failureRateLimiter
	audit     *auditLogger
	alertFn   AlertFunc
	webhook   *auditWebhook
	metrics   *serviceMetrics
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithAlertFunc installs a callback invoked when validation failures spike.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.alertFn = fn
	}
}

// WithAuditWebhook forwards every audit event as JSON to url. authHeader, if
// non-empty, has the form "Name: value" and is sent with each request.
// Call Close to flush queued events.
func WithAuditWebhook(url, authHeader string) Option {
	return func(a *API) {
		if url != "" {
			a.webhook = newAuditWebhook(url, authHeader)
		}
	}
}

// WithMetricsRegistry registers the service's Prometheus counters with reg.
func WithMetricsRegistry(reg prometheus.Registerer) Option {
	return func(a *API) {
		a.metrics = newServiceMetrics(reg)
	}
}

// New creates a new API instance. Issued licenses are written to store, which
// should be the same store the manager loads from.
func New(manager *license.Manager, store storage.Store, opts ...Option) *API {
	a := &API{
		manager:   manager,
		store:     store,
		licenseRL: newFailureRateLimiter(licenseLimits),
		ipRL:      newFailureRateLimiter(ipLimits),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	if a.alertFn != nil {
		a.audit.metrics = newMetricsCollector(a.alertFn)
	}
	a.audit.webhook = a.webhook
	return a
}

// Close flushes pending audit webhook deliveries.
func (a *API) Close() {
	if a.webhook != nil {
		a.webhook.close()
	}
}

// Router returns a chi.Router with all API routes mounted. It is meant to be
// mounted under /api/v1.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(SecurityHeaders)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Get("/health", a.Health)

	r.Post("/licenses", a.IssueLicense)
	r.Get("/licenses", a.ListLicenses)
	r.Route("/licenses/{licenseID}", func(r chi.Router) {
		r.Get("/", a.GetLicense)
		r.Post("/validate", a.ValidateStoredLicense)
	})
	r.Post("/validate", a.ValidateLicense)

	return r
}
