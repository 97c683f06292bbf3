package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	mw "github.com/kiranshivaraju/eveview/internal/api/middleware"
	"github.com/kiranshivaraju/eveview/internal/api/response"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth        *mw.Auth
	RateLimit   *mw.RateLimit
	CORSOrigins []string

	HealthHandler       http.HandlerFunc
	MetricsHandler      http.Handler
	GetResultsHandler   http.HandlerFunc
	PatchFiltersHandler http.HandlerFunc
	SearchHandler       http.HandlerFunc
	ChangePageHandler   http.HandlerFunc
	ClearFiltersHandler http.HandlerFunc
	RefreshHandler      http.HandlerFunc
	SetSessionHandler   http.HandlerFunc
	UploadHandler       http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.CORSOrigins,
			AllowedMethods:   []string{"GET", "PUT", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Public
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	metrics := deps.MetricsHandler
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metrics)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Route("/api/v1/results", func(r chi.Router) {
			r.Get("/", orNotImplemented(deps.GetResultsHandler))
			r.Patch("/filters", orNotImplemented(deps.PatchFiltersHandler))
			r.Post("/search", orNotImplemented(deps.SearchHandler))
			r.Put("/page", orNotImplemented(deps.ChangePageHandler))
			r.Post("/clear", orNotImplemented(deps.ClearFiltersHandler))
			r.Post("/refresh", orNotImplemented(deps.RefreshHandler))
		})

		r.Put("/api/v1/session", orNotImplemented(deps.SetSessionHandler))
		r.Post("/api/v1/uploads", orNotImplemented(deps.UploadHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
