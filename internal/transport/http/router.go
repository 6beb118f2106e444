package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medreminder/internal/handler"
	"medreminder/internal/httputil"
	authmw "medreminder/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	DispatchHandler *handler.DispatchHandler
	// JWTSecret enables POST /dispatch/run when set.
	JWTSecret string
}

// NewRouter creates the operational router: health, metrics and the
// optional manual trigger.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	if cfg.JWTSecret != "" && cfg.DispatchHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireScope(cfg.JWTSecret, authmw.ScopeDispatch))
			r.Post("/dispatch/run", cfg.DispatchHandler.Run)
		})
	}

	return r
}
