package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/entity"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/middleware"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/port/rest/response"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	JWTSecret    string
	Metrics      *metrics.MetricsManager
	HealthChecks map[string]HealthCheck
}

func NewRouter(h *NewsHandler, cfg RouterConfig, logger *zap.Logger) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.RequestLogger(logger))
	if cfg.Metrics != nil {
		mux.Use(middleware.Metrics(cfg.Metrics))
	}
	mux.Use(chimw.Recoverer)

	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "route not found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	mux.Get("/healthz", healthHandler(cfg.HealthChecks))
	SetupNewsRoutes(mux, h, cfg.JWTSecret, logger)
	return mux
}

// SetupNewsRoutes mounts the news API. Every route needs a JWT; writes are admin-only.
func SetupNewsRoutes(mux *chi.Mux, h *NewsHandler, jwtSecret string, logger *zap.Logger) {
	mux.Route("/api/v1/news", func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtSecret, logger))

		r.Get("/", h.HandleListActiveNews)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(entity.RoleAdmin))
			r.Post("/", h.HandleCreateNews)
			r.Delete("/{id}", h.HandleDeleteNews)
			r.Patch("/{id}", h.HandleUpdateNews)
		})
	})
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := make(map[string]string, len(checks))
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = err.Error()
				healthy = false
				continue
			}
			status[name] = "ok"
		}
		if !healthy {
			response.JSON(w, http.StatusServiceUnavailable, "unhealthy", status)
			return
		}
		response.JSON(w, http.StatusOK, "ok", status)
	}
}
