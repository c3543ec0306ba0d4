package app

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stockroom/stockroom/internal/auth"
	"github.com/stockroom/stockroom/internal/materials"
	"github.com/stockroom/stockroom/internal/observability"
	"github.com/stockroom/stockroom/internal/platform/httpx"
	"github.com/stockroom/stockroom/internal/shared"
	"github.com/stockroom/stockroom/internal/users"
	"github.com/stockroom/stockroom/web"
)

// Pinger is a dependency probed by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	MaterialsHandler *materials.Handler
	UsersHandler     *users.Handler
	Metrics          *observability.Metrics
	Readiness        map[string]Pinger
}

// NewRouter constructs the chi.Router with the application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyHandler(params.Logger, params.Readiness))
	r.Handle("/metrics", params.Metrics.Handler())

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, auth.HomePath, http.StatusSeeOther)
	})

	params.AuthHandler.MountRoutes(r, LoginLimiter(params.Config))
	r.Route("/api", func(r chi.Router) {
		params.AuthHandler.MountAPI(r)
		r.Route("/materials", params.MaterialsHandler.MountAPI)
		r.Route("/users", params.UsersHandler.MountAPI)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpx.Fail(w, http.StatusNotFound, "Unknown endpoint")
		})
	})
	r.Route("/materials", params.MaterialsHandler.MountPages)
	r.Route("/users", params.UsersHandler.MountPages)

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("static assets", slog.Any("error", err))
	} else {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}

	return r
}

func readyHandler(logger *slog.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{}
		ready := true
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				logger.Warn("readiness probe failed", slog.String("dependency", name), slog.Any("error", err))
				status[name] = "unavailable"
				ready = false
				continue
			}
			status[name] = "ok"
		}
		if !ready {
			w.Header().Set("Retry-After", "5")
			httpx.JSON(w, http.StatusServiceUnavailable, status)
			return
		}
		httpx.JSON(w, http.StatusOK, status)
	}
}
