package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	middlewarex "github.com/rafaelmatth/task-manager-backend/internal/api/middleware"
	"github.com/rafaelmatth/task-manager-backend/internal/config"
	"github.com/rafaelmatth/task-manager-backend/internal/domain/ratelimit"
	metricsinfra "github.com/rafaelmatth/task-manager-backend/internal/infra/metrics"
	"github.com/rafaelmatth/task-manager-backend/internal/service"
	"github.com/rafaelmatth/task-manager-backend/pkg/api/response"
)

type Deps struct {
	Auth         *service.AuthService
	Tasks        taskService
	CacheKeys    KeyLister
	DB           Pinger
	Redis        RedisPinger
	LoginLimiter ratelimit.Limiter
	UserLimiter  ratelimit.Limiter
	Metrics      *metricsinfra.Metrics
}

type Router struct {
	*chi.Mux
	Server *http.Server
	logger *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger, deps Deps) *Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middlewarex.Logger(logger))
	r.Use(middlewarex.Metrics(deps.Metrics))

	timeout := cfg.HTTP.RequestTimeout
	authHandler := NewAuthHandler(deps.Auth, deps.LoginLimiter, deps.Metrics, timeout)
	taskHandler := NewTaskHandler(deps.Tasks, timeout)
	healthHandler := NewHealthHandler(deps.DB, deps.Redis, logger)

	r.Get("/health", healthHandler.Health)
	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middlewarex.AuthMiddleware(deps.Auth))
			r.Use(middlewarex.UserRateLimit(deps.UserLimiter, 60, logger))

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", taskHandler.Create)
				r.Get("/", taskHandler.List)
				r.Get("/stats", taskHandler.Stats)
				r.Get("/{id}", taskHandler.Get)
				r.Put("/{id}", taskHandler.Update)
				r.Delete("/{id}", taskHandler.Delete)
			})

			if deps.CacheKeys != nil {
				cacheHandler := NewCacheHandler(deps.CacheKeys, timeout)
				r.Get("/cache/keys", cacheHandler.Keys)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	router := &Router{
		Mux:    r,
		logger: logger,
	}

	router.Server = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return router
}
