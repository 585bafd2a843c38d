package rest

import (
	"context"
	"net/http"
	"time"

	"mathops/application/commands/bus"
	querybus "mathops/application/queries/bus"
	"mathops/interfaces/http/rest/handlers"
	"mathops/interfaces/http/rest/middleware"
	"mathops/pkg/auth"
	"mathops/pkg/common"
	appErrors "mathops/pkg/errors"
	"mathops/pkg/observability"
	"mathops/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const readyTimeout = 2 * time.Second

// HealthChecker reports whether the storage backend is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Options selects the optional layers of the router.
type Options struct {
	// Authenticator guards /api. Nil leaves the API open.
	Authenticator func(http.Handler) http.Handler
	RateLimiter   *auth.IdentityRateLimiter
	RateBurst     int
	Collector     *observability.Collector
	EnableCORS    bool
	Debug         bool
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	health       HealthChecker
	errorHandler *appErrors.ErrorHandler
	opts         Options
	logger       *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	health HealthChecker,
	logger *zap.Logger,
	opts Options,
) *Router {
	return &Router{
		commandBus:   commandBus,
		queryBus:     queryBus,
		health:       health,
		errorHandler: appErrors.NewErrorHandler(logger, opts.Debug),
		opts:         opts,
		logger:       logger,
	}
}

// ErrorHandler exposes the handler used for error bodies so callers can
// build middleware that answers in the same format.
func (rt *Router) ErrorHandler() *appErrors.ErrorHandler {
	return rt.errorHandler
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.opts.Collector != nil {
		router.Use(middleware.Metrics(rt.opts.Collector))
	}

	if rt.opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
		router.Use(middleware.AnyOrigin)
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.Collector != nil {
		router.Handle("/metrics", rt.opts.Collector.Handler())
	}

	operationHandler := handlers.NewOperationHandler(rt.commandBus, rt.errorHandler, rt.logger)
	historyHandler := handlers.NewHistoryHandler(rt.commandBus, rt.queryBus, rt.errorHandler, rt.logger)

	router.Route("/api", func(r chi.Router) {
		if rt.opts.Authenticator != nil {
			r.Use(rt.opts.Authenticator)
		}
		if rt.opts.RateLimiter != nil {
			r.Use(middleware.RateLimit(rt.opts.RateLimiter, rt.opts.RateBurst, rt.errorHandler, rt.logger))
		}

		r.Get("/history", historyHandler.GetHistory)
		r.Delete("/soft-remove-record", historyHandler.SoftRemoveRecord)
		r.Post("/{operation}", operationHandler.Execute)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errorHandler.Handle(w, r, appErrors.NewNotFoundError("route"))
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   utils.NowRFC3339(),
	})
}

// readinessCheck pings the storage backend.
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := rt.health.Ping(ctx); err != nil {
		rt.logger.Warn("Readiness check failed", zap.Error(err))
		common.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
