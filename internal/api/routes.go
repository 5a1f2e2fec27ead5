package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hodel33/flyby33/internal/adsb"
	"github.com/hodel33/flyby33/internal/config"
	"github.com/hodel33/flyby33/internal/storage/sqlite"
	"github.com/hodel33/flyby33/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router. history may be nil.
func NewRouter(service *adsb.Service, history *sqlite.FlightStorage, cfg *config.Config, log *logger.Logger) *Router {
	return &Router{
		handler:    NewHandler(service, history, cfg, log),
		middleware: NewMiddleware(log),
		config:     cfg,
		logger:     log.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	// API routes
	router.Route("/api/v1", func(router chi.Router) {
		// Aircraft routes
		router.Get("/aircraft", r.handler.GetAllAircraft)
		router.Get("/aircraft/{id}", r.handler.GetAircraftByHex)
		router.Get("/aircraft/{id}/sightings", r.handler.GetAircraftSightings)

		// Prediction routes
		router.Get("/predictions", r.handler.GetPredictions)
		router.Get("/predictions/recent", r.handler.GetRecentPredictions)
		router.Get("/predictions/{id}/history", r.handler.GetPredictionHistory)

		// Manual snapshot refresh
		router.Post("/refresh", r.handler.PostRefresh)

		// Station configuration
		router.Get("/station", r.handler.GetStation)
		router.Post("/station", r.handler.SetStation)

		// Health check
		router.Get("/health", r.handler.GetHealth)

		// Configuration
		router.Get("/config", r.handler.GetConfig)
	})

	return router
}
