package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aaronmeis/mock-agent-supplychain/internal/api/middleware"
	"github.com/aaronmeis/mock-agent-supplychain/internal/bus"
	"github.com/aaronmeis/mock-agent-supplychain/internal/handlers"
	"github.com/aaronmeis/mock-agent-supplychain/internal/hub"
	"github.com/aaronmeis/mock-agent-supplychain/internal/observer"
	"github.com/aaronmeis/mock-agent-supplychain/internal/store"
)

// NewRouter creates and configures the HTTP router. redisClient may be nil
// when the hub runs with the in-process bus; rate limiting is disabled in
// that case.
func NewRouter(logger zerolog.Logger, hubCore *hub.Hub, dataStore store.DataStore, channelBus bus.Bus, busPinger handlers.Pinger, redisClient *redis.Client) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting
	limiter := middleware.NewRateLimiter(redisClient, logger)
	r.Use(limiter.Middleware)

	// CORS - allow all origins (agents and dashboards call from anywhere)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(hubCore, dataStore, busPinger)
	feed := observer.NewFeed(channelBus, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Hub entry points
	r.Post("/api/agents/register", h.Register)
	r.Post("/api/messages/send", h.Send)
	r.Get("/api/health", h.Health)

	// Dashboard read surface
	r.Get("/api/agents", h.ListAgents)
	r.Get("/api/agents/{id}", h.GetAgent)
	r.Get("/api/messages/recent", h.RecentMessages)
	r.Get("/api/stats", h.Stats)

	// Test runner
	r.Post("/api/tests/run", h.RunTests)

	// Observer feed
	r.Get("/ws", feed.ServeHTTP)

	return r
}
