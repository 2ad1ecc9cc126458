package app

import (
	"github.com/gorilla/mux"

	"transfer-dashboard/internal/handlers"
	"transfer-dashboard/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, h *handlers.Handlers) {
	// Add logging middleware to all routes
	router.Use(middleware.LoggingMiddleware)

	// Health check
	router.HandleFunc("/health", h.Health).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	// Enrichment endpoints
	api.HandleFunc("/enrichment/stats", h.GetEnrichmentStats).Methods("GET")
	api.HandleFunc("/enrichment/ratelimit", h.GetRateLimitStats).Methods("GET")
	api.HandleFunc("/enrichment/{season}/run", h.RunEnrichment).Methods("POST")
	api.HandleFunc("/enrichment/{season}/retry", h.RetryEnrichment).Methods("PATCH")

	// Transfer endpoints
	api.HandleFunc("/transfers", h.CreateTransfer).Methods("POST")
	api.HandleFunc("/transfers/{season}", h.GetTransfers).Methods("GET")

	// Player endpoints
	api.HandleFunc("/players/{id}", h.GetPlayer).Methods("GET")
}
