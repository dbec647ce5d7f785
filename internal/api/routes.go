package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Stock routes. /stocks/symbols must be registered before the
	// {symbol} routes so "symbols" is not matched as a ticker.
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/stocks", handler.ListStocks).Methods("GET")
	api.HandleFunc("/stocks/symbols", handler.ListSymbols).Methods("GET")
	api.HandleFunc("/stocks/{symbol}", handler.GetLatest).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/history", handler.GetHistory).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/stats", handler.GetStats).Methods("GET")

	return r
}
