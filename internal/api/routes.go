package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Read-side routes for downstream batch consumers
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/news", handler.GetNewsSince).Methods("GET")
	api.HandleFunc("/prices", handler.GetPricesSince).Methods("GET")
	api.HandleFunc("/discussions", handler.GetDiscussionsSince).Methods("GET")
	api.HandleFunc("/holdings", handler.GetHoldings).Methods("GET")
	api.HandleFunc("/analysis", handler.GetAnalysis).Methods("GET")
	api.HandleFunc("/batch/commit", handler.CommitBatch).Methods("POST")

	return r
}
