package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tickerwatch/ingest-service/internal/database"
	"github.com/tickerwatch/ingest-service/internal/kafka"
	"github.com/tickerwatch/ingest-service/internal/logger"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db       *database.DB
	producer *kafka.Producer
	log      *logger.Logger
}

// NewHandler creates a new Handler
func NewHandler(db *database.DB, producer *kafka.Producer, log *logger.Logger) *Handler {
	return &Handler{
		db:       db,
		producer: producer,
		log:      log,
	}
}

// GetNewsSince handles GET /api/v1/news?since=RFC3339. With no cutoff it
// returns everything still pending hand-off.
func (h *Handler) GetNewsSince(w http.ResponseWriter, r *http.Request) {
	cutoff, err := parseSince(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.db.GetNewsSince(r.Context(), cutoff)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// GetPricesSince handles GET /api/v1/prices?since=RFC3339
func (h *Handler) GetPricesSince(w http.ResponseWriter, r *http.Request) {
	cutoff, err := parseSince(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ticks, err := h.db.GetPriceDataSince(r.Context(), cutoff)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, ticks)
}

// GetDiscussionsSince handles GET /api/v1/discussions?since=RFC3339
func (h *Handler) GetDiscussionsSince(w http.ResponseWriter, r *http.Request) {
	cutoff, err := parseSince(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	discussions, err := h.db.GetDiscussionsSince(r.Context(), cutoff)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, discussions)
}

// GetHoldings handles GET /api/v1/holdings
func (h *Handler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.db.GetAllHoldings(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, holdings)
}

// GetAnalysis handles GET /api/v1/analysis?symbol=AAPL. An empty symbol
// returns results for every symbol.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	results, err := h.db.GetAnalysisResults(r.Context(), r.URL.Query().Get("symbol"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, results)
}

// CommitBatch handles POST /api/v1/batch/commit. The caller asserts it has
// durably recorded everything created at or before the cutoff; the matching
// rows are pruned atomically and the hand-off is announced.
func (h *Handler) CommitBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cutoff string `json:"cutoff"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cutoff, err := time.Parse(time.RFC3339, req.Cutoff)
	if err != nil {
		http.Error(w, "cutoff must be an RFC3339 timestamp", http.StatusBadRequest)
		return
	}

	counts, err := h.db.CommitLLMBatch(r.Context(), cutoff)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if h.producer != nil {
		pruned := counts.NewsDeleted + counts.PricesDeleted
		if err := h.producer.PublishBatchCommitted(r.Context(), cutoff, pruned); err != nil {
			h.log.Warn("failed to publish batch committed event", logger.ErrorField(err))
		}
	}

	respondJSON(w, http.StatusOK, counts)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// parseSince reads the optional since query parameter; absent means the zero
// time, which selects everything.
func parseSince(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
