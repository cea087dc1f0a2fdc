package handlers

import (
	"net/http"
)

// StatsHandler reports per-tenant corpus statistics.
type StatsHandler struct {
	service Service
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(service Service) *StatsHandler {
	return &StatsHandler{service: service}
}

// ServeHTTP handles GET /api/v1/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, ctx, http.StatusOK, h.service.GetStats(ctx))
}
