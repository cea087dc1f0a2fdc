package handlers

import (
	"encoding/json"
	"net/http"

	"docqa-ai/internal/contextutil"
)

// RephraseHandler suggests alternative phrasings for a query.
type RephraseHandler struct {
	service Service
}

// NewRephraseHandler creates a new RephraseHandler.
func NewRephraseHandler(service Service) *RephraseHandler {
	return &RephraseHandler{service: service}
}

// RephraseRequest is the payload for rephrasing.
type RephraseRequest struct {
	Query string `json:"query"`
}

// RephraseResponse carries the suggested phrasings. The list is empty when
// the model produced nothing usable.
type RephraseResponse struct {
	Suggestions []string `json:"suggestions"`
}

// ServeHTTP handles POST /api/v1/rephrase.
func (h *RephraseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req RephraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, ctx, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, ctx, http.StatusBadRequest, "Query is required")
		return
	}

	writeJSON(w, ctx, http.StatusOK, RephraseResponse{Suggestions: h.service.Rephrase(ctx, req.Query)})
}
