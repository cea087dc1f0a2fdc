package handlers

import (
	"encoding/json"
	"net/http"

	"docqa-ai/internal/contextutil"
)

// IntentHandler classifies a query without answering it. The UI uses this
// to decide whether to show the tenant picker up front.
type IntentHandler struct {
	service Service
}

// NewIntentHandler creates a new IntentHandler.
func NewIntentHandler(service Service) *IntentHandler {
	return &IntentHandler{service: service}
}

// IntentRequest is the payload for intent classification.
type IntentRequest struct {
	Query string `json:"query"`
}

// IntentResponse is the classification result.
type IntentResponse struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// ServeHTTP handles POST /api/v1/intent.
func (h *IntentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req IntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, ctx, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, ctx, http.StatusBadRequest, "Query is required")
		return
	}

	kind, confidence := h.service.ClassifyIntent(req.Query)
	writeJSON(w, ctx, http.StatusOK, IntentResponse{Intent: string(kind), Confidence: confidence})
}
