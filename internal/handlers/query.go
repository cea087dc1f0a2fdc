package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"docqa-ai/internal/contextutil"
)

// QueryHandler answers questions against the tenant knowledge bases.
type QueryHandler struct {
	service Service
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(service Service) *QueryHandler {
	return &QueryHandler{service: service}
}

// QueryRequest is the payload for a query. TenantID is optional: it carries
// the user's answer to an earlier tenant-selection prompt. AutoSelect asks
// for best-effort routing instead of a disambiguation prompt.
type QueryRequest struct {
	Query      string `json:"query"`
	TenantID   string `json:"tenant_id,omitempty"`
	AutoSelect bool   `json:"auto_select,omitempty"`
}

// ServeHTTP handles POST /api/v1/query. The response body is whatever the
// agent produced: a structured answer, a conversational reply, or a
// tenant-selection prompt, always with status 200.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, ctx, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == "" {
		logger.WarnContext(ctx, "empty query in request")
		writeError(w, ctx, http.StatusBadRequest, "Query is required")
		return
	}

	query := req.Query
	if req.AutoSelect && !strings.Contains(query, "[AUTO]") {
		query = "[AUTO] " + query
	}
	writeRaw(w, ctx, h.service.GetResponse(ctx, query, req.TenantID))
}
