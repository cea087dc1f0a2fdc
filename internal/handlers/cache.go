package handlers

import (
	"encoding/json"
	"net/http"

	"docqa-ai/internal/contextutil"
)

// CacheHandler lets the caller store a previously returned answer, so a UI
// can confirm an answer was useful before it is served again verbatim.
type CacheHandler struct {
	service Service
}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler(service Service) *CacheHandler {
	return &CacheHandler{service: service}
}

// CacheRequest is the payload for caching a response.
type CacheRequest struct {
	Query    string          `json:"query"`
	Response json.RawMessage `json:"response"`
}

// ServeHTTP handles POST /api/v1/cache.
func (h *CacheHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CacheRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, ctx, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == "" || len(req.Response) == 0 {
		writeError(w, ctx, http.StatusBadRequest, "Query and response are required")
		return
	}

	h.service.CacheResponse(ctx, req.Query, req.Response)
	writeJSON(w, ctx, http.StatusOK, map[string]string{"status": "cached"})
}
