// Package handlers implements the HTTP endpoints over the agent. Handlers
// decode and validate requests; all answer semantics live in the agent,
// which never fails a request outright.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"docqa-ai/internal/agent"
	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/intent"
)

// Service is the slice of the agent the HTTP layer uses.
type Service interface {
	ClassifyIntent(query string) (intent.Type, float64)
	GetResponse(ctx context.Context, query, tenantID string) json.RawMessage
	CacheResponse(ctx context.Context, query string, response json.RawMessage)
	IngestFile(ctx context.Context, tenantID, filename string, content []byte) *agent.IngestResult
	IngestURL(ctx context.Context, tenantID, rawURL string) *agent.IngestResult
	Rephrase(ctx context.Context, query string) []string
	GetStats(ctx context.Context) *agent.Stats
	Tenants() []string
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, ctx context.Context, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func writeRaw(w http.ResponseWriter, ctx context.Context, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(raw); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, ctx context.Context, statusCode int, message string) {
	writeJSON(w, ctx, statusCode, ErrorResponse{Error: message})
}
