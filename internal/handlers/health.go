package handlers

import (
	"context"
	"net/http"
	"time"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/vectorstore"
)

// HealthHandler reports service health. The vector store is the critical
// dependency; the LLM is not probed to keep the check fast.
type HealthHandler struct {
	store              vectorstore.VectorStore
	service            Service
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store vectorstore.VectorStore, service Service) *HealthHandler {
	return &HealthHandler{
		store:              store,
		service:            service,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Issues    []string          `json:"issues,omitempty"`
}

// ServeHTTP handles GET /healthz. Returns 200 when healthy, 503 otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	if h.checkVectorStore(checkCtx) {
		checks["vector_store"] = "ok"
	} else {
		checks["vector_store"] = "error"
		issues = append(issues, "vector_store_unavailable")
	}

	checks["tenants"] = "ok"
	if len(h.service.Tenants()) == 0 {
		checks["tenants"] = "empty"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	resp := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	}
	if httpStatus != http.StatusOK {
		logger.WarnContext(ctx, "health check failed", "issues", issues)
	}
	writeJSON(w, ctx, httpStatus, resp)
}

// checkVectorStore probes the vector store. Any tenant collection counts;
// with no tenants yet, reachability alone is enough.
func (h *HealthHandler) checkVectorStore(ctx context.Context) bool {
	_, err := h.store.CollectionExists(ctx, "healthcheck")
	return err == nil
}
