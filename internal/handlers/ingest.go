package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docqa-ai/internal/agent"
	"docqa-ai/internal/contextutil"
)

// maxUploadBytes bounds a single multipart upload.
const maxUploadBytes = 50 << 20

// FileIngestHandler accepts document uploads into a tenant's corpus.
type FileIngestHandler struct {
	service Service
}

// NewFileIngestHandler creates a new FileIngestHandler.
func NewFileIngestHandler(service Service) *FileIngestHandler {
	return &FileIngestHandler{service: service}
}

// ServeHTTP handles POST /api/v1/tenants/{tenant}/files. The body is
// multipart form data; every part named "files" is saved. Per-file failures
// land in the errors list, they never abort the batch.
func (h *FileIngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	tenantID := chi.URLParam(r, "tenant")
	if tenantID == "" {
		writeError(w, ctx, http.StatusBadRequest, "Tenant is required")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(w, ctx, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, ctx, http.StatusBadRequest, "No files in request")
		return
	}

	combined := &agent.IngestResult{Saved: []string{}, Errors: []string{}}
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			combined.Errors = append(combined.Errors, fh.Filename+": "+err.Error())
			continue
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			combined.Errors = append(combined.Errors, fh.Filename+": "+err.Error())
			continue
		}
		result := h.service.IngestFile(ctx, tenantID, fh.Filename, content)
		combined.Saved = append(combined.Saved, result.Saved...)
		combined.Errors = append(combined.Errors, result.Errors...)
	}

	writeJSON(w, ctx, http.StatusOK, combined)
}

// URLIngestHandler fetches an allow-listed URL into a tenant's corpus.
type URLIngestHandler struct {
	service Service
}

// NewURLIngestHandler creates a new URLIngestHandler.
func NewURLIngestHandler(service Service) *URLIngestHandler {
	return &URLIngestHandler{service: service}
}

// URLIngestRequest is the payload for URL ingestion.
type URLIngestRequest struct {
	URL string `json:"url"`
}

// ServeHTTP handles POST /api/v1/tenants/{tenant}/urls.
func (h *URLIngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	tenantID := chi.URLParam(r, "tenant")
	if tenantID == "" {
		writeError(w, ctx, http.StatusBadRequest, "Tenant is required")
		return
	}

	var req URLIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, ctx, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, ctx, http.StatusBadRequest, "URL is required")
		return
	}

	writeJSON(w, ctx, http.StatusOK, h.service.IngestURL(ctx, tenantID, req.URL))
}
