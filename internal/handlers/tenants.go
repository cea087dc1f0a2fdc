package handlers

import (
	"net/http"
)

// TenantsHandler lists the tenants the service can answer for.
type TenantsHandler struct {
	service Service
}

// NewTenantsHandler creates a new TenantsHandler.
func NewTenantsHandler(service Service) *TenantsHandler {
	return &TenantsHandler{service: service}
}

// TenantsResponse is the tenant listing payload.
type TenantsResponse struct {
	Tenants []string `json:"tenants"`
}

// ServeHTTP handles GET /api/v1/tenants.
func (h *TenantsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenants := h.service.Tenants()
	if tenants == nil {
		tenants = []string{}
	}
	writeJSON(w, r.Context(), http.StatusOK, TenantsResponse{Tenants: tenants})
}
