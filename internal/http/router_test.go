package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"docqa-ai/internal/agent"
	"docqa-ai/internal/intent"
	"docqa-ai/internal/vectorstore/mocks"
)

type stubService struct{}

func (stubService) ClassifyIntent(string) (intent.Type, float64) { return intent.Question, 0.9 }
func (stubService) GetResponse(context.Context, string, string) json.RawMessage {
	return json.RawMessage(`{"summary":"ok"}`)
}
func (stubService) CacheResponse(context.Context, string, json.RawMessage) {}
func (stubService) IngestFile(context.Context, string, string, []byte) *agent.IngestResult {
	return &agent.IngestResult{}
}
func (stubService) IngestURL(context.Context, string, string) *agent.IngestResult {
	return &agent.IngestResult{}
}
func (stubService) Rephrase(context.Context, string) []string { return nil }
func (stubService) GetStats(context.Context) *agent.Stats     { return &agent.Stats{} }
func (stubService) Tenants() []string                         { return []string{"esmd"} }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockVectorStore(ctrl)
	store.EXPECT().CollectionExists(gomock.Any(), gomock.Any()).Return(false, nil).AnyTimes()
	return NewRouter(&Deps{Service: stubService{}, Store: store})
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodPost, "/api/v1/query", `{"query":"when are claims due?"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/intent", `{"query":"hello"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/rephrase", `{"query":"claims"}`, http.StatusOK},
		{http.MethodGet, "/api/v1/tenants", "", http.StatusOK},
		{http.MethodGet, "/api/v1/stats", "", http.StatusOK},
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/api/v1/query", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s %s: status = %d, want %d", tc.method, tc.path, rec.Code, tc.want)
		}
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/query", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
