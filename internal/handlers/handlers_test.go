package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"docqa-ai/internal/agent"
	"docqa-ai/internal/intent"
)

// fakeService records calls and returns canned values.
type fakeService struct {
	intentType    intent.Type
	confidence    float64
	response      json.RawMessage
	suggestions   []string
	stats         *agent.Stats
	tenants       []string
	ingestResult  *agent.IngestResult
	lastQuery     string
	lastTenant    string
	lastURL       string
	lastFilename  string
	cachedQueries []string
}

func (f *fakeService) ClassifyIntent(query string) (intent.Type, float64) {
	f.lastQuery = query
	return f.intentType, f.confidence
}

func (f *fakeService) GetResponse(ctx context.Context, query, tenantID string) json.RawMessage {
	f.lastQuery = query
	f.lastTenant = tenantID
	return f.response
}

func (f *fakeService) CacheResponse(ctx context.Context, query string, response json.RawMessage) {
	f.cachedQueries = append(f.cachedQueries, query)
}

func (f *fakeService) IngestFile(ctx context.Context, tenantID, filename string, content []byte) *agent.IngestResult {
	f.lastTenant = tenantID
	f.lastFilename = filename
	return f.ingestResult
}

func (f *fakeService) IngestURL(ctx context.Context, tenantID, rawURL string) *agent.IngestResult {
	f.lastTenant = tenantID
	f.lastURL = rawURL
	return f.ingestResult
}

func (f *fakeService) Rephrase(ctx context.Context, query string) []string {
	f.lastQuery = query
	return f.suggestions
}

func (f *fakeService) GetStats(ctx context.Context) *agent.Stats { return f.stats }

func (f *fakeService) Tenants() []string { return f.tenants }

func TestQueryHandler(t *testing.T) {
	svc := &fakeService{response: json.RawMessage(`{"summary":"ok","selected_tenant":"esmd"}`)}
	handler := NewQueryHandler(svc)

	body := `{"query": "When are claims due?", "tenant_id": "esmd"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if svc.lastQuery != "When are claims due?" || svc.lastTenant != "esmd" {
		t.Errorf("service called with (%q, %q)", svc.lastQuery, svc.lastTenant)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != string(svc.response) {
		t.Errorf("body = %q, want the agent payload verbatim", got)
	}
}

func TestQueryHandler_AutoSelect(t *testing.T) {
	svc := &fakeService{response: json.RawMessage(`{"summary":"ok"}`)}
	handler := NewQueryHandler(svc)

	body := `{"query": "When are claims due?", "auto_select": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if svc.lastQuery != "[AUTO] When are claims due?" {
		t.Errorf("service called with query %q, want the auto-select flag prefixed", svc.lastQuery)
	}
}

func TestQueryHandler_EmptyQuery(t *testing.T) {
	handler := NewQueryHandler(&fakeService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(`{"query": ""}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQueryHandler_InvalidBody(t *testing.T) {
	handler := NewQueryHandler(&fakeService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestIntentHandler(t *testing.T) {
	svc := &fakeService{intentType: intent.Question, confidence: 0.9}
	handler := NewIntentHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/intent", strings.NewReader(`{"query": "what is esmd?"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp IntentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Intent != "question" || resp.Confidence != 0.9 {
		t.Errorf("response = %+v, want question/0.9", resp)
	}
}

func TestFileIngestHandler(t *testing.T) {
	svc := &fakeService{ingestResult: &agent.IngestResult{Saved: []string{"guide.md"}, Errors: []string{}}}
	handler := NewFileIngestHandler(svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", "guide.md")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("# Guide\n\nsome content")); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/esmd/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("tenant", "esmd")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if svc.lastTenant != "esmd" || svc.lastFilename != "guide.md" {
		t.Errorf("service called with (%q, %q)", svc.lastTenant, svc.lastFilename)
	}
	var result agent.IngestResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(result.Saved) != 1 || result.Saved[0] != "guide.md" {
		t.Errorf("Saved = %v, want [guide.md]", result.Saved)
	}
}

func TestFileIngestHandler_NoFiles(t *testing.T) {
	handler := NewFileIngestHandler(&fakeService{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/esmd/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("tenant", "esmd")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestURLIngestHandler(t *testing.T) {
	svc := &fakeService{ingestResult: &agent.IngestResult{Saved: []string{"https_www_cms_gov_guide.txt"}}}
	handler := NewURLIngestHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/esmd/urls",
		strings.NewReader(`{"url": "https://www.cms.gov/guide"}`))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("tenant", "esmd")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if svc.lastURL != "https://www.cms.gov/guide" || svc.lastTenant != "esmd" {
		t.Errorf("service called with (%q, %q)", svc.lastURL, svc.lastTenant)
	}
}

func TestRephraseHandler(t *testing.T) {
	svc := &fakeService{suggestions: []string{"one", "two"}}
	handler := NewRephraseHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rephrase", strings.NewReader(`{"query": "claims deadline"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp RephraseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp.Suggestions) != 2 {
		t.Errorf("Suggestions = %v, want 2", resp.Suggestions)
	}
}

func TestCacheHandler(t *testing.T) {
	svc := &fakeService{}
	handler := NewCacheHandler(svc)

	body := `{"query": "claims deadline", "response": {"summary": "ok", "selected_tenant": "esmd"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cache", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(svc.cachedQueries) != 1 || svc.cachedQueries[0] != "claims deadline" {
		t.Errorf("cachedQueries = %v", svc.cachedQueries)
	}
}

func TestTenantsHandler(t *testing.T) {
	handler := NewTenantsHandler(&fakeService{tenants: []string{"HIH", "RC"}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp TenantsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp.Tenants) != 2 || resp.Tenants[0] != "HIH" {
		t.Errorf("Tenants = %v, want [HIH RC]", resp.Tenants)
	}
}

func TestStatsHandler(t *testing.T) {
	svc := &fakeService{stats: &agent.Stats{
		Tenants:        []agent.TenantStats{{ID: "esmd", Documents: 3, TopKeywords: []string{"claims"}}},
		TotalDocuments: 3,
	}}
	handler := NewStatsHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var stats agent.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if stats.TotalDocuments != 3 || len(stats.Tenants) != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
