package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	"docqa-ai/internal/llm"
	"docqa-ai/internal/storage"
	"docqa-ai/internal/vectorstore"
	"docqa-ai/internal/vectorstore/mocks"
)

func newEmbeddingServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req llm.EmbeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode embeddings request: %v", err)
		}
		resp := llm.EmbeddingsResponse{}
		for range req.Input {
			vec := make([]float64, dim)
			vec[0] = 1.0
			resp.Data = append(resp.Data, llm.EmbeddingData{Embedding: vec})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newChunkRepo(t *testing.T) storage.ChunkStore {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return storage.NewChunkRepo(db)
}

func TestEngine_Retrieve(t *testing.T) {
	server := newEmbeddingServer(t, 4)
	defer server.Close()

	chunks := newChunkRepo(t)
	ctx := context.Background()
	if err := chunks.Insert(ctx, &storage.ChunkRecord{
		ID:         "point-1",
		Tenant:     "esmd",
		DocKey:     "billing_guide.md",
		Page:       3,
		ChunkIndex: 0,
		Text:       "Claims must include code 99213 when applicable.",
	}); err != nil {
		t.Fatalf("failed to insert chunk: %v", err)
	}

	ctrl := gomock.NewController(t)
	store := mocks.NewMockVectorStore(ctrl)
	store.EXPECT().
		Search(gomock.Any(), "tenant_esmd_gen1", gomock.Any(), 5, map[string]any{"tenant": "esmd"}).
		Return([]vectorstore.SearchResult{
			{PointID: "point-1", Score: 0.87, Meta: map[string]any{"source_type": "file"}},
			{PointID: "missing-point", Score: 0.42, Meta: map[string]any{}},
		}, nil)

	embedder := llm.NewEmbeddingsClient(server.URL, "test-key", "test-model", 4)
	engine := NewEngine("esmd", "tenant_esmd_gen1", embedder, store, chunks)

	nodes, err := engine.Retrieve(ctx, "billing code for office visit", 5)
	if err != nil {
		t.Fatalf("Retrieve() unexpected error: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("Retrieve() returned %d nodes, want 1 (missing point skipped)", len(nodes))
	}
	node := nodes[0]
	if node.DocKey != "billing_guide.md" {
		t.Errorf("node.DocKey = %v, want billing_guide.md", node.DocKey)
	}
	if node.Page != 3 {
		t.Errorf("node.Page = %v, want 3", node.Page)
	}
	if node.SourceType != "file" {
		t.Errorf("node.SourceType = %v, want file", node.SourceType)
	}
	if node.Score < 0.86 || node.Score > 0.88 {
		t.Errorf("node.Score = %v, want ~0.87", node.Score)
	}
}

func TestEngine_RetrieveDefaultK(t *testing.T) {
	server := newEmbeddingServer(t, 4)
	defer server.Close()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockVectorStore(ctrl)
	store.EXPECT().
		Search(gomock.Any(), gomock.Any(), gomock.Any(), 10, gomock.Any()).
		Return(nil, nil)

	embedder := llm.NewEmbeddingsClient(server.URL, "test-key", "test-model", 4)
	engine := NewEngine("esmd", "tenant_esmd_gen1", embedder, store, newChunkRepo(t))

	nodes, err := engine.Retrieve(context.Background(), "anything", 0)
	if err != nil {
		t.Fatalf("Retrieve() unexpected error: %v", err)
	}
	if len(nodes) != 0 {
		t.Errorf("Retrieve() returned %d nodes, want 0", len(nodes))
	}
}
