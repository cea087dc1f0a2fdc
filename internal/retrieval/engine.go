package retrieval

import (
	"context"
	"fmt"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/storage"
	"docqa-ai/internal/vectorstore"
)

// Node is a retrieved chunk with its similarity score. Scores start as
// cosine similarities and may be raised later by the reranking pass.
type Node struct {
	ChunkID    string
	Tenant     string
	DocKey     string
	SourceType string
	Page       int
	ChunkIndex int
	Text       string
	Score      float64
}

// Retriever retrieves the chunks most similar to a query within a single
// tenant's corpus.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Node, error)
}

// Embedder is the slice of the embeddings client retrieval needs.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Engine is the per-tenant retriever. Each tenant gets its own Engine bound
// to the collection of that tenant's current index generation.
type Engine struct {
	tenant     string
	collection string
	embedder   Embedder
	store      vectorstore.VectorStore
	chunks     storage.ChunkStore
}

// NewEngine creates a retriever for one tenant over the given collection.
func NewEngine(tenant, collection string, embedder Embedder, store vectorstore.VectorStore, chunks storage.ChunkStore) *Engine {
	return &Engine{
		tenant:     tenant,
		collection: collection,
		embedder:   embedder,
		store:      store,
		chunks:     chunks,
	}
}

// Collection returns the collection this engine reads from.
func (e *Engine) Collection() string {
	return e.collection
}

// Retrieve embeds the query and returns the top-k chunks for this tenant.
// Chunk text lives in SQLite keyed by point ID, so each hit is hydrated
// from the chunk store after the vector search.
func (e *Engine) Retrieve(ctx context.Context, query string, k int) ([]Node, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		k = 10
	}

	queryVector, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := e.store.Search(ctx, e.collection, queryVector, k, map[string]any{
		"tenant": e.tenant,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %s: %w", e.collection, err)
	}

	nodes := make([]Node, 0, len(results))
	for _, result := range results {
		chunk, err := e.chunks.GetByID(ctx, result.PointID)
		if err != nil {
			logger.WarnContext(ctx, "chunk missing for point", "point_id", result.PointID, "error", err)
			continue
		}

		node := Node{
			ChunkID:    chunk.ID,
			Tenant:     chunk.Tenant,
			DocKey:     chunk.DocKey,
			Page:       chunk.Page,
			ChunkIndex: chunk.ChunkIndex,
			Text:       chunk.Text,
			Score:      float64(result.Score),
		}
		if st, ok := result.Meta["source_type"].(string); ok {
			node.SourceType = st
		}
		nodes = append(nodes, node)
	}

	logger.InfoContext(ctx, "retrieval completed", "tenant", e.tenant, "k", k, "nodes", len(nodes))
	return nodes, nil
}
