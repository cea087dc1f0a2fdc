// Package ingest parses tenant documents, cleans and chunks their text,
// and loads embeddings into the vector store. A tenant's index is always
// rebuilt whole: the pipeline fills a fresh collection and the registry
// swaps it in only once indexing succeeded.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/llm"
	"docqa-ai/internal/routing"
	"docqa-ai/internal/storage"
	"docqa-ai/internal/vectorstore"
)

// IndexResult reports what one tenant rebuild produced. Per-file failures
// land in Errors and do not abort the rest of the batch.
type IndexResult struct {
	Files      []string
	ChunkCount int
	Errors     []string
}

// URLLookup resolves a stored filename to the URL it was fetched from.
type URLLookup func(filename string) (string, bool)

// Pipeline indexes tenant document directories.
type Pipeline struct {
	readers   ReaderTable
	embedder  *llm.EmbeddingsClient
	store     vectorstore.VectorStore
	documents storage.DocumentStore
	chunks    storage.ChunkStore
	profiles  storage.ProfileStore
	cleaning  bool
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	readers ReaderTable,
	embedder *llm.EmbeddingsClient,
	store vectorstore.VectorStore,
	documents storage.DocumentStore,
	chunks storage.ChunkStore,
	profiles storage.ProfileStore,
	cleaning bool,
) *Pipeline {
	return &Pipeline{
		readers:   readers,
		embedder:  embedder,
		store:     store,
		documents: documents,
		chunks:    chunks,
		profiles:  profiles,
		cleaning:  cleaning,
	}
}

// IndexTenant rebuilds the tenant's index from its document directory into
// the given collection. Existing chunk and document rows for the tenant
// are replaced; the caller drops the previous collection after swapping.
func (p *Pipeline) IndexTenant(ctx context.Context, tenant, dir, collection string, vectorSize int, urlFor URLLookup) (*IndexResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := p.store.EnsureCollection(ctx, collection, vectorSize); err != nil {
		return nil, fmt.Errorf("failed to prepare collection: %w", err)
	}

	if err := p.chunks.DeleteByTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to clear chunk rows: %w", err)
	}
	if err := p.documents.DeleteByTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to clear document rows: %w", err)
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	result := &IndexResult{}
	profileCounts := make(map[string]int)
	for _, path := range paths {
		if err := p.indexFile(ctx, tenant, path, collection, urlFor, profileCounts, result); err != nil {
			logger.WarnContext(ctx, "failed to index file", "tenant", tenant, "path", path, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", filepath.Base(path), err))
		}
	}

	if len(profileCounts) > 0 {
		if err := p.profiles.Accumulate(ctx, tenant, profileCounts); err != nil {
			return nil, fmt.Errorf("failed to update tenant profile: %w", err)
		}
	}

	logger.InfoContext(ctx, "tenant indexed",
		"tenant", tenant,
		"collection", collection,
		"files", len(result.Files),
		"chunks", result.ChunkCount,
		"errors", len(result.Errors),
	)
	return result, nil
}

func (p *Pipeline) indexFile(ctx context.Context, tenant, path, collection string, urlFor URLLookup, profileCounts map[string]int, result *IndexResult) error {
	reader, ok := p.readers.For(path)
	if !ok {
		return fmt.Errorf("unsupported file format")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	title, chunks, err := reader.Parse(content, path)
	if err != nil {
		return fmt.Errorf("failed to parse: %w", err)
	}
	if p.cleaning {
		cleaned := chunks[:0]
		for _, c := range chunks {
			c.Text = CleanText(c.Text)
			if c.Text != "" {
				c.Index = len(cleaned)
				cleaned = append(cleaned, c)
			}
		}
		chunks = cleaned
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no indexable content")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: got %d for %d chunks", len(vectors), len(chunks))
	}

	doc := &storage.DocumentRecord{
		Tenant:     tenant,
		DocKey:     path,
		SourceType: storage.SourceTypeFile,
		Title:      title,
		UpdatedAt:  time.Now(),
	}
	if urlFor != nil {
		if original, ok := urlFor(filepath.Base(path)); ok {
			doc.SourceType = storage.SourceTypeWebpage
			doc.OriginalURL = original
			if parsed, err := url.Parse(original); err == nil {
				doc.Domain = parsed.Hostname()
			}
		}
	}

	points := make([]vectorstore.Point, len(chunks))
	records := make([]*storage.ChunkRecord, len(chunks))
	for i, c := range chunks {
		id := uuid.New().String()
		points[i] = vectorstore.Point{
			ID:  id,
			Vec: vectors[i],
			Meta: map[string]any{
				"tenant":      tenant,
				"doc_key":     path,
				"chunk_index": c.Index,
				"source_type": doc.SourceType,
			},
		}
		records[i] = &storage.ChunkRecord{
			ID:         id,
			Tenant:     tenant,
			DocKey:     path,
			ChunkIndex: c.Index,
			Text:       c.Text,
		}
	}

	if err := p.store.Upsert(ctx, collection, points); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}
	if err := p.documents.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	for _, rec := range records {
		if err := p.chunks.Insert(ctx, rec); err != nil {
			return fmt.Errorf("failed to store chunk: %w", err)
		}
	}

	for _, text := range texts {
		for kw, n := range routing.KeywordCounts(text) {
			profileCounts[kw] += n
		}
	}

	result.Files = append(result.Files, path)
	result.ChunkCount += len(chunks)
	return nil
}
