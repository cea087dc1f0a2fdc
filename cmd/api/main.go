package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"time"

	"docqa-ai/internal/agent"
	"docqa-ai/internal/answer"
	"docqa-ai/internal/config"
	"docqa-ai/internal/http"
	"docqa-ai/internal/ingest"
	"docqa-ai/internal/intent"
	"docqa-ai/internal/llm"
	"docqa-ai/internal/respcache"
	"docqa-ai/internal/routing"
	"docqa-ai/internal/storage"
	"docqa-ai/internal/tenant"
	"docqa-ai/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	chunkRepo := storage.NewChunkRepo(db)
	documentRepo := storage.NewDocumentRepo(db)
	manifestRepo := storage.NewManifestRepo(db)
	descriptorRepo := storage.NewDescriptorRepo(db)
	profileRepo := storage.NewProfileRepo(db)
	urlMapRepo := storage.NewURLMapRepo(db)
	cacheRepo := storage.NewCacheRepo(db)

	ctx := context.Background()

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.VectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.VectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.VectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.VectorSize)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName,
		time.Duration(cfg.LLMTimeoutSeconds)*time.Second)

	// Create the ingestion pipeline and tenant registry
	pipeline := ingest.NewPipeline(
		ingest.NewReaderTable(),
		embedder,
		vectorStore,
		documentRepo,
		chunkRepo,
		profileRepo,
		cfg.CleaningEnabled,
	)
	registry := tenant.NewRegistry(tenant.Deps{
		DocumentsDir:     cfg.DocumentsDir,
		CollectionPrefix: cfg.CollectionPfx,
		VectorSize:       cfg.VectorSize,
		Pipeline:         pipeline,
		Embedder:         embedder,
		Store:            vectorStore,
		Chunks:           chunkRepo,
		Documents:        documentRepo,
		Manifests:        manifestRepo,
		Descriptors:      descriptorRepo,
		Profiles:         profileRepo,
		URLMap:           urlMapRepo,
	})

	// Create the query-answering agent
	svc := agent.New(
		registry,
		routing.NewRouter(embedder, cfg.TenantAliases, cfg.RouterAlpha, cfg.MinConfidence),
		intent.NewClassifier(),
		answer.NewFormatter(llmClient, cfg.MaxContextTokens),
		respcache.New(cacheRepo),
		llmClient,
		ingest.NewFetcher(cfg.AllowedDomains),
		urlMapRepo,
		0,
	)
	slog.Info("Agent initialized", "alpha", cfg.RouterAlpha, "min_confidence", cfg.MinConfidence)

	router := http.NewRouter(&http.Deps{
		Service: svc,
		Store:   vectorStore,
	})

	// Index tenants in the background after the router is ready; queries
	// against a tenant keep hitting its previous index generation until
	// the rebuild swaps in.
	go func() {
		slog.Info("Starting background sync of tenant indexes", "dir", cfg.DocumentsDir)
		if err := registry.Sync(context.Background()); err != nil {
			slog.Error("Tenant sync completed with errors", "error", err)
		} else {
			slog.Info("Tenant sync completed successfully")
		}
	}()

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
