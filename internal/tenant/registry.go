package tenant

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/ingest"
	"docqa-ai/internal/retrieval"
	"docqa-ai/internal/routing"
	"docqa-ai/internal/storage"
	"docqa-ai/internal/vectorstore"
)

// maxDescriptorFiles caps how many file names go into a tenant's routing
// descriptor. Beyond this the names stop adding signal and only dilute the
// embedding.
const maxDescriptorFiles = 30

// Embedder is the slice of the embeddings client the registry needs.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Deps collects the registry's collaborators. All fields are required.
type Deps struct {
	DocumentsDir     string
	CollectionPrefix string
	VectorSize       int

	Pipeline    *ingest.Pipeline
	Embedder    Embedder
	Store       vectorstore.VectorStore
	Chunks      storage.ChunkStore
	Documents   storage.DocumentStore
	Manifests   storage.ManifestStore
	Descriptors storage.DescriptorStore
	Profiles    storage.ProfileStore
	URLMap      storage.URLMapStore
}

// Registry owns the per-tenant retrieval engines. Each tenant's index lives
// in its own generation-suffixed collection; rebuilds index into a fresh
// collection and swap the engine only once indexing succeeded, so queries keep
// hitting the previous generation throughout.
type Registry struct {
	deps Deps

	mu          sync.RWMutex
	engines     map[string]*retrieval.Engine
	generations map[string]int
}

// NewRegistry creates an empty registry. Call Sync to discover and index
// tenants from the documents directory.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:        deps,
		engines:     make(map[string]*retrieval.Engine),
		generations: make(map[string]int),
	}
}

// DiscoverTenants lists the tenant IDs present on disk. Every direct
// subdirectory of the documents directory is a tenant.
func (r *Registry) DiscoverTenants() ([]string, error) {
	entries, err := os.ReadDir(r.deps.DocumentsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents directory: %w", err)
	}
	var tenants []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			tenants = append(tenants, e.Name())
		}
	}
	sort.Strings(tenants)
	return tenants, nil
}

// Tenants returns the IDs the registry currently serves, sorted.
func (r *Registry) Tenants() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Engine returns the tenant's retrieval engine, or false when the tenant is
// unknown or not yet indexed.
func (r *Registry) Engine(tenant string) (*retrieval.Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	eng, ok := r.engines[tenant]
	return eng, ok
}

// Generation returns the index generation currently serving a tenant, or
// zero when the tenant has never been indexed.
func (r *Registry) Generation(tenant string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generations[tenant]
}

// TenantDir returns the on-disk document directory for a tenant.
func (r *Registry) TenantDir(tenant string) string {
	return filepath.Join(r.deps.DocumentsDir, tenant)
}

// Sync discovers tenants on disk and brings each one's index up to date.
// Per-tenant failures are logged and skipped so one bad tenant cannot take
// the rest down; the first error is returned after all tenants were tried.
func (r *Registry) Sync(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)
	tenants, err := r.DiscoverTenants()
	if err != nil {
		return err
	}
	var firstErr error
	for _, tenant := range tenants {
		if _, err := r.EnsureFresh(ctx, tenant); err != nil {
			logger.Error("tenant sync failed", "tenant", tenant, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to sync tenant %s: %w", tenant, err)
			}
		}
	}
	return firstErr
}

// EnsureFresh rebuilds the tenant's index when its document manifest changed
// since the last indexing run, reporting whether a rebuild happened. An
// unchanged manifest with a live engine is a no-op; an unchanged manifest
// without one (process restart) reattaches an engine to the stored
// generation's collection without re-indexing.
func (r *Registry) EnsureFresh(ctx context.Context, tenant string) (bool, error) {
	logger := contextutil.LoggerFromContext(ctx)
	curr, err := ingest.ScanManifest(tenant, r.TenantDir(tenant))
	if err != nil {
		return false, err
	}
	prev, err := r.deps.Manifests.List(ctx, tenant)
	if err != nil {
		return false, fmt.Errorf("failed to load stored manifest: %w", err)
	}
	if ingest.ManifestChanged(prev, curr) {
		logger.Info("manifest changed, rebuilding index", "tenant", tenant, "files", len(curr))
		return true, r.rebuild(ctx, tenant, curr)
	}

	r.mu.RLock()
	_, attached := r.engines[tenant]
	r.mu.RUnlock()
	if attached {
		return false, nil
	}

	// Unchanged manifest, no engine. Reattach to the persisted generation.
	_, gen, err := r.deps.Descriptors.Get(ctx, tenant)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Never indexed (empty manifest both sides). Build generation 1.
			return true, r.rebuild(ctx, tenant, curr)
		}
		return false, fmt.Errorf("failed to load tenant descriptor: %w", err)
	}
	collection := r.collectionName(tenant, gen)
	exists, err := r.deps.Store.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", collection, err)
	}
	if !exists {
		logger.Warn("stored collection missing, rebuilding", "tenant", tenant, "collection", collection)
		return true, r.rebuild(ctx, tenant, curr)
	}
	r.attach(tenant, collection, gen)
	logger.Info("reattached tenant index", "tenant", tenant, "collection", collection)
	return false, nil
}

// Rebuild forces a full re-index of the tenant regardless of manifest state.
func (r *Registry) Rebuild(ctx context.Context, tenant string) error {
	curr, err := ingest.ScanManifest(tenant, r.TenantDir(tenant))
	if err != nil {
		return err
	}
	return r.rebuild(ctx, tenant, curr)
}

func (r *Registry) rebuild(ctx context.Context, tenant string, manifest []storage.ManifestEntry) error {
	logger := contextutil.LoggerFromContext(ctx)

	r.mu.RLock()
	oldGen := r.generations[tenant]
	r.mu.RUnlock()
	if oldGen == 0 {
		// Process may have restarted; pick up where the stored generation
		// left off so the new collection name never collides.
		if _, gen, err := r.deps.Descriptors.Get(ctx, tenant); err == nil {
			oldGen = gen
		}
	}
	gen := oldGen + 1
	collection := r.collectionName(tenant, gen)

	urlFor := func(filename string) (string, bool) {
		u, err := r.deps.URLMap.Get(ctx, tenant, strings.ToLower(filename))
		if err == nil {
			return u, true
		}
		u, err = r.deps.URLMap.GetByBasename(ctx, tenant, filename)
		if err == nil {
			return u, true
		}
		return "", false
	}

	result, err := r.deps.Pipeline.IndexTenant(ctx, tenant, r.TenantDir(tenant), collection, r.deps.VectorSize, urlFor)
	if err != nil {
		// Leave the previous generation serving; drop the half-built one.
		if dropErr := r.deps.Store.DropCollection(ctx, collection); dropErr != nil {
			logger.Warn("failed to drop aborted collection", "collection", collection, "error", dropErr)
		}
		return fmt.Errorf("failed to index tenant %s: %w", tenant, err)
	}
	for _, e := range result.Errors {
		logger.Warn("file skipped during indexing", "tenant", tenant, "detail", e)
	}

	if err := r.storeDescriptor(ctx, tenant, manifest, gen); err != nil {
		logger.Warn("failed to refresh tenant descriptor", "tenant", tenant, "error", err)
	}
	if err := r.deps.Manifests.Replace(ctx, tenant, manifest); err != nil {
		return fmt.Errorf("failed to store manifest: %w", err)
	}

	r.attach(tenant, collection, gen)

	if oldGen > 0 {
		old := r.collectionName(tenant, oldGen)
		if err := r.deps.Store.DropCollection(ctx, old); err != nil {
			logger.Warn("failed to drop previous collection", "collection", old, "error", err)
		}
	}

	logger.Info("tenant index rebuilt",
		"tenant", tenant,
		"collection", collection,
		"files", result.Files,
		"chunks", result.ChunkCount,
		"file_errors", len(result.Errors),
	)
	return nil
}

func (r *Registry) attach(tenant, collection string, gen int) {
	eng := retrieval.NewEngine(tenant, collection, r.deps.Embedder, r.deps.Store, r.deps.Chunks)
	r.mu.Lock()
	r.engines[tenant] = eng
	r.generations[tenant] = gen
	r.mu.Unlock()
}

func (r *Registry) collectionName(tenant string, gen int) string {
	return fmt.Sprintf("%s_%s_gen%d", r.deps.CollectionPrefix, tenant, gen)
}

// storeDescriptor embeds a short natural-language summary of the tenant's
// corpus (its ID plus up to 30 file names) and persists it for the router.
func (r *Registry) storeDescriptor(ctx context.Context, tenant string, manifest []storage.ManifestEntry, gen int) error {
	names := make([]string, 0, maxDescriptorFiles)
	for _, e := range manifest {
		if len(names) == maxDescriptorFiles {
			break
		}
		names = append(names, filepath.Base(e.Path))
	}
	text := fmt.Sprintf("Tenant: %s. Files: %s", tenant, strings.Join(names, ", "))
	vec, err := r.deps.Embedder.EmbedText(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed tenant descriptor: %w", err)
	}
	return r.deps.Descriptors.Put(ctx, tenant, vec, gen)
}

// TenantInfos assembles the routing view of every served tenant: the stored
// descriptor embedding plus the accumulated keyword profile. A tenant with no
// descriptor yet still routes on keyword overlap alone.
func (r *Registry) TenantInfos(ctx context.Context) ([]routing.TenantInfo, error) {
	infos := make([]routing.TenantInfo, 0)
	for _, tenant := range r.Tenants() {
		info := routing.TenantInfo{ID: tenant}
		vec, _, err := r.deps.Descriptors.Get(ctx, tenant)
		if err == nil {
			info.Descriptor = vec
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to load descriptor for %s: %w", tenant, err)
		}
		counts, err := r.deps.Profiles.Keywords(ctx, tenant)
		if err != nil {
			return nil, fmt.Errorf("failed to load keyword profile for %s: %w", tenant, err)
		}
		kw := make(map[string]bool, len(counts))
		for k := range counts {
			kw[k] = true
		}
		info.Keywords = kw
		infos = append(infos, info)
	}
	return infos, nil
}

// TopKeywords returns the tenant's most frequent profile keywords, ordered by
// count descending with alphabetical tie-break, capped at n.
func (r *Registry) TopKeywords(ctx context.Context, tenant string, n int) ([]string, error) {
	counts, err := r.deps.Profiles.Keywords(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword profile for %s: %w", tenant, err)
	}
	type kc struct {
		k string
		c int
	}
	all := make([]kc, 0, len(counts))
	for k, c := range counts {
		all = append(all, kc{k, c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].c != all[j].c {
			return all[i].c > all[j].c
		}
		return all[i].k < all[j].k
	})
	if n > len(all) {
		n = len(all)
	}
	out := make([]string, 0, n)
	for _, e := range all[:n] {
		out = append(out, e.k)
	}
	return out, nil
}

// DocumentCount reports how many documents are indexed for a tenant.
func (r *Registry) DocumentCount(ctx context.Context, tenant string) (int, error) {
	docs, err := r.deps.Documents.ListByTenant(ctx, tenant)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents for %s: %w", tenant, err)
	}
	return len(docs), nil
}
