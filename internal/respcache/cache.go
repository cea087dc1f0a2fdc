// Package respcache is the durable response cache. Entries are keyed by
// (tenant, normalized query) and are valid only while every source file
// they were computed from is byte-for-byte unchanged on disk.
package respcache

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/storage"
)

// mtimeTolerance absorbs float rounding when mtimes round-trip through
// JSON; anything larger counts as a modification.
const mtimeTolerance = 1e-6

// Signature records the identity of one source file at cache-write time.
type Signature struct {
	Path  string  `json:"path"`
	Mtime float64 `json:"mtime"` // seconds since epoch
	Size  int64   `json:"size"`
}

// NormalizeQuery produces the cache key form of a query: trimmed and
// lowercased, nothing more.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Signatures stats the given paths and returns their current signatures.
// Paths that cannot be stat'd are skipped; a response whose source vanished
// will simply never validate against it.
func Signatures(paths []string) []Signature {
	sigs := make([]Signature, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		sigs = append(sigs, Signature{
			Path:  path,
			Mtime: float64(info.ModTime().UnixNano()) / 1e9,
			Size:  info.Size(),
		})
	}
	return sigs
}

// Cache validates and serves persisted responses.
type Cache struct {
	store storage.CacheStore
}

// New creates a response cache over the given store.
func New(store storage.CacheStore) *Cache {
	return &Cache{store: store}
}

// Get returns the cached response for (tenant, query) if the entry exists
// and every recorded file signature still matches the live filesystem.
// A stale entry is not served and not deleted; the caller recomputes and
// overwrites it via Put.
func (c *Cache) Get(ctx context.Context, tenant, query string) (json.RawMessage, bool) {
	logger := contextutil.LoggerFromContext(ctx)

	rec, err := c.store.Get(ctx, tenant, NormalizeQuery(query))
	if err != nil {
		return nil, false
	}

	var sigs []Signature
	if err := json.Unmarshal([]byte(rec.FileSignatures), &sigs); err != nil {
		logger.WarnContext(ctx, "unreadable cache signatures, treating as miss", "tenant", tenant, "error", err)
		return nil, false
	}
	for _, sig := range sigs {
		if !sig.valid() {
			logger.InfoContext(ctx, "cache entry stale", "tenant", tenant, "path", sig.Path)
			return nil, false
		}
	}

	logger.InfoContext(ctx, "cache hit", "tenant", tenant)
	return json.RawMessage(rec.Response), true
}

// Put stores a response with the current signatures of its source paths,
// replacing any previous entry for the same key.
func (c *Cache) Put(ctx context.Context, tenant, query string, response json.RawMessage, paths []string) error {
	sigJSON, err := json.Marshal(Signatures(paths))
	if err != nil {
		return fmt.Errorf("failed to marshal signatures: %w", err)
	}
	rec := &storage.CacheRecord{
		Tenant:         tenant,
		QueryNorm:      NormalizeQuery(query),
		Response:       string(response),
		FileSignatures: string(sigJSON),
		CachedAt:       float64(time.Now().UnixNano()) / 1e9,
	}
	if err := c.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist cache entry: %w", err)
	}
	return nil
}

// Invalidate drops every entry for the tenant. Called whenever the tenant's
// documents change.
func (c *Cache) Invalidate(ctx context.Context, tenant string) error {
	if err := c.store.DeleteTenant(ctx, tenant); err != nil {
		return fmt.Errorf("failed to invalidate tenant cache: %w", err)
	}
	return nil
}

func (s Signature) valid() bool {
	info, err := os.Stat(s.Path)
	if err != nil {
		return false
	}
	if info.Size() != s.Size {
		return false
	}
	liveMtime := float64(info.ModTime().UnixNano()) / 1e9
	return math.Abs(liveMtime-s.Mtime) <= mtimeTolerance
}
