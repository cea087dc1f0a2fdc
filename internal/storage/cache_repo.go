package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// CacheStore persists response-cache entries. The (tenant, query_norm) pair
// is unique; Put replaces any existing entry for the same key in one
// statement, so concurrent writers degrade to last-writer-wins rather than
// duplicating keys.
type CacheStore interface {
	// Get returns the entry for the key. Returns ErrNotFound on a miss.
	Get(ctx context.Context, tenant, queryNorm string) (*CacheRecord, error)
	// Put inserts or replaces the entry for its (tenant, query_norm) key.
	Put(ctx context.Context, rec *CacheRecord) error
	// DeleteTenant removes all entries for the tenant.
	DeleteTenant(ctx context.Context, tenant string) error
	// DeleteKey removes a single entry.
	DeleteKey(ctx context.Context, tenant, queryNorm string) error
}

// CacheRepo implements CacheStore on SQLite.
type CacheRepo struct {
	db *sql.DB
}

// NewCacheRepo creates a new CacheRepo.
func NewCacheRepo(db *sql.DB) *CacheRepo {
	return &CacheRepo{db: db}
}

// Get returns the entry for the key. Returns ErrNotFound on a miss.
func (r *CacheRepo) Get(ctx context.Context, tenant, queryNorm string) (*CacheRecord, error) {
	var rec CacheRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT tenant, query_norm, response, file_signatures, cached_at
		 FROM response_cache WHERE tenant = ? AND query_norm = ?`,
		tenant, queryNorm,
	).Scan(&rec.Tenant, &rec.QueryNorm, &rec.Response, &rec.FileSignatures, &rec.CachedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entry: %w", err)
	}
	return &rec, nil
}

// Put inserts or replaces the entry for its (tenant, query_norm) key.
func (r *CacheRepo) Put(ctx context.Context, rec *CacheRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO response_cache (tenant, query_norm, response, file_signatures, cached_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.Tenant, rec.QueryNorm, rec.Response, rec.FileSignatures, rec.CachedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// DeleteTenant removes all entries for the tenant.
func (r *CacheRepo) DeleteTenant(ctx context.Context, tenant string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM response_cache WHERE tenant = ?", tenant)
	if err != nil {
		return fmt.Errorf("failed to invalidate cache for tenant: %w", err)
	}
	return nil
}

// DeleteKey removes a single entry.
func (r *CacheRepo) DeleteKey(ctx context.Context, tenant, queryNorm string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM response_cache WHERE tenant = ? AND query_norm = ?",
		tenant, queryNorm,
	)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}
