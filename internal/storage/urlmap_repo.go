package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// URLMapStore maps document keys back to the original URL they were fetched
// from, so citations show the source URL instead of the locally saved file.
type URLMapStore interface {
	// Put records the original URL for a normalized document path.
	Put(ctx context.Context, tenant, pathNorm, originalURL string) error
	// Get returns the original URL for a normalized path. Returns ErrNotFound if missing.
	Get(ctx context.Context, tenant, pathNorm string) (string, error)
	// GetByBasename returns the original URL for any entry whose path ends
	// with the given base name. Returns ErrNotFound if missing.
	GetByBasename(ctx context.Context, tenant, base string) (string, error)
}

// URLMapRepo implements URLMapStore on SQLite.
type URLMapRepo struct {
	db *sql.DB
}

// NewURLMapRepo creates a new URLMapRepo.
func NewURLMapRepo(db *sql.DB) *URLMapRepo {
	return &URLMapRepo{db: db}
}

// Put records the original URL for a normalized document path.
func (r *URLMapRepo) Put(ctx context.Context, tenant, pathNorm, originalURL string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO url_map (tenant, path_norm, original_url) VALUES (?, ?, ?)",
		tenant, pathNorm, originalURL,
	)
	if err != nil {
		return fmt.Errorf("failed to store URL mapping: %w", err)
	}
	return nil
}

// Get returns the original URL for a normalized path. Returns ErrNotFound if missing.
func (r *URLMapRepo) Get(ctx context.Context, tenant, pathNorm string) (string, error) {
	var url string
	err := r.db.QueryRowContext(ctx,
		"SELECT original_url FROM url_map WHERE tenant = ? AND path_norm = ?",
		tenant, pathNorm,
	).Scan(&url)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query URL mapping: %w", err)
	}
	return url, nil
}

// GetByBasename returns the original URL for any entry whose path ends with
// the given base name. Returns ErrNotFound if missing.
func (r *URLMapRepo) GetByBasename(ctx context.Context, tenant, base string) (string, error) {
	var url string
	err := r.db.QueryRowContext(ctx,
		`SELECT original_url FROM url_map
		 WHERE tenant = ? AND (path_norm = ? OR path_norm LIKE '%/' || ?)
		 LIMIT 1`,
		tenant, base, base,
	).Scan(&url)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query URL mapping by basename: %w", err)
	}
	return url, nil
}
