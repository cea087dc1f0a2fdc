package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// ManifestStore persists per-tenant file signature manifests. A manifest is
// the snapshot of the tenant's document directory taken at the last index
// build; diffing the live directory against it decides whether a rebuild is
// needed.
type ManifestStore interface {
	// List returns the stored manifest for a tenant, ordered by path.
	List(ctx context.Context, tenant string) ([]ManifestEntry, error)
	// Replace atomically replaces the tenant's manifest with the given entries.
	Replace(ctx context.Context, tenant string, entries []ManifestEntry) error
}

// ManifestRepo implements ManifestStore on SQLite.
type ManifestRepo struct {
	db *sql.DB
}

// NewManifestRepo creates a new ManifestRepo.
func NewManifestRepo(db *sql.DB) *ManifestRepo {
	return &ManifestRepo{db: db}
}

// List returns the stored manifest for a tenant, ordered by path.
func (r *ManifestRepo) List(ctx context.Context, tenant string) ([]ManifestEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT tenant, path, size, mtime_ns, sha256 FROM tenant_manifests WHERE tenant = ? ORDER BY path",
		tenant,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query manifest: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []ManifestEntry
	for rows.Next() {
		var e ManifestEntry
		if err := rows.Scan(&e.Tenant, &e.Path, &e.Size, &e.MtimeNS, &e.SHA256); err != nil {
			return nil, fmt.Errorf("failed to scan manifest entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// Replace atomically replaces the tenant's manifest with the given entries.
func (r *ManifestRepo) Replace(ctx context.Context, tenant string, entries []ManifestEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin manifest transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tenant_manifests WHERE tenant = ?", tenant); err != nil {
		return fmt.Errorf("failed to clear manifest: %w", err)
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tenant_manifests (tenant, path, size, mtime_ns, sha256) VALUES (?, ?, ?, ?, ?)",
			tenant, e.Path, e.Size, e.MtimeNS, e.SHA256,
		); err != nil {
			return fmt.Errorf("failed to insert manifest entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit manifest transaction: %w", err)
	}
	return nil
}
