package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// DescriptorStore persists per-tenant descriptor embeddings so routing can
// resume after a restart without re-embedding every tenant.
type DescriptorStore interface {
	// Put stores a tenant's descriptor embedding for the given index generation.
	Put(ctx context.Context, tenant string, embedding []float32, generation int) error
	// Get returns the stored embedding and generation. Returns ErrNotFound if missing.
	Get(ctx context.Context, tenant string) ([]float32, int, error)
}

// DescriptorRepo implements DescriptorStore on SQLite, storing vectors as
// JSON blobs.
type DescriptorRepo struct {
	db *sql.DB
}

// NewDescriptorRepo creates a new DescriptorRepo.
func NewDescriptorRepo(db *sql.DB) *DescriptorRepo {
	return &DescriptorRepo{db: db}
}

// Put stores a tenant's descriptor embedding for the given index generation.
func (r *DescriptorRepo) Put(ctx context.Context, tenant string, embedding []float32, generation int) error {
	blob, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to encode descriptor embedding: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tenant_descriptors (tenant, embedding, generation, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
		tenant, blob, generation,
	)
	if err != nil {
		return fmt.Errorf("failed to store descriptor: %w", err)
	}
	return nil
}

// Get returns the stored embedding and generation. Returns ErrNotFound if missing.
func (r *DescriptorRepo) Get(ctx context.Context, tenant string) ([]float32, int, error) {
	var blob []byte
	var generation int
	err := r.db.QueryRowContext(ctx,
		"SELECT embedding, generation FROM tenant_descriptors WHERE tenant = ?",
		tenant,
	).Scan(&blob, &generation)
	if err == sql.ErrNoRows {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query descriptor: %w", err)
	}

	var embedding []float32
	if err := json.Unmarshal(blob, &embedding); err != nil {
		return nil, 0, fmt.Errorf("failed to decode descriptor embedding: %w", err)
	}
	return embedding, generation, nil
}
