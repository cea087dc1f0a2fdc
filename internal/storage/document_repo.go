package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks docqa-ai/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"fmt"
)

// DocumentStore defines the interface for document metadata operations.
type DocumentStore interface {
	// Upsert inserts or replaces a document record.
	Upsert(ctx context.Context, doc *DocumentRecord) error
	// ListByTenant returns all document records for a tenant.
	ListByTenant(ctx context.Context, tenant string) ([]DocumentRecord, error)
	// GetByKey returns a document by its canonical key. Returns ErrNotFound if missing.
	GetByKey(ctx context.Context, tenant, docKey string) (*DocumentRecord, error)
	// DeleteByTenant removes all document records for a tenant.
	DeleteByTenant(ctx context.Context, tenant string) error
}

// DocumentRepo provides methods for document metadata operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Upsert inserts or replaces a document record.
func (r *DocumentRepo) Upsert(ctx context.Context, doc *DocumentRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents
			(tenant, doc_key, source_type, title, domain, original_url, page_count, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		doc.Tenant, doc.DocKey, doc.SourceType, doc.Title, doc.Domain, doc.OriginalURL, doc.PageCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// ListByTenant returns all document records for a tenant.
func (r *DocumentRepo) ListByTenant(ctx context.Context, tenant string) ([]DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tenant, doc_key, source_type, title, domain, original_url, page_count, updated_at
		 FROM documents WHERE tenant = ? ORDER BY doc_key`,
		tenant,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []DocumentRecord
	for rows.Next() {
		var d DocumentRecord
		if err := rows.Scan(&d.Tenant, &d.DocKey, &d.SourceType, &d.Title, &d.Domain, &d.OriginalURL, &d.PageCount, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return docs, nil
}

// GetByKey returns a document by its canonical key. Returns ErrNotFound if missing.
func (r *DocumentRepo) GetByKey(ctx context.Context, tenant, docKey string) (*DocumentRecord, error) {
	var d DocumentRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT tenant, doc_key, source_type, title, domain, original_url, page_count, updated_at
		 FROM documents WHERE tenant = ? AND doc_key = ?`,
		tenant, docKey,
	).Scan(&d.Tenant, &d.DocKey, &d.SourceType, &d.Title, &d.Domain, &d.OriginalURL, &d.PageCount, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return &d, nil
}

// DeleteByTenant removes all document records for a tenant.
// Used when a tenant's index is rebuilt from scratch.
func (r *DocumentRepo) DeleteByTenant(ctx context.Context, tenant string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE tenant = ?", tenant)
	if err != nil {
		return fmt.Errorf("failed to delete documents by tenant: %w", err)
	}
	return nil
}
