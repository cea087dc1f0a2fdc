package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_profile_store.go -package=mocks docqa-ai/internal/storage ProfileStore

import (
	"context"
	"database/sql"
	"fmt"
)

// ProfileStore persists the per-tenant keyword frequency profile used for
// routing. Counts only ever accumulate; re-ingestion adds on top of prior
// observations rather than resetting them.
type ProfileStore interface {
	// Accumulate adds the given keyword counts to the tenant's profile.
	Accumulate(ctx context.Context, tenant string, counts map[string]int) error
	// Keywords returns the tenant's full keyword -> count map.
	Keywords(ctx context.Context, tenant string) (map[string]int, error)
}

// ProfileRepo implements ProfileStore on SQLite.
type ProfileRepo struct {
	db *sql.DB
}

// NewProfileRepo creates a new ProfileRepo.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// Accumulate adds the given keyword counts to the tenant's profile.
// The whole batch is applied in one transaction.
func (r *ProfileRepo) Accumulate(ctx context.Context, tenant string, counts map[string]int) error {
	if len(counts) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin profile transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tenant_profiles (tenant, keyword, count) VALUES (?, ?, ?)
		 ON CONFLICT(tenant, keyword) DO UPDATE SET count = count + excluded.count`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare profile statement: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for keyword, count := range counts {
		if keyword == "" || count <= 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, tenant, keyword, count); err != nil {
			return fmt.Errorf("failed to accumulate keyword %q: %w", keyword, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile transaction: %w", err)
	}
	return nil
}

// Keywords returns the tenant's full keyword -> count map.
// Returns an empty map when the tenant has no profile yet.
func (r *ProfileRepo) Keywords(ctx context.Context, tenant string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT keyword, count FROM tenant_profiles WHERE tenant = ?",
		tenant,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]int)
	for rows.Next() {
		var keyword string
		var count int
		if err := rows.Scan(&keyword, &count); err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		counts[keyword] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return counts, nil
}
