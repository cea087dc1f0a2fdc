package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			tenant TEXT NOT NULL,
			doc_key TEXT NOT NULL,
			source_type TEXT NOT NULL,
			title TEXT,
			domain TEXT,
			original_url TEXT,
			page_count INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (tenant, doc_key)
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			tenant TEXT NOT NULL,
			doc_key TEXT NOT NULL,
			page INTEGER,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_tenant ON chunks(tenant);`,
		`CREATE TABLE IF NOT EXISTS tenant_profiles (
			tenant TEXT NOT NULL,
			keyword TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (tenant, keyword)
		);`,
		`CREATE TABLE IF NOT EXISTS tenant_manifests (
			tenant TEXT NOT NULL,
			path TEXT NOT NULL,
			size INTEGER NOT NULL,
			mtime_ns INTEGER NOT NULL,
			sha256 TEXT NOT NULL,
			PRIMARY KEY (tenant, path)
		);`,
		`CREATE TABLE IF NOT EXISTS tenant_descriptors (
			tenant TEXT PRIMARY KEY,
			embedding BLOB NOT NULL,
			generation INTEGER NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS url_map (
			tenant TEXT NOT NULL,
			path_norm TEXT NOT NULL,
			original_url TEXT NOT NULL,
			PRIMARY KEY (tenant, path_norm)
		);`,
		`CREATE TABLE IF NOT EXISTS response_cache (
			tenant TEXT NOT NULL,
			query_norm TEXT NOT NULL,
			response TEXT NOT NULL,
			file_signatures TEXT NOT NULL,
			cached_at REAL NOT NULL,
			PRIMARY KEY (tenant, query_norm)
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
