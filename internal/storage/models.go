package storage

import "time"

// SourceType identifies how a document entered the system.
const (
	SourceTypeFile    = "file"
	SourceTypeWebpage = "webpage"
)

// DocumentRecord represents one ingested document (a file or a fetched URL).
// The doc_key is the canonical key: the original file path for files, the
// source URL for webpages.
type DocumentRecord struct {
	Tenant      string
	DocKey      string
	SourceType  string // "file" or "webpage"
	Title       string
	Domain      string // web sources only
	OriginalURL string // web sources only
	PageCount   int
	UpdatedAt   time.Time
}

// ChunkRecord represents an indexed chunk of text. The ID doubles as the
// vector store point ID.
type ChunkRecord struct {
	ID         string // UUID (same as vector store point ID)
	Tenant     string
	DocKey     string
	Page       int // 0 when the source has no page structure
	ChunkIndex int // Index within document (starts at 0)
	Text       string
}

// ManifestEntry is one file signature in a tenant's ingestion manifest.
// MtimeNS is the file modification time in nanoseconds since the epoch.
type ManifestEntry struct {
	Tenant  string
	Path    string
	Size    int64
	MtimeNS int64
	SHA256  string
}

// CacheRecord is one persisted response-cache entry. Response and
// FileSignatures hold JSON produced by the respcache package; CachedAt is
// seconds since the epoch.
type CacheRecord struct {
	Tenant         string
	QueryNorm      string
	Response       string
	FileSignatures string
	CachedAt       float64
}
