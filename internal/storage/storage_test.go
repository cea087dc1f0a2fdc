package storage

import (
	"context"
	"testing"
)

func TestMigrateIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := New(tmpDir + "/test.db")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := Migrate(db); err != nil {
		t.Fatalf("first Migrate() error = %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestChunkRepo_InsertAndGet(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := New(tmpDir + "/test.db")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	ctx := context.Background()
	repo := NewChunkRepo(db)

	chunk := &ChunkRecord{
		ID:         "chunk-1",
		Tenant:     "HIH",
		DocKey:     "documents/HIH/guide.pdf",
		Page:       3,
		ChunkIndex: 0,
		Text:       "Error code 625 indicates a submission failure.",
	}
	if err := repo.Insert(ctx, chunk); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "chunk-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Text != chunk.Text || got.Page != 3 || got.Tenant != "HIH" {
		t.Errorf("GetByID() = %+v, want %+v", got, chunk)
	}

	if _, err := repo.GetByID(ctx, "missing"); err != ErrNotFound {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}

	ids, err := repo.ListIDsByTenant(ctx, "HIH")
	if err != nil {
		t.Fatalf("ListIDsByTenant() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != "chunk-1" {
		t.Errorf("ListIDsByTenant() = %v, want [chunk-1]", ids)
	}

	if err := repo.DeleteByTenant(ctx, "HIH"); err != nil {
		t.Fatalf("DeleteByTenant() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, "chunk-1"); err != ErrNotFound {
		t.Errorf("expected chunk gone after DeleteByTenant, got err = %v", err)
	}
}

func TestProfileRepo_Accumulate(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := New(tmpDir + "/test.db")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	ctx := context.Background()
	repo := NewProfileRepo(db)

	if err := repo.Accumulate(ctx, "HIH", map[string]int{"esmd": 3, "claims": 1}); err != nil {
		t.Fatalf("Accumulate() error = %v", err)
	}
	// Second ingestion accumulates, never resets.
	if err := repo.Accumulate(ctx, "HIH", map[string]int{"esmd": 2, "appeals": 4}); err != nil {
		t.Fatalf("Accumulate() error = %v", err)
	}

	counts, err := repo.Keywords(ctx, "HIH")
	if err != nil {
		t.Fatalf("Keywords() error = %v", err)
	}
	if counts["esmd"] != 5 {
		t.Errorf("esmd count = %d, want 5", counts["esmd"])
	}
	if counts["claims"] != 1 || counts["appeals"] != 4 {
		t.Errorf("unexpected counts: %v", counts)
	}

	other, err := repo.Keywords(ctx, "RC")
	if err != nil {
		t.Fatalf("Keywords() error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected empty profile for unknown tenant, got %v", other)
	}
}

func TestManifestRepo_Replace(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := New(tmpDir + "/test.db")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	ctx := context.Background()
	repo := NewManifestRepo(db)

	first := []ManifestEntry{
		{Path: "documents/HIH/a.pdf", Size: 100, MtimeNS: 1111, SHA256: "aaa"},
		{Path: "documents/HIH/b.txt", Size: 200, MtimeNS: 2222, SHA256: "bbb"},
	}
	if err := repo.Replace(ctx, "HIH", first); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	second := []ManifestEntry{
		{Path: "documents/HIH/a.pdf", Size: 150, MtimeNS: 3333, SHA256: "ccc"},
	}
	if err := repo.Replace(ctx, "HIH", second); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	got, err := repo.List(ctx, "HIH")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("List() returned %d entries, want 1", len(got))
	}
	if got[0].Size != 150 || got[0].SHA256 != "ccc" {
		t.Errorf("List()[0] = %+v, want replaced entry", got[0])
	}
}

func TestCacheRepo_ReplaceAndInvalidate(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := New(tmpDir + "/test.db")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	ctx := context.Background()
	repo := NewCacheRepo(db)

	rec := &CacheRecord{
		Tenant:         "HIH",
		QueryNorm:      "what is error 625?",
		Response:       `{"summary":"v1"}`,
		FileSignatures: `[]`,
		CachedAt:       100.5,
	}
	if err := repo.Put(ctx, rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Same key replaces, no duplicates.
	rec2 := *rec
	rec2.Response = `{"summary":"v2"}`
	if err := repo.Put(ctx, &rec2); err != nil {
		t.Fatalf("Put() replace error = %v", err)
	}

	got, err := repo.Get(ctx, "HIH", "what is error 625?")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Response != `{"summary":"v2"}` {
		t.Errorf("Get() response = %s, want replaced v2", got.Response)
	}

	if err := repo.DeleteTenant(ctx, "HIH"); err != nil {
		t.Fatalf("DeleteTenant() error = %v", err)
	}
	if _, err := repo.Get(ctx, "HIH", "what is error 625?"); err != ErrNotFound {
		t.Errorf("Get() after invalidate error = %v, want ErrNotFound", err)
	}
}

func TestURLMapRepo_Lookup(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := New(tmpDir + "/test.db")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	ctx := context.Background()
	repo := NewURLMapRepo(db)

	if err := repo.Put(ctx, "HIH", "documents/HIH/https_www_cms_gov_page.txt", "https://www.cms.gov/page"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	url, err := repo.Get(ctx, "HIH", "documents/HIH/https_www_cms_gov_page.txt")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if url != "https://www.cms.gov/page" {
		t.Errorf("Get() = %s, want original URL", url)
	}

	url, err = repo.GetByBasename(ctx, "HIH", "https_www_cms_gov_page.txt")
	if err != nil {
		t.Fatalf("GetByBasename() error = %v", err)
	}
	if url != "https://www.cms.gov/page" {
		t.Errorf("GetByBasename() = %s, want original URL", url)
	}

	if _, err := repo.Get(ctx, "HIH", "missing.txt"); err != ErrNotFound {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_UpsertAndList(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := New(tmpDir + "/test.db")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	ctx := context.Background()
	repo := NewDocumentRepo(db)

	doc := &DocumentRecord{
		Tenant:     "RC",
		DocKey:     "documents/RC/handbook.pdf",
		SourceType: SourceTypeFile,
		Title:      "Handbook",
		PageCount:  12,
	}
	if err := repo.Upsert(ctx, doc); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	doc.PageCount = 14
	if err := repo.Upsert(ctx, doc); err != nil {
		t.Fatalf("Upsert() replace error = %v", err)
	}

	docs, err := repo.ListByTenant(ctx, "RC")
	if err != nil {
		t.Fatalf("ListByTenant() error = %v", err)
	}
	if len(docs) != 1 || docs[0].PageCount != 14 {
		t.Errorf("ListByTenant() = %+v, want single replaced doc", docs)
	}

	got, err := repo.GetByKey(ctx, "RC", "documents/RC/handbook.pdf")
	if err != nil {
		t.Fatalf("GetByKey() error = %v", err)
	}
	if got.Title != "Handbook" {
		t.Errorf("GetByKey() title = %s, want Handbook", got.Title)
	}
}
