package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestScanManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.md"), "beta content")
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha content")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "sub", "c.txt"), "gamma content")

	entries, err := ScanManifest("esmd", dir)
	if err != nil {
		t.Fatalf("ScanManifest() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Path >= entries[i].Path {
			t.Errorf("entries not sorted: %q before %q", entries[i-1].Path, entries[i].Path)
		}
	}
	first := entries[0]
	if first.Tenant != "esmd" {
		t.Errorf("Tenant = %q, want esmd", first.Tenant)
	}
	if filepath.Base(first.Path) != "a.txt" {
		t.Errorf("first path = %q, want a.txt", first.Path)
	}
	if first.Size != int64(len("alpha content")) {
		t.Errorf("Size = %d, want %d", first.Size, len("alpha content"))
	}
	sum := sha256.Sum256([]byte("alpha content"))
	if first.SHA256 != hex.EncodeToString(sum[:]) {
		t.Errorf("SHA256 = %q, want digest of file content", first.SHA256)
	}
}

func TestManifestChanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.md")
	writeFile(t, path, "# Guide\n\noriginal body text")

	prev, err := ScanManifest("esmd", dir)
	if err != nil {
		t.Fatal(err)
	}

	same, err := ScanManifest("esmd", dir)
	if err != nil {
		t.Fatal(err)
	}
	if ManifestChanged(prev, same) {
		t.Error("ManifestChanged() = true for identical scans")
	}

	// Modified content.
	writeFile(t, path, "# Guide\n\nrewritten body text!")
	if err := os.Chtimes(path, time.Now(), time.Now().Add(2*time.Second)); err != nil {
		t.Fatal(err)
	}
	curr, err := ScanManifest("esmd", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !ManifestChanged(prev, curr) {
		t.Error("ManifestChanged() = false after content change")
	}

	// Added file.
	writeFile(t, filepath.Join(dir, "extra.txt"), "new document")
	added, err := ScanManifest("esmd", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !ManifestChanged(curr, added) {
		t.Error("ManifestChanged() = false after file added")
	}

	// Removed file.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	removed, err := ScanManifest("esmd", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !ManifestChanged(added, removed) {
		t.Error("ManifestChanged() = false after file removed")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
