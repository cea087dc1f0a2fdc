package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"docqa-ai/internal/storage"
)

// ScanManifest walks a tenant's document directory and returns the current
// file signatures. Files that cannot be read are skipped; they will surface
// again on the next scan.
func ScanManifest(tenant, dir string) ([]storage.ManifestEntry, error) {
	var entries []storage.ManifestEntry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		sha, err := hashFile(path)
		if err != nil {
			return nil
		}
		entries = append(entries, storage.ManifestEntry{
			Tenant:  tenant,
			Path:    path,
			Size:    info.Size(),
			MtimeNS: info.ModTime().UnixNano(),
			SHA256:  sha,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// ManifestChanged reports whether the two signature lists differ. Any
// added, removed, or modified file counts as a change; a change triggers a
// full rebuild of the tenant's index, never a partial update.
func ManifestChanged(prev, curr []storage.ManifestEntry) bool {
	if len(prev) != len(curr) {
		return true
	}
	prevSet := make(map[string]bool, len(prev))
	for _, e := range prev {
		prevSet[signatureLine(e)] = true
	}
	for _, e := range curr {
		if !prevSet[signatureLine(e)] {
			return true
		}
	}
	return false
}

// signatureLine is the canonical "path|size|mtime|sha256" form of an entry.
func signatureLine(e storage.ManifestEntry) string {
	return fmt.Sprintf("%s|%d|%d|%s", e.Path, e.Size, e.MtimeNS, e.SHA256)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
