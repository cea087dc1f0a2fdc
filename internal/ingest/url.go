package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"docqa-ai/internal/contextutil"
)

var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeURLFilename converts a URL into the filename its fetched content
// is stored under. The mapping is deterministic so the url_map can be
// rebuilt from the URL alone.
func SanitizeURLFilename(rawURL string) string {
	return filenameSanitizer.ReplaceAllString(rawURL, "_") + ".txt"
}

// Fetcher downloads pages from an allow-listed set of domains and stores
// their text content as tenant documents.
type Fetcher struct {
	client         *http.Client
	allowedDomains map[string]bool
}

// NewFetcher creates a fetcher restricted to the given domains.
func NewFetcher(allowedDomains []string) *Fetcher {
	allowed := make(map[string]bool, len(allowedDomains))
	for _, d := range allowedDomains {
		allowed[strings.ToLower(d)] = true
	}
	return &Fetcher{
		client:         &http.Client{Timeout: 30 * time.Second},
		allowedDomains: allowed,
	}
}

// FetchToFile downloads the URL, reduces it to text, and writes it into
// the tenant's document directory. Returns the stored filename.
func (f *Fetcher) FetchToFile(ctx context.Context, rawURL, tenantDir string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	host := strings.ToLower(parsed.Hostname())
	if !f.allowedDomains[host] {
		return "", fmt.Errorf("domain %q is not in the list of allowed domains", host)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	text := body
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		reader := &htmlReader{}
		_, chunks, err := reader.Parse(body, rawURL)
		if err == nil {
			var parts []string
			for _, c := range chunks {
				parts = append(parts, c.Text)
			}
			text = []byte(strings.Join(parts, "\n\n"))
		}
	}
	if len(strings.TrimSpace(string(text))) == 0 {
		return "", fmt.Errorf("no content extracted from URL")
	}

	if err := os.MkdirAll(tenantDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create tenant directory: %w", err)
	}
	filename := SanitizeURLFilename(rawURL)
	path := filepath.Join(tenantDir, filename)
	if err := os.WriteFile(path, text, 0o644); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}

	logger.InfoContext(ctx, "fetched URL into tenant corpus", "url", rawURL, "file", filename)
	return filename, nil
}
