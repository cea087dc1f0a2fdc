package rank

import (
	"sort"
	"strings"

	"docqa-ai/internal/retrieval"
)

// sidecarSuffix marks derived side-files (table extractions) that cite back
// to their parent document.
const sidecarSuffix = ".tables.txt"

const maxSources = 10

// Source is a per-document citation entry.
type Source struct {
	Filename  string  `json:"filename"`
	Relevance float64 `json:"relevance"`
	Page      int     `json:"page,omitempty"`
	Pages     []int   `json:"pages,omitempty"`
	URL       string  `json:"url,omitempty"`
}

// URLResolver maps a document key back to the URL it was ingested from.
// Lookup should try the normalized path first and fall back to basename.
type URLResolver func(docKey string) (string, bool)

// Aggregate collapses evidence nodes into at most 10 citation entries, one
// per underlying document. Sidecar files are folded into their parent
// document's entry. Within a group the maximum score wins and all page
// numbers are unioned.
func Aggregate(nodes []retrieval.Node, resolveURL URLResolver) []Source {
	type group struct {
		displayName string
		bestScore   float64
		pages       map[int]bool
	}

	groups := make(map[string]*group)
	var order []string
	for _, node := range nodes {
		key := canonicalDocKey(node.DocKey)
		g, ok := groups[key]
		if !ok {
			g = &group{
				displayName: canonicalDocKey(node.DocKey),
				bestScore:   node.Score,
				pages:       make(map[int]bool),
			}
			groups[key] = g
			order = append(order, key)
		} else if node.Score > g.bestScore {
			g.bestScore = node.Score
			g.displayName = canonicalDocKey(node.DocKey)
		}
		if node.Page > 0 {
			g.pages[node.Page] = true
		}
	}

	sources := make([]Source, 0, len(order))
	for _, key := range order {
		g := groups[key]
		src := Source{
			Filename:  g.displayName,
			Relevance: g.bestScore,
		}
		if len(g.pages) > 0 {
			pages := make([]int, 0, len(g.pages))
			for p := range g.pages {
				pages = append(pages, p)
			}
			sort.Ints(pages)
			src.Pages = pages
			src.Page = pages[0]
		}
		if resolveURL != nil {
			if url, ok := resolveURL(key); ok {
				src.URL = url
			}
		}
		sources = append(sources, src)
	}

	// Different doc keys can still render to the same display name; keep
	// the higher-scoring one.
	byName := make(map[string]int)
	deduped := sources[:0]
	for _, src := range sources {
		nameLower := strings.ToLower(src.Filename)
		if i, ok := byName[nameLower]; ok {
			if src.Relevance > deduped[i].Relevance {
				deduped[i] = src
			}
			continue
		}
		byName[nameLower] = len(deduped)
		deduped = append(deduped, src)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Relevance > deduped[j].Relevance
	})
	if len(deduped) > maxSources {
		deduped = deduped[:maxSources]
	}
	return deduped
}

// canonicalDocKey maps a sidecar key back to its parent document key.
func canonicalDocKey(docKey string) string {
	return strings.TrimSuffix(docKey, sidecarSuffix)
}
