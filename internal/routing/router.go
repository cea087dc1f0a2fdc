// Package routing selects which tenant's corpus should answer a query.
// The decision blends embedding similarity against tenant descriptors with
// keyword overlap against tenant profiles, with explicit tenant mentions
// overriding both.
package routing

import (
	"context"
	"math"
	"sort"
	"strings"

	"docqa-ai/internal/contextutil"
)

// DecisionKind identifies the outcome of a routing attempt.
type DecisionKind string

const (
	// SingleTenant routes the query to one tenant's engine.
	SingleTenant DecisionKind = "single_tenant"
	// MultiTenant fans retrieval out across explicitly mentioned tenants.
	MultiTenant DecisionKind = "multi_tenant"
	// NeedsDisambiguation asks the caller to prompt the user for a tenant.
	NeedsDisambiguation DecisionKind = "needs_disambiguation"
	// RouterFallback signals best-effort global selection when no score
	// could be computed at all.
	RouterFallback DecisionKind = "router_fallback"
)

// ScoreParts records the per-tenant components of a blended score.
type ScoreParts struct {
	Cosine  float64 `json:"cosine"`
	Overlap float64 `json:"overlap"`
	Blended float64 `json:"blended"`
}

// Trace is diagnostic provenance for a routing decision. It never affects
// correctness.
type Trace struct {
	Keywords       []string              `json:"keywords"`
	RetrievalQuery string                `json:"retrieval_query"`
	Scores         map[string]ScoreParts `json:"scores,omitempty"`
	Path           string                `json:"path"`
}

// Decision is the outcome of routing one query.
type Decision struct {
	Kind           DecisionKind
	Tenant         string
	Tenants        []string
	Score          float64
	Forced         bool
	RetrievalQuery string
	Trace          *Trace
}

// TenantInfo is the routing view of one tenant: its descriptor embedding
// and the keyword set of its profile.
type TenantInfo struct {
	ID         string
	Descriptor []float32
	Keywords   map[string]bool
}

// Embedder is the slice of the embeddings client routing needs.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Router picks a tenant for a query.
type Router struct {
	embedder      Embedder
	aliases       map[string]string // alias (lowercase) -> tenant ID
	alpha         float64
	minConfidence float64
}

// NewRouter creates a router. alpha weights the embedding score against
// keyword overlap; minConfidence is the threshold below which the router
// asks for disambiguation.
func NewRouter(embedder Embedder, aliases map[string]string, alpha, minConfidence float64) *Router {
	if aliases == nil {
		aliases = map[string]string{}
	}
	return &Router{
		embedder:      embedder,
		aliases:       aliases,
		alpha:         alpha,
		minConfidence: minConfidence,
	}
}

// MentionedTenants returns the distinct tenant IDs named in the query,
// either directly or via a configured alias, in lexicographic order.
func (r *Router) MentionedTenants(query string, tenantIDs []string) []string {
	queryLower := strings.ToLower(query)
	found := make(map[string]bool)
	for _, id := range tenantIDs {
		if strings.Contains(queryLower, strings.ToLower(id)) {
			found[id] = true
		}
	}
	byLower := make(map[string]string, len(tenantIDs))
	for _, id := range tenantIDs {
		byLower[strings.ToLower(id)] = id
	}
	for alias, target := range r.aliases {
		if !strings.Contains(queryLower, alias) {
			continue
		}
		if id, ok := byLower[strings.ToLower(target)]; ok {
			found[id] = true
		}
	}
	mentioned := make([]string, 0, len(found))
	for id := range found {
		mentioned = append(mentioned, id)
	}
	sort.Strings(mentioned)
	return mentioned
}

// Route decides which tenant should answer the query. autoSelect makes the
// router fall back to best-effort selection instead of asking the user when
// confidence is low. Route never returns an error: embedding failure
// degrades to keyword-only scoring, and a total scoring failure becomes a
// RouterFallback or NeedsDisambiguation decision.
func (r *Router) Route(ctx context.Context, query string, tenants []TenantInfo, autoSelect bool) Decision {
	logger := contextutil.LoggerFromContext(ctx)

	ids := make([]string, len(tenants))
	byID := make(map[string]TenantInfo, len(tenants))
	for i, t := range tenants {
		ids[i] = t.ID
		byID[t.ID] = t
	}
	sort.Strings(ids)

	keywords := ExtractKeywords(query)
	retrievalQuery := BuildRetrievalQuery(query, keywords)
	trace := &Trace{
		Keywords:       keywords,
		RetrievalQuery: retrievalQuery,
		Scores:         make(map[string]ScoreParts),
	}

	mentioned := r.MentionedTenants(query, ids)
	if len(mentioned) >= 2 {
		trace.Path = "explicit_multi"
		logger.InfoContext(ctx, "explicit multi-tenant mention", "tenants", mentioned)
		return Decision{
			Kind:           MultiTenant,
			Tenants:        mentioned,
			RetrievalQuery: retrievalQuery,
			Trace:          trace,
		}
	}
	if len(mentioned) == 1 {
		trace.Path = "explicit_single"
		logger.InfoContext(ctx, "explicit tenant mention", "tenant", mentioned[0])
		return Decision{
			Kind:           SingleTenant,
			Tenant:         mentioned[0],
			Score:          1.0,
			Forced:         true,
			RetrievalQuery: retrievalQuery,
			Trace:          trace,
		}
	}

	var queryVector []float32
	haveEmbedding := false
	if r.embedder != nil {
		vec, err := r.embedder.EmbedText(ctx, NormalizeForRouting(retrievalQuery))
		if err != nil {
			logger.WarnContext(ctx, "query embedding failed, scoring by keyword overlap only", "error", err)
		} else {
			queryVector = vec
			haveEmbedding = true
		}
	}

	bestTenant := ""
	bestScore := math.Inf(-1)
	scored := false
	for _, id := range ids {
		info := byID[id]

		cosine := 0.0
		if haveEmbedding && len(info.Descriptor) > 0 {
			cosine = cosineSimilarity(queryVector, info.Descriptor)
		}

		overlap := 0.0
		if len(keywords) > 0 && len(info.Keywords) > 0 {
			matches := 0
			for _, kw := range keywords {
				if info.Keywords[kw] {
					matches++
				}
			}
			overlap = float64(matches) / float64(len(keywords))
		}

		var blended float64
		if haveEmbedding {
			blended = r.alpha*cosine + (1-r.alpha)*overlap
		} else {
			blended = overlap
		}
		trace.Scores[id] = ScoreParts{Cosine: cosine, Overlap: overlap, Blended: blended}

		if haveEmbedding || len(keywords) > 0 {
			scored = true
			// Lexicographic tie-break: ids are iterated sorted and only a
			// strictly higher score replaces the leader.
			if blended > bestScore {
				bestScore = blended
				bestTenant = id
			}
		}
	}

	if !scored || bestTenant == "" {
		if autoSelect {
			trace.Path = "fallback"
			logger.WarnContext(ctx, "no routing signal available, falling back to global selection")
			return Decision{Kind: RouterFallback, Tenants: ids, RetrievalQuery: retrievalQuery, Trace: trace}
		}
		trace.Path = "disambiguate"
		return Decision{Kind: NeedsDisambiguation, Tenants: ids, RetrievalQuery: retrievalQuery, Trace: trace}
	}

	if bestScore >= r.minConfidence || autoSelect {
		trace.Path = "blended"
		logger.InfoContext(ctx, "routed by blended score", "tenant", bestTenant, "score", bestScore)
		return Decision{
			Kind:           SingleTenant,
			Tenant:         bestTenant,
			Score:          bestScore,
			RetrievalQuery: retrievalQuery,
			Trace:          trace,
		}
	}

	trace.Path = "disambiguate"
	logger.InfoContext(ctx, "routing confidence below threshold", "best_tenant", bestTenant, "score", bestScore)
	return Decision{Kind: NeedsDisambiguation, Tenants: ids, RetrievalQuery: retrievalQuery, Trace: trace}
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
