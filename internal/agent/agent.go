// Package agent orchestrates the full question-answering flow: intent
// classification, tenant routing, retrieval, evidence re-scoring, source
// aggregation, response formatting, and the response cache. Every public
// operation converts internal failures into a structured reply; nothing
// propagates as an unhandled error to the HTTP layer.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"docqa-ai/internal/answer"
	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/ingest"
	"docqa-ai/internal/intent"
	"docqa-ai/internal/llm"
	"docqa-ai/internal/rank"
	"docqa-ai/internal/respcache"
	"docqa-ai/internal/retrieval"
	"docqa-ai/internal/routing"
	"docqa-ai/internal/storage"
	"docqa-ai/internal/tenant"
)

const defaultTopK = 10

// autoSelectFlag in a query asks for best-effort routing instead of a
// disambiguation prompt on low confidence.
const autoSelectFlag = "[AUTO]"

// ambiguousKeywords force a tenant-selection prompt when the query names no
// tenant: these terms mean different things in different tenants' corpora.
var ambiguousKeywords = []string{"onboard", "onboarding", "form"}

const (
	noDocumentsReply  = "The agent is not configured yet. Please upload some documents to begin."
	smallTalkReply    = "Hello! How can I help you today?"
	clarifyReply      = "Could you share a bit more detail about what you would like to know?"
	noEvidenceReply   = "I'm sorry, but I couldn't find any relevant information in the documents for your query. Please try asking in a different way."
	unknownTenantTmpl = "I don't have any documents for '%s'. Please pick one of the available tenants."
)

// SelectionPrompt asks the caller to have the user pick a tenant.
type SelectionPrompt struct {
	NeedsTenantSelection bool     `json:"needs_tenant_selection"`
	Tenants              []string `json:"tenants"`
	OriginalQuery        string   `json:"original_query"`
}

// IngestResult reports a batch ingestion outcome. Errors are per-file; one
// bad file never aborts the rest of the batch.
type IngestResult struct {
	Saved  []string `json:"saved_files"`
	Errors []string `json:"errors"`
}

// TenantStats summarizes one tenant for the stats endpoint.
type TenantStats struct {
	ID          string   `json:"id"`
	Documents   int      `json:"documents"`
	Generation  int      `json:"index_generation"`
	TopKeywords []string `json:"top_keywords"`
}

// Stats is the service-wide stats payload.
type Stats struct {
	Tenants        []TenantStats `json:"tenants"`
	TotalDocuments int           `json:"total_documents"`
}

// Agent wires the pipeline components together. All collaborators are
// injected so tests can substitute fakes.
type Agent struct {
	registry   *tenant.Registry
	router     *routing.Router
	classifier *intent.Classifier
	formatter  *answer.Formatter
	cache      *respcache.Cache
	completer  answer.Completer
	fetcher    *ingest.Fetcher
	urlmap     storage.URLMapStore
	topK       int
}

// New creates an agent. topK bounds how many nodes each tenant retrieval
// returns; zero or negative means the default of 10.
func New(
	registry *tenant.Registry,
	router *routing.Router,
	classifier *intent.Classifier,
	formatter *answer.Formatter,
	cache *respcache.Cache,
	completer answer.Completer,
	fetcher *ingest.Fetcher,
	urlmap storage.URLMapStore,
	topK int,
) *Agent {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Agent{
		registry:   registry,
		router:     router,
		classifier: classifier,
		formatter:  formatter,
		cache:      cache,
		completer:  completer,
		fetcher:    fetcher,
		urlmap:     urlmap,
		topK:       topK,
	}
}

// ClassifyIntent labels the query. A mentioned tenant suppresses the
// greeting check so "hi" inside a tenant name never reads as small talk.
func (a *Agent) ClassifyIntent(query string) (intent.Type, float64) {
	mentioned := a.router.MentionedTenants(query, a.registry.Tenants())
	return a.classifier.Classify(query, len(mentioned) > 0)
}

// GetResponse answers a query. The result is always a JSON document: a
// structured answer, a conversational reply, or a tenant-selection prompt.
// tenantID, when non-empty, forces routing to that tenant (the caller's
// answer to an earlier selection prompt).
func (a *Agent) GetResponse(ctx context.Context, query, tenantID string) json.RawMessage {
	logger := contextutil.LoggerFromContext(ctx)

	autoSelect := strings.Contains(query, autoSelectFlag)
	if autoSelect {
		query = strings.TrimSpace(strings.ReplaceAll(query, autoSelectFlag, ""))
	}

	tenants := a.registry.Tenants()
	if len(tenants) == 0 {
		return marshalReply(ctx, answer.Conversational{IsConversational: true, Answer: noDocumentsReply})
	}
	if tenantID != "" {
		if _, ok := a.registry.Engine(tenantID); !ok {
			return marshalReply(ctx, answer.Conversational{
				IsConversational: true,
				Answer:           fmt.Sprintf(unknownTenantTmpl, tenantID),
			})
		}
	}

	mentioned := a.router.MentionedTenants(query, tenants)
	tenantNamed := len(mentioned) > 0 || tenantID != ""

	kind, confidence := a.classifier.Classify(query, tenantNamed)
	logger.Info("query classified", "intent", string(kind), "confidence", confidence)
	switch kind {
	case intent.SmallTalk:
		return marshalReply(ctx, answer.Conversational{IsConversational: true, Answer: smallTalkReply})
	case intent.Clarify:
		return marshalReply(ctx, answer.Conversational{IsConversational: true, Answer: clarifyReply})
	}

	if !autoSelect && !tenantNamed && containsAny(strings.ToLower(query), ambiguousKeywords) {
		logger.Info("ambiguous query, asking for tenant selection")
		return marshalReply(ctx, SelectionPrompt{NeedsTenantSelection: true, Tenants: tenants, OriginalQuery: query})
	}

	for _, t := range cacheTenants(tenantID, tenants) {
		if cached, ok := a.cache.Get(ctx, t, query); ok {
			logger.Info("serving cached response", "tenant", t)
			return cached
		}
	}

	decision := a.route(ctx, query, tenantID, tenants, autoSelect)
	if decision.Kind == routing.NeedsDisambiguation {
		return marshalReply(ctx, SelectionPrompt{NeedsTenantSelection: true, Tenants: tenants, OriginalQuery: query})
	}

	routed := decision.Tenants
	if decision.Kind == routing.SingleTenant {
		routed = []string{decision.Tenant}
	}
	if decision.Kind == routing.RouterFallback {
		routed = tenants
	}

	nodes := a.retrieve(ctx, decision.RetrievalQuery, routed)
	if len(nodes) == 0 {
		logger.Warn("no evidence retrieved", "query_prefix", preview(query), "tenants", routed)
		return marshalReply(ctx, answer.Conversational{IsConversational: true, Answer: noEvidenceReply})
	}

	nodes = rank.Rescore(nodes, query)
	if !rank.PassesKeywordGuardrail(nodes, routing.ExtractKeywords(query)) {
		logger.Warn("keyword guardrail rejected evidence", "query_prefix", preview(query))
		return marshalReply(ctx, answer.Conversational{IsConversational: true, Answer: noEvidenceReply})
	}

	selectedTenant := strings.Join(routed, ",")
	if decision.Kind == routing.RouterFallback {
		selectedTenant = fallbackTenant(nodes)
	}

	structured := a.formatter.Format(ctx, query, nodes, selectedTenant)
	structured.Sources = rank.Aggregate(nodes, a.urlResolver(ctx, routed))
	structured.SelectedTenant = selectedTenant
	if decision.Kind == routing.SingleTenant {
		score := math.Round(decision.Score*1000) / 1000
		structured.PreselectScore = &score
	}

	raw := marshalReply(ctx, structured)
	a.cacheStructured(ctx, query, structured, raw)
	return raw
}

// CacheResponse stores a previously returned structured response under its
// selected tenant and the normalized query. Failures are logged, not
// returned: the cache is derived state.
func (a *Agent) CacheResponse(ctx context.Context, query string, response json.RawMessage) {
	var structured answer.Structured
	if err := json.Unmarshal(response, &structured); err != nil {
		contextutil.LoggerFromContext(ctx).Warn("uncacheable response payload", "error", err)
		return
	}
	a.cacheStructured(ctx, query, &structured, response)
}

// IngestFile saves one uploaded file into the tenant's document directory
// and rebuilds the tenant's index when the corpus changed.
func (a *Agent) IngestFile(ctx context.Context, tenantID, filename string, content []byte) *IngestResult {
	logger := contextutil.LoggerFromContext(ctx)
	result := &IngestResult{}

	name := filepath.Base(filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		result.Errors = append(result.Errors, "missing filename")
		return result
	}
	dir := a.registry.TenantDir(tenantID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to create tenant directory: %v", err))
		return result
	}
	if err := os.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to save %s: %v", name, err))
		return result
	}
	result.Saved = append(result.Saved, name)

	a.refresh(ctx, tenantID, result)
	logger.Info("file ingested", "tenant", tenantID, "file", name, "errors", len(result.Errors))
	return result
}

// IngestURL fetches an allow-listed URL into the tenant's document
// directory as a text file, records the URL mapping for citations, and
// rebuilds the tenant's index.
func (a *Agent) IngestURL(ctx context.Context, tenantID, rawURL string) *IngestResult {
	logger := contextutil.LoggerFromContext(ctx)
	result := &IngestResult{}

	filename, err := a.fetcher.FetchToFile(ctx, rawURL, a.registry.TenantDir(tenantID))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to ingest URL %s: %v", rawURL, err))
		return result
	}
	result.Saved = append(result.Saved, filename)

	if err := a.urlmap.Put(ctx, tenantID, strings.ToLower(filename), rawURL); err != nil {
		logger.Warn("failed to record URL mapping", "tenant", tenantID, "file", filename, "error", err)
	}

	a.refresh(ctx, tenantID, result)
	logger.Info("url ingested", "tenant", tenantID, "url", rawURL, "file", filename)
	return result
}

var rephraseSuggestionsPattern = regexp.MustCompile(`(?s)\{\s*"suggestions"\s*:\s*\[.*\]\s*\}`)

// Rephrase asks the model for three alternative phrasings of the query.
// Any failure yields an empty suggestion list.
func (a *Agent) Rephrase(ctx context.Context, query string) []string {
	logger := contextutil.LoggerFromContext(ctx)
	prompt := fmt.Sprintf("Rephrase the following user query in 3 different ways to improve search results. "+
		"Return ONLY a single JSON object with a \"suggestions\" key containing a list of strings.\n\n"+
		"ORIGINAL QUERY: %q", query)

	text, err := a.completer.Complete(ctx, prompt, llm.CompleteParams{Temperature: 0.7})
	if err != nil {
		logger.Error("rephrase completion failed", "error", err)
		return []string{}
	}
	match := rephraseSuggestionsPattern.FindString(text)
	if match == "" {
		logger.Error("no suggestions object in rephrase output", "preview", preview(text))
		return []string{}
	}
	var parsed struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		logger.Error("failed to parse rephrase output", "error", err)
		return []string{}
	}
	if parsed.Suggestions == nil {
		return []string{}
	}
	return parsed.Suggestions
}

// GetStats reports per-tenant document counts and profile highlights.
func (a *Agent) GetStats(ctx context.Context) *Stats {
	logger := contextutil.LoggerFromContext(ctx)
	stats := &Stats{Tenants: []TenantStats{}}
	for _, t := range a.registry.Tenants() {
		ts := TenantStats{ID: t, Generation: a.registry.Generation(t), TopKeywords: []string{}}
		count, err := a.registry.DocumentCount(ctx, t)
		if err != nil {
			logger.Warn("failed to count documents", "tenant", t, "error", err)
		}
		ts.Documents = count
		if top, err := a.registry.TopKeywords(ctx, t, 10); err == nil {
			ts.TopKeywords = top
		}
		stats.Tenants = append(stats.Tenants, ts)
		stats.TotalDocuments += count
	}
	return stats
}

// Tenants lists the tenant IDs the agent can answer for.
func (a *Agent) Tenants() []string {
	return a.registry.Tenants()
}

// route resolves the routing decision, honoring an explicit tenantID from
// the caller over the router's scoring.
func (a *Agent) route(ctx context.Context, query, tenantID string, tenants []string, autoSelect bool) routing.Decision {
	if tenantID != "" {
		keywords := routing.ExtractKeywords(query)
		return routing.Decision{
			Kind:           routing.SingleTenant,
			Tenant:         tenantID,
			Score:          1.0,
			Forced:         true,
			RetrievalQuery: routing.BuildRetrievalQuery(query, keywords),
		}
	}
	infos, err := a.registry.TenantInfos(ctx)
	if err != nil {
		contextutil.LoggerFromContext(ctx).Error("failed to load tenant routing info", "error", err)
		infos = nil
		for _, t := range tenants {
			infos = append(infos, routing.TenantInfo{ID: t})
		}
	}
	return a.router.Route(ctx, query, infos, autoSelect)
}

// retrieve fans retrieval out over the routed tenants and unions the
// results. Per-tenant failures are logged and skipped.
func (a *Agent) retrieve(ctx context.Context, retrievalQuery string, routed []string) []retrieval.Node {
	logger := contextutil.LoggerFromContext(ctx)
	var nodes []retrieval.Node
	for _, t := range routed {
		eng, ok := a.registry.Engine(t)
		if !ok {
			logger.Warn("no engine for routed tenant", "tenant", t)
			continue
		}
		tenantNodes, err := eng.Retrieve(ctx, retrievalQuery, a.topK)
		if err != nil {
			logger.Error("retrieval failed", "tenant", t, "error", err)
			continue
		}
		nodes = append(nodes, tenantNodes...)
	}
	return nodes
}

// urlResolver maps a document key back to its original source URL for
// citations, trying each routed tenant's URL map by normalized path and
// then by basename.
func (a *Agent) urlResolver(ctx context.Context, routed []string) rank.URLResolver {
	return func(docKey string) (string, bool) {
		base := filepath.Base(docKey)
		for _, t := range routed {
			if u, err := a.urlmap.Get(ctx, t, strings.ToLower(base)); err == nil {
				return u, true
			}
			if u, err := a.urlmap.GetByBasename(ctx, t, base); err == nil {
				return u, true
			}
		}
		return "", false
	}
}

// cacheStructured writes a structured answer through to the response cache
// keyed by its selected tenant, with signatures of the cited source files.
func (a *Agent) cacheStructured(ctx context.Context, query string, structured *answer.Structured, raw json.RawMessage) {
	if structured.SelectedTenant == "" {
		return
	}
	var paths []string
	for _, src := range structured.Sources {
		paths = append(paths, a.sourcePaths(src.Filename)...)
	}
	if err := a.cache.Put(ctx, structured.SelectedTenant, query, raw, paths); err != nil {
		contextutil.LoggerFromContext(ctx).Warn("failed to cache response", "error", err)
	}
}

// sourcePaths resolves a cited filename to the on-disk paths backing it, so
// cache validity can track the actual files.
func (a *Agent) sourcePaths(filename string) []string {
	if filename == "" {
		return nil
	}
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return []string{filename}
		}
		return nil
	}
	var paths []string
	for _, t := range a.registry.Tenants() {
		p := filepath.Join(a.registry.TenantDir(t), filepath.Base(filename))
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	}
	return paths
}

// refresh re-syncs one tenant after an ingestion and drops its cache
// partition when the index was rebuilt.
func (a *Agent) refresh(ctx context.Context, tenantID string, result *IngestResult) {
	logger := contextutil.LoggerFromContext(ctx)
	rebuilt, err := a.registry.EnsureFresh(ctx, tenantID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to rebuild index: %v", err))
		return
	}
	if rebuilt {
		if err := a.cache.Invalidate(ctx, tenantID); err != nil {
			logger.Warn("failed to invalidate cache", "tenant", tenantID, "error", err)
		}
	}
}

// fallbackTenant attributes a best-effort multi-tenant answer to the tenant
// of its strongest evidence node.
func fallbackTenant(nodes []retrieval.Node) string {
	if len(nodes) == 0 {
		return "default"
	}
	best := nodes[0]
	for _, n := range nodes[1:] {
		if n.Score > best.Score {
			best = n
		}
	}
	if best.Tenant == "" {
		return "default"
	}
	return best.Tenant
}

// cacheTenants orders the cache lookup: an explicit tenant first, then all
// tenants, because a prior multi-tenant answer is keyed by the joined set.
func cacheTenants(tenantID string, tenants []string) []string {
	if tenantID != "" {
		return []string{tenantID}
	}
	return tenants
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// preview bounds logged query/output text so documents never leak into
// logs wholesale.
func preview(s string) string {
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}

func marshalReply(ctx context.Context, v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		contextutil.LoggerFromContext(ctx).Error("failed to marshal reply", "error", err)
		return json.RawMessage(`{"summary":"Error","detailed_response":"I encountered an error processing your request."}`)
	}
	return raw
}
