package routing

import (
	"regexp"
	"strings"
)

// stopwords excluded from keyword extraction. Domain terms below are exempt
// even when they would otherwise be filtered.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "your": true, "about": true, "have": true,
	"what": true, "which": true, "when": true, "where": true, "will": true,
	"there": true, "into": true, "those": true, "been": true, "being": true,
	"were": true, "are": true, "how": true, "make": true, "made": true,
	"like": true, "such": true, "use": true, "uses": true, "used": true,
	"using": true, "can": true, "you": true, "please": true, "tell": true,
	"more": true, "info": true, "step": true, "steps": true, "process": true,
	"guide": true, "guidance": true, "policy": true, "policies": true,
	"onboarding": true, "onboard": true, "form": true, "forms": true,
}

// domainTerms are always kept as keywords regardless of the stopword list.
var domainTerms = map[string]bool{
	"esmd": true, "fhir": true, "cms": true, "hhs": true,
	"extension": true, "extensions": true, "implementation": true,
	"lob": true, "medicare": true, "medicaid": true, "marketplace": true,
	"icd": true, "cpt": true, "hcpcs": true, "drg": true, "npi": true,
}

const maxKeywords = 8

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_\-]+`)

// ExtractKeywords derives up to 8 salient lowercase tokens from the query.
// Tokens must be at least 3 characters and pass the stopword filter; domain
// terms are exempt from both rules. Order of first occurrence is preserved.
func ExtractKeywords(query string) []string {
	seen := make(map[string]bool)
	keywords := make([]string, 0, maxKeywords)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(query), -1) {
		if seen[tok] {
			continue
		}
		if !domainTerms[tok] && (len(tok) < 3 || stopwords[tok]) {
			continue
		}
		seen[tok] = true
		keywords = append(keywords, tok)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// KeywordCounts tallies profile keywords over document text using the same
// token filters as query extraction, without the 8-token cap. Ingestion
// accumulates these counts into the tenant profile.
func KeywordCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if !domainTerms[tok] && (len(tok) < 3 || stopwords[tok]) {
			continue
		}
		counts[tok]++
	}
	return counts
}

// BuildRetrievalQuery combines the extracted keywords with the original
// query text. This is the string sent to retrieval; the sanitized routing
// text never is.
func BuildRetrievalQuery(query string, keywords []string) string {
	if len(keywords) == 0 {
		return query
	}
	return strings.TrimSpace(query) + " " + strings.Join(keywords, " ")
}

// NormalizeForRouting strips punctuation and stopwords from the text. The
// result is embedded for tenant similarity only; it is never used for
// retrieval or generation.
func NormalizeForRouting(text string) string {
	kept := make([]string, 0, 16)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if stopwords[tok] && !domainTerms[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}
