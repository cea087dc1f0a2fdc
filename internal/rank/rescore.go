// Package rank re-orders retrieved evidence with exact-match bonuses and
// collapses it into per-source citations. Retrieval scores favor semantic
// similarity; the bonuses here reward passages that actually contain the
// specific number, code, or phrase the user asked about.
package rank

import (
	"sort"
	"strings"

	"docqa-ai/internal/retrieval"
)

const maxBonus = 2.0

// Rescore returns the nodes re-sorted by base score plus exact-match
// bonuses. The sort is stable, so equal adjusted scores keep their prior
// relative order. Input order is not modified.
func Rescore(nodes []retrieval.Node, query string) []retrieval.Node {
	tokens := ExtractQueryTokens(query)
	var numericTokens []string
	for _, t := range tokens {
		if strings.ContainsAny(t, "0123456789") {
			numericTokens = append(numericTokens, t)
		}
	}
	queryCodes := ExtractMedicalCodes(query)

	var numericVariants []string
	for _, t := range numericTokens {
		numericVariants = append(numericVariants, tokenVariants(t)...)
	}
	for _, c := range queryCodes {
		code := strings.ToLower(c.Code)
		if code == "" {
			continue
		}
		numericVariants = append(numericVariants,
			code,
			"drg "+code, "ms-drg "+code,
			"icd "+code, "icd-10 "+code, "icd10 "+code,
			"cpt "+code, "hcpcs "+code,
		)
	}

	quotedPhrases := QuotedPhrases(query)

	rescored := make([]retrieval.Node, len(nodes))
	copy(rescored, nodes)
	for i := range rescored {
		rescored[i].Score += bonusFor(rescored[i].Text, numericVariants, queryCodes, quotedPhrases)
	}

	sort.SliceStable(rescored, func(i, j int) bool {
		return rescored[i].Score > rescored[j].Score
	})
	return rescored
}

func bonusFor(text string, numericVariants []string, queryCodes []MedicalCode, quotedPhrases []string) float64 {
	tl := strings.ToLower(text)
	bonus := 0.0
	for _, v := range numericVariants {
		if v != "" && strings.Contains(tl, v) {
			bonus += 0.3
		}
	}
	for _, c := range queryCodes {
		code := strings.ToLower(c.Code)
		if code != "" && strings.Contains(tl, code) {
			bonus += 0.5
		}
	}
	for _, qp := range quotedPhrases {
		if qp != "" && strings.Contains(tl, qp) {
			bonus += 0.4
		}
	}
	if bonus > maxBonus {
		bonus = maxBonus
	}
	return bonus
}

// tokenVariants expands a digit-bearing token into the surface forms it
// commonly takes in documents (parenthesized, bracketed, labeled).
func tokenVariants(t string) []string {
	return []string{
		t,
		"(" + t + ")",
		"[" + t + "]",
		"{" + t + "}",
		t + ".",
		"error " + t,
		"code " + t,
		"reason " + t,
		"section " + t,
	}
}

// PassesKeywordGuardrail reports whether any of the top-10 nodes contain at
// least one of the extracted query keywords. A query that produced keywords
// but matches none of its evidence should not reach generation; the caller
// returns a "nothing found" reply instead.
func PassesKeywordGuardrail(nodes []retrieval.Node, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	limit := len(nodes)
	if limit > 10 {
		limit = 10
	}
	for i := 0; i < limit; i++ {
		tl := strings.ToLower(nodes[i].Text)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(tl, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}
