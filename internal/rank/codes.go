package rank

import (
	"regexp"
	"strings"
)

// MedicalCode is a domain code recognized in text.
type MedicalCode struct {
	Type string
	Code string
}

var (
	// ICD-10-CM: letter + 2 digits, optional dot and up to 4 alphanumerics.
	icd10Pattern = regexp.MustCompile(`(?i)\b([A-TV-Z][0-9]{2}(?:\.[A-Z0-9]{1,4})?)\b`)
	// CPT: 5 digits, leading zeros allowed.
	cptPattern = regexp.MustCompile(`\b(\d{5})\b`)
	// HCPCS Level II: one letter + 4 digits.
	hcpcsPattern = regexp.MustCompile(`(?i)\b([A-VJ-KM-PQRS-T][0-9]{4})\b`)
	// DRG/MS-DRG: 3 digits prefixed by DRG or MS-DRG.
	drgPattern = regexp.MustCompile(`(?i)\b(MS-)?DRG\s*(\d{3})\b`)

	codeTokenPattern  = regexp.MustCompile(`\b[A-Z0-9][A-Z0-9_-]{1,19}\b`)
	digitTokenPattern = regexp.MustCompile(`\b\d{2,6}\b`)

	queryNumberPattern = regexp.MustCompile(`\b\d[\w\-.]*\b`)
	queryWordPattern   = regexp.MustCompile(`[A-Za-z0-9_\-]+`)
	quotedPattern      = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
)

// ExtractMedicalCodes extracts medical and administrative codes from text.
// The patterns are practical approximations, not full code-set validation.
func ExtractMedicalCodes(text string) []MedicalCode {
	if text == "" {
		return nil
	}
	var results []MedicalCode
	for _, m := range icd10Pattern.FindAllStringSubmatch(text, -1) {
		results = append(results, MedicalCode{Type: "ICD10", Code: strings.ToUpper(m[1])})
	}
	for _, m := range cptPattern.FindAllStringSubmatch(text, -1) {
		results = append(results, MedicalCode{Type: "CPT", Code: m[1]})
	}
	for _, m := range hcpcsPattern.FindAllStringSubmatch(text, -1) {
		results = append(results, MedicalCode{Type: "HCPCS", Code: strings.ToUpper(m[1])})
	}
	for _, m := range drgPattern.FindAllStringSubmatch(text, -1) {
		codeType := "DRG"
		if m[1] != "" {
			codeType = "MS-DRG"
		}
		results = append(results, MedicalCode{Type: codeType, Code: m[2]})
	}
	return results
}

// ExtractCodeLikeTokens heuristically pulls code-shaped tokens out of text:
// uppercase alphanumeric identifiers that contain a digit, and bare 2-6
// digit numbers. Used as the codes-only fallback when the model returns no
// codes. Capped at 200 tokens, insertion order preserved.
func ExtractCodeLikeTokens(text string) []string {
	if text == "" {
		return nil
	}
	seen := make(map[string]bool)
	var candidates []string
	for _, tok := range codeTokenPattern.FindAllString(text, -1) {
		if !strings.ContainsAny(tok, "0123456789") {
			continue
		}
		if !seen[tok] {
			seen[tok] = true
			candidates = append(candidates, tok)
		}
	}
	for _, tok := range digitTokenPattern.FindAllString(text, -1) {
		if !seen[tok] {
			seen[tok] = true
			candidates = append(candidates, tok)
		}
	}
	if len(candidates) > 200 {
		candidates = candidates[:200]
	}
	return candidates
}

// ExtractQueryTokens extracts the evidence tokens from a query: quoted
// phrases, digit-bearing tokens, and words of length >= 2 outside a small
// stop-list. All lowercase, deduplicated in first-seen order.
func ExtractQueryTokens(query string) []string {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}
	stop := map[string]bool{
		"what": true, "is": true, "the": true, "a": true, "an": true,
		"and": true, "or": true, "to": true, "from": true, "for": true,
		"why": true, "it": true, "used": true, "use": true, "of": true,
		"in": true, "on": true,
	}
	seen := make(map[string]bool)
	var tokens []string
	add := func(tok string) {
		if tok != "" && !seen[tok] {
			seen[tok] = true
			tokens = append(tokens, tok)
		}
	}
	for _, m := range quotedPattern.FindAllStringSubmatch(q, -1) {
		phrase := m[1]
		if phrase == "" {
			phrase = m[2]
		}
		add(strings.ToLower(strings.TrimSpace(phrase)))
	}
	for _, tok := range queryNumberPattern.FindAllString(q, -1) {
		add(strings.ToLower(tok))
	}
	for _, w := range queryWordPattern.FindAllString(strings.ToLower(q), -1) {
		if len(w) >= 2 && !stop[w] {
			add(w)
		}
	}
	return tokens
}

// QuotedPhrases returns the lowercase contents of "..." and '...' spans.
func QuotedPhrases(query string) []string {
	var phrases []string
	for _, m := range quotedPattern.FindAllStringSubmatch(query, -1) {
		phrase := m[1]
		if phrase == "" {
			phrase = m[2]
		}
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase != "" {
			phrases = append(phrases, phrase)
		}
	}
	return phrases
}
