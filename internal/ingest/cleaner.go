package ingest

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"docqa-ai/internal/rank"
)

var (
	hyphenBreakPattern = regexp.MustCompile(`(\w)-\n(\w)`)
	controlPattern     = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F]")
	blankLinesPattern  = regexp.MustCompile(`\n{3,}`)
	hspacePattern      = regexp.MustCompile(`[ \t]{2,}`)
)

// CleanText normalizes extracted document text before chunking: NFKC
// normalization, de-hyphenation across line breaks, control-character
// removal, blank-line collapsing, and a repeated-header/footer heuristic.
// Lines that look like codes are never dropped, whatever their frequency.
func CleanText(text string) string {
	if text == "" {
		return text
	}
	t := norm.NFKC.String(text)
	t = strings.ReplaceAll(t, "\r\n", "\n")
	t = strings.ReplaceAll(t, "\r", "\n")
	t = hyphenBreakPattern.ReplaceAllString(t, "$1$2")
	t = controlPattern.ReplaceAllString(t, " ")
	t = blankLinesPattern.ReplaceAllString(t, "\n\n")

	lines := strings.Split(t, "\n")
	counts := make(map[string]int)
	for _, ln := range lines {
		if key := strings.TrimSpace(ln); key != "" {
			counts[key]++
		}
	}
	kept := lines[:0]
	for _, ln := range lines {
		key := strings.TrimSpace(ln)
		if key != "" && counts[key] >= 3 && len(key) >= 2 && len(key) <= 80 && !isCodeLike(key) {
			continue
		}
		kept = append(kept, ln)
	}
	t = strings.Join(kept, "\n")
	t = hspacePattern.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// isCodeLike reports whether a line carries a recognizable domain code.
func isCodeLike(s string) bool {
	return len(rank.ExtractMedicalCodes(s)) > 0
}
