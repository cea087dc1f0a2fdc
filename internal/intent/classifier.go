// Package intent labels incoming queries so the agent can short-circuit
// small talk and clarification requests before touching retrieval.
package intent

import (
	"regexp"
	"strings"
)

// Type is a query intent label.
type Type string

const (
	SmallTalk Type = "small_talk"
	Clarify   Type = "clarify"
	Download  Type = "download"
	Question  Type = "question"
	Unknown   Type = "unknown"
)

var greetingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(hi|hello|hey|hiya|yo|sup)\b`),
	regexp.MustCompile(`(?i)\b(good\s+(morning|afternoon|evening|night))\b`),
	regexp.MustCompile(`(?i)\b(how\s+are\s+you|what'?s\s+up|whats\s+up)\b`),
}

var downloadKeywords = []string{
	"download", "form", "get", "obtain", "document",
	"file", "pdf", "retrieve", "export",
}

var clarificationPhrases = []string{
	"what do you mean",
	"can you explain",
	"clarify",
	"elaborate",
	"more details",
	"tell me more",
}

// trivialTokens are dropped before deciding whether a query carries any
// content at all.
var trivialTokens = map[string]bool{
	"what": true, "is": true, "the": true, "a": true, "an": true, "of": true, "in": true,
}

var questionWords = map[string]bool{
	"what": true, "where": true, "when": true, "who": true, "how": true, "why": true,
	"which": true, "can": true, "do": true, "does": true, "is": true, "are": true,
}

var wordPattern = regexp.MustCompile(`\w+`)

// Classifier classifies a query into one of the intent types. It is
// stateless and never fails; anything it cannot place becomes Unknown.
type Classifier struct{}

// NewClassifier creates an intent classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns the intent of the query with a confidence value.
// tenantMentioned suppresses the greeting check so that a query naming a
// tenant is never swallowed as small talk (short tenant IDs like "hih"
// would otherwise collide with greeting words).
func (c *Classifier) Classify(query string, tenantMentioned bool) (Type, float64) {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	words := wordPattern.FindAllString(queryLower, -1)

	if !tenantMentioned && len(words) <= 6 {
		for _, pattern := range greetingPatterns {
			if pattern.MatchString(queryLower) {
				return SmallTalk, 0.9
			}
		}
	}

	for _, kw := range downloadKeywords {
		if strings.Contains(queryLower, kw) {
			return Download, 0.85
		}
	}

	if c.isClarification(queryLower, words) {
		return Clarify, 0.8
	}

	if c.isMeaningfulQuestion(queryLower, words) {
		return Question, 0.9
	}

	return Unknown, 0.5
}

func (c *Classifier) isClarification(query string, words []string) bool {
	for _, phrase := range clarificationPhrases {
		if strings.Contains(query, phrase) {
			return true
		}
	}
	// A query made entirely of filler has nothing to answer.
	nonTrivial := 0
	for _, w := range words {
		if !trivialTokens[w] {
			nonTrivial++
		}
	}
	return len(words) > 0 && nonTrivial == 0
}

func (c *Classifier) isMeaningfulQuestion(query string, words []string) bool {
	if len(words) < 2 {
		return false
	}
	for i, w := range words {
		if i >= 3 {
			break
		}
		if questionWords[w] {
			return true
		}
	}
	return strings.Contains(query, "?") || len(words) >= 4
}
