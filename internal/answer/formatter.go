// Package answer turns ranked evidence into the structured JSON response.
// The generative model only phrases the answer; everything it returns is
// re-parsed and sanitized before a caller sees it.
package answer

import (
	"context"
	"errors"
	"strings"

	"docqa-ai/internal/contextutil"
	"docqa-ai/internal/llm"
	"docqa-ai/internal/rank"
	"docqa-ai/internal/retrieval"
)

var codesOnlyPhrases = []string{
	"only code", "only codes", "just code", "just codes", "codes only",
}

var downloadIntentKeywords = []string{
	"download", "form", "get", "obtain", "document",
}

// Completer is the slice of the LLM client the formatter needs.
type Completer interface {
	Complete(ctx context.Context, prompt string, params llm.CompleteParams) (string, error)
}

// Formatter generates and sanitizes structured responses.
type Formatter struct {
	completer        Completer
	maxContextTokens int
}

// NewFormatter creates a formatter with the given context token budget.
func NewFormatter(completer Completer, maxContextTokens int) *Formatter {
	if maxContextTokens <= 0 {
		maxContextTokens = 3500
	}
	return &Formatter{
		completer:        completer,
		maxContextTokens: maxContextTokens,
	}
}

// Format produces a structured answer from the evidence. It never returns
// an error: generation and parsing failures come back as degraded
// responses that tell the user what went wrong.
func (f *Formatter) Format(ctx context.Context, query string, nodes []retrieval.Node, selectedTenant string) *Structured {
	logger := contextutil.LoggerFromContext(ctx)

	contextStr := BuildContext(nodes, f.maxContextTokens)
	prompt := BuildPrompt(query, contextStr, selectedTenant)

	queryLower := strings.ToLower(query)
	wantsOnlyCodes := false
	for _, phrase := range codesOnlyPhrases {
		if strings.Contains(queryLower, phrase) {
			wantsOnlyCodes = true
			break
		}
	}

	raw, err := f.completer.Complete(ctx, prompt, llm.CompleteParams{Temperature: 0.1})
	if err != nil {
		logger.ErrorContext(ctx, "generation failed", "tenant", selectedTenant, "error", err)
		return degradedResponse(err)
	}

	parsed, err := ParseModelOutput(raw)
	if err != nil {
		preview := raw
		if len(preview) > 200 {
			preview = preview[:200]
		}
		logger.ErrorContext(ctx, "model output not parseable as JSON", "error", err, "preview", preview)
		return &Structured{
			Summary:           "Could not format response.",
			DetailedResponse:  raw,
			KeyPoints:         []string{},
			Suggestions:       []string{},
			FollowUpQuestions: []string{},
			CodeSnippets:      []string{},
			Codes:             []string{},
			Onboarding:        map[string]any{},
		}
	}

	s := Sanitize(parsed)
	if wantsOnlyCodes && len(s.Codes) == 0 {
		s.Codes = rank.ExtractCodeLikeTokens(contextStr)
		if s.Codes == nil {
			s.Codes = []string{}
		}
	}
	s.IsDownloadIntent = isDownloadIntent(queryLower, s.Intent)
	return s
}

func isDownloadIntent(queryLower, modelIntent string) bool {
	if strings.EqualFold(modelIntent, "download") {
		return true
	}
	for _, kw := range downloadIntentKeywords {
		if strings.Contains(queryLower, kw) {
			return true
		}
	}
	return false
}

// degradedResponse maps generation failures to fixed user-facing answers,
// distinguishing oversized context from everything else.
func degradedResponse(err error) *Structured {
	s := &Structured{
		KeyPoints:         []string{},
		Suggestions:       []string{},
		FollowUpQuestions: []string{},
		CodeSnippets:      []string{},
		Codes:             []string{},
		Onboarding:        map[string]any{},
	}
	switch {
	case errors.Is(err, llm.ErrPayloadTooLarge):
		s.Summary = "The request was too large to process."
		s.DetailedResponse = "The documents matched by your question exceed the model's context limit even after truncation. Please narrow your question, for example by naming a specific document, code, or section."
	case errors.Is(err, llm.ErrTimeout):
		s.Summary = "The request timed out."
		s.DetailedResponse = "The answer could not be generated in time. Please try again, or ask a narrower question."
	default:
		s.Summary = "Could not generate a response."
		s.DetailedResponse = "An error occurred while generating the answer. Please try again."
	}
	return s
}
