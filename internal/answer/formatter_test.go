package answer

import (
	"context"
	"strings"
	"testing"

	"docqa-ai/internal/llm"
	"docqa-ai/internal/retrieval"
)

type stubCompleter struct {
	response string
	err      error
	prompt   string
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string, params llm.CompleteParams) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

func TestFormatter_Format(t *testing.T) {
	completer := &stubCompleter{
		response: "```json\n{\"summary\": \"Use form CMS-855.\", \"detailed_response\": \"Submit form CMS-855\nby mail.\", \"key_points\": [\"form required\"]}\n```",
	}
	f := NewFormatter(completer, 3500)
	nodes := []retrieval.Node{{Text: "Providers enroll using form CMS-855.", Score: 0.9}}

	got := f.Format(context.Background(), "how do I enroll", nodes, "esmd")
	if got.Summary != "Use form CMS-855." {
		t.Errorf("Summary = %q", got.Summary)
	}
	if !strings.Contains(got.DetailedResponse, "by mail") {
		t.Errorf("DetailedResponse = %q, want multi-line answer preserved", got.DetailedResponse)
	}
	if len(got.KeyPoints) != 1 {
		t.Errorf("KeyPoints = %v", got.KeyPoints)
	}
	if !strings.Contains(completer.prompt, "CONTEXT FROM TENANT 'esmd'") {
		t.Error("prompt missing tenant context header")
	}
	if !strings.Contains(completer.prompt, "Providers enroll using form CMS-855.") {
		t.Error("prompt missing evidence text")
	}
}

func TestFormatter_UnparseableFallsBackToRawText(t *testing.T) {
	completer := &stubCompleter{response: "The answer is forty-two."}
	f := NewFormatter(completer, 3500)

	got := f.Format(context.Background(), "question", nil, "esmd")
	if got.Summary != "Could not format response." {
		t.Errorf("Summary = %q, want parse-failure summary", got.Summary)
	}
	if got.DetailedResponse != "The answer is forty-two." {
		t.Errorf("DetailedResponse = %q, want raw model text", got.DetailedResponse)
	}
}

func TestFormatter_PayloadTooLarge(t *testing.T) {
	completer := &stubCompleter{err: llm.ErrPayloadTooLarge}
	f := NewFormatter(completer, 3500)

	got := f.Format(context.Background(), "question", nil, "esmd")
	if !strings.Contains(got.DetailedResponse, "narrow") {
		t.Errorf("DetailedResponse = %q, want guidance to narrow the query", got.DetailedResponse)
	}
	if got.Summary == "Could not format response." {
		t.Error("payload-too-large must be distinguishable from a parse failure")
	}
}

func TestFormatter_TimeoutDegrades(t *testing.T) {
	completer := &stubCompleter{err: llm.ErrTimeout}
	f := NewFormatter(completer, 3500)

	got := f.Format(context.Background(), "question", nil, "esmd")
	if !strings.Contains(got.Summary, "timed out") {
		t.Errorf("Summary = %q, want timeout message", got.Summary)
	}
}

func TestFormatter_CodesOnlyFallback(t *testing.T) {
	completer := &stubCompleter{response: `{"summary": "Codes listed.", "codes": []}`}
	f := NewFormatter(completer, 3500)
	nodes := []retrieval.Node{{Text: "Applicable codes: 99213 and J0123.", Score: 0.8}}

	got := f.Format(context.Background(), "give me the codes only", nodes, "esmd")
	if len(got.Codes) == 0 {
		t.Fatal("Codes empty, want heuristic fallback from context")
	}
	found := false
	for _, c := range got.Codes {
		if c == "99213" {
			found = true
		}
	}
	if !found {
		t.Errorf("Codes = %v, want to include 99213", got.Codes)
	}
}

func TestFormatter_DownloadIntentFlag(t *testing.T) {
	completer := &stubCompleter{response: `{"summary": "ok"}`}
	f := NewFormatter(completer, 3500)

	got := f.Format(context.Background(), "where can I download the enrollment form", nil, "esmd")
	if !got.IsDownloadIntent {
		t.Error("IsDownloadIntent = false, want true for download query")
	}

	got = f.Format(context.Background(), "explain the appeals timeline", nil, "esmd")
	if got.IsDownloadIntent {
		t.Error("IsDownloadIntent = true for plain question")
	}
}

func TestBuildContext_TruncatesAtBudget(t *testing.T) {
	long := strings.Repeat("evidence text ", 200) // ~2800 chars, ~700 tokens
	nodes := []retrieval.Node{
		{Text: long},
		{Text: long},
		{Text: "never included"},
	}
	got := BuildContext(nodes, 1000)
	if !strings.Contains(got, truncatedMarker) {
		t.Error("BuildContext() missing truncation marker")
	}
	if strings.Contains(got, "never included") {
		t.Error("BuildContext() included node beyond the budget")
	}
	if estimateTokens(got) > 1100 {
		t.Errorf("BuildContext() produced ~%d tokens, want near budget 1000", estimateTokens(got))
	}
}

func TestBuildContext_AllFitNoMarker(t *testing.T) {
	nodes := []retrieval.Node{{Text: "short"}, {Text: "also short"}}
	got := BuildContext(nodes, 3500)
	if strings.Contains(got, truncatedMarker) {
		t.Error("BuildContext() added marker without truncation")
	}
	if got != "short\n\nalso short" {
		t.Errorf("BuildContext() = %q", got)
	}
}
