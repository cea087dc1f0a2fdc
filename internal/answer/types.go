package answer

import "docqa-ai/internal/rank"

// Structured is the allow-listed answer shape returned to callers. The
// model fills the first group of fields; the agent attaches sources and
// routing metadata afterwards.
type Structured struct {
	Intent            string         `json:"intent,omitempty"`
	Summary           string         `json:"summary"`
	DetailedResponse  string         `json:"detailed_response"`
	KeyPoints         []string       `json:"key_points"`
	Suggestions       []string       `json:"suggestions"`
	FollowUpQuestions []string       `json:"follow_up_questions"`
	CodeSnippets      []string       `json:"code_snippets"`
	Codes             []string       `json:"codes"`
	Onboarding        map[string]any `json:"esmd_onboarding"`

	IsDownloadIntent bool          `json:"is_download_intent"`
	Sources          []rank.Source `json:"sources,omitempty"`
	SelectedTenant   string        `json:"selected_tenant,omitempty"`
	PreselectScore   *float64      `json:"tenant_preselect_score,omitempty"`
}

// Conversational is a plain-text reply used when no document evidence is
// involved (small talk, clarification prompts, guardrail rejections).
type Conversational struct {
	IsConversational bool   `json:"is_conversational"`
	Answer           string `json:"answer"`
}
