package answer

import (
	"fmt"
	"strings"

	"docqa-ai/internal/retrieval"
)

// truncatedMarker flags a partially-included context chunk.
const truncatedMarker = "[truncated]"

// estimateTokens approximates the token count of a text. Four characters
// per token is close enough for budgeting context.
func estimateTokens(text string) int {
	return len(text) / 4
}

// BuildContext joins node texts in rank order until the token budget is
// reached. The node that would overflow is included partially and marked,
// then everything lower-ranked is dropped.
func BuildContext(nodes []retrieval.Node, tokenBudget int) string {
	if tokenBudget <= 0 {
		tokenBudget = 3500
	}
	var parts []string
	remaining := tokenBudget
	for _, node := range nodes {
		text := node.Text
		cost := estimateTokens(text)
		if cost <= remaining {
			parts = append(parts, text)
			remaining -= cost
			continue
		}
		if remaining > 0 {
			cut := remaining * 4
			if cut > len(text) {
				cut = len(text)
			}
			parts = append(parts, strings.TrimSpace(text[:cut])+" "+truncatedMarker)
		}
		break
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt renders the generation prompt: strict context-only answering
// with a fixed JSON output shape.
func BuildPrompt(query, contextStr, selectedTenant string) string {
	if strings.TrimSpace(contextStr) == "" {
		contextStr = "No relevant context found."
	}
	return fmt.Sprintf(`You are a professional AI assistant for company employees. Your purpose is to provide accurate information based SOLELY on the provided context.

RULES:
1. NO HALLUCINATIONS: If the answer is not in the CONTEXT below, you MUST state that you could not find the information in the available documents. Do not use any outside knowledge.
2. STRICTLY USE CONTEXT: Base your entire response on the CONTEXT provided.
3. PROFESSIONAL TONE: Frame your answers in a clear, professional, and helpful manner.
4. CODE SNIPPETS: If the context contains any code blocks (e.g., XML, JSON, Python), extract them exactly as they are.

CONTEXT FROM TENANT '%s':
---
%s
---

USER QUERY: "%s"

Based on the rules and context, provide a structured response in a single JSON object.

RESPONSE FORMAT (JSON object only):
{
    "summary": "Concise 1-3 sentence summary based ONLY on the context. If no context, say that.",
    "detailed_response": "Detailed, multi-paragraph answer based ONLY on the context. If no context, state that the information is not in the documents.",
    "key_points": ["List of 3-5 key takeaways from the context. If none, return an empty list."],
    "suggestions": ["List of 2-3 practical next steps based on the context. If none, return an empty list."],
    "follow_up_questions": ["List of 2-3 relevant follow-up questions that can be answered from the context. If none, return an empty list."],
    "code_snippets": [],
    "codes": []
}

IMPORTANT OUTPUT RULES:
- Output MUST be a single valid JSON object and NOTHING else. Do not add headings or lists after the JSON.
- Escape all newlines within string values as \n. Do not include raw line breaks inside JSON strings.`,
		selectedTenant, contextStr, query)
}
