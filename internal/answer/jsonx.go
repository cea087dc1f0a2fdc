package answer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var codeFencePattern = regexp.MustCompile("(?m)^```json\\s*|\\s*```$")

// StripCodeFences removes markdown code-fence markers the model may wrap
// its JSON in.
func StripCodeFences(text string) string {
	return codeFencePattern.ReplaceAllString(text, "")
}

// ExtractFirstJSONObject returns the first top-level {...} span in the
// text, tracking brace depth while ignoring braces inside quoted strings.
// Returns "" when no balanced object exists.
func ExtractFirstJSONObject(text string) string {
	inString := false
	escape := false
	depth := 0
	start := -1
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if escape {
			escape = false
			continue
		}
		switch ch {
		case '\\':
			escape = true
		case '"':
			inString = !inString
		case '{':
			if inString {
				continue
			}
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if inString {
				continue
			}
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}

// EscapeControlChars escapes raw newline, carriage-return, and tab
// characters inside quoted JSON strings. Models routinely emit literal
// line breaks inside string values, which the JSON grammar forbids.
func EscapeControlChars(text string) string {
	var out strings.Builder
	out.Grow(len(text))
	inString := false
	escape := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if escape {
			out.WriteByte(ch)
			escape = false
			continue
		}
		switch ch {
		case '\\':
			out.WriteByte(ch)
			escape = true
		case '"':
			out.WriteByte(ch)
			inString = !inString
		case '\n':
			if inString {
				out.WriteString(`\n`)
			} else {
				out.WriteByte(ch)
			}
		case '\r':
			if inString {
				out.WriteString(`\r`)
			} else {
				out.WriteByte(ch)
			}
		case '\t':
			if inString {
				out.WriteString(`\t`)
			} else {
				out.WriteByte(ch)
			}
		default:
			out.WriteByte(ch)
		}
	}
	return out.String()
}

// ParseModelOutput turns raw model text into a generic JSON object:
// fences stripped, first balanced object extracted, control characters
// escaped, then parsed. Pure; all failure modes come back as errors.
func ParseModelOutput(raw string) (map[string]any, error) {
	cleaned := StripCodeFences(raw)
	jsonStr := ExtractFirstJSONObject(cleaned)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON object found in model output")
	}
	safe := EscapeControlChars(jsonStr)
	var parsed map[string]any
	if err := json.Unmarshal([]byte(safe), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}
	return parsed, nil
}

// Sanitize projects a parsed model object onto the allow-listed response
// shape. Unknown keys are dropped, missing list fields become empty lists,
// and the object field defaults to an empty object.
func Sanitize(parsed map[string]any) *Structured {
	s := &Structured{
		Intent:            asString(parsed["intent"]),
		Summary:           asString(parsed["summary"]),
		DetailedResponse:  asString(parsed["detailed_response"]),
		KeyPoints:         asStringList(parsed["key_points"]),
		Suggestions:       asStringList(parsed["suggestions"]),
		FollowUpQuestions: asStringList(parsed["follow_up_questions"]),
		CodeSnippets:      asStringList(parsed["code_snippets"]),
		Codes:             asStringList(parsed["codes"]),
	}
	if obj, ok := parsed["esmd_onboarding"].(map[string]any); ok {
		s.Onboarding = obj
	} else {
		s.Onboarding = map[string]any{}
	}
	return s
}

func asString(v any) string {
	str, _ := v.(string)
	return str
}

func asStringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if str, ok := item.(string); ok {
			out = append(out, str)
			continue
		}
		// Non-string entries are kept as compact JSON rather than dropped.
		if b, err := json.Marshal(item); err == nil {
			out = append(out, string(b))
		}
	}
	return out
}
