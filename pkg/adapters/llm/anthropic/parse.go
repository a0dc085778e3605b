package anthropic

import "strings"

// extractJSONArray pulls the outermost JSON array out of a model
// response that may wrap it in prose or a markdown code fence. Returns
// the input unchanged when it already starts with '[' and an empty
// string when no array is present.
func extractJSONArray(s string) string {
	return extract(s, '[', ']')
}

// extractJSONObject is extractJSONArray for objects.
func extractJSONObject(s string) string {
	return extract(s, '{', '}')
}

func extract(s string, open, closing byte) string {
	s = strings.TrimSpace(s)
	if len(s) > 0 && s[0] == open {
		return s
	}
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, closing)
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}
