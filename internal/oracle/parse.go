package oracle

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\}|\\[.*?\\])\\s*```")
	bareJSONRe   = regexp.MustCompile(`(?s)(\{.*?\}|\[.*?\])`)
	listPrefixRe = regexp.MustCompile(`^(\d+\.|[-*•])\s*`)
)

// extractJSON pulls the first JSON object or array out of raw model output,
// unwrapping markdown code fences when present.
func extractJSON(text string) (string, bool) {
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) {
		return trimmed, true
	}
	for _, m := range bareJSONRe.FindAllString(text, -1) {
		if json.Valid([]byte(m)) {
			return m, true
		}
	}
	return "", false
}

// ParseList parses model output expected to be a JSON array of strings.
// Falls back to reading numbered or bulleted lines when the output is not
// valid JSON. Items are lowercased and trimmed; blanks are dropped.
func ParseList(text string) []string {
	if raw, ok := extractJSON(text); ok {
		var items []string
		if err := json.Unmarshal([]byte(raw), &items); err == nil {
			return cleanItems(items)
		}
		// Arrays of mixed types still count; pull out the strings.
		var anyItems []any
		if err := json.Unmarshal([]byte(raw), &anyItems); err == nil {
			items = items[:0]
			for _, it := range anyItems {
				if s, ok := it.(string); ok {
					items = append(items, s)
				}
			}
			return cleanItems(items)
		}
	}

	var items []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cleaned := listPrefixRe.ReplaceAllString(line, "")
		cleaned = strings.Trim(cleaned, `"'`)
		if cleaned != "" {
			items = append(items, cleaned)
		}
	}
	return cleanItems(items)
}

// ParseMapping parses model output expected to be a JSON object of string
// pairs. Falls back to "key: value" style lines. Keys and values are
// lowercased and trimmed.
func ParseMapping(text string) map[string]string {
	if raw, ok := extractJSON(text); ok {
		var m map[string]string
		if err := json.Unmarshal([]byte(raw), &m); err == nil {
			out := make(map[string]string, len(m))
			for k, v := range m {
				k = strings.ToLower(strings.TrimSpace(k))
				v = strings.ToLower(strings.TrimSpace(v))
				if k != "" && v != "" {
					out[k] = v
				}
			}
			return out
		}
	}

	out := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, sep := range []string{":", "->", "=", "→"} {
			if idx := strings.Index(line, sep); idx > 0 {
				key := strings.ToLower(strings.Trim(strings.TrimSpace(line[:idx]), `"',`))
				val := strings.ToLower(strings.Trim(strings.TrimSpace(line[idx+len(sep):]), `"',`))
				if key != "" && val != "" {
					out[key] = val
				}
				break
			}
		}
	}
	return out
}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.ToLower(strings.TrimSpace(it))
		if it != "" {
			out = append(out, it)
		}
	}
	return out
}
