package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON cleans a model response down to its JSON payload. Models
// wrap structured output in markdown fences or prefix it with prose; this
// strips fences and, failing that, cuts from the first brace or bracket to
// its matching close.
func ExtractJSON(response string) string {
	s := strings.TrimSpace(response)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if json.Valid([]byte(s)) {
		return s
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	open := s[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}

// UnmarshalResponse extracts and decodes a model's JSON payload into v.
func UnmarshalResponse(response string, v any) error {
	cleaned := ExtractJSON(response)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("parse model response: %w | raw: %s", err, truncate(cleaned, 300))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
