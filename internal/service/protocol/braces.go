package protocol

import "strings"

// FirstJSONObject returns the first balanced {...} substring of s.
// Brace depth is counted so nested objects (prices, contacts) are captured
// whole, and braces inside JSON string literals are ignored. A greedy regex
// cannot do either, which is why this exists.
func FirstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	// Opening brace never closed.
	return "", false
}
