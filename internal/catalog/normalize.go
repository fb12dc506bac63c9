package catalog

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes a raw tag name: lowercase, trimmed, quotes and
// punctuation stripped, runs of separators collapsed to a single
// underscore. Two spellings that normalize to the same string are the
// same tag. Returns "" when nothing survives.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == '-':
			pendingSep = true
		default:
			// Quotes and other punctuation vanish without
			// introducing a separator.
		}
	}

	return b.String()
}

// SplitTokens splits a whitespace-separated tag string into normalized
// names, dropping empties and duplicates while preserving first-seen
// order.
func SplitTokens(raw string) []string {
	fields := strings.Fields(raw)
	names := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))

	for _, f := range fields {
		name := Normalize(f)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	return names
}
