package importer

import "strings"

// ResolveColumn finds the record header matching one of the candidate names.
// Candidates are tried in priority order; a candidate matches a header under
// case-insensitive, whitespace-trimmed equality. The first candidate with a
// match wins, and among multiple matching headers the first encountered wins.
//
// The second return value is false when no candidate matches. Callers treat
// that as a per-row missing-column condition, never as a fatal import error.
func ResolveColumn(headers []string, candidates []string) (string, bool) {
	for _, cand := range candidates {
		want := normalizeHeader(cand)
		for _, h := range headers {
			if normalizeHeader(h) == want {
				return h, true
			}
		}
	}
	return "", false
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
