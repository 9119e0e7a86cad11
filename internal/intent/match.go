package intent

import (
	"strings"
	"unicode/utf8"
)

// minContainedLen keeps one- and two-letter fragments from matching
// every name that happens to contain them.
const minContainedLen = 3

// MatchName returns the index of the candidate that best matches typed.
// A case-insensitive exact match wins outright; otherwise a candidate that
// contains typed, or is contained by it, is accepted and the one whose
// length is closest to typed is preferred. Earlier candidates win ties.
func MatchName(typed string, candidates []string) (int, bool) {
	t := normalizeName(typed)
	if t == "" {
		return -1, false
	}
	for i, c := range candidates {
		if normalizeName(c) == t {
			return i, true
		}
	}
	best, bestDiff := -1, 0
	for i, c := range candidates {
		n := normalizeName(c)
		if n == "" {
			continue
		}
		if !containsEitherWay(n, t) {
			continue
		}
		diff := utf8.RuneCountInString(n) - utf8.RuneCountInString(t)
		if diff < 0 {
			diff = -diff
		}
		if best < 0 || diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	return best, best >= 0
}

func containsEitherWay(a, b string) bool {
	if utf8.RuneCountInString(b) >= minContainedLen && strings.Contains(a, b) {
		return true
	}
	return utf8.RuneCountInString(a) >= minContainedLen && strings.Contains(b, a)
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
