package textmatch

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// SimilarityThreshold is the single cutoff shared by consolidation dedup
// and hallucination validation: two strings are considered equivalent when
// their ratio is strictly greater than this.
const SimilarityThreshold = 85

// Ratio returns a symmetric 0-100 edit-distance-based similarity score.
func Ratio(a, b string) int {
	return fuzzy.Ratio(a, b)
}

// Equivalent reports whether two already-normalized strings score above
// SimilarityThreshold. Callers are expected to Normalize first.
func Equivalent(a, b string) bool {
	return Ratio(a, b) > SimilarityThreshold
}

// ContainsFuzzy reports whether needle fuzzily occurs anywhere in haystack.
// It slides a window of the needle's rune length over haystack and scores
// each substring; rune offsets keep windows aligned on character
// boundaries, which matters because Normalize preserves umlauts.
// Exhaustive by intent: needles are short finding strings and haystacks
// are page-sized, so the quadratic scan is the hallucination guard, not a
// bottleneck.
func ContainsFuzzy(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	hr := []rune(haystack)
	n := len([]rune(needle))
	if n > len(hr) {
		return Equivalent(haystack, needle)
	}
	for i := 0; i+n <= len(hr); i++ {
		if Equivalent(string(hr[i:i+n]), needle) {
			return true
		}
	}
	return false
}
