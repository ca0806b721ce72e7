// Package textmatch provides text canonicalization and fuzzy similarity
// scoring. Every loose comparison in the pipeline (dedup, hallucination
// validation) goes through Normalize + Ratio so all stages agree on what
// "the same text" means.
package textmatch

import (
	"regexp"
	"strings"
)

// nonWord matches everything that is not a letter, digit, underscore,
// whitespace or hyphen. Unicode classes keep umlauts intact.
var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)

// Normalize canonicalizes text for loose comparison: non-word characters
// become spaces, runs of whitespace collapse to one space, the result is
// lowercased and trimmed. Idempotent and total.
func Normalize(text string) string {
	s := nonWord.ReplaceAllString(text, " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}
