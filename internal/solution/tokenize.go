package solution

import "strings"

// stopWords are common English function words excluded from the lexical
// index. Matching against them would only add noise to BM25 scores.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "of": {},
	"in": {}, "on": {}, "for": {}, "to": {}, "with": {},
	"is": {}, "it": {}, "this": {}, "that": {}, "by": {},
	"as": {}, "at": {}, "be": {}, "or": {}, "from": {},
	"are": {}, "was": {}, "were": {},
}

// Tokenize lowercases text, splits on runs of non-alphanumeric (underscore
// kept), and drops single-character tokens and stop words.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := strings.FieldsFunc(lower, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		case r == '_':
			return false
		}
		return true
	})

	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if len(t) <= 1 {
			continue
		}
		if _, stop := stopWords[t]; stop {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

// TermCounts returns per-term frequencies and the total token count
// (minimum 1) for the given text.
func TermCounts(text string) (map[string]int, int) {
	tokens := Tokenize(text)
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	docLength := len(tokens)
	if docLength < 1 {
		docLength = 1
	}
	return counts, docLength
}
