// Package lexical ranks candidate decisions by token overlap with a query.
// It is the unconditional safety net of the retrieval pipeline: scoring
// never errors and every candidate receives a score, zero included.
package lexical

import "strings"

// Tokenize splits text into lowercase word tokens. Runs of letters and
// digits form a token; everything else separates tokens.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	var tokens []string
	var current strings.Builder
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
			}
			current.Reset()
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// TokenSet returns the distinct tokens of text.
func TokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

// Overlap counts the tokens of text that appear in the query token set.
func Overlap(queryTokens map[string]struct{}, text string) int {
	count := 0
	for tok := range TokenSet(text) {
		if _, ok := queryTokens[tok]; ok {
			count++
		}
	}
	return count
}
