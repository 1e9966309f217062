// Package tokenizer provides text tokenisation for the file indexer.
// Text is split on runs of whitespace and lower-cased. Case folding is the
// only normalisation: punctuation stays attached to its word, so "world!"
// and "world" are distinct tokens. Stemming and stop-word removal are
// deliberately absent.
package tokenizer

import (
	"strings"
)

// Tokenizer splits text into index keys.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Whitespace is the default Tokenizer.
type Whitespace struct{}

// Tokenize implements Tokenizer with case folding enabled.
func (Whitespace) Tokenize(text string) []string {
	return Tokenize(text)
}

func (Whitespace) String() string {
	return "whitespace"
}

// Tokenize breaks text into lower-cased tokens.
func Tokenize(text string) []string {
	return TokenizeCase(text, true)
}

// TokenizeCase breaks text on whitespace runs, lower-casing each token when
// lower is true. Empty or all-whitespace input yields an empty slice.
func TokenizeCase(text string, lower bool) []string {
	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if lower {
			word = strings.ToLower(word)
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// Normalize maps a user-supplied keyword onto the token space.
func Normalize(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}
