package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"simple", "Hello World", []string{"hello", "world"}},
		{"whitespace runs", "a  b\t\tc\n\nd", []string{"a", "b", "c", "d"}},
		{"leading and trailing", "   padded   ", []string{"padded"}},
		{"punctuation kept", "Hello, world!", []string{"hello,", "world!"}},
		{"unicode whitespace", "one\u00a0two\u2003three", []string{"one", "two", "three"}},
		{"unicode case", "ÄPFEL Straße", []string{"äpfel", "straße"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}

func TestTokenizeEmpty(t *testing.T) {
	for _, text := range []string{"", " ", "\n\t \r\n"} {
		got := Tokenize(text)
		assert.NotNil(t, got)
		assert.Empty(t, got, "input %q", text)
	}
}

func TestTokenizeCasePreserving(t *testing.T) {
	assert.Equal(t, []string{"The", "Quick", "Fox"}, TokenizeCase("The Quick Fox", false))
	assert.Equal(t, []string{"the", "quick", "fox"}, TokenizeCase("The Quick Fox", true))
}

func TestPunctuationIsSignificant(t *testing.T) {
	tokens := Tokenize("world!")
	assert.NotContains(t, tokens, "world")
	assert.Contains(t, tokens, "world!")
}

func TestWhitespaceImplementsTokenizer(t *testing.T) {
	var tk Tokenizer = Whitespace{}
	assert.Equal(t, []string{"a", "b"}, tk.Tokenize("A b"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hello", Normalize("  HeLLo \n"))
	assert.Equal(t, "", Normalize("   "))
}
