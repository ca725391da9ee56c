package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func words(texts ...string) []Token {
	tokens := make([]Token, 0, len(texts))
	for _, text := range texts {
		tokens = append(tokens, Token{Kind: Word, Span: Span{Text: text}})
	}
	return tokens
}

func TestToken_StringCloser(t *testing.T) {
	tests := []struct {
		text   string
		closer string
		ok     bool
	}{
		{`."`, `"`, true},
		{`S"`, `"`, true},
		{`Abort"`, `"`, true},
		{`.(`, `)`, true},
		{`dup`, "", false},
	}
	for _, tt := range tests {
		closer, ok := words(tt.text)[0].StringCloser()
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.closer, closer, tt.text)
	}

	_, ok := Token{Kind: Comment, Span: Span{Text: `."`}}.StringCloser()
	assert.False(t, ok, "only words open strings")
}

func TestStringEnd(t *testing.T) {
	assert.Equal(t, 2, StringEnd(words(`."`, "hello", `world"`, "cr"), 1, `"`))
	assert.Equal(t, 3, StringEnd(words(`s\"`, `a\"`, "b", `c"`), 1, `"`), "escaped quote does not close")
	assert.Equal(t, 2, StringEnd(words(`."`, "open"), 1, `"`))
}
