package token

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// stringClosers map words that start inline text to the suffix that ends it.
var stringClosers = map[string]string{
	`."`:     `"`,
	`s"`:     `"`,
	`c"`:     `"`,
	`s\"`:    `"`,
	`abort"`: `"`,
	`.(`:     `)`,
}

// StringCloser returns the suffix that ends the inline text t opens, as in
// ." hello" or S" file.fs". ok is false when t does not open inline text.
func (t Token) StringCloser() (closer string, ok bool) {
	if t.Kind != Word {
		return "", false
	}
	closer, ok = stringClosers[cases.Lower(language.Und).String(t.Text)]
	return closer, ok
}

// StringEnd returns the index of the token that ends inline text whose
// first token after the opener is tokens[from], or len(tokens) if the text
// never ends. An escaped closer does not end S\" text.
func StringEnd(tokens []Token, from int, closer string) int {
	for j := from; j < len(tokens); j++ {
		text := tokens[j].Text
		if strings.HasSuffix(text, closer) && !strings.HasSuffix(text, `\`+closer) {
			return j
		}
	}
	return len(tokens)
}
