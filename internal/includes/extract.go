package includes

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/forthls/pkg/token"
)

// Directive is one file-loading phrase in a source file.
type Directive struct {
	Word  string // the loading word as written
	Path  string // the file name as written
	Start int    // character offset of the loading word
	End   int    // character offset just past the file name
}

// parsingLoaders take the file name from the next token.
var parsingLoaders = map[string]bool{
	"include": true,
	"require": true,
	"needs":   true,
	"fload":   true,
}

// stackLoaders take the file name from a preceding S" string.
var stackLoaders = map[string]bool{
	"included": true,
	"required": true,
}

// fold lowercases a word the way the index keys it.
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Extract finds INCLUDE name, REQUIRE name and S" name" INCLUDED phrases.
// Words are matched case-insensitively. A quoted name that spans several
// tokens is rejoined with single spaces.
func Extract(tokens []token.Token) []Directive {
	var out []Directive
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Kind != token.Word {
			continue
		}
		lower := fold(tok.Text)

		if parsingLoaders[lower] {
			if i+1 < len(tokens) && !tokens[i+1].IsComment() {
				next := tokens[i+1]
				out = append(out, Directive{Word: tok.Text, Path: next.Text, Start: tok.Start, End: next.End})
				i++
			}
			continue
		}

		if lower != `s"` {
			continue
		}
		end, path, ok := quoted(tokens, i+1)
		if !ok || end+1 >= len(tokens) {
			continue
		}
		loader := tokens[end+1]
		if loader.Kind == token.Word && stackLoaders[fold(loader.Text)] && path != "" {
			out = append(out, Directive{Word: loader.Text, Path: path, Start: tok.Start, End: loader.End})
			i = end + 1
		}
	}
	return out
}

// quoted collects the tokens of an S" string starting at from. It returns
// the index of the closing token and the string without its quote.
func quoted(tokens []token.Token, from int) (int, string, bool) {
	var parts []string
	for j := from; j < len(tokens); j++ {
		text := tokens[j].Text
		if strings.HasSuffix(text, `"`) {
			parts = append(parts, strings.TrimSuffix(text, `"`))
			return j, strings.TrimSpace(strings.Join(parts, " ")), true
		}
		parts = append(parts, text)
	}
	return 0, "", false
}
