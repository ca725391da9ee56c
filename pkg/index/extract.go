package index

import (
	"github.com/leapstack-labs/forthls/pkg/token"
)

// DefinitionKind distinguishes how a name was introduced.
type DefinitionKind int

// Definition kinds.
const (
	ColonDefinition   DefinitionKind = iota // : name ... ;
	KeywordDefinition                       // VARIABLE name, CONSTANT name, ...
)

// definingKeywords introduce the word that follows them. Matched case-insensitively.
//
// The 2- forms are listed for IsDefiningKeyword callers. The scanner splits
// them into a Number and a Word ("2c" "onstant"), so keywordDefinitions never
// sees them as one token.
var definingKeywords = map[string]struct{}{
	"variable":  {},
	"constant":  {},
	"create":    {},
	"value":     {},
	"2variable": {},
	"2constant": {},
	"2value":    {},
	"fvariable": {},
	"fconstant": {},
	"defer":     {},
	"buffer:":   {},
}

// IsDefiningKeyword reports whether word introduces a new name.
func IsDefiningKeyword(word string) bool {
	_, ok := definingKeywords[normalize(word)]
	return ok
}

// Definition is a name introduced in one token sequence.
type Definition struct {
	Name    string
	Kind    DefinitionKind
	Keyword string // the defining keyword as written, empty for colon definitions
	Start   int    // character offset of the name
	End     int

	// Body is the character range of the whole colon definition, from ':'
	// through ';'. Zero for keyword definitions.
	BodyStart int
	BodyEnd   int

	// sites holds the start offsets of the tokens that make up the name.
	sites []int
}

// ExtractDefinitions finds every definition in tokens: colon definitions
// first, then names following a defining keyword. Names keep their
// original case.
func ExtractDefinitions(tokens []token.Token) []Definition {
	defs := colonDefinitions(tokens)
	return append(defs, keywordDefinitions(tokens)...)
}

// colonDefinitions pairs every Colon with the nearest following Semicolon.
// Nesting is not tracked, and a Colon with no later Semicolon contributes
// nothing.
func colonDefinitions(tokens []token.Token) []Definition {
	var defs []Definition

	for i, tok := range tokens {
		if tok.Kind != token.Colon {
			continue
		}

		end := -1
		for j := i + 1; j < len(tokens); j++ {
			if tokens[j].Kind == token.Semicolon {
				end = j
				break
			}
		}
		if end < 0 {
			continue
		}

		def, ok := extractName(tokens[i : end+1])
		if !ok {
			continue
		}
		def.Kind = ColonDefinition
		def.BodyStart = tok.Start
		def.BodyEnd = tokens[end].End
		defs = append(defs, def)
	}

	return defs
}

// extractName resolves the name right after the Colon in a colon span.
// A Number immediately followed by a Word (2SWAP) forms one name.
func extractName(span []token.Token) (Definition, bool) {
	if len(span) < 2 {
		return Definition{}, false
	}

	first := span[1]
	switch first.Kind {
	case token.Number:
		if len(span) > 2 && span[2].Kind == token.Word && first.Adjacent(span[2]) {
			second := span[2]
			return Definition{
				Name:  first.Text + second.Text,
				Start: first.Start,
				End:   second.End,
				sites: []int{first.Start, second.Start},
			}, true
		}
		return Definition{
			Name:  first.Text,
			Start: first.Start,
			End:   first.End,
			sites: []int{first.Start},
		}, true
	case token.Word:
		return Definition{
			Name:  first.Text,
			Start: first.Start,
			End:   first.End,
			sites: []int{first.Start},
		}, true
	default:
		return Definition{}, false
	}
}

// keywordDefinitions records the Word following each defining keyword.
// It does not check whether the keyword sits inside a colon definition.
func keywordDefinitions(tokens []token.Token) []Definition {
	var defs []Definition

	for i := 0; i+1 < len(tokens); i++ {
		kw := tokens[i]
		if kw.Kind != token.Word || !IsDefiningKeyword(kw.Text) {
			continue
		}

		name := tokens[i+1]
		if name.Kind != token.Word {
			continue
		}

		defs = append(defs, Definition{
			Name:    name.Text,
			Kind:    KeywordDefinition,
			Keyword: kw.Text,
			Start:   name.Start,
			End:     name.End,
			sites:   []int{name.Start},
		})
	}

	return defs
}
