package lsp

import (
	"github.com/leapstack-labs/forthls/pkg/index"
	"github.com/leapstack-labs/forthls/pkg/token"
)

// Semantic token types, indexes into semanticLegend.TokenTypes.
const (
	semKeyword uint32 = iota
	semFunction
	semComment
	semNumber
	semVariable
	semString
)

// Semantic token modifier bits.
const (
	semDefinition uint32 = 1 << iota
	semDefaultLibrary
)

var semanticLegend = SemanticTokensLegend{
	TokenTypes:     []string{"keyword", "function", "comment", "number", "variable", "string"},
	TokenModifiers: []string{"definition", "defaultLibrary"},
}

// controlWords are highlighted as keywords.
var controlWords = map[string]bool{
	"if": true, "else": true, "then": true,
	"do": true, "?do": true, "loop": true, "+loop": true, "leave": true, "unloop": true,
	"begin": true, "while": true, "repeat": true, "until": true, "again": true,
	"case": true, "of": true, "endof": true, "endcase": true,
	"exit": true, "recurse": true, "does>": true, "immediate": true,
}

// semanticBuilder encodes tokens in the relative form LSP expects.
type semanticBuilder struct {
	doc      *Document
	data     []uint32
	prevLine int
	prevCol  int
}

// add encodes the characters start..end, split per line.
func (b *semanticBuilder) add(span token.Span, typ, mods uint32) {
	start := b.doc.Lines.OffsetToPosition(span.Start)
	end := b.doc.Lines.OffsetToPosition(span.End)
	if start.Line == end.Line {
		b.push(start, span.Len(), typ, mods)
		return
	}

	for line := start.Line; line <= end.Line; line++ {
		from := b.doc.Lines.PositionToOffset(token.Position{Line: line})
		if line == start.Line {
			from = span.Start
		}
		to := span.End
		if line < end.Line {
			to = b.doc.Lines.PositionToOffset(token.Position{Line: line + 1}) - 1
		}
		b.push(b.doc.Lines.OffsetToPosition(from), to-from, typ, mods)
	}
}

func (b *semanticBuilder) push(pos token.Position, length int, typ, mods uint32) {
	if length <= 0 {
		return
	}
	deltaCol := pos.Column
	if pos.Line == b.prevLine {
		deltaCol -= b.prevCol
	}
	//nolint:gosec // G115: positions and lengths are never negative
	b.data = append(b.data, uint32(pos.Line-b.prevLine), uint32(deltaCol), uint32(length), typ, mods)
	b.prevLine, b.prevCol = pos.Line, pos.Column
}

// getSemanticTokens classifies every token of a document.
func (s *Server) getSemanticTokens(params SemanticTokensParams) *SemanticTokens {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return &SemanticTokens{Data: []uint32{}}
	}

	b := &semanticBuilder{doc: doc, data: []uint32{}}
	tokens := doc.Tokens
	naming := false // a defining keyword precedes the next word

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		span := tok.Span
		text := tok.Text
		joined := false
		if tok.Kind == token.Number && i+1 < len(tokens) && tokens[i+1].Kind == token.Word && tok.Adjacent(tokens[i+1]) {
			span = token.Span{Start: tok.Start, End: tokens[i+1].End, Text: tok.Text + tokens[i+1].Text}
			text = span.Text
			joined = true
		}

		switch {
		case tok.Kind == token.Colon:
			b.add(span, semKeyword, 0)
			if i+1 < len(tokens) && (tokens[i+1].Kind == token.Word || tokens[i+1].Kind == token.Number) {
				name := tokens[i+1].Span
				if tokens[i+1].Kind == token.Number && i+2 < len(tokens) && tokens[i+2].Kind == token.Word && name.End == tokens[i+2].Start {
					name = token.Span{Start: name.Start, End: tokens[i+2].End}
					i++
				}
				b.add(name, semFunction, semDefinition)
				i++
			}
			naming = false
			continue

		case tok.Kind == token.Semicolon:
			b.add(span, semKeyword, 0)

		case tok.Kind == token.Comment:
			b.add(span, semComment, 0)

		case tok.Kind == token.StackComment:
			b.add(span, semString, 0)

		case tok.Kind == token.Word && naming:
			b.add(span, semVariable, semDefinition)
			naming = false
			continue

		case tok.Kind == token.Word:
			if closer, ok := tok.StringCloser(); ok {
				b.add(span, semKeyword, 0)
				end := min(token.StringEnd(tokens, i+1, closer), len(tokens)-1)
				if end > i {
					b.add(token.Span{Start: tokens[i+1].Start, End: tokens[end].End}, semString, 0)
					i = end
				}
				continue
			}
			s.addWord(b, span, text)

		case joined && (controlWords[fold(text)] || index.IsDefiningKeyword(text) || s.vocab.Contains(text) || s.index.IsDefined(text)):
			s.addWord(b, span, text)
			i++

		case tok.Kind == token.Number:
			b.add(span, semNumber, 0)
		}

		naming = (tok.Kind == token.Word || joined) && index.IsDefiningKeyword(text)
	}

	return &SemanticTokens{Data: b.data}
}

// addWord classifies a word that is not a definition name.
func (s *Server) addWord(b *semanticBuilder, span token.Span, text string) {
	switch {
	case controlWords[fold(text)] || index.IsDefiningKeyword(text):
		b.add(span, semKeyword, 0)
	case s.vocab.Contains(text):
		b.add(span, semVariable, semDefaultLibrary)
	default:
		b.add(span, semVariable, 0)
	}
}
