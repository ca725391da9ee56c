package lsp

import (
	"sort"

	"github.com/leapstack-labs/forthls/pkg/index"
	"github.com/leapstack-labs/forthls/pkg/token"
)

// stackEffects holds the stack comment written after each colon definition's
// name, per file and folded name.
type stackEffects map[string]map[string]stackEffect

type stackEffect struct {
	name   string // as written
	effect string
}

func (e stackEffects) update(fileID string, tokens []token.Token) {
	delete(e, fileID)

	var file map[string]stackEffect
	for _, def := range index.ExtractDefinitions(tokens) {
		if def.Kind != index.ColonDefinition {
			continue
		}
		i := sort.Search(len(tokens), func(i int) bool { return tokens[i].Start >= def.End })
		if i == len(tokens) || tokens[i].Kind != token.StackComment {
			continue
		}
		if file == nil {
			file = make(map[string]stackEffect)
		}
		file[fold(def.Name)] = stackEffect{name: def.Name, effect: tokens[i].Text}
	}
	if file != nil {
		e[fileID] = file
	}
}

func (e stackEffects) remove(fileID string) {
	delete(e, fileID)
}

// getSignatureHelp shows the stack effect of the word the cursor is in or
// follows on the same line. Builtins take precedence over user definitions.
func (s *Server) getSignatureHelp(params SignatureHelpParams) *SignatureHelp {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return nil
	}

	word, ok := wordBefore(doc, doc.PositionToOffset(params.Position))
	if !ok {
		return nil
	}

	if w, ok := s.vocab.Lookup(word); ok {
		label := w.Token
		if w.Stack != "" {
			label += " " + w.Stack
		}
		return &SignatureHelp{Signatures: []SignatureInformation{{
			Label:         label,
			Documentation: &MarkupContent{Kind: MarkupKindMarkdown, Value: w.Documentation()},
		}}}
	}

	defs := s.index.FindDefinitions(word)
	for _, def := range defs {
		se, ok := s.effects[def.FileID][fold(word)]
		if !ok {
			continue
		}
		return &SignatureHelp{Signatures: []SignatureInformation{{
			Label:         se.name + " " + se.effect,
			Documentation: &MarkupContent{Kind: MarkupKindMarkdown, Value: s.definitionSummary(se.name, defs)},
		}}}
	}
	return nil
}

// wordBefore returns the word containing offset, or the last word before it
// on the same line. A leading Number and the Word right after it are read
// as one word. Comments yield nothing.
func wordBefore(doc *Document, offset int) (string, bool) {
	tokens := doc.Tokens
	i := sort.Search(len(tokens), func(i int) bool { return tokens[i].Start > offset })
	if i == 0 {
		return "", false
	}
	i--

	tok := tokens[i]
	if !tok.Contains(offset) && doc.Lines.OffsetToPosition(tok.End).Line != doc.Lines.OffsetToPosition(offset).Line {
		return "", false
	}

	switch {
	case tok.Kind == token.Word && i > 0 && tokens[i-1].Kind == token.Number && tokens[i-1].Adjacent(tok):
		return tokens[i-1].Text + tok.Text, true
	case tok.Kind == token.Number && i+1 < len(tokens) && tokens[i+1].Kind == token.Word && tok.Adjacent(tokens[i+1]):
		return tok.Text + tokens[i+1].Text, true
	case tok.Kind == token.Word:
		return tok.Text, true
	}
	return "", false
}
