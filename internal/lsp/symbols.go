package lsp

import (
	"strings"

	"github.com/leapstack-labs/forthls/pkg/index"
	"github.com/leapstack-labs/forthls/pkg/token"
)

// symbolKind maps how a name was defined to an editor symbol kind.
func symbolKind(def index.Definition) SymbolKind {
	if def.Kind == index.ColonDefinition {
		return SymbolKindFunction
	}
	switch fold(def.Keyword) {
	case "constant", "2constant", "fconstant", "value", "2value":
		return SymbolKindConstant
	case "defer":
		return SymbolKindFunction
	default:
		return SymbolKindVariable
	}
}

// getDocumentSymbols lists the definitions in one open document. A colon
// definition's range spans its whole body and its detail is the stack
// comment right after the name, if any.
func (s *Server) getDocumentSymbols(params DocumentSymbolParams) []DocumentSymbol {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return []DocumentSymbol{}
	}

	symbols := []DocumentSymbol{}
	for _, def := range index.ExtractDefinitions(doc.Tokens) {
		name := Range{Start: doc.OffsetToPosition(def.Start), End: doc.OffsetToPosition(def.End)}

		sym := DocumentSymbol{
			Name:           def.Name,
			Detail:         def.Keyword,
			Kind:           symbolKind(def),
			Range:          name,
			SelectionRange: name,
		}
		if def.Kind == index.ColonDefinition {
			sym.Range = Range{Start: doc.OffsetToPosition(def.BodyStart), End: doc.OffsetToPosition(def.BodyEnd)}
			if next, ok := doc.TokenAfter(def.End); ok && next.Kind == token.StackComment {
				sym.Detail = next.Text
			}
		}
		symbols = append(symbols, sym)
	}
	return symbols
}

// getWorkspaceSymbols returns every definition site of the defined words
// whose name contains the query, ignoring case.
func (s *Server) getWorkspaceSymbols(params WorkspaceSymbolParams) []SymbolInformation {
	query := fold(params.Query)

	symbols := []SymbolInformation{}
	for _, name := range s.index.AllWords() {
		if !strings.Contains(name, query) {
			continue
		}
		for _, loc := range toLocations(s.index.FindDefinitions(name)) {
			symbols = append(symbols, SymbolInformation{
				Name:          name,
				Kind:          SymbolKindFunction,
				Location:      loc,
				ContainerName: s.displayPath(loc.URI),
			})
		}
	}
	return symbols
}
