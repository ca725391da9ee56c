package lsp

import (
	"github.com/leapstack-labs/forthls/pkg/format"
	"github.com/leapstack-labs/forthls/pkg/token"
)

// getFormatting formats a whole document with the project's format
// settings. An already formatted document yields no edits.
func (s *Server) getFormatting(params DocumentFormattingParams) []TextEdit {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return []TextEdit{}
	}

	formatted := format.Source(doc.Content, s.config.Format.Options())
	if formatted == doc.Content {
		return []TextEdit{}
	}

	return []TextEdit{{
		Range:   Range{End: doc.OffsetToPosition(token.CharCount(doc.Content))},
		NewText: formatted,
	}}
}
