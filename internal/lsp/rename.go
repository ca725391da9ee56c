package lsp

import (
	"errors"
	"fmt"
	"strings"
)

// prepareRename returns the range of the word under the cursor when it is a
// user-defined word. Builtins and unknown words cannot be renamed.
func (s *Server) prepareRename(params PrepareRenameParams) *PrepareRenameResult {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return nil
	}

	word, rng := doc.WordAt(params.Position)
	if word == "" || !s.index.IsDefined(word) {
		return nil
	}

	return &PrepareRenameResult{Range: rng, Placeholder: word}
}

// rename rewrites every definition and reference of the word under the
// cursor, across all indexed files.
func (s *Server) rename(params RenameParams) (*WorkspaceEdit, error) {
	if params.NewName == "" || strings.ContainsAny(params.NewName, " \t\r\n") {
		return nil, fmt.Errorf("invalid name %q: Forth words cannot be empty or contain whitespace", params.NewName)
	}

	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, errors.New("document is not open")
	}

	word, _ := doc.WordAt(params.Position)
	if word == "" || !s.index.IsDefined(word) {
		return nil, fmt.Errorf("cannot rename %q: not a user-defined word", word)
	}

	edit := &WorkspaceEdit{Changes: make(map[string][]TextEdit)}
	for _, loc := range s.findUses(word, true) {
		edit.Changes[loc.FileID] = append(edit.Changes[loc.FileID], TextEdit{
			Range:   toRange(loc.Range),
			NewText: params.NewName,
		})
	}
	return edit, nil
}
