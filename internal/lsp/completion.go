package lsp

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/forthls/internal/workspace"
	"github.com/leapstack-labs/forthls/pkg/index"
)

// fold lowercases a word the same way the index keys it.
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

// getCompletions offers user-defined words and builtins whose name starts
// with the word being typed, ignoring case.
func (s *Server) getCompletions(params CompletionParams) []CompletionItem {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return []CompletionItem{}
	}

	prefix, replace := doc.PrefixAt(params.Position)
	prefix = fold(prefix)

	items := []CompletionItem{}
	seen := make(map[string]bool)

	for _, name := range s.index.AllWords() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		seen[name] = true
		items = append(items, CompletionItem{
			Label:    name,
			Kind:     CompletionItemKindFunction,
			Detail:   s.definedIn(name),
			SortText: "0" + name,
			TextEdit: &TextEdit{Range: replace, NewText: name},
		})
	}

	for _, w := range s.vocab.All() {
		key := fold(w.Token)
		if seen[key] || !strings.HasPrefix(key, prefix) {
			continue
		}
		items = append(items, CompletionItem{
			Label:  w.Token,
			Kind:   CompletionItemKindKeyword,
			Detail: w.Stack,
			Documentation: &MarkupContent{
				Kind:  MarkupKindMarkdown,
				Value: w.Documentation(),
			},
			FilterText: key,
			SortText:   "1" + key,
			TextEdit:   &TextEdit{Range: replace, NewText: w.Token},
		})
	}

	return items
}

// definedIn summarizes where a user word is defined.
func (s *Server) definedIn(name string) string {
	defs := s.index.FindDefinitions(name)
	if len(defs) == 0 {
		return ""
	}
	detail := "defined in " + s.displayPath(defs[0].FileID)
	if len(defs) > 1 {
		detail += fmt.Sprintf(" (+%d more)", len(defs)-1)
	}
	return detail
}

// displayPath shows a file relative to the project root when possible.
func (s *Server) displayPath(uri string) string {
	path := workspace.URIToPath(uri)
	if s.projectRoot != "" {
		if rel, err := filepath.Rel(s.projectRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return path
}

// getHover documents the word under the cursor: builtin help when the word
// is part of the vocabulary, followed by any user definition sites.
func (s *Server) getHover(params HoverParams) *Hover {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return nil
	}

	word, rng := doc.WordAt(params.Position)
	if word == "" {
		return nil
	}

	var sections []string
	if w, ok := s.vocab.Lookup(word); ok {
		sections = append(sections, w.Documentation())
	}
	if defs := s.index.FindDefinitions(word); len(defs) > 0 {
		sections = append(sections, s.definitionSummary(word, defs))
	}
	if len(sections) == 0 {
		return nil
	}

	return &Hover{
		Contents: MarkupContent{
			Kind:  MarkupKindMarkdown,
			Value: strings.Join(sections, "\n\n---\n\n"),
		},
		Range: &rng,
	}
}

func (s *Server) definitionSummary(word string, defs []index.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# `%s`\n\nDefined at:", word)
	for _, def := range defs {
		fmt.Fprintf(&b, "\n- `%s:%d:%d`", s.displayPath(def.FileID), def.Range.Start.Line+1, def.Range.Start.Column+1)
	}
	return b.String()
}

// getDefinition returns every definition site of the word under the cursor.
func (s *Server) getDefinition(params DefinitionParams) []Location {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return []Location{}
	}

	word, _ := doc.WordAt(params.Position)
	if word == "" {
		return []Location{}
	}

	return toLocations(s.index.FindDefinitions(word))
}

// getReferences returns every use of the word under the cursor, with its
// definitions first when the client asks for declarations.
func (s *Server) getReferences(params ReferenceParams) []Location {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return []Location{}
	}

	word, _ := doc.WordAt(params.Position)
	if word == "" {
		return []Location{}
	}

	return toLocations(s.findUses(word, params.Context.IncludeDeclaration))
}
