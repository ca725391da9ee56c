package lsp

import (
	"github.com/leapstack-labs/forthls/pkg/index"
	"github.com/leapstack-labs/forthls/pkg/token"
)

// numberedUses tracks uses of words whose names begin with digits. The
// scanner reads the leading digits of such a use as a Number, so the index
// files "5 2foo" under "foo". Here the two halves are put back together.
type numberedUses struct {
	uses  map[string][]index.Location // joined name -> use sites
	parts map[index.Location]bool     // Word halves of the joined uses
	files map[string]*numberedFile
}

type numberedFile struct {
	names []string
	parts []index.Location
}

func newNumberedUses() *numberedUses {
	return &numberedUses{
		uses:  make(map[string][]index.Location),
		parts: make(map[index.Location]bool),
		files: make(map[string]*numberedFile),
	}
}

// update replaces what fileID contributed. Pairs that are part of a
// definition's name are skipped, as the index already holds those joined.
func (n *numberedUses) update(fileID string, tokens []token.Token, pm index.PositionMapper) {
	n.remove(fileID)

	names := definitionNames(tokens)
	file := &numberedFile{}
	for i := 1; i < len(tokens); i++ {
		num, tok := tokens[i-1], tokens[i]
		if tok.Kind != token.Word || num.Kind != token.Number || !num.Adjacent(tok) {
			continue
		}
		if names[num.Start] || names[tok.Start] {
			continue
		}

		key := fold(num.Text + tok.Text)
		n.uses[key] = append(n.uses[key], index.Location{
			FileID: fileID,
			Range:  index.Range{Start: pm.OffsetToPosition(num.Start), End: pm.OffsetToPosition(tok.End)},
		})
		part := index.Location{
			FileID: fileID,
			Range:  index.Range{Start: pm.OffsetToPosition(tok.Start), End: pm.OffsetToPosition(tok.End)},
		}
		n.parts[part] = true
		file.names = append(file.names, key)
		file.parts = append(file.parts, part)
	}

	if len(file.names) > 0 {
		n.files[fileID] = file
	}
}

// remove drops everything fileID contributed.
func (n *numberedUses) remove(fileID string) {
	file, ok := n.files[fileID]
	if !ok {
		return
	}

	for _, key := range file.names {
		kept := n.uses[key][:0]
		for _, loc := range n.uses[key] {
			if loc.FileID != fileID {
				kept = append(kept, loc)
			}
		}
		if len(kept) == 0 {
			delete(n.uses, key)
		} else {
			n.uses[key] = kept
		}
	}
	for _, part := range file.parts {
		delete(n.parts, part)
	}
	delete(n.files, fileID)
}

// find returns the joined uses of word.
func (n *numberedUses) find(word string) []index.Location {
	return n.uses[fold(word)]
}

// isPart reports whether loc is the Word half of a joined use.
func (n *numberedUses) isPart(loc index.Location) bool {
	return n.parts[loc]
}

// updateIndex replaces a file's contribution to the index.
func (s *Server) updateIndex(uri string, tokens []token.Token, lines *token.LineMap) {
	s.index.UpdateFile(uri, tokens, lines)
	s.numbered.update(uri, tokens, lines)
	s.effects.update(uri, tokens)
}

// removeFromIndex drops a file from the index.
func (s *Server) removeFromIndex(uri string) {
	s.index.RemoveFile(uri)
	s.numbered.remove(uri)
	s.effects.remove(uri)
}

// findUses returns the uses of word, preceded by its definitions when
// includeDeclaration is set. A use such as "2foo" counts toward "2foo"
// and not toward "foo".
func (s *Server) findUses(word string, includeDeclaration bool) []index.Location {
	var locs []index.Location
	for _, loc := range s.index.FindAllReferences(word, includeDeclaration) {
		if !s.numbered.isPart(loc) {
			locs = append(locs, loc)
		}
	}
	return append(locs, s.numbered.find(word)...)
}
