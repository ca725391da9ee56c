// Package index maintains a cross-file map of Forth word definitions and
// references.
//
// The Index is owned by a single caller and is not safe for concurrent use.
// Each file's contribution is replaced wholesale by UpdateFile, so no entry
// from an earlier version of a file survives.
package index

import (
	"slices"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/forthls/pkg/token"
)

// PositionMapper converts character offsets of a file's current text into
// line/column positions. *token.LineMap implements it.
type PositionMapper interface {
	OffsetToPosition(offset int) token.Position
}

// Range is an editor-visible range; End is exclusive.
type Range struct {
	Start token.Position
	End   token.Position
}

// Location is a range inside a tracked file.
type Location struct {
	FileID string
	Range  Range
}

// fileKeys remembers which keys a file contributed, so removal only touches
// those keys.
type fileKeys struct {
	definitions map[string]struct{}
	references  map[string]struct{}
}

// Index maps lowercased word names to their definition and reference sites.
type Index struct {
	definitions map[string][]Location
	references  map[string][]Location
	files       map[string]*fileKeys
}

// New creates an empty index.
func New() *Index {
	return &Index{
		definitions: make(map[string][]Location),
		references:  make(map[string][]Location),
		files:       make(map[string]*fileKeys),
	}
}

// normalize lowercases a name for use as a key.
func normalize(name string) string {
	return cases.Lower(language.Und).String(name)
}

// UpdateFile replaces everything fileID contributed with what tokens define
// and reference. pm must map offsets of the text tokens were scanned from.
func (ix *Index) UpdateFile(fileID string, tokens []token.Token, pm PositionMapper) {
	ix.RemoveFile(fileID)

	keys := &fileKeys{
		definitions: make(map[string]struct{}),
		references:  make(map[string]struct{}),
	}

	definitionSites := make(map[int]struct{})
	for _, def := range ExtractDefinitions(tokens) {
		for _, site := range def.sites {
			definitionSites[site] = struct{}{}
		}

		key := normalize(def.Name)
		ix.definitions[key] = append(ix.definitions[key], Location{
			FileID: fileID,
			Range:  rangeOf(pm, def.Start, def.End),
		})
		keys.definitions[key] = struct{}{}
	}

	for _, tok := range tokens {
		if tok.Kind != token.Word {
			continue
		}
		if _, ok := definitionSites[tok.Start]; ok {
			continue
		}

		key := normalize(tok.Text)
		ix.references[key] = append(ix.references[key], Location{
			FileID: fileID,
			Range:  rangeOf(pm, tok.Start, tok.End),
		})
		keys.references[key] = struct{}{}
	}

	ix.files[fileID] = keys
}

// RemoveFile drops everything fileID contributed. Keys left without entries
// are pruned.
func (ix *Index) RemoveFile(fileID string) {
	keys, ok := ix.files[fileID]
	if !ok {
		return
	}

	for key := range keys.definitions {
		removeLocations(ix.definitions, key, fileID)
	}
	for key := range keys.references {
		removeLocations(ix.references, key, fileID)
	}

	delete(ix.files, fileID)
}

func removeLocations(m map[string][]Location, key, fileID string) {
	kept := slices.DeleteFunc(m[key], func(loc Location) bool {
		return loc.FileID == fileID
	})
	if len(kept) == 0 {
		delete(m, key)
		return
	}
	m[key] = kept
}

// FindDefinitions returns every definition site of word, in any casing.
func (ix *Index) FindDefinitions(word string) []Location {
	return slices.Clone(ix.definitions[normalize(word)])
}

// FindReferences returns every use of word that is not itself a definition site.
func (ix *Index) FindReferences(word string) []Location {
	return slices.Clone(ix.references[normalize(word)])
}

// FindAllReferences returns the references of word, preceded by its
// definitions when includeDeclaration is set.
func (ix *Index) FindAllReferences(word string, includeDeclaration bool) []Location {
	key := normalize(word)

	var locations []Location
	if includeDeclaration {
		locations = append(locations, ix.definitions[key]...)
	}
	return append(locations, ix.references[key]...)
}

// AllWords returns every lowercased name with at least one definition, sorted.
func (ix *Index) AllWords() []string {
	words := make([]string, 0, len(ix.definitions))
	for name := range ix.definitions {
		words = append(words, name)
	}
	sort.Strings(words)
	return words
}

// IsDefined reports whether word has at least one definition.
func (ix *Index) IsDefined(word string) bool {
	return len(ix.definitions[normalize(word)]) > 0
}

// Files returns the ids of all files currently contributing to the index, sorted.
func (ix *Index) Files() []string {
	ids := make([]string, 0, len(ix.files))
	for id := range ix.files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func rangeOf(pm PositionMapper, start, end int) Range {
	return Range{
		Start: pm.OffsetToPosition(start),
		End:   pm.OffsetToPosition(end),
	}
}
