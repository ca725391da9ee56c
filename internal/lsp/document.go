package lsp

import (
	"sort"
	"sync"

	"github.com/leapstack-labs/forthls/pkg/scanner"
	"github.com/leapstack-labs/forthls/pkg/token"
)

// Document represents an open text document in the editor.
type Document struct {
	URI     string // Document URI (file:///path/to/file.fs)
	Content string // Full document content
	Version int    // Version number, incremented on each change

	Tokens []token.Token  // Tokens of Content
	Lines  *token.LineMap // Character offsets of line starts
	runes  []rune         // Content indexed by character offset
}

func newDocument(uri, content string, version int) *Document {
	return &Document{
		URI:     uri,
		Content: content,
		Version: version,
		Tokens:  scanner.Tokenize(content),
		Lines:   token.NewLineMap(content),
		runes:   []rune(content),
	}
}

// DocumentStore manages open documents in memory.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
}

// NewDocumentStore creates a new document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]*Document),
	}
}

// Open adds or replaces a document in the store.
func (s *DocumentStore) Open(uri string, content string, version int) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := newDocument(uri, content, version)
	s.documents[uri] = doc
	return doc
}

// Close removes a document from the store.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, uri)
}

// Get retrieves a document by URI.
func (s *DocumentStore) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.documents[uri]
}

// Update replaces an open document's content. A document the client never
// opened is opened.
func (s *DocumentStore) Update(uri string, content string, version int) *Document {
	return s.Open(uri, content, version)
}

// List returns all open document URIs, sorted.
func (s *DocumentStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, 0, len(s.documents))
	for uri := range s.documents {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// PositionToOffset converts a Position to a character offset in the document.
func (d *Document) PositionToOffset(pos Position) int {
	if d == nil {
		return 0
	}
	return d.Lines.PositionToOffset(fromPosition(pos))
}

// OffsetToPosition converts a character offset to a Position.
func (d *Document) OffsetToPosition(offset int) Position {
	if d == nil {
		return Position{}
	}
	return toPosition(d.Lines.OffsetToPosition(offset))
}

// wordBounds returns the whitespace-delimited word touching offset. When the
// cursor sits just past a word, that word is used.
func (d *Document) wordBounds(offset int) (start, end int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.runes) {
		offset = len(d.runes)
	}

	start = offset
	for start > 0 && !isSpace(d.runes[start-1]) {
		start--
	}
	end = offset
	for end < len(d.runes) && !isSpace(d.runes[end]) {
		end++
	}
	return start, end
}

// WordAt returns the word under pos and its range. The word is empty when
// pos is surrounded by whitespace.
func (d *Document) WordAt(pos Position) (string, Range) {
	if d == nil {
		return "", Range{Start: pos, End: pos}
	}

	start, end := d.wordBounds(d.PositionToOffset(pos))
	if start == end {
		return "", Range{Start: pos, End: pos}
	}

	return string(d.runes[start:end]), Range{
		Start: d.OffsetToPosition(start),
		End:   d.OffsetToPosition(end),
	}
}

// PrefixAt returns the part of the word under pos that lies before the
// cursor, and the range the completed word should replace.
func (d *Document) PrefixAt(pos Position) (string, Range) {
	if d == nil {
		return "", Range{Start: pos, End: pos}
	}

	offset := d.PositionToOffset(pos)
	start, end := d.wordBounds(offset)
	if offset < start {
		offset = start
	}

	return string(d.runes[start:offset]), Range{
		Start: d.OffsetToPosition(start),
		End:   d.OffsetToPosition(end),
	}
}

// TokenAfter returns the first token starting at or after offset.
func (d *Document) TokenAfter(offset int) (token.Token, bool) {
	i := sort.Search(len(d.Tokens), func(i int) bool {
		return d.Tokens[i].Start >= offset
	})
	if i == len(d.Tokens) {
		return token.Token{}, false
	}
	return d.Tokens[i], true
}

// GetLine returns the content of a specific line, without its newline.
func (d *Document) GetLine(line int) string {
	if d == nil || line < 0 || line >= d.Lines.LineCount() {
		return ""
	}

	start := d.Lines.PositionToOffset(token.Position{Line: line})
	end := start
	for end < len(d.runes) && d.runes[end] != '\n' {
		end++
	}
	return string(d.runes[start:end])
}

// isSpace matches the scanner's notion of whitespace.
func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}
