package lsp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/forthls/internal/config"
	"github.com/leapstack-labs/forthls/internal/testutil"
	"github.com/leapstack-labs/forthls/internal/workspace"
)

const (
	mathURI = "file:///project/math.fs"
	mainURI = "file:///project/main.fs"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServerWithOptions(strings.NewReader(""), &bytes.Buffer{}, Options{
		Logger: testutil.NewTestLogger(t),
		Config: config.Default(),
	})
}

func openDoc(s *Server, uri, text string) *Document {
	doc := s.documents.Open(uri, text, 1)
	s.indexDocument(doc)
	return doc
}

func at(line, char uint32) TextDocumentPositionParams {
	return TextDocumentPositionParams{Position: Position{Line: line, Character: char}}
}

func atIn(uri string, line, char uint32) TextDocumentPositionParams {
	p := at(line, char)
	p.TextDocument.URI = uri
	return p
}

func TestGetDefinition(t *testing.T) {
	s := newTestServer(t)
	openDoc(s, mathURI, ": square ( n -- n*n ) dup * ;\n")
	openDoc(s, mainURI, "5 SQUARE .\n")

	locs := s.getDefinition(DefinitionParams{atIn(mainURI, 0, 4)})
	require.Len(t, locs, 1)
	assert.Equal(t, mathURI, locs[0].URI)
	assert.Equal(t, Range{Start: Position{0, 2}, End: Position{0, 8}}, locs[0].Range)

	assert.Empty(t, s.getDefinition(DefinitionParams{atIn(mainURI, 0, 9)}), "builtin has no user definition")
	assert.Empty(t, s.getDefinition(DefinitionParams{atIn("file:///nope.fs", 0, 0)}))
}

func TestGetReferences(t *testing.T) {
	s := newTestServer(t)
	openDoc(s, mathURI, ": square dup * ;\n: cube dup square * ;\n")
	openDoc(s, mainURI, "3 square . 4 cube .\n")

	params := ReferenceParams{TextDocumentPositionParams: atIn(mainURI, 0, 3)}
	refs := s.getReferences(params)
	require.Len(t, refs, 2)
	assert.Equal(t, mathURI, refs[0].URI)
	assert.Equal(t, Position{1, 11}, refs[0].Range.Start)
	assert.Equal(t, mainURI, refs[1].URI)

	params.Context.IncludeDeclaration = true
	refs = s.getReferences(params)
	require.Len(t, refs, 3)
	assert.Equal(t, Position{0, 2}, refs[0].Range.Start, "declaration comes first")
}

func TestGetHover(t *testing.T) {
	s := newTestServer(t)
	s.projectRoot = "/project"
	openDoc(s, mathURI, ": square dup * ;\n")

	hover := s.getHover(HoverParams{atIn(mathURI, 0, 10)})
	require.NotNil(t, hover)
	assert.Equal(t, MarkupKindMarkdown, hover.Contents.Kind)
	assert.Contains(t, hover.Contents.Value, "# `DUP`")
	assert.Contains(t, hover.Contents.Value, "( x -- x x )")
	require.NotNil(t, hover.Range)
	assert.Equal(t, Range{Start: Position{0, 9}, End: Position{0, 12}}, *hover.Range)

	hover = s.getHover(HoverParams{atIn(mathURI, 0, 4)})
	require.NotNil(t, hover)
	assert.Contains(t, hover.Contents.Value, "`math.fs:1:3`")

	assert.Nil(t, s.getHover(HoverParams{atIn(mathURI, 1, 0)}), "empty line")
}

func TestGetHover_UnknownWord(t *testing.T) {
	s := newTestServer(t)
	openDoc(s, mainURI, "frobnicate\n")

	assert.Nil(t, s.getHover(HoverParams{atIn(mainURI, 0, 3)}))
}

func TestGetCompletions(t *testing.T) {
	s := newTestServer(t)
	openDoc(s, mathURI, ": square dup * ;\n: squish ;\n")
	openDoc(s, mainURI, "5 SQ")

	items := s.getCompletions(CompletionParams{TextDocumentPositionParams: atIn(mainURI, 0, 4)})

	var labels []string
	for _, item := range items {
		labels = append(labels, item.Label)
	}
	assert.Contains(t, labels, "square")
	assert.Contains(t, labels, "squish")
	assert.NotContains(t, labels, "DUP")

	for _, item := range items {
		require.NotNil(t, item.TextEdit)
		assert.Equal(t, Range{Start: Position{0, 2}, End: Position{0, 4}}, item.TextEdit.Range)
	}
}

func TestGetCompletions_Builtins(t *testing.T) {
	s := newTestServer(t)
	openDoc(s, mainURI, "1 2 sw")

	items := s.getCompletions(CompletionParams{TextDocumentPositionParams: atIn(mainURI, 0, 6)})

	var swap *CompletionItem
	for i := range items {
		if items[i].Label == "SWAP" {
			swap = &items[i]
		}
	}
	require.NotNil(t, swap)
	assert.Equal(t, CompletionItemKindKeyword, swap.Kind)
	assert.Equal(t, "( x1 x2 -- x2 x1 )", swap.Detail)
	require.NotNil(t, swap.Documentation)
}

func TestPrepareRename(t *testing.T) {
	s := newTestServer(t)
	openDoc(s, mathURI, ": square dup * ;\n")

	result := s.prepareRename(PrepareRenameParams{atIn(mathURI, 0, 3)})
	require.NotNil(t, result)
	assert.Equal(t, "square", result.Placeholder)

	assert.Nil(t, s.prepareRename(PrepareRenameParams{atIn(mathURI, 0, 10)}), "builtins are not renamable")
}

func TestRename(t *testing.T) {
	s := newTestServer(t)
	openDoc(s, mathURI, ": square dup * ;\n")
	openDoc(s, mainURI, "3 Square .\n")

	edit, err := s.rename(RenameParams{TextDocumentPositionParams: atIn(mainURI, 0, 3), NewName: "sq"})
	require.NoError(t, err)
	require.Len(t, edit.Changes, 2)
	assert.Equal(t, []TextEdit{{Range: Range{Start: Position{0, 2}, End: Position{0, 8}}, NewText: "sq"}}, edit.Changes[mathURI])
	assert.Equal(t, []TextEdit{{Range: Range{Start: Position{0, 2}, End: Position{0, 8}}, NewText: "sq"}}, edit.Changes[mainURI])
}

func TestRename_Rejected(t *testing.T) {
	s := newTestServer(t)
	openDoc(s, mathURI, ": square dup * ;\n")

	_, err := s.rename(RenameParams{TextDocumentPositionParams: atIn(mathURI, 0, 3), NewName: "two words"})
	require.Error(t, err)

	_, err = s.rename(RenameParams{TextDocumentPositionParams: atIn(mathURI, 0, 10), NewName: "twin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a user-defined word")
}

func TestGetDocumentSymbols(t *testing.T) {
	s := newTestServer(t)
	openDoc(s, mathURI, ": square ( n -- n*n )\n  dup * ;\nvariable total\n10 constant limit\n")

	symbols := s.getDocumentSymbols(DocumentSymbolParams{TextDocument: TextDocumentIdentifier{URI: mathURI}})
	require.Len(t, symbols, 3)

	assert.Equal(t, "square", symbols[0].Name)
	assert.Equal(t, SymbolKindFunction, symbols[0].Kind)
	assert.Equal(t, "( n -- n*n )", symbols[0].Detail)
	assert.Equal(t, Range{Start: Position{0, 0}, End: Position{1, 9}}, symbols[0].Range)
	assert.Equal(t, Range{Start: Position{0, 2}, End: Position{0, 8}}, symbols[0].SelectionRange)

	assert.Equal(t, "total", symbols[1].Name)
	assert.Equal(t, SymbolKindVariable, symbols[1].Kind)
	assert.Equal(t, "variable", symbols[1].Detail)

	assert.Equal(t, "limit", symbols[2].Name)
	assert.Equal(t, SymbolKindConstant, symbols[2].Kind)
}

func TestGetWorkspaceSymbols(t *testing.T) {
	s := newTestServer(t)
	openDoc(s, mathURI, ": square dup * ;\n: cube dup square * ;\n")
	openDoc(s, mainURI, ": SQUARE-ROOT ;\n")

	symbols := s.getWorkspaceSymbols(WorkspaceSymbolParams{Query: "Squ"})
	require.Len(t, symbols, 2)
	assert.Equal(t, "square", symbols[0].Name)
	assert.Equal(t, mathURI, symbols[0].Location.URI)
	assert.Equal(t, "square-root", symbols[1].Name)

	assert.Len(t, s.getWorkspaceSymbols(WorkspaceSymbolParams{}), 3)
}

func TestGetCodeActions(t *testing.T) {
	s := newTestServer(t)
	doc := openDoc(s, mainURI, ": square dup * ;\n5 sqaure .\n( open")

	diags := s.getDiagnostics(doc)
	require.Len(t, diags, 2)

	actions := s.getCodeActions(CodeActionParams{
		TextDocument: TextDocumentIdentifier{URI: mainURI},
		Context:      CodeActionContext{Diagnostics: diags},
	})
	require.Len(t, actions, 2)

	assert.Equal(t, "Replace with 'square'", actions[0].Title)
	assert.Equal(t, []TextEdit{{Range: diags[0].Range, NewText: "square"}}, actions[0].Edit.Changes[mainURI])

	assert.Equal(t, "Close comment with ')'", actions[1].Title)

	none := s.getCodeActions(CodeActionParams{
		TextDocument: TextDocumentIdentifier{URI: mainURI},
		Context:      CodeActionContext{Diagnostics: diags, Only: []CodeActionKind{"refactor"}},
	})
	assert.Empty(t, none)
}

func TestRename_DigitLeadingName(t *testing.T) {
	s := newTestServer(t)
	openDoc(s, mathURI, ": 2foo dup ;\n")
	openDoc(s, mainURI, "5 2foo 2FOO .\n")

	result := s.prepareRename(PrepareRenameParams{atIn(mainURI, 0, 3)})
	require.NotNil(t, result)
	assert.Equal(t, "2foo", result.Placeholder)

	edit, err := s.rename(RenameParams{TextDocumentPositionParams: atIn(mathURI, 0, 3), NewName: "twofoo"})
	require.NoError(t, err)
	assert.Equal(t, []TextEdit{{Range: Range{Start: Position{0, 2}, End: Position{0, 6}}, NewText: "twofoo"}}, edit.Changes[mathURI])
	assert.Equal(t, []TextEdit{
		{Range: Range{Start: Position{0, 2}, End: Position{0, 6}}, NewText: "twofoo"},
		{Range: Range{Start: Position{0, 7}, End: Position{0, 11}}, NewText: "twofoo"},
	}, edit.Changes[mainURI])
}

func TestGetReferences_DigitLeadingName(t *testing.T) {
	s := newTestServer(t)
	openDoc(s, mathURI, ": 2foo dup ;\n: oo ;\n")
	openDoc(s, mainURI, "5 2foo oo\n")

	refs := s.getReferences(ReferenceParams{TextDocumentPositionParams: atIn(mainURI, 0, 4)})
	require.Len(t, refs, 1)
	assert.Equal(t, Location{URI: mainURI, Range: Range{Start: Position{0, 2}, End: Position{0, 6}}}, refs[0])

	refs = s.getReferences(ReferenceParams{TextDocumentPositionParams: atIn(mainURI, 0, 7)})
	require.Len(t, refs, 1, "the tail of 2foo is not a use of oo")
	assert.Equal(t, Position{0, 7}, refs[0].Range.Start)

	openDoc(s, mainURI, "oo\n")
	refs = s.getReferences(ReferenceParams{TextDocumentPositionParams: atIn(mathURI, 0, 3)})
	assert.Empty(t, refs, "uses are dropped with the file's old text")
}

func TestHandleFileEvent_RemovedDirectory(t *testing.T) {
	s := newTestServer(t)
	s.projectRoot = "/project"
	indexText := func(uri, text string) {
		doc := newDocument(uri, text, 0)
		s.updateIndex(uri, doc.Tokens, doc.Lines)
	}
	indexText("file:///project/lib/a.fs", ": a ;\n")
	indexText("file:///project/lib/deep/b.fs", ": 2b ;\n")
	indexText("file:///project/library.fs", ": c ;\n")
	openDoc(s, "file:///project/lib/open.fs", ": d ;\n")

	s.handleFileEvent(workspace.Event{Path: "/project/lib", Removed: true})

	assert.Equal(t, []string{"file:///project/lib/open.fs", "file:///project/library.fs"}, s.index.Files())
	assert.False(t, s.index.IsDefined("a"))
	assert.False(t, s.index.IsDefined("2b"))
	assert.True(t, s.index.IsDefined("d"), "open documents belong to the editor")

	s.handleFileEvent(workspace.Event{Path: "/project/library.fs", Removed: true})
	assert.Equal(t, []string{"file:///project/lib/open.fs"}, s.index.Files())
}

func TestGetSignatureHelp(t *testing.T) {
	s := newTestServer(t)
	openDoc(s, mathURI, ": square ( n -- n*n ) dup * ;\n: bare dup ;\nvariable counter\n")
	openDoc(s, mainURI, "5 dup square bare counter\n1 2 3 4 2swap\n( dup )\n: dup ( a -- b ) ;\n")

	tests := []struct {
		name  string
		pos   TextDocumentPositionParams
		label string
	}{
		{"builtin after the word", atIn(mainURI, 0, 5), "DUP ( x -- x x )"},
		{"builtin inside the word", atIn(mainURI, 0, 3), "DUP ( x -- x x )"},
		{"user word with stack comment", atIn(mainURI, 0, 12), "square ( n -- n*n )"},
		{"digit-leading builtin", atIn(mainURI, 1, 13), "2SWAP ( x1 x2 x3 x4 -- x3 x4 x1 x2 )"},
		{"digit-leading builtin from its number", atIn(mainURI, 1, 8), "2SWAP ( x1 x2 x3 x4 -- x3 x4 x1 x2 )"},
		{"builtin wins over user definition", atIn(mainURI, 3, 5), "DUP ( x -- x x )"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			help := s.getSignatureHelp(SignatureHelpParams{tt.pos})
			require.NotNil(t, help)
			require.Len(t, help.Signatures, 1)
			assert.Equal(t, tt.label, help.Signatures[0].Label)
			require.NotNil(t, help.Signatures[0].Documentation)
		})
	}

	assert.Nil(t, s.getSignatureHelp(SignatureHelpParams{atIn(mainURI, 0, 17)}), "no stack comment")
	assert.Nil(t, s.getSignatureHelp(SignatureHelpParams{atIn(mainURI, 0, 25)}), "keyword definition")
	assert.Nil(t, s.getSignatureHelp(SignatureHelpParams{atIn(mainURI, 2, 3)}), "inside a comment")
	assert.Nil(t, s.getSignatureHelp(SignatureHelpParams{atIn(mainURI, 2, 7)}), "after a comment")
	assert.Nil(t, s.getSignatureHelp(SignatureHelpParams{atIn(mainURI, 0, 0)}), "number")
	assert.Nil(t, s.getSignatureHelp(SignatureHelpParams{atIn("file:///nope.fs", 0, 0)}))

	openDoc(s, mathURI, ": square dup * ;\n")
	assert.Nil(t, s.getSignatureHelp(SignatureHelpParams{atIn(mainURI, 0, 12)}), "stack comment removed")
}

func TestGetSignatureHelp_NewLine(t *testing.T) {
	s := newTestServer(t)
	openDoc(s, mainURI, "dup\n\n")

	assert.NotNil(t, s.getSignatureHelp(SignatureHelpParams{atIn(mainURI, 0, 3)}))
	assert.Nil(t, s.getSignatureHelp(SignatureHelpParams{atIn(mainURI, 1, 0)}), "word on an earlier line")
}

func TestGetSemanticTokens(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		text string
		want []uint32
	}{
		{
			name: "colon definition",
			text: ": square ( n -- n ) dup * ;",
			want: []uint32{
				0, 0, 1, semKeyword, 0,
				0, 2, 6, semFunction, semDefinition,
				0, 7, 10, semString, 0,
				0, 11, 3, semVariable, semDefaultLibrary,
				0, 4, 1, semVariable, semDefaultLibrary,
				0, 2, 1, semKeyword, 0,
			},
		},
		{
			name: "digit-leading names",
			text: ": 2foo 2swap ;",
			want: []uint32{
				0, 0, 1, semKeyword, 0,
				0, 2, 4, semFunction, semDefinition,
				0, 5, 5, semVariable, semDefaultLibrary,
				0, 6, 1, semKeyword, 0,
			},
		},
		{
			name: "keyword definition",
			text: "VARIABLE counter\n5 counter !",
			want: []uint32{
				0, 0, 8, semKeyword, 0,
				0, 9, 7, semVariable, semDefinition,
				1, 0, 1, semNumber, 0,
				0, 2, 7, semVariable, 0,
				0, 8, 1, semVariable, semDefaultLibrary,
			},
		},
		{
			name: "digit-leading defining word",
			text: "1 2 2CONSTANT pair",
			want: []uint32{
				0, 0, 1, semNumber, 0,
				0, 2, 1, semNumber, 0,
				0, 2, 9, semKeyword, 0,
				0, 10, 4, semVariable, semDefinition,
			},
		},
		{
			name: "comments and strings",
			text: "\\ note\n.\" hi there\" if",
			want: []uint32{
				0, 0, 6, semComment, 0,
				1, 0, 2, semKeyword, 0,
				0, 3, 9, semString, 0,
				0, 10, 2, semKeyword, 0,
			},
		},
		{
			name: "multi-line comment",
			text: "( one\ntwo )",
			want: []uint32{
				0, 0, 5, semComment, 0,
				1, 0, 5, semComment, 0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			openDoc(s, mainURI, tt.text)
			got := s.getSemanticTokens(SemanticTokensParams{TextDocument: TextDocumentIdentifier{URI: mainURI}})
			assert.Equal(t, tt.want, got.Data)
		})
	}

	empty := s.getSemanticTokens(SemanticTokensParams{TextDocument: TextDocumentIdentifier{URI: "file:///nope.fs"}})
	assert.Equal(t, []uint32{}, empty.Data)
}

func TestGetFormatting(t *testing.T) {
	s := newTestServer(t)
	openDoc(s, mainURI, ":  square dup * ;  \n\n\n5 square .")

	edits := s.getFormatting(DocumentFormattingParams{TextDocument: TextDocumentIdentifier{URI: mainURI}})
	require.Len(t, edits, 1)
	assert.Equal(t, Range{End: Position{3, 10}}, edits[0].Range)
	assert.Equal(t, ": square\n  dup * ;\n\n5 square .\n", edits[0].NewText)

	openDoc(s, mainURI, edits[0].NewText)
	assert.Empty(t, s.getFormatting(DocumentFormattingParams{TextDocument: TextDocumentIdentifier{URI: mainURI}}))

	s.config.Format.IndentWidth = 4
	edits = s.getFormatting(DocumentFormattingParams{TextDocument: TextDocumentIdentifier{URI: mainURI}})
	require.Len(t, edits, 1)
	assert.Equal(t, ": square\n    dup * ;\n\n5 square .\n", edits[0].NewText)

	assert.Empty(t, s.getFormatting(DocumentFormattingParams{TextDocument: TextDocumentIdentifier{URI: "file:///nope.fs"}}))
}
