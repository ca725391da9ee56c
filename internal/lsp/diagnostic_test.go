package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diagnosticCodes(diags []Diagnostic) []string {
	codes := make([]string, 0, len(diags))
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	return codes
}

func TestGetDiagnostics(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{"clean", ": square dup * ;\n5 square .\n", []string{}},
		{"undefined word", "5 frobnicate .", []string{codeUndefinedWord}},
		{"case insensitive builtins", "1 2 Swap DROP emit CR", []string{}},
		{"inline string skipped", `." hello world" cr`, []string{}},
		{"s-quote string skipped", `s" some file.fs" type`, []string{}},
		{"unterminated string", `." hello`, []string{codeUnterminatedString}},
		{"numbers", "-5 1.5e3 $ff 10. 3.14 %101 #99 0x1F", []string{}},
		{"digit-prefixed builtin", "1 2 3 4 2swap 2drop", []string{}},
		{"digit-prefixed unknown", "1 2qux", []string{codeUndefinedWord}},
		{"parsing words", ": x [char] y emit ;\nchar z emit", []string{}},
		{"noname", ":noname 1 . ;", []string{}},
		{"nested colon", ": a 1 : b 2 ;", []string{codeNestedDefinition}},
		{"unmatched semicolon", "1 . ;", []string{codeUnmatchedSemicolon}},
		{"unterminated definition", ": foo dup", []string{codeUndefinedWord, codeUnterminatedDefinition}},
		{"unterminated comment", "( never closed", []string{codeUnterminatedComment}},
		{"unterminated stack comment", ": x ( a -- b", []string{codeUndefinedWord, codeUnterminatedComment, codeUnterminatedDefinition}},
		{"defining keyword names", "variable total 10 constant limit total @ limit +", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			doc := openDoc(s, mainURI, tt.content)

			diags := s.getDiagnostics(doc)
			assert.Equal(t, tt.expected, diagnosticCodes(diags))
			for _, d := range diags {
				assert.Equal(t, diagnosticSource, d.Source)
			}
		})
	}
}

func TestGetDiagnostics_UndefinedWord(t *testing.T) {
	s := newTestServer(t)
	doc := openDoc(s, mainURI, "5 frobnicate .")

	diags := s.getDiagnostics(doc)
	require.Len(t, diags, 1)
	assert.Equal(t, DiagnosticSeverityWarning, diags[0].Severity)
	assert.Contains(t, diags[0].Message, "Undefined word 'frobnicate'")
	assert.Equal(t, Range{Start: Position{0, 2}, End: Position{0, 12}}, diags[0].Range)
}

func TestGetDiagnostics_Suggestion(t *testing.T) {
	s := newTestServer(t)
	doc := openDoc(s, mainURI, ": square dup * ;\n3 sqaure .")

	diags := s.getDiagnostics(doc)
	require.Len(t, diags, 1)
	assert.Equal(t, "Undefined word 'sqaure'. Did you mean 'square'?", diags[0].Message)
	require.NotNil(t, diags[0].Data)
	assert.Equal(t, "square", diags[0].Data.Replacement)
}

func TestGetDiagnostics_DigitPrefixedSuggestion(t *testing.T) {
	s := newTestServer(t)
	doc := openDoc(s, mainURI, "1 2 2dorp")

	diags := s.getDiagnostics(doc)
	require.Len(t, diags, 1)
	assert.Equal(t, "Undefined word '2dorp'. Did you mean '2DROP'?", diags[0].Message)
	assert.Equal(t, Range{Start: Position{0, 4}, End: Position{0, 9}}, diags[0].Range, "covers the digits too")
	require.NotNil(t, diags[0].Data)
	assert.Equal(t, "2DROP", diags[0].Data.Replacement)

	actions := s.getCodeActions(CodeActionParams{
		TextDocument: TextDocumentIdentifier{URI: mainURI},
		Context:      CodeActionContext{Diagnostics: diags},
	})
	require.Len(t, actions, 1)
	assert.Equal(t, []TextEdit{{Range: diags[0].Range, NewText: "2DROP"}}, actions[0].Edit.Changes[mainURI])
}

func TestGetDiagnostics_CrossFile(t *testing.T) {
	s := newTestServer(t)
	doc := openDoc(s, mainURI, "3 cube .")
	assert.Len(t, s.getDiagnostics(doc), 1)

	openDoc(s, mathURI, ": cube dup dup * * ;")
	assert.Empty(t, s.getDiagnostics(doc), "definition in another file resolves the word")

	s.removeFromIndex(mathURI)
	assert.Len(t, s.getDiagnostics(doc), 1)
}

func TestGetDiagnostics_NestedColonLine(t *testing.T) {
	s := newTestServer(t)
	doc := openDoc(s, mainURI, ": outer\n  1 +\n: inner 2 ;")

	diags := s.getDiagnostics(doc)
	require.Len(t, diags, 1)
	assert.Equal(t, codeNestedDefinition, diags[0].Code)
	assert.Contains(t, diags[0].Message, "line 1")
	assert.Equal(t, Position{2, 0}, diags[0].Range.Start)
}

func TestGetDiagnostics_UndefinedWordsDisabled(t *testing.T) {
	s := newTestServer(t)
	s.config.Diagnostics.UndefinedWords = false
	doc := openDoc(s, mainURI, "5 frobnicate .\n( open")

	assert.Equal(t, []string{codeUnterminatedComment}, diagnosticCodes(s.getDiagnostics(doc)))
}

func TestLooksNumeric(t *testing.T) {
	tests := []struct {
		text     string
		expected bool
	}{
		{"42", true},
		{"-42", true},
		{"+7", true},
		{"10.", true},
		{"1_000", true},
		{"3.14", true},
		{".5", true},
		{"1e", true},
		{"1.5E", true},
		{"2.5e-3", true},
		{"$FF", true},
		{"-$ff", true},
		{"%1010", true},
		{"#123", true},
		{"&17", true},
		{"0x1f", true},
		{"", false},
		{"-", false},
		{"--5", false},
		{"$", false},
		{"%12", false},
		{"dup", false},
		{"1+", false},
		{".", false},
		{"e10", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, looksNumeric(tt.text), "looksNumeric(%q)", tt.text)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		s1       string
		s2       string
		expected int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"kitten", "sitting", 3},
		{"swap", "sawp", 2},
		{"größe", "grösse", 2},
	}

	for _, tt := range tests {
		result := levenshtein(tt.s1, tt.s2)
		assert.Equal(t, tt.expected, result, "levenshtein(%q, %q)", tt.s1, tt.s2)
	}
}

func TestSuggestSimilar(t *testing.T) {
	candidates := []string{"square", "squares", "DUP", "SWAP", "OVER"}

	tests := []struct {
		input    string
		expected string
		found    bool
	}{
		{"sqare", "square", true},
		{"SQAURE", "square", true},
		{"swpa", "SWAP", true},
		{"ovr", "OVER", true},
		{"du", "", false},           // too short
		{"swap", "", false},         // exact match is not a suggestion
		{"xyzzy", "", false},        // nothing close
		{"squarez", "square", true}, // first of equal distances wins
	}

	for _, tt := range tests {
		got, ok := suggestSimilar(tt.input, candidates, 2)
		assert.Equal(t, tt.found, ok, "suggestSimilar(%q)", tt.input)
		assert.Equal(t, tt.expected, got, "suggestSimilar(%q)", tt.input)
	}
}
