package lsp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/forthls/pkg/index"
	"github.com/leapstack-labs/forthls/pkg/token"
)

const diagnosticSource = "forthls"

// Diagnostic codes.
const (
	codeUndefinedWord          = "undefined-word"
	codeUnterminatedComment    = "unterminated-comment"
	codeUnterminatedString     = "unterminated-string"
	codeUnterminatedDefinition = "unterminated-definition"
	codeNestedDefinition       = "nested-definition"
	codeUnmatchedSemicolon     = "unmatched-semicolon"
)

// parsingWords consume the next token as raw text rather than a word.
var parsingWords = map[string]bool{
	"char":    true,
	"[char]":  true,
	"include": true,
	"require": true,
}

// publishAllDiagnostics recomputes diagnostics for every open document. A
// change to one file can define or undefine words used in any other.
func (s *Server) publishAllDiagnostics() {
	for _, uri := range s.documents.List() {
		s.publishDiagnostics(uri)
	}
}

// publishDiagnostics checks one open document and publishes the result.
func (s *Server) publishDiagnostics(uri string) {
	doc := s.documents.Get(uri)
	if doc == nil {
		return
	}

	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: s.getDiagnostics(doc),
	})
}

// getDiagnostics walks the document's tokens once, tracking colon
// definitions and inline strings.
func (s *Server) getDiagnostics(doc *Document) []Diagnostic {
	diagnostics := []Diagnostic{}
	add := func(tok token.Token, severity DiagnosticSeverity, code, msg string) *Diagnostic {
		diagnostics = append(diagnostics, Diagnostic{
			Range:    Range{Start: doc.OffsetToPosition(tok.Start), End: doc.OffsetToPosition(tok.End)},
			Severity: severity,
			Code:     code,
			Source:   diagnosticSource,
			Message:  msg,
		})
		return &diagnostics[len(diagnostics)-1]
	}

	names := definitionNames(doc.Tokens)
	var candidates []string // built on first undefined word

	var open *token.Token // colon of the definition not yet closed

	tokens := doc.Tokens
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Kind {
		case token.Comment, token.StackComment:
			if !tok.Terminated() {
				add(tok, DiagnosticSeverityError, codeUnterminatedComment, "Unterminated comment: missing ')'")
			}

		case token.Colon:
			if open != nil {
				add(tok, DiagnosticSeverityWarning, codeNestedDefinition,
					fmt.Sprintf("':' before the ';' closing the definition opened on line %d", doc.OffsetToPosition(open.Start).Line+1))
			}
			open = &tokens[i]

		case token.Semicolon:
			if open == nil {
				add(tok, DiagnosticSeverityWarning, codeUnmatchedSemicolon, "';' without a matching ':'")
			}
			open = nil

		case token.Word:
			lower := fold(tok.Text)
			if closer, ok := tok.StringCloser(); ok {
				end := token.StringEnd(tokens, i+1, closer)
				if end == len(tokens) {
					add(tok, DiagnosticSeverityWarning, codeUnterminatedString,
						fmt.Sprintf("Unterminated string: missing '%s'", closer))
				}
				i = end
				continue
			}
			if parsingWords[lower] {
				i++
				continue
			}

			if !s.config.Diagnostics.UndefinedWords || names[tok.Start] {
				continue
			}
			word := tok
			if i > 0 && tokens[i-1].Kind == token.Number && tokens[i-1].Adjacent(tok) {
				word.Start = tokens[i-1].Start // 2SWAP, 3.14
				word.Text = tokens[i-1].Text + tok.Text
			}
			if s.isKnownWord(word.Text) {
				continue
			}

			if candidates == nil {
				candidates = s.knownWords()
			}
			suggestion, ok := suggestSimilar(word.Text, candidates, 2)
			msg := fmt.Sprintf("Undefined word '%s'", word.Text)
			if ok {
				msg += fmt.Sprintf(". Did you mean '%s'?", suggestion)
			}
			diag := add(word, DiagnosticSeverityWarning, codeUndefinedWord, msg)
			if ok {
				diag.Data = &DiagnosticData{Replacement: suggestion}
			}
		}
	}

	if open != nil {
		add(*open, DiagnosticSeverityError, codeUnterminatedDefinition, "Definition is never closed by ';'")
	}

	return diagnostics
}

// definitionNames returns the start offsets of every token that is part of
// a defined name in tokens.
func definitionNames(tokens []token.Token) map[int]bool {
	names := make(map[int]bool)
	for _, def := range index.ExtractDefinitions(tokens) {
		for _, tok := range tokens {
			if tok.Start >= def.Start && tok.Start < def.End {
				names[tok.Start] = true
			}
		}
	}
	return names
}

// isKnownWord reports whether a word is a builtin, is defined anywhere in
// the index, or is a number literal.
func (s *Server) isKnownWord(word string) bool {
	return s.vocab.Contains(word) || s.index.IsDefined(word) || looksNumeric(word)
}

// knownWords lists every user-defined and builtin word, for suggestions.
// User words come first so they win ties.
func (s *Server) knownWords() []string {
	known := s.index.AllWords()
	for _, w := range s.vocab.All() {
		known = append(known, w.Token)
	}
	return known
}

// looksNumeric accepts the number syntaxes the scanner leaves as words:
// signed integers, double-cell integers with a trailing '.', and floats.
func looksNumeric(text string) bool {
	t := strings.TrimLeft(text, "+-")
	if t == "" || len(text)-len(t) > 1 {
		return false
	}

	switch t[0] {
	case '$':
		return allOf(t[1:], "0123456789abcdefABCDEF")
	case '%':
		return allOf(t[1:], "01")
	case '#', '&':
		return allOf(t[1:], "0123456789")
	}
	if strings.HasPrefix(t, "0x") || strings.HasPrefix(t, "0X") {
		return allOf(t[2:], "0123456789abcdefABCDEF")
	}

	if allOf(strings.TrimSuffix(t, "."), "0123456789_") {
		return true
	}

	// Forth floats may end in a bare exponent marker: 1e, 1.5E
	if t[0] < '0' || t[0] > '9' {
		if t[0] != '.' || len(t) < 2 || t[1] < '0' || t[1] > '9' {
			return false
		}
	}
	if strings.HasSuffix(t, "e") || strings.HasSuffix(t, "E") {
		t += "0"
	}
	_, err := strconv.ParseFloat(t, 64)
	return err == nil
}

func allOf(s, set string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(set, r) {
			return false
		}
	}
	return true
}

// suggestSimilar finds the closest candidate within maxDistance edits.
// Very short words are not matched.
func suggestSimilar(input string, candidates []string, maxDistance int) (string, bool) {
	inputLower := fold(input)
	if len([]rune(inputLower)) < 3 {
		return "", false
	}

	best, bestDist := "", maxDistance+1
	for _, candidate := range candidates {
		dist := levenshtein(inputLower, fold(candidate))
		if dist > 0 && dist < bestDist {
			best, bestDist = candidate, dist
		}
	}
	return best, best != ""
}

// levenshtein calculates the Levenshtein distance between two strings,
// counting characters rather than bytes.
func levenshtein(a, b string) int {
	s1, s2 := []rune(a), []rune(b)
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	// Two rows of the distance matrix are enough.
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
