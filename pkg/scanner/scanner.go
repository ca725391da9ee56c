// Package scanner turns Forth source text into a sequence of classified,
// positioned tokens.
//
// The scanner never fails. Anything it does not recognize becomes a Word, and
// every step consumes at least one character, so scanning terminates on any
// input. Offsets are counted in Unicode code points.
package scanner

import (
	"unicode/utf8"

	"github.com/leapstack-labs/forthls/pkg/token"
)

// eof is the sentinel held in ch once the input is exhausted.
const eof rune = -1

// Scanner tokenizes Forth input. A Scanner is single-use: create a new one
// for every pass over a text.
type Scanner struct {
	input string
	pos   int  // byte offset of ch
	off   int  // character offset of ch
	ch    rune // current character, or eof
	width int  // byte width of ch
}

// New creates a Scanner positioned at the first character of input.
func New(input string) *Scanner {
	s := &Scanner{input: input}
	s.load()
	return s
}

// Tokenize is shorthand for New(input).Parse().
func Tokenize(input string) []token.Token {
	return New(input).Parse()
}

// load decodes the character at pos without advancing.
func (s *Scanner) load() {
	if s.pos >= len(s.input) {
		s.ch = eof
		s.width = 0
		return
	}
	s.ch, s.width = utf8.DecodeRuneInString(s.input[s.pos:])
}

// readChar advances past the current character.
func (s *Scanner) readChar() {
	if s.ch == eof {
		return
	}
	s.pos += s.width
	s.off++
	s.load()
}

// peekChar returns the character after the current one without advancing.
func (s *Scanner) peekChar() rune {
	if s.ch == eof {
		return eof
	}
	next := s.pos + s.width
	if next >= len(s.input) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(s.input[next:])
	return r
}

// mark records where a token begins.
type mark struct {
	pos int
	off int
}

func (s *Scanner) mark() mark {
	return mark{pos: s.pos, off: s.off}
}

// emit builds a token spanning from m to the current position.
func (s *Scanner) emit(kind token.Kind, m mark) token.Token {
	return token.Token{
		Kind: kind,
		Span: token.Span{
			Start: m.off,
			End:   s.off,
			Text:  s.input[m.pos:s.pos],
		},
	}
}

// NextToken skips whitespace and returns exactly one token.
// At end of input it returns an EOF token, repeatedly if called again.
func (s *Scanner) NextToken() token.Token {
	s.skipWhitespace()

	m := s.mark()

	switch s.ch {
	case eof:
		return s.emit(token.EOF, m)
	case ':':
		s.readChar()
		return s.emit(token.Colon, m)
	case ';':
		s.readChar()
		return s.emit(token.Semicolon, m)
	case '%':
		if isBinaryDigit(s.peekChar()) {
			return s.readNumber(m)
		}
		return s.readWord(m)
	case '&':
		if next := s.peekChar(); next == 'x' || isOctalDigit(next) {
			return s.readNumber(m)
		}
		return s.readWord(m)
	case '$':
		if isHexDigit(s.peekChar()) {
			return s.readNumber(m)
		}
		return s.readWord(m)
	case '\'':
		return s.readQuote(m)
	case '0':
		if next := s.peekChar(); next == 'x' || isHexDigit(next) {
			return s.readNumber(m)
		}
		return s.readWord(m)
	case '\\':
		if isWhitespace(s.peekChar()) {
			return s.readLineComment(m)
		}
		return s.readWord(m)
	case '(':
		if isWhitespace(s.peekChar()) {
			return s.readParenComment(m)
		}
		return s.readWord(m)
	default:
		if isDecimalDigit(s.ch) {
			return s.readNumber(m)
		}
		return s.readWord(m)
	}
}

// Parse scans the whole input and returns every token except the final EOF.
func (s *Scanner) Parse() []token.Token {
	var tokens []token.Token
	for {
		tok := s.NextToken()
		if tok.Kind == token.EOF {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

func (s *Scanner) skipWhitespace() {
	for isWhitespace(s.ch) {
		s.readChar()
	}
}

// readNumber consumes the leading character (a prefix or digit) and then a
// permissive run of number characters. It does not validate the radix.
func (s *Scanner) readNumber(m mark) token.Token {
	s.readChar()
	for isNumberChar(s.ch) {
		s.readChar()
	}
	return s.emit(token.Number, m)
}

// readWord consumes up to the next whitespace or end of input.
func (s *Scanner) readWord(m mark) token.Token {
	for s.ch != eof && !isWhitespace(s.ch) {
		s.readChar()
	}
	return s.emit(token.Word, m)
}

// readQuote handles 'c' character literals. A quote followed by whitespace
// or end of input is an ordinary word, and so is any quoted run that is not
// closed right after its single character.
func (s *Scanner) readQuote(m mark) token.Token {
	if next := s.peekChar(); next == eof || isWhitespace(next) {
		return s.readWord(m)
	}

	s.readChar() // opening quote
	s.readChar() // the character
	if s.ch == '\'' {
		s.readChar()
		return s.emit(token.Number, m)
	}

	// Everything consumed so far is non-whitespace, so continuing the word
	// from here is the same as rescanning it from the quote.
	return s.readWord(m)
}

// readLineComment consumes up to, but not including, the next newline.
func (s *Scanner) readLineComment(m mark) token.Token {
	for s.ch != eof && s.ch != '\n' {
		s.readChar()
	}
	return s.emit(token.Comment, m)
}

// readParenComment consumes through the closing paren. An unterminated
// comment runs to the end of input.
func (s *Scanner) readParenComment(m mark) token.Token {
	for s.ch != eof && s.ch != ')' {
		s.readChar()
	}
	s.readChar() // closing paren, no-op at eof

	tok := s.emit(token.Comment, m)
	tok.Kind = token.ClassifyParenComment(tok.Text)
	return tok
}

func isWhitespace(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

func isBinaryDigit(ch rune) bool {
	return ch == '0' || ch == '1'
}

func isOctalDigit(ch rune) bool {
	return ch >= '0' && ch <= '7'
}

func isDecimalDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch rune) bool {
	return isDecimalDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isNumberChar(ch rune) bool {
	switch ch {
	case '_', '&', '%', 'x', '$':
		return true
	}
	return isHexDigit(ch)
}
