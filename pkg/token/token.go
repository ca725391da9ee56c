// Package token defines the lexical tokens produced by the Forth scanner.
//
// Kind is a closed set: consumers switch over it exhaustively and there is
// no registration of additional kinds at runtime.
package token

import "fmt"

// Kind represents the kind of a lexical token.
type Kind uint8

// Token kinds.
const (
	Illegal Kind = iota
	EOF
	Colon        // :
	Semicolon    // ;
	Word         // any whitespace-delimited run that is not a literal or comment
	Number       // 12, &12, %0101, $ff, 0xFE, 'c'
	Comment      // \ line comment or ( paren comment )
	StackComment // ( n -- n )
)

var kindNames = [...]string{
	Illegal:      "Illegal",
	EOF:          "EOF",
	Colon:        "Colon",
	Semicolon:    "Semicolon",
	Word:         "Word",
	Number:       "Number",
	Comment:      "Comment",
	StackComment: "StackComment",
}

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Span is a character range in the source plus the exact text it covers.
// Start and End count Unicode code points; End is exclusive.
type Span struct {
	Start int
	End   int
	Text  string
}

// Len returns the number of characters covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains returns true if the span contains the given character offset.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// Token is a classified, positioned fragment of source text.
type Token struct {
	Kind Kind
	Span
}

// String renders the token as Kind("text"), mostly for test failures and debug output.
func (t Token) String() string {
	switch t.Kind {
	case EOF, Illegal, Colon, Semicolon:
		return t.Kind.String()
	default:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
	}
}

// Adjacent reports whether next starts exactly where t ends, with no gap.
func (t Token) Adjacent(next Token) bool {
	return t.End == next.Start
}
