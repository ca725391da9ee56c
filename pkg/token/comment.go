package token

import "strings"

// StackEffectMarker separates inputs from outputs in a stack comment.
const StackEffectMarker = "--"

// ClassifyParenComment returns StackComment if the captured comment text
// documents a stack effect, Comment otherwise.
func ClassifyParenComment(text string) Kind {
	if strings.Contains(text, StackEffectMarker) {
		return StackComment
	}
	return Comment
}

// IsComment returns true for both plain and stack comments.
func (t Token) IsComment() bool {
	return t.Kind == Comment || t.Kind == StackComment
}

// IsLineComment returns true if this is a backslash comment.
func (t Token) IsLineComment() bool {
	return t.Kind == Comment && strings.HasPrefix(t.Text, `\`)
}

// Terminated reports whether a parenthetical comment has its closing paren.
// Line comments are always terminated.
func (t Token) Terminated() bool {
	if !t.IsComment() || t.IsLineComment() {
		return true
	}
	return strings.HasSuffix(t.Text, ")")
}
