// Package format lays out Forth source.
//
// Colon definitions are rebuilt from their tokens: the name and stack
// comment on the first line, the body indented below it, and control
// structures indented inside the body. Outside definitions the original line
// breaks are kept. Inline strings, comments and words written without
// whitespace between them (2SWAP, :NONAME) are copied verbatim.
package format

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/forthls/pkg/scanner"
	"github.com/leapstack-labs/forthls/pkg/token"
)

// Options controls the layout.
type Options struct {
	IndentWidth                   int  // spaces per level when UseSpaces is set
	UseSpaces                     bool // indent with spaces instead of tabs
	WordSpacing                   int  // spaces between words on one line
	IndentControlStructures       bool // body on its own lines, IF/DO/BEGIN blocks indented
	StackCommentOnDeclarationLine bool // ": name ( a -- b )" rather than on the next line
	PreserveDefinitionNewlines    bool // keep the line breaks written inside definitions
	BlankLineBetweenDefinitions   bool // separate colon definitions with an empty line
}

// DefaultOptions returns the default layout.
func DefaultOptions() Options {
	return Options{
		IndentWidth:                   2,
		UseSpaces:                     true,
		WordSpacing:                   1,
		IndentControlStructures:       true,
		StackCommentOnDeclarationLine: true,
		BlankLineBetweenDefinitions:   true,
	}
}

var (
	controlStart = set("if", "do", "?do", "begin", "case", "of")
	controlMid   = set("else", "while")
	controlEnd   = set("then", "loop", "+loop", "until", "repeat", "again", "endcase", "endof")
)

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Source formats text. The result ends in a single newline unless text
// holds no tokens, in which case it is empty.
func Source(text string, opts Options) string {
	f := &formatter{opts: opts, p: newPrinter(opts)}
	for _, pc := range split(text) {
		f.add(pc)
	}
	return f.p.String()
}

type state int

const (
	topLevel  state = iota
	afterColon      // the next piece names the definition
	afterName       // a stack comment may follow
	inBody
)

type formatter struct {
	opts  Options
	p     *printer
	state state
	first bool   // no body piece written yet
	prev  *piece // last piece added
}

func (f *formatter) add(pc piece) {
	newLine := f.prev != nil && pc.line > f.prev.endLine
	blank := f.prev != nil && pc.line > f.prev.endLine+1
	defer func() { f.prev = &pc }()

	switch {
	case pc.kind == token.Colon:
		f.startDefinition(pc, blank)

	case pc.kind == token.Semicolon && f.state != topLevel:
		f.p.depth = 0
		f.p.write(pc.text)
		f.p.writeln()
		f.state = topLevel

	case f.state == afterColon:
		f.p.write(pc.text)
		f.state = afterName
		if pc.lineComment {
			f.p.writeln()
		}

	case f.state == afterName && pc.kind == token.StackComment:
		if !f.opts.StackCommentOnDeclarationLine {
			f.p.depth = 1
			f.p.writeln()
		}
		f.p.write(pc.text)
		f.state = inBody
		f.first = true

	case f.state == afterName:
		f.state = inBody
		f.first = true
		f.body(pc, newLine)

	case f.state == inBody:
		f.body(pc, newLine)

	default:
		if blank {
			f.p.blankLine()
		} else if newLine {
			f.p.writeln()
		}
		f.p.write(pc.text)
		if pc.lineComment {
			f.p.writeln()
		}
	}
}

// startDefinition opens a colon definition on a fresh line. A line comment
// directly above stays attached to it.
func (f *formatter) startDefinition(pc piece, blank bool) {
	f.p.depth = 0
	if f.prev != nil {
		documented := f.prev.lineComment && f.prev.endLine == pc.line-1
		if blank || (f.opts.BlankLineBetweenDefinitions && !documented) {
			f.p.blankLine()
		} else {
			f.p.writeln()
		}
	}
	f.p.write(pc.text)
	f.state = afterColon
}

// body lays out one piece of a definition body.
func (f *formatter) body(pc piece, newLine bool) {
	p := f.p
	switch {
	case f.first:
		f.first = false
		p.depth = 1
		if f.opts.IndentControlStructures || (f.opts.PreserveDefinitionNewlines && newLine) {
			p.writeln()
		}
	case f.opts.PreserveDefinitionNewlines && newLine:
		p.writeln()
	}

	word := ""
	if pc.kind == token.Word {
		word = fold(pc.text)
	}
	if f.opts.IndentControlStructures {
		switch {
		case controlMid[word]:
			p.writeln()
			p.dedent()
			p.write(pc.text)
			p.indent()
			p.writeln()
			return
		case controlEnd[word]:
			p.writeln()
			p.dedent()
			p.write(pc.text)
			return
		case controlStart[word]:
			p.write(pc.text)
			p.indent()
			p.writeln()
			return
		}
	}

	p.write(pc.text)
	if pc.lineComment {
		p.writeln()
	}
}

// piece is a run of tokens printed as one unit.
type piece struct {
	text        string
	kind        token.Kind // kind of a single token; Word for longer runs
	line        int        // source line of the first character
	endLine     int        // source line of the last character
	lineComment bool       // ends with a line comment
}

// split groups tokens into pieces: an inline string with its opener, and
// any tokens with no whitespace between them.
func split(text string) []piece {
	tokens := scanner.Tokenize(text)
	lines := token.NewLineMap(text)
	runes := []rune(text)

	var pieces []piece
	for i := 0; i < len(tokens); {
		j := i + 1
		if closer, ok := tokens[i].StringCloser(); ok {
			j = min(token.StringEnd(tokens, i+1, closer)+1, len(tokens))
		}
		for j < len(tokens) && tokens[j-1].Adjacent(tokens[j]) {
			j++
		}

		first, last := tokens[i], tokens[j-1]
		pc := piece{
			text:        string(runes[first.Start:last.End]),
			kind:        token.Word,
			line:        lines.OffsetToPosition(first.Start).Line,
			endLine:     lines.OffsetToPosition(last.End).Line,
			lineComment: last.IsLineComment(),
		}
		if j == i+1 {
			pc.kind = first.Kind
		}
		if pc.lineComment {
			pc.text = trimRightSpace(pc.text)
		}
		pieces = append(pieces, pc)
		i = j
	}
	return pieces
}

func trimRightSpace(s string) string {
	end := len(s)
	for end > 0 && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\r') {
		end--
	}
	return s[:end]
}
