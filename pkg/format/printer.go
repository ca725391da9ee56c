package format

import (
	"strings"
)

// printer writes words separated by spaces and indents new lines.
type printer struct {
	opts        Options
	output      strings.Builder
	depth       int
	atLineStart bool
}

func newPrinter(opts Options) *printer {
	return &printer{opts: opts, atLineStart: true}
}

// String returns the output with exactly one trailing newline, or nothing
// for empty output.
func (p *printer) String() string {
	out := strings.TrimRight(p.output.String(), " \t\n")
	if out == "" {
		return ""
	}
	return out + "\n"
}

// write prints s after the indentation or word spacing it needs.
func (p *printer) write(s string) {
	if p.atLineStart {
		p.writeIndent()
	} else {
		p.output.WriteString(strings.Repeat(" ", max(p.opts.WordSpacing, 1)))
	}
	p.output.WriteString(s)
	p.atLineStart = false
}

// writeln ends the current line. It does nothing at the start of a line.
func (p *printer) writeln() {
	if p.atLineStart {
		return
	}
	p.output.WriteByte('\n')
	p.atLineStart = true
}

// blankLine ends the current line and leaves one empty line after it.
func (p *printer) blankLine() {
	p.writeln()
	if p.output.Len() > 0 && !strings.HasSuffix(p.output.String(), "\n\n") {
		p.output.WriteByte('\n')
	}
}

func (p *printer) writeIndent() {
	if p.opts.UseSpaces {
		p.output.WriteString(strings.Repeat(" ", p.depth*p.opts.IndentWidth))
		return
	}
	p.output.WriteString(strings.Repeat("\t", p.depth))
}

func (p *printer) indent() {
	p.depth++
}

// dedent never leaves a definition body's first level.
func (p *printer) dedent() {
	if p.depth > 1 {
		p.depth--
	}
}
