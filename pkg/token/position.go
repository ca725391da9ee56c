package token

import (
	"sort"
	"unicode/utf8"
)

// Position is a zero-based line and column in the source.
// Column counts Unicode code points from the start of the line.
type Position struct {
	Line   int
	Column int
}

// LineMap converts character offsets to positions and back for one version
// of a source text. Build a new one whenever the text changes.
type LineMap struct {
	starts []int // character offset of each line start
	length int   // total characters in the text
}

// NewLineMap computes line starts for text.
func NewLineMap(text string) *LineMap {
	m := &LineMap{starts: []int{0}}

	n := 0
	for _, r := range text {
		n++
		if r == '\n' {
			m.starts = append(m.starts, n)
		}
	}
	m.length = n
	return m
}

// LineCount returns the number of lines, counting a trailing empty line.
func (m *LineMap) LineCount() int {
	return len(m.starts)
}

// OffsetToPosition converts a character offset to a Position.
// Offsets outside the text are clamped.
func (m *LineMap) OffsetToPosition(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > m.length {
		offset = m.length
	}

	// Index of the last line starting at or before offset.
	line := sort.Search(len(m.starts), func(i int) bool {
		return m.starts[i] > offset
	}) - 1

	return Position{Line: line, Column: offset - m.starts[line]}
}

// PositionToOffset converts a Position to a character offset.
// Columns past the end of a line are clamped to the line end.
func (m *LineMap) PositionToOffset(pos Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= len(m.starts) {
		return m.length
	}

	end := m.length
	if pos.Line+1 < len(m.starts) {
		end = m.starts[pos.Line+1] - 1 // the newline itself
	}

	offset := m.starts[pos.Line] + pos.Column
	if pos.Column < 0 {
		offset = m.starts[pos.Line]
	}
	if offset > end {
		offset = end
	}
	return offset
}

// CharCount returns the number of characters in s.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}
