package scanner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/forthls/pkg/token"
)

// kinds extracts the kind of every token.
func kinds(tokens []token.Token) []token.Kind {
	out := make([]token.Kind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

// texts extracts the text of every token.
func texts(tokens []token.Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Text
	}
	return out
}

func TestScanner_NumberLiterals(t *testing.T) {
	literals := []string{"12", "&12", "%0101001", "$ffaadd", "0xFE", "'c'", "&x1F", "1_000", "0ff"}

	for _, lit := range literals {
		t.Run(lit, func(t *testing.T) {
			tokens := Tokenize(lit)
			require.Len(t, tokens, 1)
			assert.Equal(t, token.Number, tokens[0].Kind)
			assert.Equal(t, lit, tokens[0].Text)
			assert.Equal(t, 0, tokens[0].Start)
			assert.Equal(t, token.CharCount(lit), tokens[0].End)
		})
	}
}

func TestScanner_PrefixWithoutDigitIsWord(t *testing.T) {
	tests := []struct {
		input string
		kind  token.Kind
	}{
		{"%", token.Word},
		{"%2", token.Word}, // not a binary digit
		{"&", token.Word},
		{"&9", token.Word}, // not an octal digit
		{"$", token.Word},
		{"$g", token.Word},
		{"0", token.Word},
		{"0z", token.Word},
		{"'", token.Word},
		{"'ab", token.Word},
		{`\`, token.Word},
		{`\foo`, token.Word},
		{"(", token.Word},
		{"(foo)", token.Word},
		{")", token.Word},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			require.Len(t, tokens, 1)
			assert.Equal(t, tt.kind, tokens[0].Kind)
			assert.Equal(t, tt.input, tokens[0].Text)
		})
	}
}

func TestScanner_DefinitionEndToEnd(t *testing.T) {
	tokens := Tokenize(": add1 ( n -- n ) 1 + ;")

	assert.Equal(t, []token.Kind{
		token.Colon,
		token.Word,
		token.StackComment,
		token.Number,
		token.Word,
		token.Semicolon,
	}, kinds(tokens))
	assert.Equal(t, []string{":", "add1", "( n -- n )", "1", "+", ";"}, texts(tokens))

	assert.Equal(t, token.Span{Start: 2, End: 6, Text: "add1"}, tokens[1].Span)
	assert.Equal(t, token.Span{Start: 7, End: 17, Text: "( n -- n )"}, tokens[2].Span)
}

func TestScanner_Comments(t *testing.T) {
	t.Run("line comment stops before newline", func(t *testing.T) {
		tokens := Tokenize("dup \\ copy it\nswap")
		assert.Equal(t, []string{"dup", `\ copy it`, "swap"}, texts(tokens))
		assert.Equal(t, token.Comment, tokens[1].Kind)
	})

	t.Run("line comment at end of input", func(t *testing.T) {
		tokens := Tokenize(`\ trailing`)
		require.Len(t, tokens, 1)
		assert.Equal(t, token.Comment, tokens[0].Kind)
	})

	t.Run("paren comment without stack effect", func(t *testing.T) {
		tokens := Tokenize("( just a note ) drop")
		require.Len(t, tokens, 2)
		assert.Equal(t, token.Comment, tokens[0].Kind)
		assert.Equal(t, "( just a note )", tokens[0].Text)
	})

	t.Run("paren comment spans lines", func(t *testing.T) {
		tokens := Tokenize("( a\n b -- c ) x")
		require.Len(t, tokens, 2)
		assert.Equal(t, token.StackComment, tokens[0].Kind)
		assert.Equal(t, "( a\n b -- c )", tokens[0].Text)
	})

	t.Run("unterminated paren comment runs to end", func(t *testing.T) {
		tokens := Tokenize(": foo ( a -- b dup ;")
		require.Len(t, tokens, 3)
		assert.Equal(t, token.StackComment, tokens[2].Kind)
		assert.Equal(t, "( a -- b dup ;", tokens[2].Text)
		assert.False(t, tokens[2].Terminated())
	})
}

func TestScanner_QuoteLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  []string
		kinds []token.Kind
	}{
		{"'c' emit", []string{"'c'", "emit"}, []token.Kind{token.Number, token.Word}},
		{"' dup", []string{"'", "dup"}, []token.Kind{token.Word, token.Word}},
		{"'abc'", []string{"'abc'"}, []token.Kind{token.Word}},
		{"'c'x", []string{"'c'", "x"}, []token.Kind{token.Number, token.Word}},
		{"[']", []string{"[']"}, []token.Kind{token.Word}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			assert.Equal(t, tt.want, texts(tokens))
			assert.Equal(t, tt.kinds, kinds(tokens))
		})
	}
}

func TestScanner_DigitPrefixedWordSplits(t *testing.T) {
	tokens := Tokenize(": 2swap rot >r rot r> ;")

	require.GreaterOrEqual(t, len(tokens), 3)
	assert.Equal(t, token.Number, tokens[1].Kind)
	assert.Equal(t, "2", tokens[1].Text)
	assert.Equal(t, token.Word, tokens[2].Kind)
	assert.Equal(t, "swap", tokens[2].Text)
	assert.True(t, tokens[1].Adjacent(tokens[2]))
}

func TestScanner_ColonAndSemicolonAreSingleChars(t *testing.T) {
	tokens := Tokenize(":foo;")
	assert.Equal(t, []token.Kind{token.Colon, token.Word}, kinds(tokens))
	assert.Equal(t, "foo;", tokens[1].Text)
}

func TestScanner_UnicodeOffsets(t *testing.T) {
	tokens := Tokenize("λ é→x")
	require.Len(t, tokens, 2)
	assert.Equal(t, token.Span{Start: 0, End: 1, Text: "λ"}, tokens[0].Span)
	assert.Equal(t, token.Span{Start: 2, End: 5, Text: "é→x"}, tokens[1].Span)
}

func TestScanner_EOFIsSticky(t *testing.T) {
	s := New("  dup")
	assert.Equal(t, token.Word, s.NextToken().Kind)

	for range 3 {
		tok := s.NextToken()
		assert.Equal(t, token.EOF, tok.Kind)
		assert.Equal(t, 5, tok.Start)
		assert.Equal(t, 5, tok.End)
	}
}

func TestScanner_EmptyAndBlankInput(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize(" \t\r\n  "))
}

func TestScanner_NulIsNotEndOfInput(t *testing.T) {
	tokens := Tokenize("a\x00b c")
	assert.Equal(t, []string{"a\x00b", "c"}, texts(tokens))
}

// TestScanner_ReconstructsSource checks that tokens cover every
// non-whitespace character exactly once, in order, without overlap.
func TestScanner_ReconstructsSource(t *testing.T) {
	sources := []string{
		": add1 ( n -- n ) 1 + ;",
		"VARIABLE x\n10 CONSTANT max\nCREATE buf 100 ALLOT\n: double 2 * ;",
		"\\ header\r\n: greet .\" Hello world\" cr ;\r\n",
		"( unterminated",
		"'c' ' 'x' $ff $ %1 % &7 & 0x 0 9z λ→",
		"  \t\n",
		"))) ((( \\\\ ;;: :;",
	}

	for _, src := range sources {
		tokens := Tokenize(src)
		runes := []rune(src)

		var b strings.Builder
		prev := 0
		for _, tok := range tokens {
			require.GreaterOrEqual(t, tok.Start, prev, "overlap in %q", src)
			require.Greater(t, tok.End, tok.Start, "empty token in %q", src)

			gap := string(runes[prev:tok.Start])
			assert.Empty(t, strings.Trim(gap, " \t\r\n"), "non-whitespace skipped in %q", src)
			assert.Equal(t, string(runes[tok.Start:tok.End]), tok.Text)

			b.WriteString(gap)
			b.WriteString(tok.Text)
			prev = tok.End
		}
		b.WriteString(string(runes[prev:]))

		assert.Equal(t, src, b.String())
	}
}

func FuzzScanner(f *testing.F) {
	f.Add(": add1 ( n -- n ) 1 + ;")
	f.Add("'c' ( \\ $ % & 0x")
	f.Add("\xff\xfe")

	f.Fuzz(func(t *testing.T, src string) {
		tokens := Tokenize(src)
		total := token.CharCount(src)
		prev := 0
		for _, tok := range tokens {
			if tok.Start < prev || tok.End <= tok.Start || tok.End > total {
				t.Fatalf("bad span %+v after %d in %q", tok.Span, prev, src)
			}
			prev = tok.End
		}
	})
}
