package commands

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/forthls/internal/cli/output"
	"github.com/leapstack-labs/forthls/internal/words"
	"github.com/leapstack-labs/forthls/pkg/index"
	"github.com/leapstack-labs/forthls/pkg/scanner"
	"github.com/leapstack-labs/forthls/pkg/token"
)

const replPrompt = "forth> "

func runScanREPL(cmd *cobra.Command, cmdCtx *CommandContext) error {
	vocab, err := cmdCtx.Cfg.Vocabulary()
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile(),
		AutoComplete:    newWordCompleter(vocab),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "forthls token explorer")
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	session := newScanSession(cmdCtx.Renderer)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if session.eval(line) {
			break
		}
	}

	return nil
}

// historyFile keeps REPL history in the user cache directory, or nowhere.
func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "forthls")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ""
	}
	return filepath.Join(dir, "scan_history")
}

// scanSession tokenizes one line at a time. Every line is indexed as its
// own file, so words defined earlier can be looked up later.
type scanSession struct {
	r     *output.Renderer
	ix    *index.Index
	lines int
}

func newScanSession(r *output.Renderer) *scanSession {
	return &scanSession{r: r, ix: index.New()}
}

// eval handles one input line and reports whether the session should end.
func (s *scanSession) eval(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	// .s and ." are Forth words, so only known commands are intercepted.
	if replCommands[strings.ToLower(fields[0])] {
		return s.dotCommand(fields)
	}

	s.lines++
	id := lineID(s.lines)
	tokens := scanner.Tokenize(line)
	lines := token.NewLineMap(line)
	s.ix.UpdateFile(id, tokens, lines)

	if err := renderTokens(s.r, id, tokens, lines); err != nil {
		s.r.Error(err.Error())
	}
	for _, def := range index.ExtractDefinitions(tokens) {
		s.r.Success("defined " + def.Name)
	}
	return false
}

var replCommands = map[string]bool{
	".help":  true,
	".words": true,
	".refs":  true,
	".reset": true,
	".quit":  true,
	".exit":  true,
}

func (s *scanSession) dotCommand(parts []string) bool {
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.r.Writer())

	case ".words":
		defined := s.ix.AllWords()
		if len(defined) == 0 {
			s.r.Muted("(no words defined)")
			break
		}
		s.r.Println(strings.Join(defined, " "))

	case ".refs":
		if len(parts) < 2 {
			s.r.Warning("Usage: .refs <word>")
			break
		}
		locs := s.ix.FindAllReferences(parts[1], true)
		if len(locs) == 0 {
			s.r.Muted("(no uses of " + parts[1] + ")")
			break
		}
		for _, loc := range locs {
			s.r.Printf("  %s col %d\n", loc.FileID, loc.Range.Start.Column+1)
		}

	case ".reset":
		s.ix = index.New()
		s.lines = 0
		s.r.Muted("(session cleared)")
	}
	return false
}

func lineID(n int) string {
	return fmt.Sprintf("line %d", n)
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .words          List words defined so far
  .refs <word>    Show the lines that define or use a word
  .reset          Forget all lines entered so far
  .quit / .exit   Exit the REPL

Anything else is tokenized. Tab completes builtin words.
`
	_, _ = fmt.Fprintln(w, help)
}

// newWordCompleter completes dot-commands and the builtin vocabulary.
func newWordCompleter(vocab *words.Vocabulary) *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(replCommands)+vocab.Len())
	for _, c := range slices.Sorted(maps.Keys(replCommands)) {
		items = append(items, readline.PcItem(c))
	}
	for _, w := range vocab.All() {
		items = append(items, readline.PcItem(cases.Lower(language.Und).String(w.Token)))
	}
	return readline.NewPrefixCompleter(items...)
}
