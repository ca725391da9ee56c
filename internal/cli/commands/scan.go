package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/forthls/internal/cli/output"
	"github.com/leapstack-labs/forthls/pkg/scanner"
	"github.com/leapstack-labs/forthls/pkg/token"
)

// ScanOptions holds options for the scan command.
type ScanOptions struct {
	Interactive bool
}

// NewScanCommand creates the scan command.
func NewScanCommand() *cobra.Command {
	opts := &ScanOptions{}
	cmd := &cobra.Command{
		Use:   "scan [file]",
		Short: "Print the tokens of a Forth source file",
		Long: `Tokenize a Forth source file and print every token with its kind
and position. Lines and columns are 1-based and count characters.

Reads standard input when no file (or "-") is given. With --interactive,
opens a prompt that tokenizes each line and remembers the words it defines.`,
		Example: `  # Tokenize a file
  forthls scan lib/math.fs

  # Tokenize from a pipe as JSON
  echo ': sq dup * ;' | forthls scan -o json

  # Explore interactively
  forthls scan -i`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false, "Tokenize lines typed at a prompt")

	return cmd
}

func runScan(cmd *cobra.Command, args []string, opts *ScanOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	if opts.Interactive {
		return runScanREPL(cmd, cmdCtx)
	}

	name, text, err := readSource(cmd.InOrStdin(), optionalArg(args, 0))
	if err != nil {
		return err
	}

	tokens := scanner.Tokenize(text)
	cmdCtx.Logger.Debug("Scanned", "file", name, "tokens", len(tokens))
	return renderTokens(cmdCtx.Renderer, name, tokens, token.NewLineMap(text))
}

// readSource reads path, or stdin when path is empty or "-".
func readSource(stdin io.Reader, path string) (name, text string, err error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return "<stdin>", string(data), nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is user input by design of the command
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return path, string(data), nil
}

// TokenInfo is the JSON form of a token.
type TokenInfo struct {
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// ScanOutput is the JSON output of the scan command.
type ScanOutput struct {
	File   string      `json:"file"`
	Tokens []TokenInfo `json:"tokens"`
}

func tokenInfos(tokens []token.Token, lines *token.LineMap) []TokenInfo {
	infos := make([]TokenInfo, 0, len(tokens))
	for _, tok := range tokens {
		pos := lines.OffsetToPosition(tok.Start)
		infos = append(infos, TokenInfo{
			Kind:   tok.Kind.String(),
			Text:   tok.Text,
			Start:  tok.Start,
			End:    tok.End,
			Line:   pos.Line + 1,
			Column: pos.Column + 1,
		})
	}
	return infos
}

func renderTokens(r *output.Renderer, name string, tokens []token.Token, lines *token.LineMap) error {
	infos := tokenInfos(tokens, lines)

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(ScanOutput{File: name, Tokens: infos})
	}

	r.Header(1, "Tokens in "+name)
	if len(infos) == 0 {
		r.Muted("(no tokens)")
		return nil
	}

	rows := make([]table.Row, 0, len(infos))
	for i, info := range infos {
		rows = append(rows, table.Row{i + 1, info.Kind, fmt.Sprintf("%d:%d", info.Line, info.Column), displayText(info.Text)})
	}
	r.Table(table.Row{"#", "Kind", "Pos", "Text"}, rows)

	if r.EffectiveMode() == output.ModeText {
		r.Muted(fmt.Sprintf("%d tokens", len(infos)))
	} else {
		r.Println(output.FormatKeyValue("Tokens", fmt.Sprintf("%d", len(infos))))
	}
	return nil
}

// displayText keeps multi-line comments on one table row.
func displayText(s string) string {
	return strings.NewReplacer("\r", `\r`, "\n", `\n`, "\t", `\t`).Replace(s)
}
