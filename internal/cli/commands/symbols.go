package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/forthls/internal/cli/output"
	"github.com/leapstack-labs/forthls/pkg/index"
)

// SymbolsOptions holds options for the symbols command.
type SymbolsOptions struct {
	Match string // case-insensitive substring filter
}

// NewSymbolsCommand creates the symbols command.
func NewSymbolsCommand() *cobra.Command {
	opts := &SymbolsOptions{}
	cmd := &cobra.Command{
		Use:   "symbols [dir]",
		Short: "List every word defined in a directory",
		Long: `Index every Forth source file under a directory (the project root by
default) and list the words it defines, in file order.

Colon definitions and names introduced by defining words such as
VARIABLE and CONSTANT are listed. Names defined more than once are
reported.`,
		Example: `  # List definitions in the current project
  forthls symbols

  # Only words containing "stack"
  forthls symbols --match stack ./lib`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSymbols(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Match, "match", "m", "", "Only list names containing this text (case-insensitive)")

	return cmd
}

// SymbolInfo is one definition in the symbols output.
type SymbolInfo struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Defined int    `json:"defined"` // definitions of this name in the workspace
}

// SymbolsOutput is the JSON output of the symbols command.
type SymbolsOutput struct {
	Root    string       `json:"root"`
	Files   int          `json:"files"`
	Symbols []SymbolInfo `json:"symbols"`
}

func runSymbols(cmd *cobra.Command, args []string, opts *SymbolsOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	ws, err := cmdCtx.LoadWorkspace(cmd.Context(), optionalArg(args, 0))
	if err != nil {
		return err
	}

	symbols := collectSymbols(ws, opts.Match)
	r := cmdCtx.Renderer

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(SymbolsOutput{Root: ws.Root, Files: len(ws.Files), Symbols: symbols})
	}
	renderSymbols(r, ws, symbols)
	return nil
}

// collectSymbols lists definitions file by file, in source order.
func collectSymbols(ws *Workspace, match string) []SymbolInfo {
	fold := cases.Fold()
	match = fold.String(match)

	symbols := []SymbolInfo{}
	for _, f := range ws.Files {
		defs := index.ExtractDefinitions(f.Tokens)
		sort.SliceStable(defs, func(i, j int) bool { return defs[i].Start < defs[j].Start })

		for _, def := range defs {
			if match != "" && !strings.Contains(fold.String(def.Name), match) {
				continue
			}
			pos := f.Lines.OffsetToPosition(def.Start)
			symbols = append(symbols, SymbolInfo{
				Name:    def.Name,
				Kind:    definitionKind(def),
				File:    ws.RelPath(f.URI),
				Line:    pos.Line + 1,
				Column:  pos.Column + 1,
				Defined: len(ws.Index.FindDefinitions(def.Name)),
			})
		}
	}
	return symbols
}

func definitionKind(def index.Definition) string {
	if def.Kind == index.ColonDefinition {
		return ":"
	}
	return cases.Lower(language.Und).String(def.Keyword)
}

func renderSymbols(r *output.Renderer, ws *Workspace, symbols []SymbolInfo) {
	r.Header(1, "Definitions")
	if len(symbols) == 0 {
		r.Muted(fmt.Sprintf("(no definitions in %d files)", len(ws.Files)))
		return
	}

	rows := make([]table.Row, 0, len(symbols))
	duplicates := map[string]bool{}
	for _, s := range symbols {
		rows = append(rows, table.Row{s.Name, s.Kind, fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)})
		if s.Defined > 1 {
			duplicates[cases.Lower(language.Und).String(s.Name)] = true
		}
	}
	r.Table(table.Row{"Name", "Kind", "Location"}, rows)

	summary := fmt.Sprintf("%d definitions in %d files", len(symbols), len(ws.Files))
	if r.EffectiveMode() == output.ModeText {
		r.Muted(summary)
	} else {
		r.Println(output.FormatKeyValue("Definitions", fmt.Sprintf("%d", len(symbols))))
		r.Println(output.FormatKeyValue("Files", fmt.Sprintf("%d", len(ws.Files))))
	}
	if len(duplicates) > 0 {
		names := make([]string, 0, len(duplicates))
		for name := range duplicates {
			names = append(names, name)
		}
		sort.Strings(names)
		r.Warning("Defined more than once: " + strings.Join(names, ", "))
	}
}
