package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/forthls/internal/cli/output"
	"github.com/leapstack-labs/forthls/internal/workspace"
	"github.com/leapstack-labs/forthls/pkg/index"
)

// RefsOptions holds options for the refs command.
type RefsOptions struct {
	IncludeDeclaration bool
}

// NewRefsCommand creates the refs command.
func NewRefsCommand() *cobra.Command {
	opts := &RefsOptions{}
	cmd := &cobra.Command{
		Use:   "refs <word> [dir]",
		Short: "Show where a word is defined and used",
		Long: `Index every Forth source file under a directory (the project root by
default) and list the sites that define and use a word. Matching
ignores case, as Forth does.`,
		Example: `  # Everything about SQUARE
  forthls refs square

  # Uses only, as JSON
  forthls refs square --include-declaration=false -o json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefs(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.IncludeDeclaration, "include-declaration", true, "Include definition sites")

	return cmd
}

// RefInfo is one site in the refs output.
type RefInfo struct {
	Kind   string `json:"kind"` // definition or reference
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Source string `json:"source"`
}

// RefsOutput is the JSON output of the refs command.
type RefsOutput struct {
	Word string    `json:"word"`
	Refs []RefInfo `json:"refs"`
}

func runRefs(cmd *cobra.Command, args []string, opts *RefsOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	ws, err := cmdCtx.LoadWorkspace(cmd.Context(), optionalArg(args, 1))
	if err != nil {
		return err
	}

	word := args[0]
	refs := collectRefs(ws, word, opts.IncludeDeclaration)
	r := cmdCtx.Renderer

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(RefsOutput{Word: word, Refs: refs})
	}
	renderRefs(r, word, refs)
	return nil
}

// collectRefs lists definitions first, then references, each in index order.
func collectRefs(ws *Workspace, word string, includeDeclaration bool) []RefInfo {
	files := make(map[string]*workspace.File, len(ws.Files))
	for _, f := range ws.Files {
		files[f.URI] = f
	}

	refs := []RefInfo{}
	add := func(kind string, locs []index.Location) {
		for _, loc := range locs {
			refs = append(refs, RefInfo{
				Kind:   kind,
				File:   ws.RelPath(loc.FileID),
				Line:   loc.Range.Start.Line + 1,
				Column: loc.Range.Start.Column + 1,
				Source: sourceLine(files[loc.FileID], loc.Range.Start.Line),
			})
		}
	}

	if includeDeclaration {
		add("definition", ws.Index.FindDefinitions(word))
	}
	add("reference", ws.Index.FindReferences(word))
	return refs
}

// sourceLine returns one line of a file, trimmed, for context.
func sourceLine(f *workspace.File, line int) string {
	if f == nil {
		return ""
	}
	lines := strings.Split(f.Text, "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line])
}

func renderRefs(r *output.Renderer, word string, refs []RefInfo) {
	r.Header(1, "References to "+word)
	if len(refs) == 0 {
		r.Warning(fmt.Sprintf("No definitions or uses of %q", word))
		return
	}

	rows := make([]table.Row, 0, len(refs))
	defs := 0
	for _, ref := range refs {
		if ref.Kind == "definition" {
			defs++
		}
		rows = append(rows, table.Row{ref.Kind, fmt.Sprintf("%s:%d:%d", ref.File, ref.Line, ref.Column), ref.Source})
	}
	r.Table(table.Row{"Kind", "Location", "Source"}, rows)

	if r.EffectiveMode() == output.ModeText {
		styles := r.Styles()
		r.Println(styles.Word.Render(word) + styles.Muted.Render(fmt.Sprintf(": %d definitions, %d references", defs, len(refs)-defs)))
		return
	}
	r.Println(output.FormatKeyValue("Definitions", fmt.Sprintf("%d", defs)))
	r.Println(output.FormatKeyValue("References", fmt.Sprintf("%d", len(refs)-defs)))
}
