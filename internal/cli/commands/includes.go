package commands

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/forthls/internal/cli/output"
	"github.com/leapstack-labs/forthls/internal/includes"
	"github.com/leapstack-labs/forthls/internal/workspace"
)

// IncludesOptions holds options for the includes command.
type IncludesOptions struct {
	Affected string
}

// NewIncludesCommand creates the includes command.
func NewIncludesCommand() *cobra.Command {
	opts := &IncludesOptions{}
	cmd := &cobra.Command{
		Use:   "includes [dir]",
		Short: "Show how source files load each other",
		Long: `Follow INCLUDE, REQUIRE and S" ..." INCLUDED phrases between the Forth
source files under a directory (the project root by default).

Files are listed in load order, each after the files it includes. Names
that match no source file and include cycles are reported.

With --affected, also list every file that loads the given file, directly
or through other files: the files to reload after changing it.`,
		Example: `  # Load order of the current project
  forthls includes

  # As JSON
  forthls includes ./src -o json

  # Files to reload after editing lib/math.fs
  forthls includes --affected lib/math.fs`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIncludes(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Affected, "affected", "", "List the files that load this file, relative to the root")

	return cmd
}

// FileIncludes is one file in the includes output.
type FileIncludes struct {
	File       string   `json:"file"`
	Includes   []string `json:"includes"`
	IncludedBy []string `json:"included_by"`
}

// MissingInclude is a load phrase naming a file outside the workspace.
type MissingInclude struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Word   string `json:"word"`
	Path   string `json:"path"`
}

// IncludesOutput is the JSON output of the includes command.
type IncludesOutput struct {
	Root        string           `json:"root"`
	Order       []FileIncludes   `json:"order"`
	Entrypoints []string         `json:"entrypoints"`
	Edges       int              `json:"edges"`
	Missing     []MissingInclude `json:"missing"`
	Cycle       []string         `json:"cycle,omitempty"`
	Affected    []string         `json:"affected,omitempty"`
}

func runIncludes(cmd *cobra.Command, args []string, opts *IncludesOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	ws, err := cmdCtx.LoadWorkspace(cmd.Context(), optionalArg(args, 0))
	if err != nil {
		return err
	}

	out, err := collectIncludes(ws, opts.Affected)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	renderIncludes(r, out)
	return nil
}

func collectIncludes(ws *Workspace, affected string) (IncludesOutput, error) {
	g, missing := includes.Build(ws.Root, ws.Files)
	rel := func(path string) string { return ws.RelPath(workspace.PathToURI(path)) }
	relAll := func(paths []string) []string {
		out := make([]string, 0, len(paths))
		for _, path := range paths {
			out = append(out, rel(path))
		}
		return out
	}

	out := IncludesOutput{
		Root:        ws.Root,
		Order:       []FileIncludes{},
		Entrypoints: relAll(g.Entrypoints()),
		Edges:       g.IncludeCount(),
		Missing:     []MissingInclude{},
	}

	order, err := g.LoadOrder()
	if err != nil {
		order = g.Files()
		for _, path := range g.FindCycle() {
			out.Cycle = append(out.Cycle, rel(path))
		}
	}
	for _, path := range order {
		out.Order = append(out.Order, FileIncludes{
			File:       rel(path),
			Includes:   relAll(g.Includes(path)),
			IncludedBy: relAll(g.IncludedBy(path)),
		})
	}

	if affected != "" {
		path := filepath.Join(ws.Root, filepath.FromSlash(affected))
		if filepath.IsAbs(affected) {
			path = filepath.Clean(affected)
		}
		if !slices.Contains(g.Files(), path) {
			return out, fmt.Errorf("%s is not a source file under %s", affected, ws.Root)
		}
		out.Affected = relAll(g.Affected([]string{path}))
	}

	lines := make(map[string]*workspace.File, len(ws.Files))
	for _, f := range ws.Files {
		lines[f.Path] = f
	}
	for _, m := range missing {
		pos := lines[m.File].Lines.OffsetToPosition(m.Directive.Start)
		out.Missing = append(out.Missing, MissingInclude{
			File:   rel(m.File),
			Line:   pos.Line + 1,
			Column: pos.Column + 1,
			Word:   m.Directive.Word,
			Path:   m.Directive.Path,
		})
	}
	return out, nil
}

func renderIncludes(r *output.Renderer, out IncludesOutput) {
	r.Header(1, "Load order")
	if len(out.Order) == 0 {
		r.Muted("(no source files)")
		return
	}

	rows := make([]table.Row, 0, len(out.Order))
	for i, fi := range out.Order {
		rows = append(rows, table.Row{i + 1, fi.File, strings.Join(fi.Includes, ", ")})
	}
	r.Table(table.Row{"#", "File", "Includes"}, rows)

	if r.EffectiveMode() == output.ModeText {
		r.Muted(fmt.Sprintf("%d includes; entrypoints: %s", out.Edges, strings.Join(out.Entrypoints, ", ")))
	} else {
		r.Println(output.FormatKeyValue("Includes", fmt.Sprintf("%d", out.Edges)))
		r.Println(output.FormatKeyValue("Entrypoints", strings.Join(out.Entrypoints, ", ")))
	}

	if out.Affected != nil {
		r.Println()
		r.Header(2, "Affected files")
		for _, path := range out.Affected {
			r.Println("- " + path)
		}
	}

	if len(out.Cycle) > 0 {
		r.Error("Include cycle: " + strings.Join(out.Cycle, " -> "))
	}
	for _, m := range out.Missing {
		r.Warning(fmt.Sprintf("%s:%d:%d: %s %s: no such source file", m.File, m.Line, m.Column, m.Word, m.Path))
	}
}
