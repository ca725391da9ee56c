package includes

import (
	"path/filepath"

	"github.com/leapstack-labs/forthls/internal/workspace"
)

// Missing is a directive whose file is not part of the workspace.
type Missing struct {
	File      string // the including file
	Directive Directive
}

// Build links the files of a workspace by their directives. A name resolves
// against the including file's directory first, then against root. Names
// that match no workspace file are returned as missing.
func Build(root string, files []*workspace.File) (*Graph, []Missing) {
	g := NewGraph()
	for _, f := range files {
		g.AddFile(f.Path)
	}

	var missing []Missing
	for _, f := range files {
		for _, d := range Extract(f.Tokens) {
			target, ok := resolve(g, root, f.Path, d.Path)
			if !ok {
				missing = append(missing, Missing{File: f.Path, Directive: d})
				continue
			}
			// A file that includes itself is reported as a cycle.
			if target == f.Path {
				g.includes[f.Path] = append(g.includes[f.Path], target)
				g.includedBy[target] = append(g.includedBy[target], f.Path)
				continue
			}
			_ = g.AddInclude(f.Path, target)
		}
	}
	return g, missing
}

func resolve(g *Graph, root, from, name string) (string, bool) {
	name = filepath.FromSlash(name)
	if filepath.IsAbs(name) {
		name = filepath.Clean(name)
		return name, g.files[name]
	}
	for _, dir := range []string{filepath.Dir(from), root} {
		candidate := filepath.Join(dir, name)
		if g.files[candidate] {
			return candidate, true
		}
	}
	return "", false
}
