// Package includes tracks which Forth source files load which others
// through INCLUDE, REQUIRE and INCLUDED. It supports cycle detection, load
// ordering and finding the files affected by a change.
package includes

import (
	"fmt"
	"slices"
	"sort"
)

// Graph is a directed graph of files. An edge runs from an included file
// to the file that includes it, so dependencies come before dependents.
type Graph struct {
	files      map[string]bool
	includedBy map[string][]string // included -> includers
	includes   map[string][]string // includer -> included
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		files:      make(map[string]bool),
		includedBy: make(map[string][]string),
		includes:   make(map[string][]string),
	}
}

// AddFile adds a file to the graph. Adding a file twice is a no-op.
func (g *Graph) AddFile(path string) {
	if g.files[path] {
		return
	}
	g.files[path] = true
	g.includedBy[path] = []string{}
	g.includes[path] = []string{}
}

// AddInclude records that includer loads included.
func (g *Graph) AddInclude(includer, included string) error {
	if !g.files[includer] {
		return fmt.Errorf("file %q is not in the graph", includer)
	}
	if !g.files[included] {
		return fmt.Errorf("file %q is not in the graph", included)
	}
	if includer == included {
		return fmt.Errorf("file includes itself: %s", includer)
	}

	if !slices.Contains(g.includedBy[included], includer) {
		g.includedBy[included] = append(g.includedBy[included], includer)
	}
	if !slices.Contains(g.includes[includer], included) {
		g.includes[includer] = append(g.includes[includer], included)
	}
	return nil
}

// Includes returns the files path loads directly, in source order.
func (g *Graph) Includes(path string) []string {
	return g.includes[path]
}

// IncludedBy returns the files that load path directly.
func (g *Graph) IncludedBy(path string) []string {
	return g.includedBy[path]
}

// Files returns every file in the graph, sorted.
func (g *Graph) Files() []string {
	files := make([]string, 0, len(g.files))
	for path := range g.files {
		files = append(files, path)
	}
	sort.Strings(files)
	return files
}

// FileCount returns the number of files in the graph.
func (g *Graph) FileCount() int {
	return len(g.files)
}

// IncludeCount returns the number of include edges.
func (g *Graph) IncludeCount() int {
	count := 0
	for _, included := range g.includes {
		count += len(included)
	}
	return count
}

// FindCycle returns a chain of includes that loops back on itself, with the
// repeated file at both ends, or nil if there is none.
func (g *Graph) FindCycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	from := make(map[string]string)

	var cycle []string

	var dfs func(path string) bool
	dfs = func(path string) bool {
		visited[path] = true
		onStack[path] = true

		for _, next := range g.includes[path] {
			if !visited[next] {
				from[next] = path
				if dfs(next) {
					return true
				}
			} else if onStack[next] {
				cycle = []string{next}
				for curr := path; curr != next; curr = from[curr] {
					cycle = append([]string{curr}, cycle...)
				}
				cycle = append([]string{next}, cycle...)
				return true
			}
		}

		onStack[path] = false
		return false
	}

	for _, path := range g.Files() {
		if !visited[path] && dfs(path) {
			return cycle
		}
	}
	return nil
}

// LoadOrder returns every file after the files it includes. Ties are
// broken by path. It fails if the includes form a cycle.
func (g *Graph) LoadOrder() ([]string, error) {
	if cycle := g.FindCycle(); cycle != nil {
		return nil, fmt.Errorf("include cycle: %v", cycle)
	}

	visited := make(map[string]bool)
	var order []string

	var visit func(path string)
	visit = func(path string) {
		if visited[path] {
			return
		}
		visited[path] = true
		for _, dep := range g.includes[path] {
			visit(dep)
		}
		order = append(order, path)
	}

	for _, path := range g.Files() {
		visit(path)
	}
	return order, nil
}

// Affected returns the changed files and every file that includes them,
// directly or not, sorted.
func (g *Graph) Affected(changed []string) []string {
	affected := make(map[string]bool)

	var mark func(path string)
	mark = func(path string) {
		if affected[path] {
			return
		}
		affected[path] = true
		for _, includer := range g.includedBy[path] {
			mark(includer)
		}
	}

	for _, path := range changed {
		if g.files[path] {
			mark(path)
		}
	}

	result := make([]string, 0, len(affected))
	for path := range affected {
		result = append(result, path)
	}
	sort.Strings(result)
	return result
}

// Entrypoints returns the files no other file includes, sorted.
func (g *Graph) Entrypoints() []string {
	var entries []string
	for path := range g.files {
		if len(g.includedBy[path]) == 0 {
			entries = append(entries, path)
		}
	}
	sort.Strings(entries)
	return entries
}
