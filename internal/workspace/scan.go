package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/forthls/pkg/index"
	"github.com/leapstack-labs/forthls/pkg/scanner"
	"github.com/leapstack-labs/forthls/pkg/token"
)

// File is a scanned source file, ready to be indexed.
type File struct {
	Path   string
	URI    string
	Text   string
	Tokens []token.Token
	Lines  *token.LineMap
}

// NewFile scans text as the contents of path.
func NewFile(path, text string) *File {
	return &File{
		Path:   path,
		URI:    PathToURI(path),
		Text:   text,
		Tokens: scanner.Tokenize(text),
		Lines:  token.NewLineMap(text),
	}
}

// ReadFile reads and scans the file at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // paths come from the workspace walk or the editor
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewFile(path, string(data)), nil
}

// IndexInto replaces the file's contribution to ix.
func (f *File) IndexInto(ix *index.Index) {
	ix.UpdateFile(f.URI, f.Tokens, f.Lines)
}

// Matcher reports whether a path is a source file.
type Matcher func(path string) bool

// skipDir reports whether a directory should not be descended into.
func skipDir(root, path string, d fs.DirEntry) bool {
	if path == root {
		return false
	}
	name := d.Name()
	return strings.HasPrefix(name, ".") || name == "node_modules"
}

// Discover lists the source files under root, sorted by path.
func Discover(root string, match Matcher) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(root, path, d) {
				return filepath.SkipDir
			}
			return nil
		}
		if match(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return paths, nil
}

// Scan reads and tokenizes every source file under root in parallel. Results
// keep the order of Discover. A file that cannot be read is left out and its
// error joined into the returned error, alongside the files that were read.
// Cancellation stops the scan and returns no files.
func Scan(ctx context.Context, root string, match Matcher) ([]*File, error) {
	paths, err := Discover(root, match)
	if err != nil {
		return nil, err
	}

	files := make([]*File, len(paths))
	readErrs := make([]error, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			files[i], readErrs[i] = ReadFile(path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.DeleteFunc(files, func(f *File) bool { return f == nil }), errors.Join(readErrs...)
}
