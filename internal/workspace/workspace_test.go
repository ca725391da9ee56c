package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/forthls/internal/testutil"
	"github.com/leapstack-labs/forthls/pkg/index"
)

func isForth(path string) bool {
	return strings.HasSuffix(path, ".fs") || strings.HasSuffix(path, ".fth")
}

func TestURIRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		path string
		uri  string
	}{
		{"plain", "/home/user/main.fs", "file:///home/user/main.fs"},
		{"space", "/home/user/my lib/words.fs", "file:///home/user/my%20lib/words.fs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.uri, PathToURI(tt.path))
			assert.Equal(t, tt.path, URIToPath(tt.uri))
		})
	}
}

func TestURIToPath_NotAFileURI(t *testing.T) {
	assert.Equal(t, "untitled:1", URIToPath("untitled:1"))
	assert.Equal(t, "file:///x.fs", PathToURI("file:///x.fs"))
}

func TestDiscover(t *testing.T) {
	root := testutil.NewWorkspace(t, map[string]string{
		"main.fs":             ": main ;",
		"lib/math.fth":        ": square dup * ;",
		"lib/README.md":       "# docs",
		".git/hooks/pre.fs":   ": hidden ;",
		"node_modules/x/y.fs": ": vendored ;",
		"deep/er/still/ok.fs": ": ok ;",
	})

	paths, err := Discover(root, isForth)
	require.NoError(t, err)

	var rel []string
	for _, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{"deep/er/still/ok.fs", "lib/math.fth", "main.fs"}, rel)
}

func TestScan(t *testing.T) {
	root := testutil.NewWorkspace(t, map[string]string{
		"a.fs": ": square dup * ;\n",
		"b.fs": "5 square .\nvariable counter\n",
	})

	files, err := Scan(context.Background(), root, isForth)
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, filepath.Join(root, "a.fs"), files[0].Path)
	assert.Equal(t, PathToURI(files[0].Path), files[0].URI)
	assert.NotEmpty(t, files[0].Tokens)
	assert.Equal(t, 2, files[1].Lines.LineCount())

	ix := index.New()
	for _, f := range files {
		f.IndexInto(ix)
	}
	assert.Equal(t, []string{"counter", "square"}, ix.AllWords())

	refs := ix.FindReferences("SQUARE")
	require.Len(t, refs, 1)
	assert.Equal(t, files[1].URI, refs[0].FileID)
}

func TestScan_UnreadableFile(t *testing.T) {
	root := testutil.NewWorkspace(t, map[string]string{
		"a.fs": ": square dup * ;\n",
		"c.fs": "5 square .\n",
	})
	broken := filepath.Join(root, "b.fs")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.fs"), broken))

	files, err := Scan(context.Background(), root, isForth)
	require.Error(t, err)
	assert.Contains(t, err.Error(), broken)

	require.Len(t, files, 2, "readable files are kept")
	assert.Equal(t, filepath.Join(root, "a.fs"), files[0].Path)
	assert.Equal(t, filepath.Join(root, "c.fs"), files[1].Path)
}

func TestScan_Cancelled(t *testing.T) {
	root := testutil.NewWorkspace(t, map[string]string{"a.fs": "1 ."})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Scan(ctx, root, isForth)
	require.ErrorIs(t, err, context.Canceled)
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), isForth)
	require.Error(t, err)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "gone.fs"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

// waitFor reads events until want arrives. Editors and the OS may report
// one save as several writes, so repeats are skipped.
func waitFor(t *testing.T, w *Watcher, want Event) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-w.Events():
			require.True(t, ok, "watcher closed")
			if ev == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %+v", want)
		}
	}
}

func TestWatcher(t *testing.T) {
	root := testutil.NewWorkspace(t, map[string]string{"a.fs": ": a ;"})

	w, err := NewWatcher(root, isForth, testutil.NewTestLogger(t))
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := filepath.Join(root, "a.fs")
	require.NoError(t, os.WriteFile(path, []byte(": a 1 ;"), 0o600))
	waitFor(t, w, Event{Path: path})

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.Remove(path))
	waitFor(t, w, Event{Path: path, Removed: true})

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o750))
	time.Sleep(50 * time.Millisecond)
	nested := filepath.Join(sub, "b.fs")
	require.NoError(t, os.WriteFile(nested, []byte(": b ;"), 0o600))
	waitFor(t, w, Event{Path: nested})

	cancel()
	for range w.Events() {
	}
}

func TestWatcher_DirectoryMovedOut(t *testing.T) {
	root := testutil.NewWorkspace(t, map[string]string{"lib/a.fs": ": a ;", "main.fs": "a"})

	w, err := NewWatcher(root, isForth, testutil.NewTestLogger(t))
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	lib := filepath.Join(root, "lib")
	require.NoError(t, os.Rename(lib, filepath.Join(t.TempDir(), "elsewhere")))
	waitFor(t, w, Event{Path: lib, Removed: true})

	cancel()
	for range w.Events() {
	}
}
