package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	cliconfig "github.com/leapstack-labs/forthls/internal/cli/config"
	"github.com/leapstack-labs/forthls/internal/cli/output"
	"github.com/leapstack-labs/forthls/internal/config"
	"github.com/leapstack-labs/forthls/internal/workspace"
	"github.com/leapstack-labs/forthls/pkg/index"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := cliconfig.GetConfig(cmd.Context())
	mode, err := output.ParseMode(cfg.Output)
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   cliconfig.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// Workspace is an indexed directory of Forth sources.
type Workspace struct {
	Root  string
	Files []*workspace.File
	Index *index.Index
}

// LoadWorkspace scans every source file under dir, or under the project
// root when dir is empty, and indexes it.
func (c *CommandContext) LoadWorkspace(ctx context.Context, dir string) (*Workspace, error) {
	if dir == "" {
		dir = c.Cfg.ProjectRoot
	}
	if dir == "" {
		dir = "."
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	files, err := workspace.Scan(ctx, root, c.Cfg.HasSourceExtension)
	if err != nil {
		if files == nil {
			return nil, fmt.Errorf("failed to scan %s: %w", root, err)
		}
		c.Logger.Warn("Some source files could not be read", "root", root, "error", err)
	}

	ix := index.New()
	for _, f := range files {
		f.IndexInto(ix)
	}
	c.Logger.Debug("Indexed workspace", "root", root, "files", len(files), "words", len(ix.AllWords()))

	return &Workspace{Root: root, Files: files, Index: ix}, nil
}

// RelPath shows a file URI relative to the workspace root when possible.
func (w *Workspace) RelPath(uri string) string {
	path := workspace.URIToPath(uri)
	if rel, err := filepath.Rel(w.Root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

// optionalArg returns args[i] or the empty string.
func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
