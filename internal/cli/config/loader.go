// Package config wires project configuration into cobra commands: it
// resolves the project root from flags, loads the configuration and carries
// it, with the logger, through the command context.
package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	projconfig "github.com/leapstack-labs/forthls/internal/config"
)

// configKey is used to store config in context.
type configKey struct{}

// loggerKey is used to store logger in context.
type loggerKey struct{}

// LoadConfig loads configuration for the current command. cfgFile is the
// --config flag value; flags supplies --project-dir and overrides.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*projconfig.Config, error) {
	return projconfig.Load(projconfig.Options{
		Dir:   inferProjectRoot(cfgFile, flags),
		File:  cfgFile,
		Flags: flags,
	})
}

// inferProjectRoot determines the project root from CLI flags and filesystem.
// Priority:
//  1. Explicit --project-dir flag
//  2. Directory of an explicit --config file
//  3. Search upward from CWD for forthls.yaml
//  4. Current working directory
func inferProjectRoot(cfgFile string, flags *pflag.FlagSet) string {
	if flags != nil && flags.Changed("project-dir") {
		if projectDir, _ := flags.GetString("project-dir"); projectDir != "" {
			return absPath(projectDir)
		}
	}

	if cfgFile != "" {
		return filepath.Dir(absPath(cfgFile))
	}

	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := projconfig.FindProjectRoot(cwd); root != "" {
		return root
	}
	return cwd
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// NewLogger creates a text logger at the configured level. Logs go to w,
// which is stderr in practice since stdout carries the LSP protocol.
func NewLogger(w io.Writer, cfg *projconfig.Config) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *projconfig.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the command context, falling back to
// defaults rooted at the working directory.
func GetConfig(ctx context.Context) *projconfig.Config {
	if c, ok := ctx.Value(configKey{}).(*projconfig.Config); ok {
		return c
	}
	cfg := projconfig.Default()
	if cwd, err := os.Getwd(); err == nil {
		cfg.ProjectRoot = cwd
	}
	return cfg
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
