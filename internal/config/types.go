// Package config provides project configuration for forthls.
// It is shared by the CLI and the language server, which loads it from the
// workspace root the client announces.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/forthls/internal/words"
	"github.com/leapstack-labs/forthls/pkg/format"
)

// CustomWord is a user-supplied addition to the builtin vocabulary.
type CustomWord struct {
	Word        string `koanf:"word"`
	Stack       string `koanf:"stack"`
	Description string `koanf:"description"`
}

// BuiltinConfig extends the builtin vocabulary for a specific Forth system.
type BuiltinConfig struct {
	Words []CustomWord `koanf:"words"`
}

// DiagnosticsConfig toggles individual diagnostics.
type DiagnosticsConfig struct {
	UndefinedWords bool `koanf:"undefined_words"`
}

// FormatConfig controls document formatting.
type FormatConfig struct {
	IndentWidth                   int  `koanf:"indent_width"`
	UseSpaces                     bool `koanf:"use_spaces"`
	WordSpacing                   int  `koanf:"word_spacing"`
	IndentControlStructures       bool `koanf:"indent_control_structures"`
	StackCommentOnDeclarationLine bool `koanf:"stack_comment_on_declaration_line"`
	PreserveDefinitionNewlines    bool `koanf:"preserve_definition_newlines"`
	BlankLineBetweenDefinitions   bool `koanf:"blank_line_between_definitions"`
}

// Options converts the configuration to formatter options.
func (f FormatConfig) Options() format.Options {
	return format.Options{
		IndentWidth:                   f.IndentWidth,
		UseSpaces:                     f.UseSpaces,
		WordSpacing:                   f.WordSpacing,
		IndentControlStructures:       f.IndentControlStructures,
		StackCommentOnDeclarationLine: f.StackCommentOnDeclarationLine,
		PreserveDefinitionNewlines:    f.PreserveDefinitionNewlines,
		BlankLineBetweenDefinitions:   f.BlankLineBetweenDefinitions,
	}
}

func formatConfigOf(o format.Options) FormatConfig {
	return FormatConfig{
		IndentWidth:                   o.IndentWidth,
		UseSpaces:                     o.UseSpaces,
		WordSpacing:                   o.WordSpacing,
		IndentControlStructures:       o.IndentControlStructures,
		StackCommentOnDeclarationLine: o.StackCommentOnDeclarationLine,
		PreserveDefinitionNewlines:    o.PreserveDefinitionNewlines,
		BlankLineBetweenDefinitions:   o.BlankLineBetweenDefinitions,
	}
}

// Config holds all forthls configuration options.
type Config struct {
	LogLevel    string            `koanf:"log_level"`
	Output      string            `koanf:"output"`
	Watch       bool              `koanf:"watch"`
	Extensions  []string          `koanf:"extensions"`
	Diagnostics DiagnosticsConfig `koanf:"diagnostics"`
	Builtin     BuiltinConfig     `koanf:"builtin"`
	Format      FormatConfig      `koanf:"format"`

	// ProjectRoot is the directory the config was resolved against.
	ProjectRoot string `koanf:"-"`
	// File is the config file that was loaded, empty if none.
	File string `koanf:"-"`
}

// Vocabulary builds the builtin vocabulary extended with the configured words.
func (c *Config) Vocabulary() (*words.Vocabulary, error) {
	extra := make([]words.Word, 0, len(c.Builtin.Words))
	for _, w := range c.Builtin.Words {
		extra = append(extra, words.Word{
			Token:       w.Word,
			Stack:       w.Stack,
			Description: w.Description,
		})
	}
	return words.Load(extra)
}

// HasSourceExtension reports whether path ends in one of the configured extensions.
func (c *Config) HasSourceExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range c.Extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// SlogLevel converts LogLevel to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
