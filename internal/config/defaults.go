package config

import "github.com/leapstack-labs/forthls/pkg/format"

// Default configuration values.
const (
	DefaultLogLevel = "info"
	DefaultOutput   = "auto"
	DefaultWatch    = true
)

// DefaultExtensions are the file extensions treated as Forth source.
var DefaultExtensions = []string{".fs", ".fth", ".forth", ".4th", ".f", ".frt"}

// defaultMap is loaded first so every key has a value.
func defaultMap() map[string]any {
	f := formatConfigOf(format.DefaultOptions())
	return map[string]any{
		"log_level":                   DefaultLogLevel,
		"output":                      DefaultOutput,
		"watch":                       DefaultWatch,
		"extensions":                  DefaultExtensions,
		"diagnostics.undefined_words": true,

		"format.indent_width":                      f.IndentWidth,
		"format.use_spaces":                        f.UseSpaces,
		"format.word_spacing":                      f.WordSpacing,
		"format.indent_control_structures":         f.IndentControlStructures,
		"format.stack_comment_on_declaration_line": f.StackCommentOnDeclarationLine,
		"format.preserve_definition_newlines":      f.PreserveDefinitionNewlines,
		"format.blank_line_between_definitions":    f.BlankLineBetweenDefinitions,
	}
}

// Default returns a Config populated with default values only.
func Default() *Config {
	return &Config{
		LogLevel:    DefaultLogLevel,
		Output:      DefaultOutput,
		Watch:       DefaultWatch,
		Extensions:  append([]string(nil), DefaultExtensions...),
		Diagnostics: DiagnosticsConfig{UndefinedWords: true},
		Format:      formatConfigOf(format.DefaultOptions()),
	}
}
