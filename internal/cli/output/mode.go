// Package output renders command results for terminals, pipes and tools.
//
// Text mode is styled with lipgloss for interactive terminals, markdown is
// the default when stdout is piped, and JSON is for scripts.
package output

import (
	"fmt"
	"strings"
)

// Mode selects how command results are printed.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"     // text on a terminal, markdown otherwise
	ModeText     Mode = "text"     // styled, human-oriented
	ModeMarkdown Mode = "markdown" // plain markdown tables and lists
	ModeJSON     Mode = "json"     // machine-readable
)

// ParseMode validates an output format name. The empty string means auto.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "text":
		return ModeText, nil
	case "markdown", "md":
		return ModeMarkdown, nil
	case "json":
		return ModeJSON, nil
	}
	return "", fmt.Errorf("invalid output format %q (want auto, text, markdown or json)", s)
}
