// Package words holds the vocabulary of builtin Forth words used for hover,
// completion and undefined-word diagnostics.
package words

import (
	_ "embed"
	"fmt"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinYAML []byte

// Word describes one builtin word.
type Word struct {
	Token       string `yaml:"word"`
	Stack       string `yaml:"stack"`
	Description string `yaml:"description"`
	Custom      bool   `yaml:"-"` // added from user configuration
}

// Documentation renders the word as markdown for hover popups.
func (w Word) Documentation() string {
	doc := fmt.Sprintf("# `%s`", w.Token)
	if w.Stack != "" {
		doc += fmt.Sprintf("   `%s`", w.Stack)
	}
	if w.Description != "" {
		doc += "\n\n" + w.Description
	}
	return doc
}

// Vocabulary is an owned, immutable set of words keyed case-insensitively.
// Build one at startup and share it read-only.
type Vocabulary struct {
	words  []Word
	byName map[string]int
}

type document struct {
	Words []Word `yaml:"words"`
}

// Builtin loads the embedded standard vocabulary.
func Builtin() (*Vocabulary, error) {
	return Load(nil)
}

// Load returns the standard vocabulary extended with extra words. An extra
// word with the same name as a builtin replaces the builtin's entry.
func Load(extra []Word) (*Vocabulary, error) {
	var doc document
	if err := yaml.Unmarshal(builtinYAML, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse builtin vocabulary: %w", err)
	}

	v := &Vocabulary{byName: make(map[string]int, len(doc.Words)+len(extra))}
	for _, w := range doc.Words {
		v.add(w)
	}
	for _, w := range extra {
		if w.Token == "" {
			continue
		}
		w.Custom = true
		v.add(w)
	}
	return v, nil
}

// MustBuiltin is like Builtin but panics if the embedded data is malformed.
func MustBuiltin() *Vocabulary {
	v, err := Builtin()
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Vocabulary) add(w Word) {
	key := fold(w.Token)
	if i, ok := v.byName[key]; ok {
		v.words[i] = w
		return
	}
	v.byName[key] = len(v.words)
	v.words = append(v.words, w)
}

// Lookup finds a word by name, ignoring case.
func (v *Vocabulary) Lookup(name string) (Word, bool) {
	i, ok := v.byName[fold(name)]
	if !ok {
		return Word{}, false
	}
	return v.words[i], true
}

// Contains reports whether name is in the vocabulary.
func (v *Vocabulary) Contains(name string) bool {
	_, ok := v.byName[fold(name)]
	return ok
}

// Len returns the number of words.
func (v *Vocabulary) Len() int {
	return len(v.words)
}

// All returns every word sorted by name.
func (v *Vocabulary) All() []Word {
	out := make([]Word, len(v.words))
	copy(out, v.words)
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}
