// Package morph provides the morphological-analysis seam of the pipeline:
// sentence tokenization for stop-word filtering, and reading-based
// transliteration of Japanese script runs.
package morph

import "strings"

// Analyzer splits a sentence into morphological tokens.
type Analyzer interface {
	Morphs(text string) []string
}

// Whitespace is the trivial analyzer: tokens are whitespace-separated fields.
// It is the deterministic fallback when no dictionary-backed analyzer is
// configured.
type Whitespace struct{}

// Morphs implements Analyzer.
func (Whitespace) Morphs(text string) []string {
	return strings.Fields(text)
}
