// Package spacing reinserts grammatically plausible spacing into text whose
// whitespace has been stripped. The dictionary corrector segments by greedy
// longest match against a word vocabulary counted from a corpus.
package spacing

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// Corrector rewrites the spacing of a sentence.
type Corrector interface {
	Space(text string) string
}

// Dictionary is a corpus-trained Corrector.
type Dictionary struct {
	words      map[string]int
	maxWordLen int // in runes
}

// Compile time assert that Dictionary implements Corrector.
var _ Corrector = &Dictionary{}

// Train builds a Dictionary from a corpus of already-spaced sentences: every
// whitespace-separated field is counted as a word.
func Train(corpus []string) (*Dictionary, error) {
	d := &Dictionary{words: make(map[string]int)}
	for _, sentence := range corpus {
		for _, field := range strings.Fields(sentence) {
			d.words[field]++
			if n := len([]rune(field)); n > d.maxWordLen {
				d.maxWordLen = n
			}
		}
	}
	if len(d.words) == 0 {
		return nil, errors.New("empty corpus, no words to train on")
	}
	return d, nil
}

// Space strips all whitespace from text and re-segments it. Known words are
// matched greedily, longest first; runes covered by no dictionary word attach
// to a pending run that is emitted as a word of its own.
func (d *Dictionary) Space(text string) string {
	runes := []rune(stripSpace(text))
	var out []string
	var pending []rune

	flush := func() {
		if len(pending) > 0 {
			out = append(out, string(pending))
			pending = pending[:0]
		}
	}

	for pos := 0; pos < len(runes); {
		matched := 0
		limit := d.maxWordLen
		if rest := len(runes) - pos; rest < limit {
			limit = rest
		}
		for n := limit; n > 0; n-- {
			if _, ok := d.words[string(runes[pos:pos+n])]; ok {
				matched = n
				break
			}
		}
		if matched == 0 {
			pending = append(pending, runes[pos])
			pos++
			continue
		}
		flush()
		out = append(out, string(runes[pos:pos+matched]))
		pos += matched
	}
	flush()
	return strings.Join(out, " ")
}

func stripSpace(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
