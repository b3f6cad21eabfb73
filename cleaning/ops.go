package cleaning

import (
	"bufio"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/koreml/relex/morph"
	"github.com/koreml/relex/records"
	"github.com/koreml/relex/spacing"
)

// funcTransform adapts a plain function into a Transform.
type funcTransform struct {
	name  string
	apply func(records.Table) (records.Table, error)
}

func (t funcTransform) Name() string { return t.name }

func (t funcTransform) Apply(tbl records.Table) (records.Table, error) {
	return t.apply(tbl)
}

// entity_parsing

func newEntityParsing(*Options) (Transform, error) {
	return funcTransform{name: "entity_parsing", apply: records.ParseEntities}, nil
}

// remove_duplicated
//
// These row positions were identified by manual inspection: same sentence and
// entity pair annotated with conflicting labels. Training data only.
var duplicateRows = []int{6749, 8364, 22258, 277, 10202, 4212}

func newRemoveDuplicated(*Options) (Transform, error) {
	return funcTransform{name: "remove_duplicated", apply: func(tbl records.Table) (records.Table, error) {
		return tbl.Drop(duplicateRows), nil
	}}, nil
}

// add_entity_tokens_base / add_entity_tokens_detail
//
// The four boundary offsets are processed in descending order so that earlier
// (smaller-offset) insertions stay valid while the string grows. 0-indexed
// from the end, an even rank is a span end (closing marker goes immediately
// after it), an odd rank a span start (opening marker goes immediately before
// it).

func newEntityTokensBase(*Options) (Transform, error) {
	return funcTransform{name: "add_entity_tokens_base", apply: func(tbl records.Table) (records.Table, error) {
		out := tbl.Clone()
		for i := range out {
			out[i].Sentence = insertBoundaryTags(out[i].Sentence, boundaries(out[i]),
				func(int) (string, string) { return "[ENT] ", " [/ENT] " })
		}
		return out, nil
	}}, nil
}

func newEntityTokensDetail(*Options) (Transform, error) {
	return funcTransform{name: "add_entity_tokens_detail", apply: func(tbl records.Table) (records.Table, error) {
		out := tbl.Clone()
		for i := range out {
			rec := out[i]
			// The trigger entity is the one whose span ends later; its role
			// tag applies until a span start flips the trigger.
			trigger := rec.Object.End > rec.Subject.End
			out[i].Sentence = insertBoundaryTags(rec.Sentence, boundaries(rec),
				func(rank int) (string, string) {
					token := "S:" + rec.Subject.Type
					if trigger {
						token = "O:" + rec.Object.Type
					}
					if rank%2 == 1 { // span start crossed
						trigger = !trigger
					}
					return "[" + token + "] ", " [/" + token + "] "
				})
		}
		return out, nil
	}}, nil
}

// boundaries returns the four span boundary offsets sorted descending.
func boundaries(rec records.Record) [4]int {
	offs := [4]int{rec.Subject.Start, rec.Subject.End, rec.Object.Start, rec.Object.End}
	sort.Sort(sort.Reverse(sort.IntSlice(offs[:])))
	return offs
}

// insertBoundaryTags walks the descending offsets; tags selects the opening
// and closing marker for the current rank (and may mutate its own state, as
// the detail variant's trigger does). Offsets are rune positions; offsets
// outside the sentence clamp to its bounds, matching the permissive slicing
// of the annotation tooling this reimplements.
func insertBoundaryTags(sentence string, offs [4]int, tags func(rank int) (opening, closing string)) string {
	runes := []rune(sentence)
	for rank, idx := range offs {
		opening, closing := tags(rank)
		if rank%2 == 0 {
			runes = spliceAt(runes, idx+1, closing)
		} else {
			runes = spliceAt(runes, idx, opening)
		}
	}
	return string(runes)
}

func spliceAt(runes []rune, at int, insert string) []rune {
	if at < 0 {
		at = 0
	}
	if at > len(runes) {
		at = len(runes)
	}
	out := make([]rune, 0, len(runes)+len(insert))
	out = append(out, runes[:at]...)
	out = append(out, []rune(insert)...)
	out = append(out, runes[at:]...)
	return out
}

// entity_mask
//
// Unlike tag insertion, masking replaces by first substring occurrence, so it
// must process the entity that occurs earlier in the sentence first: masking
// the later one first could hit an identical earlier substring and leave the
// real span behind.

func newEntityMask(*Options) (Transform, error) {
	return funcTransform{name: "entity_mask", apply: func(tbl records.Table) (records.Table, error) {
		out := tbl.Clone()
		for i := range out {
			first, firstMark := out[i].Subject.Word, "[SUB]"
			second, secondMark := out[i].Object.Word, "[OB]"
			if out[i].Object.Start < out[i].Subject.Start {
				first, firstMark, second, secondMark = second, secondMark, first, firstMark
			}
			s := strings.Replace(out[i].Sentence, first, firstMark, 1)
			out[i].Sentence = strings.Replace(s, second, secondMark, 1)
		}
		return out, nil
	}}, nil
}

// add_others_tokens / translate_others
//
// Both detect the same fixed Japanese syllabary/kanji runs; the first
// collapses each run to a literal [OTH] token, the second substitutes the
// run's kana reading. Applied independently to the sentence and both entity
// words.

func newOthersTokens(*Options) (Transform, error) {
	pattern := morph.JapaneseRunPattern()
	return funcTransform{name: "add_others_tokens", apply: func(tbl records.Table) (records.Table, error) {
		out := tbl.Clone()
		for i := range out {
			out[i].Sentence = pattern.ReplaceAllString(out[i].Sentence, "[OTH]")
			out[i].Subject.Word = pattern.ReplaceAllString(out[i].Subject.Word, "[OTH]")
			out[i].Object.Word = pattern.ReplaceAllString(out[i].Object.Word, "[OTH]")
		}
		return out, nil
	}}, nil
}

func newTranslateOthers(opts *Options) (Transform, error) {
	kagome := opts.Transliterator
	if kagome == nil {
		var err error
		kagome, err = morph.NewKagome()
		if err != nil {
			return nil, err
		}
		opts.Transliterator = kagome
	}
	return funcTransform{name: "translate_others", apply: func(tbl records.Table) (records.Table, error) {
		out := tbl.Clone()
		for i := range out {
			out[i].Sentence = kagome.TransliterateAll(out[i].Sentence)
			out[i].Subject.Word = kagome.TransliterateAll(out[i].Subject.Word)
			out[i].Object.Word = kagome.TransliterateAll(out[i].Object.Word)
		}
		return out, nil
	}}, nil
}

// stop_words

func newStopWords(opts *Options) (Transform, error) {
	if opts.StopWordsPath == "" {
		return nil, errors.New("stop_words requires a stop-word list path")
	}
	stop, err := loadStopWords(opts.StopWordsPath)
	if err != nil {
		return nil, err
	}
	analyzer := opts.Analyzer
	if analyzer == nil {
		analyzer = morph.Whitespace{}
	}
	return funcTransform{name: "stop_words", apply: func(tbl records.Table) (records.Table, error) {
		out := tbl.Clone()
		for i := range out {
			var kept []string
			for _, word := range analyzer.Morphs(out[i].Sentence) {
				if stop[word] {
					continue
				}
				kept = append(kept, word)
			}
			out[i].Sentence = strings.Join(kept, " ")
		}
		return out, nil
	}}, nil
}

func loadStopWords(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open stop-word list %q", path)
	}
	defer f.Close()

	stop := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" {
			stop[word] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read stop-word list %q", path)
	}
	return stop, nil
}

// spacing

func newSpacing(opts *Options) (Transform, error) {
	corrector := opts.Corrector
	return funcTransform{name: "spacing", apply: func(tbl records.Table) (records.Table, error) {
		active := corrector
		if active == nil {
			trained, err := spacing.Train(tbl.Sentences())
			if err != nil {
				return nil, err
			}
			active = trained
		}
		out := tbl.Clone()
		for i := range out {
			out[i].Sentence = active.Space(out[i].Sentence)
		}
		return out, nil
	}}, nil
}
