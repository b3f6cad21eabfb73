package morph

import (
	"regexp"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"github.com/pkg/errors"
)

// japaneseRun matches runs of hiragana, katakana (with the prolonged sound
// mark), iteration marks and kanji. The class is fixed: it is the script set
// the dataset annotates as "other", not a general CJK detector.
var japaneseRun = regexp.MustCompile(`[ぁ-ゔァ-ヴー々〆〤一-龥]+`)

// JapaneseRunPattern returns the compiled run matcher, shared by the
// script-normalization transforms.
func JapaneseRunPattern() *regexp.Regexp {
	return japaneseRun
}

// Kagome is a morphological analyzer backed by the kagome tokenizer with the
// IPA dictionary.
type Kagome struct {
	tok *tokenizer.Tokenizer
}

// Compile time assert that Kagome implements Analyzer.
var _ Analyzer = &Kagome{}

// NewKagome builds a kagome-backed analyzer. The embedded IPA dictionary is
// loaded once per instance; construct it once and share.
func NewKagome() (*Kagome, error) {
	tok, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to initialize kagome tokenizer")
	}
	return &Kagome{tok: tok}, nil
}

// Morphs implements Analyzer: surface forms of the morphemes in text.
func (k *Kagome) Morphs(text string) []string {
	var out []string
	for _, t := range k.tok.Analyze(text, tokenizer.Normal) {
		surface := strings.TrimSpace(t.Surface)
		if surface == "" {
			continue
		}
		out = append(out, surface)
	}
	return out
}

// Transliterate converts one Japanese script run into its kana reading:
// each morpheme contributes its dictionary reading (katakana, folded to
// hiragana), falling back to the surface form when the dictionary has none.
func (k *Kagome) Transliterate(run string) string {
	var b strings.Builder
	for _, t := range k.tok.Analyze(run, tokenizer.Normal) {
		if reading, ok := t.Reading(); ok && reading != "" && reading != "*" {
			b.WriteString(katakanaToHiragana(reading))
		} else {
			b.WriteString(katakanaToHiragana(t.Surface))
		}
	}
	return b.String()
}

// TransliterateAll rewrites every Japanese run in text via Transliterate.
func (k *Kagome) TransliterateAll(text string) string {
	return japaneseRun.ReplaceAllStringFunc(text, k.Transliterate)
}

func katakanaToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}
