// Package cleaning applies configured, ordered lists of named transforms to a
// record table: the cleaning stage composes its transforms sequentially, the
// augmentation stage derives independent variants of the original table and
// concatenates them.
//
// Transform names are resolved against closed registries when a Cleaner or
// Augmenter is constructed; an unknown name is a construction error, never a
// runtime fallback.
//
// Ordering contract: transforms that read entity offsets (tag insertion,
// masking) rely on offsets into the original sentence. Offsets are not
// recomputed after a sentence is rewritten, so any offset-reading transform
// must be configured before any sentence-rewriting one.
package cleaning

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/koreml/relex/morph"
	"github.com/koreml/relex/records"
	"github.com/koreml/relex/spacing"
)

// Options carries the external resources transforms may need. Zero values
// select defaults: a whitespace analyzer, a kagome transliterator constructed
// on demand, and a spacing corrector trained on the table being processed.
type Options struct {
	// StopWordsPath is the stop-word list file, one word per line.
	// Required by the stop_words transform.
	StopWordsPath string

	// Analyzer tokenizes sentences for stop-word filtering.
	Analyzer morph.Analyzer

	// Transliterator converts Japanese script runs to kana readings.
	Transliterator *morph.Kagome

	// Corrector reinserts spacing. When nil the spacing transform trains a
	// dictionary corrector from the sentences of the table it is applied to.
	Corrector spacing.Corrector
}

// Transform is one named table rewrite.
type Transform interface {
	Name() string
	Apply(tbl records.Table) (records.Table, error)
}

type constructor func(opts *Options) (Transform, error)

var cleaningOps = map[string]constructor{
	"entity_parsing":           newEntityParsing,
	"remove_duplicated":        newRemoveDuplicated,
	"add_entity_tokens_base":   newEntityTokensBase,
	"add_entity_tokens_detail": newEntityTokensDetail,
	"entity_mask":              newEntityMask,
	"add_others_tokens":        newOthersTokens,
	"translate_others":         newTranslateOthers,
	"stop_words":               newStopWords,
	"spacing":                  newSpacing,
}

// trainOnlyOps are skipped outside training mode.
var trainOnlyOps = map[string]bool{
	"remove_duplicated": true,
}

var augmentationOps = map[string]constructor{
	"entity_mask":      newEntityMask,
	"translate_others": newTranslateOthers,
	"respacing":        newSpacing,
}

// IsCleaningOp reports whether name is a registered cleaning transform.
func IsCleaningOp(name string) bool {
	_, ok := cleaningOps[name]
	return ok
}

// IsAugmentationOp reports whether name is a registered augmentation transform.
func IsAugmentationOp(name string) bool {
	_, ok := augmentationOps[name]
	return ok
}

// CleaningOpNames returns the registered cleaning transform names, sorted.
func CleaningOpNames() []string {
	return sortedKeys(cleaningOps)
}

// AugmentationOpNames returns the registered augmentation transform names, sorted.
func AugmentationOpNames() []string {
	return sortedKeys(augmentationOps)
}

func sortedKeys(m map[string]constructor) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cleaner applies a configured transform list sequentially.
type Cleaner struct {
	transforms []Transform
}

// NewCleaner resolves the configured transform names against the cleaning
// registry. Any unknown name fails construction.
func NewCleaner(names []string, opts Options) (*Cleaner, error) {
	transforms, err := build(names, cleaningOps, &opts)
	if err != nil {
		return nil, errors.WithMessage(err, "cleaning")
	}
	return &Cleaner{transforms: transforms}, nil
}

// Process applies the transforms in configuration order, each consuming the
// previous one's output. Train-only transforms are skipped when train is
// false.
func (c *Cleaner) Process(tbl records.Table, train bool) (records.Table, error) {
	var err error
	for _, tr := range c.transforms {
		if !train && trainOnlyOps[tr.Name()] {
			continue
		}
		tbl, err = tr.Apply(tbl)
		if err != nil {
			return nil, errors.WithMessagef(err, "cleaning op %q", tr.Name())
		}
	}
	return tbl, nil
}

// Augmenter derives augmented variants of a table.
type Augmenter struct {
	transforms []Transform
}

// NewAugmenter resolves the configured transform names against the
// augmentation registry. Any unknown name fails construction.
func NewAugmenter(names []string, opts Options) (*Augmenter, error) {
	transforms, err := build(names, augmentationOps, &opts)
	if err != nil {
		return nil, errors.WithMessage(err, "augmentation")
	}
	return &Augmenter{transforms: transforms}, nil
}

// Process applies every configured transform independently to the original
// table, concatenates the derived tables together, and appends that to the
// original: k row-preserving transforms over n rows yield n*(k+1) rows.
// Unlike cleaning, augmentation transforms never compose; this asymmetry is
// deliberate.
func (a *Augmenter) Process(tbl records.Table) (records.Table, error) {
	if len(a.transforms) == 0 {
		return tbl, nil
	}
	var augmented records.Table
	for _, tr := range a.transforms {
		derived, err := tr.Apply(tbl)
		if err != nil {
			return nil, errors.WithMessagef(err, "augmentation op %q", tr.Name())
		}
		augmented = augmented.Append(derived)
	}
	return tbl.Append(augmented), nil
}

func build(names []string, registry map[string]constructor, opts *Options) ([]Transform, error) {
	transforms := make([]Transform, 0, len(names))
	for _, name := range names {
		ctor, ok := registry[name]
		if !ok {
			return nil, errors.Errorf("unknown op %q", name)
		}
		tr, err := ctor(opts)
		if err != nil {
			return nil, errors.WithMessagef(err, "op %q", name)
		}
		// The same transform can be registered under different names in the
		// two registries; report it by the name it was configured with.
		transforms = append(transforms, registered{name: name, Transform: tr})
	}
	return transforms, nil
}

type registered struct {
	name string
	Transform
}

func (r registered) Name() string { return r.name }
