// Package api defines the Tokenizer API shared by the tokenizer
// implementations, so the dataset encoder can work against any of them.
package api

// Tokenizer converts text to token ids and back.
//
// It also maps special tokens: tokens with a common semantic (like padding)
// that may map to different ids for different tokenizers.
type Tokenizer interface {
	Encode(text string) []int
	Decode(ids []int) string

	// SpecialTokenID returns the id for the given special token if the
	// tokenizer knows it, or an error if not.
	SpecialTokenID(token SpecialToken) (int, error)
}

// SpecialToken is an enum of commonly used special tokens.
type SpecialToken int

const (
	TokUnknown SpecialToken = iota
	TokPad
	TokClassification
	TokSeparator
	TokMask
	tokSpecialTokensCount
)

var specialTokenNames = [tokSpecialTokensCount]string{
	"unknown", "pad", "classification", "separator", "mask",
}

func (t SpecialToken) String() string {
	if t < 0 || t >= tokSpecialTokensCount {
		return "invalid"
	}
	return specialTokenNames[t]
}
