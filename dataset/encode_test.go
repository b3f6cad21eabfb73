package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koreml/relex/records"
	"github.com/koreml/relex/tokenizers/api"
)

// wordTokenizer maps every whitespace-separated word to a stable id. Special
// tokens get the low ids.
type wordTokenizer struct {
	vocab map[string]int
}

var _ api.Tokenizer = &wordTokenizer{}

func newWordTokenizer() *wordTokenizer {
	return &wordTokenizer{vocab: map[string]int{
		"[PAD]": 0, "[UNK]": 1, "[CLS]": 2, "[SEP]": 3, "[MASK]": 4,
	}}
}

func (w *wordTokenizer) Encode(text string) []int {
	var ids []int
	for _, word := range strings.Fields(text) {
		id, ok := w.vocab[word]
		if !ok {
			id = len(w.vocab)
			w.vocab[word] = id
		}
		ids = append(ids, id)
	}
	return ids
}

func (w *wordTokenizer) Decode(ids []int) string {
	byID := make(map[int]string, len(w.vocab))
	for tok, id := range w.vocab {
		byID[id] = tok
	}
	var words []string
	for _, id := range ids {
		words = append(words, byID[id])
	}
	return strings.Join(words, " ")
}

func (w *wordTokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	switch token {
	case api.TokPad:
		return 0, nil
	case api.TokUnknown:
		return 1, nil
	case api.TokClassification:
		return 2, nil
	case api.TokSeparator:
		return 3, nil
	case api.TokMask:
		return 4, nil
	}
	return 0, assert.AnError
}

func encodeTestTable() records.Table {
	return records.Table{
		{
			Sentence: "AB was written by CD .",
			Subject:  records.Entity{Word: "CD"},
			Object:   records.Entity{Word: "AB"},
			Label:    "per:title",
		},
	}
}

func TestEncodeTable(t *testing.T) {
	tok := newWordTokenizer()
	enc, err := EncodeTable(tok, encodeTestTable(), 16)
	require.NoError(t, err)
	require.Equal(t, 1, enc.Len())

	row := enc.InputIDs[0]
	require.Len(t, row, 16)
	// [CLS] AB [SEP] CD [SEP] AB was written by CD . [SEP] then padding.
	assert.Equal(t, int32(2), row[0])
	assert.Equal(t, int32(3), row[2]) // the [SEP] inside the entity text
	assert.Equal(t, int32(3), row[4]) // segment boundary

	// Token type ids: 0 over the entity segment, 1 over the sentence.
	types := enc.TokenTypeIDs[0]
	assert.Equal(t, int32(0), types[4])
	assert.Equal(t, int32(1), types[5])

	// Mask covers exactly the 12 real tokens.
	var real int32
	for _, m := range enc.AttentionMask[0] {
		real += m
	}
	assert.Equal(t, int32(12), real)

	// Padding uses the pad id.
	assert.Equal(t, int32(0), row[15])
	assert.Equal(t, int32(0), enc.AttentionMask[0][15])
}

func TestEncodeTable_Truncates(t *testing.T) {
	tok := newWordTokenizer()
	enc, err := EncodeTable(tok, encodeTestTable(), 6)
	require.NoError(t, err)
	row := enc.InputIDs[0]
	require.Len(t, row, 6)
	// Truncation keeps a separator as the final token.
	assert.Equal(t, int32(3), row[5])
	for _, m := range enc.AttentionMask[0] {
		assert.Equal(t, int32(1), m)
	}
}

func TestEncodeTable_MaxLenTooSmall(t *testing.T) {
	_, err := EncodeTable(newWordTokenizer(), encodeTestTable(), 2)
	require.Error(t, err)
}
