package wordpiece

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koreml/relex/tokenizers/api"
)

var testTokenizerJSON = []byte(`{
  "version": "1.0",
  "added_tokens": [
    {"id": 0, "content": "[PAD]", "special": true},
    {"id": 1, "content": "[UNK]", "special": true},
    {"id": 2, "content": "[CLS]", "special": true},
    {"id": 3, "content": "[SEP]", "special": true},
    {"id": 4, "content": "[MASK]", "special": true}
  ],
  "normalizer": {
    "type": "BertNormalizer",
    "lowercase": true
  },
  "model": {
    "type": "WordPiece",
    "unk_token": "[UNK]",
    "continuing_subword_prefix": "##",
    "max_input_chars_per_word": 100,
    "vocab": {
      "[PAD]": 0,
      "[UNK]": 1,
      "[CLS]": 2,
      "[SEP]": 3,
      "[MASK]": 4,
      "hello": 5,
      "world": 6,
      "##ing": 7,
      "test": 8,
      "그는": 9,
      "빨리": 10,
      "달렸": 11,
      "##다": 12,
      ",": 13
    }
  }
}`)

func newTestTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	tok, err := NewFromContent(testTokenizerJSON)
	require.NoError(t, err)
	return tok
}

func TestNewFromContent_Errors(t *testing.T) {
	_, err := NewFromContent([]byte(`{"model": {"type": "BPE", "vocab": {"a": 0}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not WordPiece")

	_, err = NewFromContent([]byte(`{"model": {"type": "WordPiece"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty vocab")

	_, err = NewFromContent([]byte(`not json`))
	require.Error(t, err)
}

func TestSpecialTokenIDs(t *testing.T) {
	tok := newTestTokenizer(t)
	for want, special := range map[int]api.SpecialToken{
		0: api.TokPad,
		1: api.TokUnknown,
		2: api.TokClassification,
		3: api.TokSeparator,
		4: api.TokMask,
	} {
		id, err := tok.SpecialTokenID(special)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
}

func TestEncode(t *testing.T) {
	tok := newTestTokenizer(t)
	// Lowercasing comes from the normalizer config.
	assert.Equal(t, []int{5, 6}, tok.Encode("Hello  world"))
	// Greedy longest match with continuation prefix.
	assert.Equal(t, []int{8, 7}, tok.Encode("testing"))
	assert.Equal(t, []int{9, 11, 12}, tok.Encode("그는 달렸다"))
	// Punctuation splits off as its own token.
	assert.Equal(t, []int{5, 13, 6}, tok.Encode("hello, world"))
	// A word with no segmentation collapses to a single unknown.
	assert.Equal(t, []int{1}, tok.Encode("xyz"))
	assert.Empty(t, tok.Encode(""))
}

func TestEncode_SeparatorInText(t *testing.T) {
	tok := newTestTokenizer(t)
	// Added tokens match verbatim inside running text, the way the
	// "<obj> [SEP] <subj>" entity pair text needs.
	assert.Equal(t, []int{6, 3, 5}, tok.Encode("world [SEP] hello"))
}

func TestRegisterMarkers(t *testing.T) {
	tok := newTestTokenizer(t)
	before := tok.VocabSize()
	tok.RegisterMarkers([]string{"[ENT]", "[/ENT]", "[MASK]"})
	// [MASK] already had an id; the two new markers get fresh ones.
	assert.Equal(t, before+2, tok.VocabSize())

	entID, ok := tok.TokenToID("[ENT]")
	require.True(t, ok)
	closeID, ok := tok.TokenToID("[/ENT]")
	require.True(t, ok)
	maskID, _ := tok.TokenToID("[MASK]")
	assert.Equal(t, 4, maskID)

	// Markers stay whole despite bracket punctuation and lowercasing.
	assert.Equal(t, []int{entID, 5, closeID}, tok.Encode("[ENT] hello [/ENT]"))
}

func TestDecode(t *testing.T) {
	tok := newTestTokenizer(t)
	assert.Equal(t, "hello world", tok.Decode([]int{5, 6}))
	assert.Equal(t, "testing", tok.Decode([]int{8, 7}))
	assert.Equal(t, "그는 달렸다", tok.Decode([]int{9, 11, 12}))
	// Unknown ids are skipped.
	assert.Equal(t, "hello", tok.Decode([]int{5, 9999}))
}

func TestVocabSize_NonContiguousIDs(t *testing.T) {
	tok, err := NewFromContent([]byte(`{
		"model": {"type": "WordPiece", "vocab": {"[PAD]": 0, "[UNK]": 1, "hello": 7}}
	}`))
	require.NoError(t, err)
	// An embedding table sized by VocabSize must cover id 7 even though
	// only three tokens exist.
	assert.Equal(t, 8, tok.VocabSize())
	assert.Equal(t, []int{7}, tok.Encode("hello"))
}
