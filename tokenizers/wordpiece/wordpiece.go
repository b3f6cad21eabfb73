// Package wordpiece implements a WordPiece tokenizer reading HuggingFace's
// tokenizer.json format, the format used by BERT-family checkpoints (the
// Korean klue/bert line among them).
package wordpiece

import (
	"encoding/json"
	"os"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"

	"github.com/koreml/relex/tokenizers/api"
)

// tokenizerJSON is the subset of tokenizer.json this implementation reads.
type tokenizerJSON struct {
	AddedTokens []addedToken `json:"added_tokens"`
	Normalizer  *normalizer  `json:"normalizer"`
	Model       model        `json:"model"`
}

type addedToken struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	Special bool   `json:"special"`
}

type normalizer struct {
	Type      string `json:"type"`
	Lowercase bool   `json:"lowercase"`
}

type model struct {
	Type                    string         `json:"type"`
	Vocab                   map[string]int `json:"vocab"`
	UnkToken                string         `json:"unk_token"`
	ContinuingSubwordPrefix string         `json:"continuing_subword_prefix"`
	MaxInputCharsPerWord    int            `json:"max_input_chars_per_word"`
}

// Tokenizer implements api.Tokenizer for WordPiece vocabularies.
type Tokenizer struct {
	vocab     map[string]int
	idToToken map[int]string
	prefix    string
	maxChars  int
	lowercase bool

	// markers are tokens that must never be split by normalization or
	// pre-tokenization: the checkpoint's special tokens plus any entity
	// markers registered after loading. Sorted longest first for matching.
	markers   []string
	markerIDs map[string]int
	nextID    int

	unkID  int
	padID  int
	clsID  int
	sepID  int
	maskID int
}

// Compile time assert that Tokenizer implements api.Tokenizer.
var _ api.Tokenizer = &Tokenizer{}

// NewFromFile creates a WordPiece tokenizer from a local tokenizer.json path.
func NewFromFile(path string) (*Tokenizer, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read tokenizer file %q", path)
	}
	return NewFromContent(content)
}

// NewFromContent creates a WordPiece tokenizer from tokenizer.json content.
func NewFromContent(content []byte) (*Tokenizer, error) {
	var tj tokenizerJSON
	if err := json.Unmarshal(content, &tj); err != nil {
		return nil, errors.Wrapf(err, "failed to parse tokenizer.json")
	}
	if tj.Model.Type != "" && tj.Model.Type != "WordPiece" {
		return nil, errors.Errorf("model type %q is not WordPiece", tj.Model.Type)
	}
	if len(tj.Model.Vocab) == 0 {
		return nil, errors.New("tokenizer.json has an empty vocab")
	}

	t := &Tokenizer{
		vocab:     make(map[string]int, len(tj.Model.Vocab)),
		idToToken: make(map[int]string, len(tj.Model.Vocab)),
		prefix:    tj.Model.ContinuingSubwordPrefix,
		maxChars:  tj.Model.MaxInputCharsPerWord,
		markerIDs: make(map[string]int),
		unkID:     -1,
		padID:     -1,
		clsID:     -1,
		sepID:     -1,
		maskID:    -1,
	}
	if t.prefix == "" {
		t.prefix = "##"
	}
	if t.maxChars == 0 {
		t.maxChars = 100
	}
	if tj.Normalizer != nil {
		t.lowercase = tj.Normalizer.Lowercase
	}

	for token, id := range tj.Model.Vocab {
		t.vocab[token] = id
		t.idToToken[id] = token
		if id >= t.nextID {
			t.nextID = id + 1
		}
	}
	for _, at := range tj.AddedTokens {
		t.addMarker(at.Content, at.ID)
	}
	if tj.Model.UnkToken != "" {
		if id, ok := t.vocab[tj.Model.UnkToken]; ok {
			t.unkID = id
		}
	}
	t.resolveSpecialTokens()
	return t, nil
}

// resolveSpecialTokens maps the conventional BERT special tokens to ids.
func (t *Tokenizer) resolveSpecialTokens() {
	lookup := func(names ...string) int {
		for _, name := range names {
			if id, ok := t.vocab[name]; ok {
				return id
			}
		}
		return -1
	}
	if t.unkID < 0 {
		t.unkID = lookup("[UNK]", "<unk>")
	}
	t.padID = lookup("[PAD]", "<pad>")
	t.clsID = lookup("[CLS]", "<s>")
	t.sepID = lookup("[SEP]", "</s>")
	t.maskID = lookup("[MASK]", "<mask>")
}

// RegisterMarkers adds entity marker tokens (e.g. [ENT], [SUB]) to the
// vocabulary as unsplittable added tokens, assigning fresh ids to tokens not
// already present. The order of ids follows the order of the markers given.
func (t *Tokenizer) RegisterMarkers(markers []string) {
	for _, marker := range markers {
		if _, ok := t.vocab[marker]; ok {
			t.ensureMarker(marker)
			continue
		}
		t.addMarker(marker, t.nextID)
	}
}

func (t *Tokenizer) addMarker(content string, id int) {
	t.vocab[content] = id
	t.idToToken[id] = content
	if id >= t.nextID {
		t.nextID = id + 1
	}
	t.ensureMarker(content)
}

func (t *Tokenizer) ensureMarker(content string) {
	if _, ok := t.markerIDs[content]; ok {
		return
	}
	t.markerIDs[content] = t.vocab[content]
	// Keep markers sorted longest first so matching prefers the longest one.
	pos := 0
	for pos < len(t.markers) && len(t.markers[pos]) >= len(content) {
		pos++
	}
	t.markers = append(t.markers, "")
	copy(t.markers[pos+1:], t.markers[pos:])
	t.markers[pos] = content
}

// VocabSize returns one past the highest token id, markers included. An
// embedding table of this size covers every id the tokenizer can emit, even
// when the vocabulary has holes in its id space.
func (t *Tokenizer) VocabSize() int {
	return t.nextID
}

// TokenToID converts a token string to its id.
func (t *Tokenizer) TokenToID(token string) (int, bool) {
	id, ok := t.vocab[token]
	return id, ok
}

// Encode converts text to a sequence of token ids. Registered marker tokens
// are matched verbatim; the text between them goes through BERT-style
// normalization, whitespace/punctuation pre-tokenization and WordPiece.
func (t *Tokenizer) Encode(text string) []int {
	var ids []int
	for _, chunk := range t.splitOnMarkers(text) {
		if id, ok := t.markerIDs[chunk]; ok {
			ids = append(ids, id)
			continue
		}
		for _, word := range t.preTokenize(t.normalize(chunk)) {
			ids = append(ids, t.wordPiece(word)...)
		}
	}
	return ids
}

// splitOnMarkers cuts text into alternating plain chunks and marker tokens.
func (t *Tokenizer) splitOnMarkers(text string) []string {
	var chunks []string
	for len(text) > 0 {
		best, bestAt := "", -1
		for _, marker := range t.markers {
			at := strings.Index(text, marker)
			if at < 0 {
				continue
			}
			if bestAt < 0 || at < bestAt || (at == bestAt && len(marker) > len(best)) {
				best, bestAt = marker, at
			}
		}
		if bestAt < 0 {
			chunks = append(chunks, text)
			break
		}
		if bestAt > 0 {
			chunks = append(chunks, text[:bestAt])
		}
		chunks = append(chunks, best)
		text = text[bestAt+len(best):]
	}
	return chunks
}

// normalize applies NFC plus BERT-style text cleaning.
func (t *Tokenizer) normalize(text string) string {
	text = norm.NFC.String(text)
	var b strings.Builder
	for _, r := range text {
		if r == 0 || r == 0xFFFD || isControl(r) {
			continue
		}
		if isWhitespace(r) {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	if t.lowercase {
		return strings.ToLower(b.String())
	}
	return b.String()
}

// preTokenize splits on whitespace and isolates punctuation runes.
func (t *Tokenizer) preTokenize(text string) []string {
	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	for _, r := range text {
		switch {
		case isWhitespace(r):
			flush()
		case isPunctuation(r):
			flush()
			words = append(words, string(r))
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}

// wordPiece greedily matches the longest vocabulary entry, prefixing
// continuation pieces. A word with no complete segmentation becomes one
// unknown token.
func (t *Tokenizer) wordPiece(word string) []int {
	runes := []rune(word)
	if len(runes) > t.maxChars {
		return t.unknown()
	}

	var pieces []int
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := false
		for end > start {
			piece := string(runes[start:end])
			if start > 0 {
				piece = t.prefix + piece
			}
			if id, ok := t.vocab[piece]; ok {
				pieces = append(pieces, id)
				found = true
				break
			}
			end--
		}
		if !found {
			return t.unknown()
		}
		start = end
	}
	return pieces
}

func (t *Tokenizer) unknown() []int {
	if t.unkID >= 0 {
		return []int{t.unkID}
	}
	return nil
}

// Decode converts token ids back to text, joining continuation pieces.
func (t *Tokenizer) Decode(ids []int) string {
	var b strings.Builder
	first := true
	for _, id := range ids {
		token, ok := t.idToToken[id]
		if !ok {
			continue
		}
		if piece, isCont := strings.CutPrefix(token, t.prefix); isCont {
			b.WriteString(piece)
			continue
		}
		if !first {
			b.WriteString(" ")
		}
		b.WriteString(token)
		first = false
	}
	return b.String()
}

// SpecialTokenID returns the id for a given special token.
func (t *Tokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	id := -1
	switch token {
	case api.TokUnknown:
		id = t.unkID
	case api.TokPad:
		id = t.padID
	case api.TokClassification:
		id = t.clsID
	case api.TokSeparator:
		id = t.sepID
	case api.TokMask:
		id = t.maskID
	}
	if id < 0 {
		return 0, errors.Errorf("special token %s not found", token)
	}
	return id, nil
}

func isWhitespace(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}
