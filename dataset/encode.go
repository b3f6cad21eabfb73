// Package dataset turns cleaned record tables into tokenized, batched inputs
// for training, validation and prediction.
package dataset

import (
	"github.com/pkg/errors"

	"github.com/koreml/relex/records"
	"github.com/koreml/relex/tokenizers/api"
)

// Encoding holds the tokenized inputs of a table: parallel n x maxLen
// matrices of input ids, attention mask and token type ids.
type Encoding struct {
	InputIDs      [][]int32
	AttentionMask [][]int32
	TokenTypeIDs  [][]int32
	MaxLen        int
}

// Len returns the number of encoded rows.
func (e *Encoding) Len() int {
	return len(e.InputIDs)
}

// EncodeTable tokenizes every record as a BERT sentence pair: the entity text
// "<object word> [SEP] <subject word>" paired with the sentence itself,
//
//	[CLS] entityText [SEP] sentence [SEP]
//
// with token type ids 0 over the first segment (its [SEP] included) and 1
// over the second. Sequences are truncated to maxLen (keeping a final
// separator) and padded with the pad id; the attention mask is 1 over real
// tokens.
func EncodeTable(tok api.Tokenizer, tbl records.Table, maxLen int) (*Encoding, error) {
	if maxLen < 4 {
		return nil, errors.Errorf("token_max_len %d is too small", maxLen)
	}
	clsID, err := tok.SpecialTokenID(api.TokClassification)
	if err != nil {
		return nil, errors.WithMessage(err, "tokenizer has no classification token")
	}
	sepID, err := tok.SpecialTokenID(api.TokSeparator)
	if err != nil {
		return nil, errors.WithMessage(err, "tokenizer has no separator token")
	}
	padID, err := tok.SpecialTokenID(api.TokPad)
	if err != nil {
		return nil, errors.WithMessage(err, "tokenizer has no pad token")
	}

	enc := &Encoding{
		InputIDs:      make([][]int32, len(tbl)),
		AttentionMask: make([][]int32, len(tbl)),
		TokenTypeIDs:  make([][]int32, len(tbl)),
		MaxLen:        maxLen,
	}
	for i, rec := range tbl {
		entityText := rec.Object.Word + " [SEP] " + rec.Subject.Word
		ids, types := encodePair(tok.Encode(entityText), tok.Encode(rec.Sentence), clsID, sepID, maxLen)
		row := make([]int32, maxLen)
		mask := make([]int32, maxLen)
		typeRow := make([]int32, maxLen)
		for j := 0; j < maxLen; j++ {
			if j < len(ids) {
				row[j] = int32(ids[j])
				mask[j] = 1
				typeRow[j] = int32(types[j])
			} else {
				row[j] = int32(padID)
			}
		}
		enc.InputIDs[i] = row
		enc.AttentionMask[i] = mask
		enc.TokenTypeIDs[i] = typeRow
	}
	return enc, nil
}

func encodePair(a, b []int, clsID, sepID, maxLen int) (ids, types []int) {
	ids = make([]int, 0, len(a)+len(b)+3)
	types = make([]int, 0, cap(ids))

	ids = append(ids, clsID)
	types = append(types, 0)
	for _, id := range a {
		ids = append(ids, id)
		types = append(types, 0)
	}
	ids = append(ids, sepID)
	types = append(types, 0)
	for _, id := range b {
		ids = append(ids, id)
		types = append(types, 1)
	}
	ids = append(ids, sepID)
	types = append(types, 1)

	if len(ids) > maxLen {
		ids = ids[:maxLen]
		types = types[:maxLen]
		ids[maxLen-1] = sepID
	}
	return ids, types
}
