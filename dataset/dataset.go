package dataset

import (
	"iter"
	"math/rand"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Dataset is a fixed-size indexable collection over an encoding plus an
// optional integer target per row. An empty target list signals
// inference-only mode. Datasets are immutable once constructed.
type Dataset struct {
	enc     *Encoding
	targets []int
}

// New wraps an encoding and (optionally) targets into a Dataset.
func New(enc *Encoding, targets []int) (*Dataset, error) {
	if len(targets) > 0 && len(targets) != enc.Len() {
		return nil, errors.Errorf("got %d targets for %d encoded rows", len(targets), enc.Len())
	}
	return &Dataset{enc: enc, targets: targets}, nil
}

// Len returns the number of examples; it equals the number of input-id rows.
func (d *Dataset) Len() int {
	return d.enc.Len()
}

// HasTargets reports whether the dataset carries training targets.
func (d *Dataset) HasTargets() bool {
	return len(d.targets) > 0
}

// Example is one indexed example: copies of the encoded rows, detached from
// the dataset's backing arrays.
type Example struct {
	InputIDs      []int32
	AttentionMask []int32
	TokenTypeIDs  []int32
}

// At returns example i and its target. The boolean is false in inference-only
// mode, in which case only the input mapping is meaningful.
func (d *Dataset) At(i int) (Example, int, bool) {
	ex := Example{
		InputIDs:      append([]int32(nil), d.enc.InputIDs[i]...),
		AttentionMask: append([]int32(nil), d.enc.AttentionMask[i]...),
		TokenTypeIDs:  append([]int32(nil), d.enc.TokenTypeIDs[i]...),
	}
	if !d.HasTargets() {
		return ex, 0, false
	}
	return ex, d.targets[i], true
}

// Batch is an immutable fixed-size group of examples. The raw matrices feed
// pure-Go models; the tensor views are for gomlx-backed ones.
type Batch struct {
	InputIDs      [][]int32
	AttentionMask [][]int32
	TokenTypeIDs  [][]int32
	Targets       []int // nil in inference-only mode

	InputIDsTensor      *tensors.Tensor
	AttentionMaskTensor *tensors.Tensor
	TokenTypeIDsTensor  *tensors.Tensor
	TargetsTensor       *tensors.Tensor // nil in inference-only mode
}

// Size returns the number of examples in the batch.
func (b *Batch) Size() int {
	return len(b.InputIDs)
}

// Loader yields consecutive fixed-size batches over a dataset. The last batch
// may be short. With shuffle enabled the visit order is a seeded permutation,
// re-drawn on every iteration.
type Loader struct {
	ds        *Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand
}

// NewLoader builds a loader. batchSize must be positive.
func NewLoader(ds *Dataset, batchSize int, shuffle bool, seed int64) (*Loader, error) {
	if batchSize <= 0 {
		return nil, errors.Errorf("batch size must be positive, got %d", batchSize)
	}
	l := &Loader{ds: ds, batchSize: batchSize, shuffle: shuffle}
	if shuffle {
		l.rng = rand.New(rand.NewSource(seed))
	}
	return l, nil
}

// NumBatches returns the number of batches per full pass.
func (l *Loader) NumBatches() int {
	return (l.ds.Len() + l.batchSize - 1) / l.batchSize
}

// Batches iterates over one full pass of the dataset.
func (l *Loader) Batches() iter.Seq[*Batch] {
	return func(yield func(*Batch) bool) {
		order := make([]int, l.ds.Len())
		for i := range order {
			order[i] = i
		}
		if l.shuffle {
			l.rng.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}
		for start := 0; start < len(order); start += l.batchSize {
			end := start + l.batchSize
			if end > len(order) {
				end = len(order)
			}
			if !yield(l.batch(order[start:end])) {
				return
			}
		}
	}
}

func (l *Loader) batch(indices []int) *Batch {
	n := len(indices)
	maxLen := l.ds.enc.MaxLen
	b := &Batch{
		InputIDs:      make([][]int32, n),
		AttentionMask: make([][]int32, n),
		TokenTypeIDs:  make([][]int32, n),
	}
	if l.ds.HasTargets() {
		b.Targets = make([]int, n)
	}

	flatIDs := make([]int32, 0, n*maxLen)
	flatMask := make([]int32, 0, n*maxLen)
	flatTypes := make([]int32, 0, n*maxLen)
	for i, idx := range indices {
		ex, target, ok := l.ds.At(idx)
		b.InputIDs[i] = ex.InputIDs
		b.AttentionMask[i] = ex.AttentionMask
		b.TokenTypeIDs[i] = ex.TokenTypeIDs
		if ok {
			b.Targets[i] = target
		}
		flatIDs = append(flatIDs, ex.InputIDs...)
		flatMask = append(flatMask, ex.AttentionMask...)
		flatTypes = append(flatTypes, ex.TokenTypeIDs...)
	}

	b.InputIDsTensor = tensors.FromFlatDataAndDimensions(flatIDs, n, maxLen)
	b.AttentionMaskTensor = tensors.FromFlatDataAndDimensions(flatMask, n, maxLen)
	b.TokenTypeIDsTensor = tensors.FromFlatDataAndDimensions(flatTypes, n, maxLen)
	if b.Targets != nil {
		flatTargets := make([]int32, n)
		for i, t := range b.Targets {
			flatTargets[i] = int32(t)
		}
		b.TargetsTensor = tensors.FromFlatDataAndDimensions(flatTargets, n)
	}
	return b
}
