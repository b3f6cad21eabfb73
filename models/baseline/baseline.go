// Package baseline provides a small trainable bag-of-embeddings classifier.
// It mean-pools the token embeddings of each sequence (attention-masked) and
// applies a linear classification head. It exists so the training loop can
// run end to end without an external pretrained transformer; swapping in a
// stronger model means implementing the same interfaces.
package baseline

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/koreml/relex/training"
)

// Classifier is a mean-pooled embedding-bag with a linear head.
type Classifier struct {
	vocabSize  int
	dim        int
	numClasses int

	embedding *training.Parameter // [vocabSize * dim]
	weight    *training.Parameter // [numClasses * dim]
	bias      *training.Parameter // [numClasses]

	// Stored by Forward for the subsequent Backward call.
	lastInputs [][]int32
	lastMask   [][]int32
	lastPooled [][]float32
}

var _ training.TrainableModel = &Classifier{}

// New creates a classifier with seeded random initialization in [-0.1, 0.1],
// bias at zero.
func New(vocabSize, dim, numClasses int, seed int64) (*Classifier, error) {
	if vocabSize <= 0 || dim <= 0 {
		return nil, errors.Errorf("invalid dimensions: vocab %d, dim %d", vocabSize, dim)
	}
	if numClasses <= 1 {
		return nil, errors.Errorf("need at least 2 classes, got %d", numClasses)
	}
	rng := rand.New(rand.NewSource(seed))
	init := func(n int) *training.Parameter {
		p := &training.Parameter{
			Value: make([]float32, n),
			Grad:  make([]float32, n),
		}
		for i := range p.Value {
			p.Value[i] = float32(rng.Float64()*2-1) * 0.1
		}
		return p
	}
	return &Classifier{
		vocabSize:  vocabSize,
		dim:        dim,
		numClasses: numClasses,
		embedding:  init(vocabSize * dim),
		weight:     init(numClasses * dim),
		bias: &training.Parameter{
			Value: make([]float32, numClasses),
			Grad:  make([]float32, numClasses),
		},
	}, nil
}

// Parameters returns the trainable parameters in a fixed order.
func (c *Classifier) Parameters() []*training.Parameter {
	return []*training.Parameter{c.embedding, c.weight, c.bias}
}

// Forward computes logits for a batch. Token type ids are accepted for
// interface compatibility but carry no signal in this model.
func (c *Classifier) Forward(inputIDs, attentionMask, tokenTypeIDs [][]int32) ([][]float32, error) {
	n := len(inputIDs)
	logits := make([][]float32, n)
	pooled := make([][]float32, n)
	for i := 0; i < n; i++ {
		row := inputIDs[i]
		mask := attentionMask[i]
		if len(mask) != len(row) {
			return nil, errors.Errorf("row %d: mask length %d != input length %d", i, len(mask), len(row))
		}
		p := make([]float32, c.dim)
		var count float32
		for j, id := range row {
			if mask[j] == 0 {
				continue
			}
			if id < 0 || int(id) >= c.vocabSize {
				return nil, errors.Errorf("row %d: token id %d outside vocabulary of size %d", i, id, c.vocabSize)
			}
			base := int(id) * c.dim
			for d := 0; d < c.dim; d++ {
				p[d] += c.embedding.Value[base+d]
			}
			count++
		}
		if count > 0 {
			for d := range p {
				p[d] /= count
			}
		}
		pooled[i] = p

		out := make([]float32, c.numClasses)
		for k := 0; k < c.numClasses; k++ {
			sum := c.bias.Value[k]
			wBase := k * c.dim
			for d := 0; d < c.dim; d++ {
				sum += c.weight.Value[wBase+d] * p[d]
			}
			out[k] = sum
		}
		logits[i] = out
	}
	c.lastInputs = inputIDs
	c.lastMask = attentionMask
	c.lastPooled = pooled
	return logits, nil
}

// Backward accumulates parameter gradients given the gradient of the loss
// with respect to the logits of the most recent Forward call.
func (c *Classifier) Backward(dlogits [][]float32) error {
	if c.lastPooled == nil {
		return errors.New("Backward called before Forward")
	}
	if len(dlogits) != len(c.lastPooled) {
		return errors.Errorf("got %d logit gradients for a batch of %d", len(dlogits), len(c.lastPooled))
	}
	for i, dout := range dlogits {
		if len(dout) != c.numClasses {
			return errors.Errorf("row %d: %d logit gradients for %d classes", i, len(dout), c.numClasses)
		}
		p := c.lastPooled[i]

		// Head gradients.
		for k := 0; k < c.numClasses; k++ {
			g := dout[k]
			c.bias.Grad[k] += g
			wBase := k * c.dim
			for d := 0; d < c.dim; d++ {
				c.weight.Grad[wBase+d] += g * p[d]
			}
		}

		// Pooled-vector gradient, then scatter back to the embeddings of
		// the attended tokens.
		dp := make([]float32, c.dim)
		for k := 0; k < c.numClasses; k++ {
			g := dout[k]
			wBase := k * c.dim
			for d := 0; d < c.dim; d++ {
				dp[d] += g * c.weight.Value[wBase+d]
			}
		}
		var count float32
		for _, m := range c.lastMask[i] {
			if m != 0 {
				count++
			}
		}
		if count == 0 {
			continue
		}
		for j, id := range c.lastInputs[i] {
			if c.lastMask[i][j] == 0 {
				continue
			}
			base := int(id) * c.dim
			for d := 0; d < c.dim; d++ {
				c.embedding.Grad[base+d] += dp[d] / count
			}
		}
	}
	return nil
}
