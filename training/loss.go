package training

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Loss computes a scalar loss and the gradient of that loss with respect to
// the model's output, for a batch of logits and integer targets.
type Loss interface {
	Name() string
	Compute(logits [][]float32, targets []int) (loss float64, dlogits [][]float32, err error)
}

type lossConstructor func() Loss

var lossKinds = map[string]lossConstructor{
	"cross_entropy": func() Loss { return crossEntropy{} },
	"nll":           func() Loss { return negativeLogLikelihood{} },
}

// NewLoss returns the loss registered under name. Names are validated at
// configuration load; an unknown name here is a configuration bug.
func NewLoss(name string) (Loss, error) {
	ctor, ok := lossKinds[name]
	if !ok {
		return nil, errors.Errorf("unknown loss %q", name)
	}
	return ctor(), nil
}

// IsLoss reports whether name is a registered loss kind.
func IsLoss(name string) bool {
	_, ok := lossKinds[name]
	return ok
}

// LossNames returns the registered loss names, sorted.
func LossNames() []string {
	names := make([]string, 0, len(lossKinds))
	for name := range lossKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// crossEntropy is softmax cross-entropy, averaged over the batch.
type crossEntropy struct{}

func (crossEntropy) Name() string { return "cross_entropy" }

func (crossEntropy) Compute(logits [][]float32, targets []int) (float64, [][]float32, error) {
	if err := checkBatch(logits, targets); err != nil {
		return 0, nil, err
	}
	n := len(logits)
	var total float64
	dlogits := make([][]float32, n)
	for i, row := range logits {
		probs := Softmax(row)
		p := float64(probs[targets[i]])
		if p < 1e-12 {
			p = 1e-12
		}
		total -= math.Log(p)

		grad := make([]float32, len(row))
		for j, q := range probs {
			grad[j] = q / float32(n)
		}
		grad[targets[i]] -= 1.0 / float32(n)
		dlogits[i] = grad
	}
	return total / float64(n), dlogits, nil
}

// negativeLogLikelihood expects the model to emit log-probabilities.
type negativeLogLikelihood struct{}

func (negativeLogLikelihood) Name() string { return "nll" }

func (negativeLogLikelihood) Compute(logits [][]float32, targets []int) (float64, [][]float32, error) {
	if err := checkBatch(logits, targets); err != nil {
		return 0, nil, err
	}
	n := len(logits)
	var total float64
	dlogits := make([][]float32, n)
	for i, row := range logits {
		total -= float64(row[targets[i]])
		grad := make([]float32, len(row))
		grad[targets[i]] = -1.0 / float32(n)
		dlogits[i] = grad
	}
	return total / float64(n), dlogits, nil
}

func checkBatch(logits [][]float32, targets []int) error {
	if len(logits) == 0 {
		return errors.New("empty logits batch")
	}
	if len(logits) != len(targets) {
		return errors.Errorf("got %d logit rows for %d targets", len(logits), len(targets))
	}
	for i, t := range targets {
		if t < 0 || t >= len(logits[i]) {
			return errors.Errorf("target %d out of range for %d classes (row %d)", t, len(logits[i]), i)
		}
	}
	return nil
}

// Softmax returns the softmax of one logit row, computed with the max
// subtracted for stability. An empty row yields nil.
func Softmax(row []float32) []float32 {
	if len(row) == 0 {
		return nil
	}
	maxVal := row[0]
	for _, v := range row[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	out := make([]float32, len(row))
	var sum float64
	for i, v := range row {
		e := math.Exp(float64(v - maxVal))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// Argmax returns the index of the largest value in the row.
func Argmax(row []float32) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}
