package training

import (
	"sort"

	"github.com/pkg/errors"
)

// Metrics are the validation-time quality measures reported each epoch.
type Metrics struct {
	Accuracy float64 `json:"accuracy"`
	MicroF1  float64 `json:"micro_f1"`
	AUPRC    float64 `json:"auprc"`
}

// ComputeMetrics evaluates predictions against targets. probs holds the full
// per-class probability row for every example, used for the
// area-under-precision-recall-curve score.
func ComputeMetrics(probs [][]float32, preds, targets []int, numClasses int) (Metrics, error) {
	if len(preds) != len(targets) || len(probs) != len(targets) {
		return Metrics{}, errors.Errorf("mismatched lengths: %d probs, %d preds, %d targets",
			len(probs), len(preds), len(targets))
	}
	if len(targets) == 0 {
		return Metrics{}, errors.New("no examples to evaluate")
	}
	return Metrics{
		Accuracy: Accuracy(preds, targets),
		MicroF1:  MicroF1(preds, targets, numClasses),
		AUPRC:    AUPRC(probs, targets, numClasses),
	}, nil
}

// Accuracy is the fraction of exact prediction matches.
func Accuracy(preds, targets []int) float64 {
	var hits int
	for i, p := range preds {
		if p == targets[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(targets))
}

// MicroF1 is the F1 score with true/false positives and false negatives
// pooled across all classes.
func MicroF1(preds, targets []int, numClasses int) float64 {
	var tp, fp, fn int
	for i, p := range preds {
		t := targets[i]
		if p == t {
			tp++
			continue
		}
		if p >= 0 && p < numClasses {
			fp++
		}
		if t >= 0 && t < numClasses {
			fn++
		}
	}
	denom := float64(2*tp + fp + fn)
	if denom == 0 {
		return 0
	}
	return float64(2*tp) / denom
}

// AUPRC is the average precision per class, macro-averaged over the classes
// that have at least one positive target.
func AUPRC(probs [][]float32, targets []int, numClasses int) float64 {
	var total float64
	var classes int
	for c := 0; c < numClasses; c++ {
		ap, ok := averagePrecision(probs, targets, c)
		if !ok {
			continue
		}
		total += ap
		classes++
	}
	if classes == 0 {
		return 0
	}
	return total / float64(classes)
}

// averagePrecision computes AP for one class treated as a binary problem:
// the sum of precision-at-k weighted by recall increments, over examples
// sorted by descending score. Returns ok=false when the class has no
// positives.
func averagePrecision(probs [][]float32, targets []int, class int) (float64, bool) {
	type scored struct {
		score    float32
		positive bool
	}
	rows := make([]scored, len(targets))
	var positives int
	for i, t := range targets {
		rows[i] = scored{score: probs[i][class], positive: t == class}
		if t == class {
			positives++
		}
	}
	if positives == 0 {
		return 0, false
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].score > rows[j].score
	})

	var ap float64
	var hits int
	for k, row := range rows {
		if !row.positive {
			continue
		}
		hits++
		precision := float64(hits) / float64(k+1)
		ap += precision / float64(positives)
	}
	return ap, true
}
