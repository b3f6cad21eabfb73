// Package training wraps an externally supplied transformer-style classifier
// with the loss, optimizer, metric and loop machinery of the pipeline.
package training

import (
	"github.com/pkg/errors"

	"github.com/koreml/relex/dataset"
)

// Model is the externally supplied pretrained classifier: a forward pass from
// tokenized inputs to classification logits, returned unchanged.
type Model interface {
	Forward(inputIDs, attentionMask, tokenTypeIDs [][]int32) ([][]float32, error)
}

// TrainableModel additionally exposes backpropagation and its parameters so
// the wrapper can drive optimization.
type TrainableModel interface {
	Model

	// Backward propagates the gradient of the loss with respect to the
	// logits of the most recent Forward call, accumulating into Parameters.
	Backward(dlogits [][]float32) error

	Parameters() []*Parameter
}

// Wrapper binds a model to its configured loss and optimizer and implements
// the per-batch steps of the training, validation and prediction loops.
type Wrapper struct {
	model      Model
	loss       Loss
	optimizer  Optimizer
	schedule   *StepLR
	numClasses int
}

// NewWrapper constructs a wrapper. The loss and optimizer are selected by
// their configured names; an optimizer is only constructed when the model is
// trainable.
func NewWrapper(model Model, lossName, optimName string, lr float64, numClasses int) (*Wrapper, error) {
	if numClasses <= 1 {
		return nil, errors.Errorf("need at least 2 classes, got %d", numClasses)
	}
	loss, err := NewLoss(lossName)
	if err != nil {
		return nil, err
	}
	w := &Wrapper{
		model:      model,
		loss:       loss,
		schedule:   NewStepLR(lr),
		numClasses: numClasses,
	}
	if trainable, ok := model.(TrainableModel); ok {
		w.optimizer, err = NewOptimizer(optimName, trainable.Parameters(), lr)
		if err != nil {
			return nil, err
		}
	}
	return w, nil
}

// NumClasses returns the size of the classification head.
func (w *Wrapper) NumClasses() int { return w.numClasses }

// StartEpoch applies the learning-rate schedule for a 0-indexed epoch.
func (w *Wrapper) StartEpoch(epoch int) {
	if w.optimizer != nil {
		w.schedule.Apply(w.optimizer, epoch)
	}
}

// TrainingStep runs forward, loss, backward and one optimizer step on a
// batch, returning the batch loss.
func (w *Wrapper) TrainingStep(batch *dataset.Batch) (float64, error) {
	trainable, ok := w.model.(TrainableModel)
	if !ok {
		return 0, errors.New("model is not trainable")
	}
	if batch.Targets == nil {
		return 0, errors.New("training batch has no targets")
	}

	logits, err := w.model.Forward(batch.InputIDs, batch.AttentionMask, batch.TokenTypeIDs)
	if err != nil {
		return 0, errors.WithMessage(err, "forward pass")
	}
	loss, dlogits, err := w.loss.Compute(logits, batch.Targets)
	if err != nil {
		return 0, err
	}
	w.optimizer.ZeroGrad()
	if err := trainable.Backward(dlogits); err != nil {
		return 0, errors.WithMessage(err, "backward pass")
	}
	w.optimizer.Step()
	return loss, nil
}

// ValidationResult is the outcome of a validation step: the batch loss plus
// the per-example predictions and probabilities that feed the epoch metrics.
type ValidationResult struct {
	Loss  float64
	Preds []int
	Probs [][]float32
}

// ValidationStep runs forward and loss on a batch, plus softmax and argmax
// for metric computation. No optimization happens.
func (w *Wrapper) ValidationStep(batch *dataset.Batch) (ValidationResult, error) {
	if batch.Targets == nil {
		return ValidationResult{}, errors.New("validation batch has no targets")
	}
	logits, err := w.model.Forward(batch.InputIDs, batch.AttentionMask, batch.TokenTypeIDs)
	if err != nil {
		return ValidationResult{}, errors.WithMessage(err, "forward pass")
	}
	loss, _, err := w.loss.Compute(logits, batch.Targets)
	if err != nil {
		return ValidationResult{}, err
	}
	preds, probs := predictions(logits)
	return ValidationResult{Loss: loss, Preds: preds, Probs: probs}, nil
}

// PredictStep runs forward on an inference-only batch and returns the argmax
// predictions and full probability vectors. No loss is computed: there are no
// targets.
func (w *Wrapper) PredictStep(batch *dataset.Batch) ([]int, [][]float32, error) {
	logits, err := w.model.Forward(batch.InputIDs, batch.AttentionMask, batch.TokenTypeIDs)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "forward pass")
	}
	// No targets, so checkBatch never runs here. Reject degenerate rows
	// before softmax reads them.
	for i, row := range logits {
		if len(row) == 0 {
			return nil, nil, errors.Errorf("model returned an empty logits row (row %d)", i)
		}
	}
	preds, probs := predictions(logits)
	return preds, probs, nil
}

func predictions(logits [][]float32) ([]int, [][]float32) {
	preds := make([]int, len(logits))
	probs := make([][]float32, len(logits))
	for i, row := range logits {
		probs[i] = Softmax(row)
		preds[i] = Argmax(probs[i])
	}
	return preds, probs
}
