package training

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/koreml/relex/dataset"
)

// EpochReport is the per-epoch record the runner logs and persists.
type EpochReport struct {
	Epoch        int     `json:"epoch"`
	TrainLoss    float64 `json:"train_loss"`
	ValLoss      float64 `json:"val_loss"`
	Metrics      Metrics `json:"metrics"`
	LearningRate float64 `json:"learning_rate"`
}

// Runner drives the epoch loop: training batches, validation metrics, the
// learning-rate schedule, and a per-run output directory with the epoch
// reports serialized as JSON.
type Runner struct {
	wrapper *Wrapper
	epochs  int
	runID   string
	outDir  string // empty disables persistence
}

// NewRunner builds a runner; every run gets a fresh uuid identity. outDir may
// be empty to skip writing reports.
func NewRunner(wrapper *Wrapper, epochs int, outDir string) (*Runner, error) {
	if epochs <= 0 {
		return nil, errors.Errorf("epochs must be positive, got %d", epochs)
	}
	return &Runner{
		wrapper: wrapper,
		epochs:  epochs,
		runID:   uuid.NewString(),
		outDir:  outDir,
	}, nil
}

// RunID returns the run's uuid.
func (r *Runner) RunID() string { return r.runID }

// Fit runs the full training loop and returns the epoch reports.
func (r *Runner) Fit(train, val *dataset.Loader) ([]EpochReport, error) {
	reports := make([]EpochReport, 0, r.epochs)
	for epoch := 0; epoch < r.epochs; epoch++ {
		r.wrapper.StartEpoch(epoch)

		var totalLoss float64
		var batches int
		for batch := range train.Batches() {
			loss, err := r.wrapper.TrainingStep(batch)
			if err != nil {
				return nil, errors.WithMessagef(err, "epoch %d batch %d", epoch, batches)
			}
			totalLoss += loss
			batches++
			klog.V(1).Infof("run %s epoch %d batch %d/%d loss=%.4f",
				r.runID, epoch, batches, train.NumBatches(), loss)
		}
		if batches == 0 {
			return nil, errors.New("training loader yielded no batches")
		}

		valLoss, metrics, err := r.Validate(val)
		if err != nil {
			return nil, errors.WithMessagef(err, "epoch %d validation", epoch)
		}

		report := EpochReport{
			Epoch:        epoch,
			TrainLoss:    totalLoss / float64(batches),
			ValLoss:      valLoss,
			Metrics:      metrics,
			LearningRate: r.wrapper.schedule.At(epoch),
		}
		reports = append(reports, report)
		klog.Infof("run %s epoch %d train_loss=%.4f val_loss=%.4f micro_f1=%.4f auprc=%.4f acc=%.4f",
			r.runID, epoch, report.TrainLoss, report.ValLoss,
			metrics.MicroF1, metrics.AUPRC, metrics.Accuracy)
	}
	if err := r.persist(reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// Validate runs the validation loop over one full pass of the loader.
func (r *Runner) Validate(val *dataset.Loader) (float64, Metrics, error) {
	var totalLoss float64
	var batches int
	var preds, targets []int
	var probs [][]float32
	for batch := range val.Batches() {
		result, err := r.wrapper.ValidationStep(batch)
		if err != nil {
			return 0, Metrics{}, err
		}
		totalLoss += result.Loss
		batches++
		preds = append(preds, result.Preds...)
		probs = append(probs, result.Probs...)
		targets = append(targets, batch.Targets...)
	}
	if batches == 0 {
		return 0, Metrics{}, errors.New("validation loader yielded no batches")
	}
	metrics, err := ComputeMetrics(probs, preds, targets, r.wrapper.NumClasses())
	if err != nil {
		return 0, Metrics{}, err
	}
	return totalLoss / float64(batches), metrics, nil
}

// Predict runs the prediction loop, concatenating per-batch predictions and
// probability vectors.
func (r *Runner) Predict(loader *dataset.Loader) ([]int, [][]float32, error) {
	var preds []int
	var probs [][]float32
	for batch := range loader.Batches() {
		p, pr, err := r.wrapper.PredictStep(batch)
		if err != nil {
			return nil, nil, err
		}
		preds = append(preds, p...)
		probs = append(probs, pr...)
	}
	return preds, probs, nil
}

func (r *Runner) persist(reports []EpochReport) error {
	if r.outDir == "" {
		return nil
	}
	dir := filepath.Join(r.outDir, "run-"+r.runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create run directory %q", dir)
	}
	path := filepath.Join(dir, "metrics.json")
	content, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize epoch reports")
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %q", path)
	}
	return nil
}
