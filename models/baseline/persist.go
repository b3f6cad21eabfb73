package baseline

import (
	"encoding/gob"
	"os"

	"github.com/pkg/errors"

	"github.com/koreml/relex/training"
)

// snapshot is the gob-serialized form of a classifier.
type snapshot struct {
	VocabSize  int
	Dim        int
	NumClasses int
	Embedding  []float32
	Weight     []float32
	Bias       []float32
}

// Save writes the classifier weights to path.
func (c *Classifier) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create checkpoint %q", path)
	}
	defer f.Close()

	snap := snapshot{
		VocabSize:  c.vocabSize,
		Dim:        c.dim,
		NumClasses: c.numClasses,
		Embedding:  c.embedding.Value,
		Weight:     c.weight.Value,
		Bias:       c.bias.Value,
	}
	if err := gob.NewEncoder(f).Encode(&snap); err != nil {
		return errors.Wrapf(err, "failed to encode checkpoint %q", path)
	}
	return nil
}

// Load reads a classifier from a checkpoint written by Save.
func Load(path string) (*Classifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open checkpoint %q", path)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, errors.Wrapf(err, "failed to decode checkpoint %q", path)
	}
	if len(snap.Embedding) != snap.VocabSize*snap.Dim ||
		len(snap.Weight) != snap.NumClasses*snap.Dim ||
		len(snap.Bias) != snap.NumClasses {
		return nil, errors.Errorf("checkpoint %q has inconsistent shapes", path)
	}
	param := func(values []float32) *training.Parameter {
		return &training.Parameter{Value: values, Grad: make([]float32, len(values))}
	}
	return &Classifier{
		vocabSize:  snap.VocabSize,
		dim:        snap.Dim,
		numClasses: snap.NumClasses,
		embedding:  param(snap.Embedding),
		weight:     param(snap.Weight),
		bias:       param(snap.Bias),
	}, nil
}
