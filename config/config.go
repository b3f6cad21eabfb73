// Package config loads the pipeline configuration from YAML. The
// configuration is parsed once and read-only afterwards; every name-valued
// field (cleaning/augmentation ops, loss, optimizer) is validated against its
// registry at load time, so a typo is a load error rather than a mid-run
// failure.
package config

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/koreml/relex/cleaning"
	"github.com/koreml/relex/training"
)

// Config is the full pipeline configuration.
type Config struct {
	Seed     int64    `yaml:"seed"`
	SelectDC []string `yaml:"select_DC"`
	SelectDA []string `yaml:"select_DA"`
	Train    Train    `yaml:"train"`
	Paths    Paths    `yaml:"paths"`
}

// Train holds the training hyperparameters.
type Train struct {
	LossF       string  `yaml:"lossF"`
	Optim       string  `yaml:"optim"`
	LR          float64 `yaml:"LR"`
	BatchSize   int     `yaml:"batch_size"`
	TokenMaxLen int     `yaml:"token_max_len"`
	TestSize    float64 `yaml:"test_size"`
	Shuffle     bool    `yaml:"shuffle"`
	Epochs      int     `yaml:"epochs"`
}

// Paths holds the input and output file locations.
type Paths struct {
	TrainCSV  string `yaml:"train_csv"`
	TestCSV   string `yaml:"test_csv"`
	LabelMap  string `yaml:"label_map"`
	StopWords string `yaml:"stop_words"`
	Tokenizer string `yaml:"tokenizer"`
	OutputDir string `yaml:"output_dir"`
}

// Load reads, parses and validates a YAML configuration file. Unknown fields
// are an error.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %q", path)
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, errors.WithMessagef(err, "config %q", path)
	}
	return cfg, nil
}

// Parse parses and validates YAML configuration content.
func Parse(content []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every configured name against its registry and every
// numeric field against its valid range.
func (c *Config) Validate() error {
	for _, name := range c.SelectDC {
		if !cleaning.IsCleaningOp(name) {
			return errors.Errorf("select_DC: unknown cleaning op %q (known: %v)",
				name, cleaning.CleaningOpNames())
		}
	}
	for _, name := range c.SelectDA {
		if !cleaning.IsAugmentationOp(name) {
			return errors.Errorf("select_DA: unknown augmentation op %q (known: %v)",
				name, cleaning.AugmentationOpNames())
		}
	}
	if !training.IsLoss(c.Train.LossF) {
		return errors.Errorf("train.lossF: unknown loss %q (known: %v)",
			c.Train.LossF, training.LossNames())
	}
	if !training.IsOptimizer(c.Train.Optim) {
		return errors.Errorf("train.optim: unknown optimizer %q (known: %v)",
			c.Train.Optim, training.OptimizerNames())
	}
	if c.Train.LR <= 0 {
		return errors.Errorf("train.LR must be positive, got %v", c.Train.LR)
	}
	if c.Train.BatchSize <= 0 {
		return errors.Errorf("train.batch_size must be positive, got %d", c.Train.BatchSize)
	}
	if c.Train.TokenMaxLen < 4 {
		return errors.Errorf("train.token_max_len must be at least 4, got %d", c.Train.TokenMaxLen)
	}
	if c.Train.TestSize <= 0 || c.Train.TestSize >= 1 {
		return errors.Errorf("train.test_size must be in (0, 1), got %v", c.Train.TestSize)
	}
	if c.Train.Epochs <= 0 {
		return errors.Errorf("train.epochs must be positive, got %d", c.Train.Epochs)
	}
	return nil
}
