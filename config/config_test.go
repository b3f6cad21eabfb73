package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
seed: 42
select_DC:
  - entity_parsing
  - remove_duplicated
  - add_entity_tokens_base
select_DA:
  - entity_mask
  - respacing
train:
  lossF: cross_entropy
  optim: adamw
  LR: 0.00002
  batch_size: 32
  token_max_len: 128
  test_size: 0.2
  shuffle: true
  epochs: 5
paths:
  train_csv: data/new_train.csv
  test_csv: data/new_test.csv
  label_map: data/dict_label_to_num.json
  stop_words: data/stop_word.txt
  tokenizer: data/tokenizer.json
  output_dir: out
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, []string{"entity_parsing", "remove_duplicated", "add_entity_tokens_base"}, cfg.SelectDC)
	assert.Equal(t, []string{"entity_mask", "respacing"}, cfg.SelectDA)
	assert.Equal(t, "adamw", cfg.Train.Optim)
	assert.Equal(t, 0.00002, cfg.Train.LR)
	assert.True(t, cfg.Train.Shuffle)
	assert.Equal(t, "data/new_train.csv", cfg.Paths.TrainCSV)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte(validYAML + "\nbogus_key: 1\n"))
	require.Error(t, err)
}

func TestValidate_UnknownNames(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	bad := *cfg
	bad.SelectDC = []string{"typo_op"}
	err = bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"typo_op"`)

	bad = *cfg
	bad.SelectDA = []string{"spacing"} // cleaning name, not an augmentation name
	require.Error(t, bad.Validate())

	bad = *cfg
	bad.Train.LossF = "focal"
	require.Error(t, bad.Validate())

	bad = *cfg
	bad.Train.Optim = "rmsprop"
	require.Error(t, bad.Validate())
}

func TestValidate_Ranges(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	for _, mutate := range []func(c *Config){
		func(c *Config) { c.Train.LR = 0 },
		func(c *Config) { c.Train.BatchSize = 0 },
		func(c *Config) { c.Train.TokenMaxLen = 3 },
		func(c *Config) { c.Train.TestSize = 0 },
		func(c *Config) { c.Train.TestSize = 1 },
		func(c *Config) { c.Train.Epochs = 0 },
	} {
		bad := *cfg
		mutate(&bad)
		assert.Error(t, bad.Validate())
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Train.BatchSize)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
