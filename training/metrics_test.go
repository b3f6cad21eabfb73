package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccuracy(t *testing.T) {
	assert.Equal(t, 1.0, Accuracy([]int{0, 1, 2}, []int{0, 1, 2}))
	assert.Equal(t, 0.0, Accuracy([]int{1, 2, 0}, []int{0, 1, 2}))
	assert.InDelta(t, 0.5, Accuracy([]int{0, 1}, []int{0, 2}), 1e-9)
}

func TestMicroF1(t *testing.T) {
	// Perfect predictions: F1 is 1.
	assert.Equal(t, 1.0, MicroF1([]int{0, 1, 1}, []int{0, 1, 1}, 2))

	// One of three wrong: tp=2, fp=1, fn=1 -> 4/6.
	assert.InDelta(t, 4.0/6.0, MicroF1([]int{0, 1, 0}, []int{0, 1, 1}, 2), 1e-9)

	// All wrong.
	assert.Equal(t, 0.0, MicroF1([]int{1, 0}, []int{0, 1}, 2))
}

func TestAUPRC_PerfectRanking(t *testing.T) {
	// Class scores rank every positive above every negative: AP is 1 for
	// both classes.
	probs := [][]float32{
		{0.9, 0.1},
		{0.8, 0.2},
		{0.2, 0.8},
		{0.1, 0.9},
	}
	targets := []int{0, 0, 1, 1}
	assert.InDelta(t, 1.0, AUPRC(probs, targets, 2), 1e-9)
}

func TestAUPRC_SkipsAbsentClasses(t *testing.T) {
	// Class 2 never appears as a target; it must not drag the macro average.
	probs := [][]float32{
		{0.9, 0.05, 0.05},
		{0.1, 0.85, 0.05},
	}
	targets := []int{0, 1}
	assert.InDelta(t, 1.0, AUPRC(probs, targets, 3), 1e-9)
}

func TestAUPRC_ImperfectRanking(t *testing.T) {
	// Each class ranks its one negative above its one positive, so average
	// precision is 1/2 per class.
	probs := [][]float32{
		{0.9, 0.1},
		{0.4, 0.6},
	}
	targets := []int{1, 0}
	assert.InDelta(t, 0.5, AUPRC(probs, targets, 2), 1e-9)
}

func TestComputeMetrics(t *testing.T) {
	probs := [][]float32{
		{0.7, 0.3},
		{0.4, 0.6},
	}
	m, err := ComputeMetrics(probs, []int{0, 1}, []int{0, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Accuracy)
	assert.Equal(t, 1.0, m.MicroF1)
	assert.InDelta(t, 1.0, m.AUPRC, 1e-9)
}

func TestComputeMetrics_Validation(t *testing.T) {
	_, err := ComputeMetrics(nil, nil, nil, 2)
	assert.Error(t, err)

	_, err = ComputeMetrics([][]float32{{1}}, []int{0}, []int{0, 1}, 2)
	assert.Error(t, err)
}
