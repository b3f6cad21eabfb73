package dataset

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/koreml/relex/records"
)

// StratifiedSplit splits a table into train and validation parts, keeping the
// label distribution: every label bucket is split independently with the same
// testSize fraction (rounded; at least one validation row per bucket with two
// or more rows). With shuffle enabled each bucket is permuted with the seeded
// source before splitting; otherwise the validation rows are the bucket tail,
// preserving table order.
func StratifiedSplit(tbl records.Table, testSize float64, shuffle bool, seed int64) (train, val records.Table, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.Errorf("test_size must be in (0, 1), got %v", testSize)
	}

	// Buckets keyed by label, in first-appearance order for determinism.
	buckets := make(map[string][]int)
	var order []string
	for i, rec := range tbl {
		if _, ok := buckets[rec.Label]; !ok {
			order = append(order, rec.Label)
		}
		buckets[rec.Label] = append(buckets[rec.Label], i)
	}

	rng := rand.New(rand.NewSource(seed))
	train = make(records.Table, 0, len(tbl))
	val = make(records.Table, 0, len(tbl))
	for _, label := range order {
		indices := buckets[label]
		if shuffle {
			rng.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
		nVal := int(math.Round(testSize * float64(len(indices))))
		if nVal == 0 && len(indices) > 1 {
			nVal = 1
		}
		cut := len(indices) - nVal
		for _, idx := range indices[:cut] {
			train = append(train, tbl[idx])
		}
		for _, idx := range indices[cut:] {
			val = append(val, tbl[idx])
		}
	}
	if len(train) == 0 || len(val) == 0 {
		return nil, nil, errors.Errorf("split produced %d train and %d validation rows", len(train), len(val))
	}
	return train, val, nil
}
