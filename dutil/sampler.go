package dutil

import (
	"fmt"
	"math/rand"
)

// BatchSampler yields batches of dataset indexes.
type BatchSampler struct {
	n         int
	batchSize int
	dropLast  bool
	shuffle   bool
}

// NewBatchSampler creates a BatchSampler over n elements.
// dropLast discards a trailing incomplete batch; shuffle permutes element
// order on every Sample call.
func NewBatchSampler(n, batchSize int, dropLast, shuffle bool) (*BatchSampler, error) {
	if n <= 0 {
		return nil, fmt.Errorf("batch sampler: invalid dataset size: %v", n)
	}
	if batchSize <= 0 || batchSize > n {
		return nil, fmt.Errorf("batch sampler: invalid batch size %v for %v elements", batchSize, n)
	}

	return &BatchSampler{
		n:         n,
		batchSize: batchSize,
		dropLast:  dropLast,
		shuffle:   shuffle,
	}, nil
}

// BatchSize returns the batch size.
func (s *BatchSampler) BatchSize() int {
	return s.batchSize
}

// BatchCount returns the number of batches per pass.
func (s *BatchSampler) BatchCount() int {
	count := s.n / s.batchSize
	if !s.dropLast && s.n%s.batchSize != 0 {
		count++
	}

	return count
}

// Sample returns a fresh set of index batches.
func (s *BatchSampler) Sample() [][]int {
	indexes := make([]int, s.n)
	for i := range indexes {
		indexes[i] = i
	}
	if s.shuffle {
		rand.Shuffle(s.n, func(i, j int) {
			indexes[i], indexes[j] = indexes[j], indexes[i]
		})
	}

	batches := make([][]int, 0, s.BatchCount())
	for start := 0; start < s.n; start += s.batchSize {
		end := start + s.batchSize
		if end > s.n {
			if s.dropLast {
				break
			}
			end = s.n
		}
		batches = append(batches, indexes[start:end])
	}

	return batches
}
