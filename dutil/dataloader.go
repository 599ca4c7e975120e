package dutil

import (
	"fmt"
	"reflect"
)

// DataLoader iterates a Dataset in batches drawn from a BatchSampler.
// Next returns a typed slice of the dataset's element type, e.g.
// []train.Sample, ready for a type assertion at the call site.
type DataLoader struct {
	dataset Dataset
	sampler *BatchSampler
	batches [][]int
	pos     int
}

// NewDataLoader creates a DataLoader.
func NewDataLoader(ds Dataset, s *BatchSampler) (*DataLoader, error) {
	if ds == nil || s == nil {
		return nil, fmt.Errorf("data loader: nil dataset or sampler")
	}

	return &DataLoader{
		dataset: ds,
		sampler: s,
		batches: s.Sample(),
	}, nil
}

// Reset rewinds the loader and resamples batch order.
func (dl *DataLoader) Reset() {
	dl.batches = dl.sampler.Sample()
	dl.pos = 0
}

// HasNext reports whether another batch remains in this pass.
func (dl *DataLoader) HasNext() bool {
	return dl.pos < len(dl.batches)
}

// Next returns the next batch as a typed slice.
func (dl *DataLoader) Next() (interface{}, error) {
	if !dl.HasNext() {
		return nil, fmt.Errorf("data loader: no more batches")
	}

	indexes := dl.batches[dl.pos]
	dl.pos++

	batch := reflect.MakeSlice(reflect.SliceOf(dl.dataset.DType()), 0, len(indexes))
	for _, idx := range indexes {
		item, err := dl.dataset.Item(idx)
		if err != nil {
			return nil, err
		}
		batch = reflect.Append(batch, reflect.ValueOf(item))
	}

	return batch.Interface(), nil
}
