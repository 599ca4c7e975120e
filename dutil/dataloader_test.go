package dutil_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugarme/bseg/dutil"
)

type pair struct {
	Name  string
	Label int
}

type pairDataset struct {
	n int
}

func (ds *pairDataset) Len() int { return ds.n }

func (ds *pairDataset) DType() reflect.Type { return reflect.TypeOf(pair{}) }

func (ds *pairDataset) Item(idx int) (interface{}, error) {
	if idx >= ds.n {
		return nil, fmt.Errorf("index out of range: %v", idx)
	}
	return pair{Name: fmt.Sprintf("item-%v", idx), Label: idx % 2}, nil
}

func TestDataLoader(t *testing.T) {
	ds := &pairDataset{n: 10}
	s, err := dutil.NewBatchSampler(ds.Len(), 4, true, false)
	require.NoError(t, err)
	dl, err := dutil.NewDataLoader(ds, s)
	require.NoError(t, err)

	var count int
	for dl.HasNext() {
		batch, err := dl.Next()
		require.NoError(t, err)

		// Next returns a typed slice of the dataset element type
		items, ok := batch.([]pair)
		require.True(t, ok, "want []pair, got %T", batch)
		assert.Len(t, items, 4)
		count++
	}
	assert.Equal(t, 2, count)

	_, err = dl.Next()
	assert.Error(t, err)

	// Reset rewinds for another full pass
	dl.Reset()
	assert.True(t, dl.HasNext())
}

func TestNewDataLoaderNil(t *testing.T) {
	_, err := dutil.NewDataLoader(nil, nil)
	assert.Error(t, err)
}
