// Package dutil provides dataset sampling and batching plumbing for the
// training loop.
package dutil

import "reflect"

// Dataset is a map-style dataset of indexed items.
type Dataset interface {
	// Item returns the dataset element at idx.
	Item(idx int) (interface{}, error)
	// Len returns the number of elements.
	Len() int
	// DType returns the reflect type of one element. DataLoader uses it
	// to build typed batch slices.
	DType() reflect.Type
}
