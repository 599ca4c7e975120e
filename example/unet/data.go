package main

import (
	"fmt"
	"io/ioutil"
	"math/rand"
	"reflect"
	"sort"

	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/bseg/train"
)

// SegDataset implements dutil.Dataset over an image/mask folder pair.
// Items are train.Sample values.
type SegDataset struct {
	root    string
	fnames  []string
	size    int  // square resize on load; 0 keeps original
	augment bool // random flips, train split only
}

func NewSegDataset(root string, fnames []string, size int, augment bool) *SegDataset {
	return &SegDataset{
		root:    root,
		fnames:  fnames,
		size:    size,
		augment: augment,
	}
}

func (ds *SegDataset) Len() int {
	return len(ds.fnames)
}

func (ds *SegDataset) DType() reflect.Type {
	return train.SampleType
}

// Item implements dutil.Dataset interface.
func (ds *SegDataset) Item(idx int) (interface{}, error) {
	fname := ds.fnames[idx]
	img, err := readImage(fmt.Sprintf("%v/image/%v", ds.root, fname))
	if err != nil {
		return nil, err
	}
	mask, err := readImage(fmt.Sprintf("%v/mask/%v", ds.root, fname))
	if err != nil {
		return nil, err
	}

	img = resizeSquare(img, ds.size, false)
	mask = resizeSquare(mask, ds.size, true)

	if ds.augment {
		img, mask = flipPair(img, mask, rand.Intn(3))
	}

	imgTs := imageToTensor(img).MustDiv1(ts.FloatScalar(255.0), true)

	maskRGB := imageToTensor(mask)
	maskGray, err := rgb2GrayScale(maskRGB)
	if err != nil {
		return nil, err
	}
	maskRGB.MustDrop()
	maskTs := maskGray.MustDiv1(ts.FloatScalar(255.0), true).MustUnsqueeze(0, true)

	return train.Sample{
		Image: *imgTs,
		Mask:  *maskTs,
	}, nil
}

// listImages returns the sorted file names under <root>/image.
func listImages(root string) ([]string, error) {
	files, err := ioutil.ReadDir(fmt.Sprintf("%v/image", root))
	if err != nil {
		return nil, err
	}

	var fnames []string
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		fnames = append(fnames, f.Name())
	}
	sort.Strings(fnames)

	return fnames, nil
}

// splitFiles holds out the first n files for validation, per the fixed
// lexicographic order from listImages.
func splitFiles(fnames []string, n int) (valid, training []string) {
	if n > len(fnames) {
		n = len(fnames)
	}

	return fnames[:n], fnames[n:]
}
