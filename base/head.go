package base

import "github.com/sugarme/gotch/nn"

// NewSegmentationHead creates new SegmentationHead (nn.SequentialT).
// A 1x1 kernel maps cIn channels to cOut class scores with no spatial change.
func NewSegmentationHead(p *nn.Path, cIn, cOut, ksize int64) *nn.SequentialT {
	padding := (ksize - 1) / 2
	seq := nn.SeqT()
	seq.Add(Conv2d(p, cIn, cOut, ksize, padding, 1))

	return seq
}
