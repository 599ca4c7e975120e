package unet

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/bseg/base"
)

// ContractingPath is the downsampling half of the network. Each stage is a
// double conv followed by a 2x2 stride-2 max pool.
type ContractingPath struct {
	blocks []*nn.SequentialT
}

// NewContractingPath creates a ContractingPath from stage descriptors.
func NewContractingPath(p *nn.Path, stages []StageConfig, padding int64) *ContractingPath {
	blocks := make([]*nn.SequentialT, len(stages))
	for i, s := range stages {
		blocks[i] = base.DoubleConv(p.Sub(stageName("down", i)), s.CIn, s.COut, padding)
	}

	return &ContractingPath{blocks: blocks}
}

// Depth returns the number of downsampling stages.
func (c *ContractingPath) Depth() int {
	return len(c.blocks)
}

// ForwardAll forwards x through all stages and returns the bottleneck
// tensor plus the pre-pool feature maps in reverse stage order (last stage
// first), ready for consumption by the expansive path.
//
// The caller owns the returned tensors and must drop them.
func (c *ContractingPath) ForwardAll(x *ts.Tensor, train bool) (*ts.Tensor, []*ts.Tensor) {
	skips := make([]*ts.Tensor, len(c.blocks))
	cur := x
	for i, block := range c.blocks {
		feat := block.ForwardT(cur, train)
		if cur != x {
			cur.MustDrop()
		}
		// Down sample to half size: [B C H W] => [B C H/2 W/2]
		// ksize=2; stride=2; padding=0; dilation=1; ceil=false
		cur = feat.MustMaxPool2d([]int64{2, 2}, []int64{2, 2}, []int64{0, 0}, []int64{1, 1}, false, false)

		// reverse order: skips[0] pairs with the first expansive stage
		skips[len(c.blocks)-1-i] = feat
	}

	return cur, skips
}
