package unet

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// Config holds the architecture parameters of a UNet model.
type Config struct {
	InChannels int64
	Classes    int64
	Width      int64 // first-stage feature channels. Default: 64
	Depth      int   // number of downsampling stages. Default: 4
	Padding    int64 // conv padding. 0 (default) = unpadded as in the paper
	Align      AlignMode
	Attention  bool // SCSE gate on expansive stages
}

// DefaultConfig returns the classic configuration for the given input
// channel and output class counts: width 64, depth 4, unpadded convs,
// resize alignment.
func DefaultConfig(inChannels, classes int64) Config {
	return Config{InChannels: inChannels, Classes: classes}
}

func (c Config) withDefaults() Config {
	if c.Width == 0 {
		c.Width = 64
	}
	if c.Depth == 0 {
		c.Depth = 4
	}
	return c
}

// OutputSize computes the spatial geometry of the score map for an input
// of h x w, stage by stage. It returns an error when the input is too
// small to survive the unpadded convolutions and poolings.
func (c Config) OutputSize(h, w int64) (int64, int64, error) {
	oh, err := c.outputDim(h)
	if err != nil {
		return 0, 0, fmt.Errorf("height %v: %v", h, err)
	}
	ow, err := c.outputDim(w)
	if err != nil {
		return 0, 0, fmt.Errorf("width %v: %v", w, err)
	}

	return oh, ow, nil
}

func (c Config) outputDim(d int64) (int64, error) {
	c = c.withDefaults()
	// each double conv applies two 3x3 convs: d -> d + 2*(2*padding - 2)
	delta := 2 * (2*c.Padding - 2)

	skips := make([]int64, c.Depth)
	for i := 0; i < c.Depth; i++ {
		d += delta
		if d <= 0 {
			return 0, fmt.Errorf("stage %v feature size %v", i, d)
		}
		skips[i] = d
		d /= 2
	}
	if d <= 0 {
		return 0, fmt.Errorf("bottleneck size %v", d)
	}

	d += delta // center double conv
	if d <= 0 {
		return 0, fmt.Errorf("center size %v", d)
	}
	d *= 2 // center transposed conv

	for i := 0; i < c.Depth; i++ {
		if c.Align == AlignResize {
			// working tensor snaps to the paired skip geometry
			d = skips[c.Depth-1-i]
		} else if d > skips[c.Depth-1-i] {
			return 0, fmt.Errorf("stage %v working size %v exceeds skip size %v", i, d, skips[c.Depth-1-i])
		}
		d += delta
		if d <= 0 {
			return 0, fmt.Errorf("up stage %v size %v", i, d)
		}
		if i < c.Depth-1 {
			d *= 2
		}
	}

	return d, nil
}

// UNet composes a contracting and an expansive path.
// Ref: https://arxiv.org/abs/1505.04597
type UNet struct {
	contract *ContractingPath
	expand   *ExpansivePath
}

// NewUNet creates a fully initialized UNet from cfg.
func NewUNet(p *nn.Path, cfg Config) *UNet {
	cfg = cfg.withDefaults()

	contract := NewContractingPath(p, ContractSchedule(cfg.InChannels, cfg.Width, cfg.Depth), cfg.Padding)
	expand := NewExpansivePath(p, ExpandSchedule(cfg.Width, cfg.Depth), cfg.Classes, cfg.Padding, cfg.Align, cfg.Attention)

	return &UNet{
		contract: contract,
		expand:   expand,
	}
}

// ForwardT implements ts.ModuleT for UNet: run the contracting path, then
// feed both of its outputs into the expansive path.
func (n *UNet) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	bottleneck, skips := n.contract.ForwardAll(x, train)
	logit := n.expand.ForwardSkips(bottleneck, skips, train)

	bottleneck.MustDrop()
	for _, s := range skips {
		s.MustDrop()
	}

	return logit
}

func stageName(prefix string, i int) string {
	return fmt.Sprintf("%v%v", prefix, i+1)
}
