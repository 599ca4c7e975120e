package unet

import (
	"log"
	"reflect"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/bseg/base"
)

// AlignMode selects the feature-map alignment strategy used before
// concatenating a skip map with the upsampled working tensor. With unpadded
// convolutions the two differ in spatial size.
type AlignMode int

const (
	// AlignResize bilinear-resizes the working tensor up to the skip map
	// geometry. Smooth but shifts pixel alignment near object boundaries.
	AlignResize AlignMode = iota
	// AlignCrop center-crops the skip map down to the working tensor
	// geometry, as in the original paper.
	AlignCrop
)

func (m AlignMode) String() string {
	switch m {
	case AlignCrop:
		return "crop"
	default:
		return "resize"
	}
}

type expandStage struct {
	attn  *base.Attention
	block *nn.SequentialT
	up    *nn.ConvTranspose2D // nil on the last stage; the head follows instead
}

// ExpansivePath is the upsampling half of the network. It consumes the
// bottleneck tensor and the reversed skip list produced by a
// ContractingPath of matching depth.
type ExpansivePath struct {
	center   *nn.SequentialT
	centerUp *nn.ConvTranspose2D
	stages   []expandStage
	head     *nn.SequentialT
	align    AlignMode
}

// NewExpansivePath creates an ExpansivePath from stage descriptors. The
// descriptors give post-concatenation input channels and double-conv output
// channels per stage (see ExpandSchedule). classes is the channel count of
// the final 1x1 score conv. attention enables an SCSE gate on each
// concatenated tensor.
func NewExpansivePath(p *nn.Path, stages []StageConfig, classes, padding int64, align AlignMode, attention bool) *ExpansivePath {
	bottom := stages[0].CIn // post-concat channels of the first stage, e.g. 1024

	// bottleneck double conv doubles channels, the transposed conv halves
	// them back so that concat with the first skip map yields `bottom`
	center := base.DoubleConv(p.Sub("center"), bottom/2, bottom, padding)
	centerUp := base.ConvTranspose2d(p.Sub("centerup"), bottom, bottom/2, 2, 2)

	es := make([]expandStage, len(stages))
	for i, s := range stages {
		sub := p.Sub(stageName("up", i))
		attn := base.NewAttention()
		if attention {
			attn = base.NewAttention(base.NewSCSE(sub.Sub("attn"), s.CIn))
		}
		st := expandStage{
			attn:  attn,
			block: base.DoubleConv(sub, s.CIn, s.COut, padding),
		}
		if i < len(stages)-1 {
			st.up = base.ConvTranspose2d(sub.Sub("upconv"), s.COut, s.COut/2, 2, 2)
		}
		es[i] = st
	}

	head := base.NewSegmentationHead(p.Sub("head"), stages[len(stages)-1].COut, classes, 1)

	return &ExpansivePath{
		center:   center,
		centerUp: centerUp,
		stages:   es,
		head:     head,
		align:    align,
	}
}

// ForwardSkips forwards the bottleneck tensor through the center block and
// the skip-consuming stages, returning the per-pixel class-score map (raw
// scores, no activation).
//
// The skip list length must equal the stage count. A mismatch is a caller
// bug and panics at the pairing step.
func (e *ExpansivePath) ForwardSkips(bottleneck *ts.Tensor, skips []*ts.Tensor, train bool) *ts.Tensor {
	if len(skips) != len(e.stages) {
		log.Panicf("expansive path: got %v skip maps, want %v", len(skips), len(e.stages))
	}

	c := e.center.ForwardT(bottleneck, train)
	x := e.centerUp.Forward(c)
	c.MustDrop()

	for i, st := range e.stages {
		var work, skip *ts.Tensor
		switch e.align {
		case AlignCrop:
			work = x.MustShallowClone()
			skip = centerCrop(skips[i], x.MustSize()[2:])
		default:
			work = resizeTo(x, skips[i].MustSize()[2:])
			skip = skips[i].MustShallowClone()
		}
		x.MustDrop()

		// skip map channels first
		cat := ts.MustCat([]ts.Tensor{*skip, *work}, 1)
		skip.MustDrop()
		work.MustDrop()

		gated := st.attn.ForwardT(cat, train)
		cat.MustDrop()
		out := st.block.ForwardT(gated, train)
		gated.MustDrop()

		if st.up != nil {
			x = st.up.Forward(out)
			out.MustDrop()
		} else {
			x = out
		}
	}

	logit := e.head.ForwardT(x, train)
	x.MustDrop()

	return logit
}

// interpolation using `bilinear` algorithm.
// x should be in shape [B C H W]; outSize is the target [H W].
func resizeTo(x *ts.Tensor, outSize []int64) *ts.Tensor {
	xSize := x.MustSize()
	if reflect.DeepEqual(xSize[2:], outSize) {
		return x.MustShallowClone()
	}

	return x.MustUpsampleBilinear2d(outSize, false, nil, nil, false)
}

// centerCrop narrows x spatially to outSize [H W], keeping the center.
func centerCrop(x *ts.Tensor, outSize []int64) *ts.Tensor {
	xSize := x.MustSize()
	dh := xSize[2] - outSize[0]
	dw := xSize[3] - outSize[1]
	h := x.MustNarrow(2, dh/2, outSize[0], false)

	return h.MustNarrow(3, dw/2, outSize[1], true)
}
