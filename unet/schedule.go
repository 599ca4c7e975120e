package unet

// StageConfig describes one resolution level of the network as a pair of
// channel counts. The network is built by iterating stage descriptors
// instead of hand-unrolled blocks so that variable-depth variants share
// the same code path.
type StageConfig struct {
	CIn  int64
	COut int64
}

// ContractSchedule returns the contracting stage descriptors for a network
// taking cIn input channels, starting at `width` feature channels and
// doubling at each of `depth` stages.
//
// E.g. cIn=3, width=64, depth=4: 3->64, 64->128, 128->256, 256->512.
func ContractSchedule(cIn, width int64, depth int) []StageConfig {
	stages := make([]StageConfig, depth)
	c, w := cIn, width
	for i := 0; i < depth; i++ {
		stages[i] = StageConfig{CIn: c, COut: w}
		c, w = w, w*2
	}

	return stages
}

// ExpandSchedule returns the expansive stage descriptors paired with the
// reversed skip list of a contracting path built from the same width and
// depth. CIn is the post-concatenation channel count (skip channels plus
// upsampled working channels), COut the double-conv output.
//
// E.g. width=64, depth=4: 1024->512, 512->256, 256->128, 128->64.
func ExpandSchedule(width int64, depth int) []StageConfig {
	stages := make([]StageConfig, depth)
	w := width
	for i := 1; i < depth; i++ {
		w *= 2
	}
	for i := 0; i < depth; i++ {
		stages[i] = StageConfig{CIn: w * 2, COut: w}
		w /= 2
	}

	return stages
}
