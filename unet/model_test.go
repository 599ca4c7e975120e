package unet_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/bseg/metric"
	"github.com/sugarme/bseg/unet"
)

func TestContractingPathForwardAll(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	path := unet.NewContractingPath(vs.Root(), unet.ContractSchedule(3, 64, 4), 0)

	x := ts.MustRand([]int64{1, 3, 256, 256}, gotch.Float, gotch.CPU)
	bottleneck, skips := path.ForwardAll(x, false)

	if len(skips) != 4 {
		t.Fatalf("want 4 skip maps, got %v", len(skips))
	}

	bSize := bottleneck.MustSize()
	if !reflect.DeepEqual(bSize, []int64{1, 512, 12, 12}) {
		t.Errorf("bottleneck shape: want [1 512 12 12], got %v", bSize)
	}

	// reverse stage order: last (coarsest) stage first
	wantChans := []int64{512, 256, 128, 64}
	wantSizes := []int64{24, 57, 122, 252}
	for i, s := range skips {
		size := s.MustSize()
		if size[1] != wantChans[i] {
			t.Errorf("skip %v channels: want %v, got %v", i, wantChans[i], size[1])
		}
		if size[2] != wantSizes[i] || size[3] != wantSizes[i] {
			t.Errorf("skip %v spatial: want %v, got %vx%v", i, wantSizes[i], size[2], size[3])
		}
	}

	bottleneck.MustDrop()
	for _, s := range skips {
		s.MustDrop()
	}
	x.MustDrop()
}

func TestUNetForwardShape(t *testing.T) {
	cfg := unet.DefaultConfig(3, 1)
	vs := nn.NewVarStore(gotch.CPU)
	net := unet.NewUNet(vs.Root(), cfg)

	h, w := int64(256), int64(256)
	oh, ow, err := cfg.OutputSize(h, w)
	if err != nil {
		t.Fatal(err)
	}

	x := ts.MustRand([]int64{2, 3, h, w}, gotch.Float, gotch.CPU)
	logit := net.ForwardT(x, false)

	size := logit.MustSize()
	want := []int64{2, 1, oh, ow}
	if !reflect.DeepEqual(size, want) {
		t.Errorf("output shape: want %v, got %v", want, size)
	}

	logit.MustDrop()
	x.MustDrop()
}

func TestUNetForwardShapeCrop(t *testing.T) {
	// the paper's geometry: 572 in, 388 out
	cfg := unet.Config{InChannels: 1, Classes: 2, Width: 8, Align: unet.AlignCrop}
	vs := nn.NewVarStore(gotch.CPU)
	net := unet.NewUNet(vs.Root(), cfg)

	oh, ow, err := cfg.OutputSize(572, 572)
	if err != nil {
		t.Fatal(err)
	}
	if oh != 388 || ow != 388 {
		t.Fatalf("want 388x388, got %vx%v", oh, ow)
	}

	x := ts.MustRand([]int64{1, 1, 572, 572}, gotch.Float, gotch.CPU)
	logit := net.ForwardT(x, false)

	size := logit.MustSize()
	want := []int64{1, 2, 388, 388}
	if !reflect.DeepEqual(size, want) {
		t.Errorf("output shape: want %v, got %v", want, size)
	}

	logit.MustDrop()
	x.MustDrop()
}

// Two forward passes in inference mode over the same input must agree.
func TestUNetDeterminism(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	net := unet.NewUNet(vs.Root(), unet.Config{InChannels: 3, Classes: 1, Width: 16})

	x := ts.MustRand([]int64{1, 3, 256, 256}, gotch.Float, gotch.CPU)

	var logit1, logit2 *ts.Tensor
	ts.NoGrad(func() {
		logit1 = net.ForwardT(x, false)
		logit2 = net.ForwardT(x, false)
	})

	diff := logit1.MustSub(logit2, false).MustAbs(true).MustSum(gotch.Double, true)
	if v := diff.Float64Values()[0]; v != 0 {
		t.Errorf("forward passes differ by %v", v)
	}
	diff.MustDrop()

	logit1.MustDrop()
	logit2.MustDrop()
	x.MustDrop()
}

// Supplying fewer skip maps than expansive stages must fail at the
// pairing step.
func TestExpansivePathSkipMismatch(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	contract := unet.NewContractingPath(vs.Root().Sub("down"), unet.ContractSchedule(3, 16, 4), 0)
	expand := unet.NewExpansivePath(vs.Root().Sub("up"), unet.ExpandSchedule(16, 4), 1, 0, unet.AlignResize, false)

	x := ts.MustRand([]int64{1, 3, 256, 256}, gotch.Float, gotch.CPU)
	bottleneck, skips := contract.ForwardAll(x, false)

	defer func() {
		if r := recover(); r == nil {
			t.Error("want panic on skip count mismatch, got none")
		}
		bottleneck.MustDrop()
		for _, s := range skips {
			s.MustDrop()
		}
		x.MustDrop()
	}()

	expand.ForwardSkips(bottleneck, skips[:3], false)
}

// After one optimization step every trainable variable must carry a
// gradient, including through the identity attention gate and the skip
// alignment copies.
func TestUNetGradientFlow(t *testing.T) {
	cfg := unet.DefaultConfig(3, 1)
	vs := nn.NewVarStore(gotch.CPU)
	net := unet.NewUNet(vs.Root(), cfg)

	opt, err := nn.DefaultSGDConfig().Build(vs, 0.01)
	if err != nil {
		t.Fatal(err)
	}

	h := int64(160)
	oh, ow, err := cfg.OutputSize(h, h)
	if err != nil {
		t.Fatal(err)
	}

	x := ts.MustRand([]int64{1, 3, h, h}, gotch.Float, gotch.CPU)
	logit := net.ForwardT(x, true)
	pred := logit.MustTotype(gotch.Double, true)
	target := ts.MustRand([]int64{1, 1, oh, ow}, gotch.Double, gotch.CPU)

	loss := metric.BCEWithLogitsLoss(pred, target)
	opt.BackwardStep(loss)

	for name, v := range vs.Variables() {
		if strings.Contains(name, "running_") {
			// batch norm statistics carry no gradient
			continue
		}
		grad := v.MustGrad()
		sum := grad.MustAbs(false).MustSum(gotch.Double, true)
		if g := sum.Float64Values()[0]; g == 0 {
			t.Errorf("variable %v received no gradient", name)
		}
		sum.MustDrop()
		grad.MustDrop()
	}

	loss.MustDrop()
	pred.MustDrop()
	target.MustDrop()
	x.MustDrop()
}

// Two models built from the same config must have identical layer shapes,
// independent of their random initialization.
func TestUNetIdenticalArchitectures(t *testing.T) {
	cfg := unet.Config{InChannels: 3, Classes: 1, Width: 16}

	vs1 := nn.NewVarStore(gotch.CPU)
	vs2 := nn.NewVarStore(gotch.CPU)
	unet.NewUNet(vs1.Root(), cfg)
	unet.NewUNet(vs2.Root(), cfg)

	vars1 := vs1.Variables()
	vars2 := vs2.Variables()
	if len(vars1) != len(vars2) {
		t.Fatalf("variable counts differ: %v vs %v", len(vars1), len(vars2))
	}

	for name, v1 := range vars1 {
		v2, ok := vars2[name]
		if !ok {
			t.Errorf("variable %v missing from second model", name)
			continue
		}
		if !reflect.DeepEqual(v1.MustSize(), v2.MustSize()) {
			t.Errorf("variable %v shapes differ: %v vs %v", name, v1.MustSize(), v2.MustSize())
		}
	}
}
