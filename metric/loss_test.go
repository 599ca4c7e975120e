package metric_test

import (
	"math"
	"testing"

	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/bseg/metric"
)

func TestDiceCoeff(t *testing.T) {
	pslice := []int64{1, 0, 0, 1, 0, 0, 1, 0, 0}
	tslice := []int64{1, 0, 0, 1, 1, 0, 1, 0, 0}

	pred := ts.MustOfSlice(pslice).MustView([]int64{1, 3, 3}, true)
	target := ts.MustOfSlice(tslice).MustView([]int64{1, 3, 3}, true)

	// overlap = 3, |p| = 3, |t| = 4: 2*3/(3+4) = 0.8571
	dice := metric.DiceCoeff(pred, target)
	if math.Abs(dice-6.0/7.0) > 1e-6 {
		t.Errorf("dice: want %0.4f, got %0.4f", 6.0/7.0, dice)
	}

	pred.MustDrop()
	target.MustDrop()
}

func TestIoU(t *testing.T) {
	pslice := []int64{1, 0, 0, 1, 0, 0, 1, 0, 0}
	tslice := []int64{1, 0, 0, 1, 1, 0, 1, 0, 0}

	pred := ts.MustOfSlice(pslice).MustView([]int64{1, 3, 3}, true)
	target := ts.MustOfSlice(tslice).MustView([]int64{1, 3, 3}, true)

	// overlap = 3, union = 4: 0.7500
	iou := metric.IoU(pred, target)
	if math.Abs(iou-0.75) > 1e-6 {
		t.Errorf("IoU: want 0.7500, got %0.4f", iou)
	}

	pred.MustDrop()
	target.MustDrop()
}

func TestJaccardIndex(t *testing.T) {
	pslice := []int64{1, 0, 0, 1, 0, 0, 1, 0, 0}
	tslice := []int64{1, 0, 0, 1, 1, 0, 1, 0, 0}

	pred := ts.MustOfSlice(pslice).MustView([]int64{1, 3, 3}, true)
	target := ts.MustOfSlice(tslice).MustView([]int64{1, 3, 3}, true)

	// class 0: 5/6; class 1: 3/4; mean = 0.7917
	iou := metric.JaccardIndex(pred, target, 2)
	want := (5.0/6.0 + 3.0/4.0) / 2
	if math.Abs(iou-want) > 1e-6 {
		t.Errorf("Jaccard: want %0.4f, got %0.4f", want, iou)
	}

	pred.MustDrop()
	target.MustDrop()
}

func TestDiceCoeffBatch(t *testing.T) {
	pslice := []float64{1, 0, 0, 1, 1, 0, 0, 0}
	tslice := []float64{1, 0, 0, 1, 1, 0, 1, 0}

	pred := ts.MustOfSlice(pslice).MustView([]int64{2, 1, 2, 2}, true)
	target := ts.MustOfSlice(tslice).MustView([]int64{2, 1, 2, 2}, true)

	// batch 0: perfect overlap (1.0); batch 1: 2*1/(1+2) = 0.6667
	dice := metric.DiceCoeffBatch(pred, target)
	want := (1.0 + 2.0/3.0) / 2
	if math.Abs(dice-want) > 1e-6 {
		t.Errorf("batch dice: want %0.4f, got %0.4f", want, dice)
	}

	pred.MustDrop()
	target.MustDrop()
}

func TestBCEWithLogitsLoss(t *testing.T) {
	// perfect confident predictions give a near-zero loss
	logit := ts.MustOfSlice([]float64{10, -10, 10, -10}).MustView([]int64{1, 2, 2}, true)
	target := ts.MustOfSlice([]float64{1, 0, 1, 0}).MustView([]int64{1, 2, 2}, true)

	loss := metric.BCEWithLogitsLoss(logit, target)
	if v := loss.Float64Values()[0]; v > 1e-3 {
		t.Errorf("loss on perfect prediction: want ~0, got %v", v)
	}

	loss.MustDrop()
	logit.MustDrop()
	target.MustDrop()
}

func TestSoftDiceLoss(t *testing.T) {
	// identical probability and mask give a near-zero loss
	prob := ts.MustOfSlice([]float64{1, 0, 1, 0}).MustView([]int64{1, 2, 2}, true)
	mask := ts.MustOfSlice([]float64{1, 0, 1, 0}).MustView([]int64{1, 2, 2}, true)

	loss := metric.SoftDiceLoss(prob, mask)
	if v := loss.Float64Values()[0]; v > 0.2 {
		t.Errorf("soft dice on perfect prediction: want small, got %v", v)
	}

	loss.MustDrop()
	prob.MustDrop()
	mask.MustDrop()
}

func TestAccuracy(t *testing.T) {
	pred := ts.MustOfSlice([]float64{0.9, 0.1, 0.8, 0.2})
	target := ts.MustOfSlice([]float64{1, 0, 0, 0})

	tp, tn := metric.Accuracy(pred, target)
	if math.Abs(tp-1.0) > 1e-6 {
		t.Errorf("tp: want 1.0, got %v", tp)
	}
	if math.Abs(tn-2.0/3.0) > 1e-6 {
		t.Errorf("tn: want %0.4f, got %v", 2.0/3.0, tn)
	}

	pred.MustDrop()
	target.MustDrop()
}
