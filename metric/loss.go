package metric

import (
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
)

// BCEWithLogitsLoss computes binary cross entropy on raw scores.
// NOTE: reduction: none = 0; mean = 1; sum = 2. Default=mean
// ref. https://pytorch.org/docs/master/nn.functional.html#torch.nn.functional.binary_cross_entropy_with_logits
func BCEWithLogitsLoss(logit, mask *ts.Tensor) *ts.Tensor {
	logitR := logit.MustReshape([]int64{-1}, false)
	maskR := mask.MustReshape([]int64{-1}, false)

	retVal := logitR.MustBinaryCrossEntropyWithLogits(maskR, ts.NewTensor(), ts.NewTensor(), 1, true).MustView([]int64{-1}, true)
	maskR.MustDrop()

	return retVal
}

// BCELoss computes binary cross entropy on probabilities.
func BCELoss(probability, mask *ts.Tensor) *ts.Tensor {
	p := probability.MustView([]int64{-1}, false)
	t := mask.MustView([]int64{-1}, false)

	// 1-p
	p1 := p.MustMul1(ts.FloatScalar(-1), false).MustAdd1(ts.FloatScalar(1), true)
	// 1-t
	t1 := t.MustMul1(ts.FloatScalar(-1), false).MustAdd1(ts.FloatScalar(1), true)

	pclip := p.MustClip(ts.FloatScalar(1e-6), ts.FloatScalar(1), false)
	logp := pclip.MustLog(true)
	p1clip := p1.MustClip(ts.FloatScalar(1e-6), ts.FloatScalar(1), true)
	logn := p1clip.MustLog(true)

	// t * logp
	tlogp := t.MustMul(logp, true)
	// (1-t)*logn
	t1logn := t1.MustMul(logn, true)

	loss := tlogp.MustAdd(t1logn, true)
	t1logn.MustDrop()
	p.MustDrop()
	logp.MustDrop()
	logn.MustDrop()

	lossMean := loss.MustMean(gotch.Double, true)

	return lossMean.MustMul1(ts.FloatScalar(-1), true)
}

// SoftDiceLoss is a differentiable dice loss on probabilities.
// Ref. https://www.jeremyjordan.me/semantic-segmentation/
func SoftDiceLoss(x, y *ts.Tensor) *ts.Tensor {
	dims := []int64{-2, -1}
	smooth := 1.0

	xyMul := x.MustMul(y, false)
	tp := xyMul.MustSum1(dims, false, gotch.Double, true)

	y1 := y.MustAdd1(ts.FloatScalar(-1), false)
	xy1Mul := y1.MustMul(x, true)
	fp := xy1Mul.MustSum1(dims, false, gotch.Double, true)

	x1 := x.MustAdd1(ts.FloatScalar(-1), false)
	x1yMul := x1.MustMul(y, true)
	fn := x1yMul.MustSum1(dims, false, gotch.Double, true)

	numerator := tp.MustMul1(ts.FloatScalar(2.0), false).MustAdd1(ts.FloatScalar(smooth), true)
	denominator := numerator.MustAdd(fp, false).MustAdd(fn, false)

	dc := numerator.MustDiv(denominator, true)

	tp.MustDrop()
	fp.MustDrop()
	fn.MustDrop()
	denominator.MustDrop()

	mean := dc.MustMean(gotch.Double, true)

	retVal := mean.MustMul1(ts.FloatScalar(-1), true).MustAdd1(ts.FloatScalar(1), true)

	return retVal
}

// DiceBCELoss is a weighted sum of BCE with logits (0.8) and soft dice
// loss (0.2).
func DiceBCELoss(logit, mask *ts.Tensor) *ts.Tensor {
	bce := BCEWithLogitsLoss(logit, mask).MustMul1(ts.FloatScalar(0.8), true)
	prob := logit.MustSigmoid(false)
	dice := SoftDiceLoss(prob, mask).MustMul1(ts.FloatScalar(0.2), true)
	prob.MustDrop()

	retVal := bce.MustAdd(dice, true)
	dice.MustDrop()

	return retVal
}

// DiceCoeff measures overlap between prediction and target:
// 2*|X n Y| / (|X| + |Y|), thresholding both at 0.5.
// Ref. http://campar.in.tum.de/pub/milletari2016Vnet/milletari2016Vnet.pdf
func DiceCoeff(pred, target *ts.Tensor) float64 {
	iflat := pred.MustView([]int64{-1}, false)
	tflat := target.MustView([]int64{-1}, false)
	p := iflat.MustGt(ts.FloatScalar(0.5), true)
	t := tflat.MustGt(ts.FloatScalar(0.5), true)
	ptMul := p.MustMul(t, false)
	overlap := ptMul.MustSum(gotch.Double, true).Float64Values()[0]
	union := p.MustSum(gotch.Double, true).Float64Values()[0] + t.MustSum(gotch.Double, true).Float64Values()[0]

	return (2 * overlap) / (union + 1e-8)
}

// DiceCoeffBatch averages DiceCoeff over the leading batch dimension.
func DiceCoeffBatch(pred, target *ts.Tensor) float64 {
	n := pred.MustSize()[0]
	var sum float64
	for i := int64(0); i < n; i++ {
		p := pred.MustNarrow(0, i, 1, false)
		t := target.MustNarrow(0, i, 1, false)
		sum += DiceCoeff(p, t)
		p.MustDrop()
		t.MustDrop()
	}

	return sum / float64(n)
}

// IoU is intersection over union of prediction and target thresholded at
// 0.5.
func IoU(pred, target *ts.Tensor) float64 {
	iflat := pred.MustView([]int64{-1}, false)
	tflat := target.MustView([]int64{-1}, false)
	p := iflat.MustGt(ts.FloatScalar(0.5), true)
	t := tflat.MustGt(ts.FloatScalar(0.5), true)
	ptMul := p.MustMul(t, false)
	overlap := ptMul.MustSum(gotch.Double, true).Float64Values()[0]
	union := p.MustSum(gotch.Double, true).Float64Values()[0] + t.MustSum(gotch.Double, true).Float64Values()[0] - overlap

	return overlap / (union + 1e-8)
}

// JaccardIndex is the macro-averaged per-class IoU over nClasses label
// values. Class membership is counted on the host; per-class confusion
// counting is simpler there than as tensor ops.
func JaccardIndex(pred, target *ts.Tensor, nClasses int64) float64 {
	pvals := pred.MustView([]int64{-1}, false)
	tvals := target.MustView([]int64{-1}, false)
	ps := pvals.Float64Values()
	tss := tvals.Float64Values()
	pvals.MustDrop()
	tvals.MustDrop()

	var sum float64
	for c := int64(0); c < nClasses; c++ {
		var inter, union float64
		for i := range ps {
			pc := int64(ps[i]) == c
			tc := int64(tss[i]) == c
			if pc && tc {
				inter++
			}
			if pc || tc {
				union++
			}
		}
		if union > 0 {
			sum += inter / union
		} else {
			sum += 1
		}
	}

	return sum / float64(nClasses)
}

// Accuracy calculates true positive and true negative rates at a 0.5
// threshold.
func Accuracy(input, target *ts.Tensor) (tp, tn float64) {
	iflat := input.MustView([]int64{-1}, false)
	tflat := target.MustView([]int64{-1}, false)
	p := iflat.MustGt(ts.FloatScalar(0.5), true)
	t := tflat.MustGt(ts.FloatScalar(0.5), true)

	pv := p.Float64Values()
	tv := t.Float64Values()
	p.MustDrop()
	t.MustDrop()

	var tpc, tnc, pos, neg float64
	for i := range pv {
		if tv[i] > 0 {
			pos++
			if pv[i] > 0 {
				tpc++
			}
		} else {
			neg++
			if pv[i] == 0 {
				tnc++
			}
		}
	}

	return tpc / (pos + 1e-8), tnc / (neg + 1e-8)
}
