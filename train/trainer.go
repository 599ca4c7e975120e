// Package train runs supervised training of a segmentation model. All
// training state (device, optimizer, schedule) is passed explicitly via
// Config; there are no package-level defaults.
package train

import (
	"fmt"
	"log"
	"path/filepath"
	"reflect"
	"time"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/bseg/dutil"
	"github.com/sugarme/bseg/metric"
)

// Sample is one (image, mask) training example. Image is [C H W] scaled
// to [0,1]; Mask is [1 H W] with values in {0,1}.
type Sample struct {
	Image ts.Tensor
	Mask  ts.Tensor
}

// SampleType is the element type datasets must report from DType to be
// consumed by Trainer.
var SampleType = reflect.TypeOf(Sample{})

// Config carries all training state explicitly.
type Config struct {
	Device        gotch.Device
	Optimizer     string // "SGD" or "Adam"
	LR            float64
	Epochs        int
	BatchSize     int
	CheckpointDir string // empty disables checkpointing
}

// EpochStats summarizes one epoch.
type EpochStats struct {
	Epoch     int
	TrainLoss float64
	ValidLoss float64
	Dice      float64
	Seconds   float64
}

// Trainer drives forward/backward/step cycles of a model over a dataset.
type Trainer struct {
	vs  *nn.VarStore
	net ts.ModuleT
	opt *nn.Optimizer
	cfg Config
}

// NewTrainer builds the optimizer from cfg and returns a Trainer.
func NewTrainer(vs *nn.VarStore, net ts.ModuleT, cfg Config) (*Trainer, error) {
	var (
		opt *nn.Optimizer
		err error
	)
	switch cfg.Optimizer {
	case "SGD":
		opt, err = nn.DefaultSGDConfig().Build(vs, cfg.LR)
	case "Adam":
		opt, err = nn.DefaultAdamConfig().Build(vs, cfg.LR)
	default:
		return nil, fmt.Errorf("invalid optimizer option. Expected 'SGD' or 'Adam'. Got: %v", cfg.Optimizer)
	}
	if err != nil {
		return nil, err
	}

	return &Trainer{
		vs:  vs,
		net: net,
		opt: opt,
		cfg: cfg,
	}, nil
}

// Run trains for cfg.Epochs epochs, validating after each, and returns
// per-epoch stats. A forward/backward/step on one batch is an atomic unit;
// tensor-layer failures abort the run.
func (t *Trainer) Run(trainDS, validDS dutil.Dataset) ([]EpochStats, error) {
	s, err := dutil.NewBatchSampler(trainDS.Len(), t.cfg.BatchSize, true, true)
	if err != nil {
		return nil, err
	}
	trainDL, err := dutil.NewDataLoader(trainDS, s)
	if err != nil {
		return nil, err
	}

	var history []EpochStats
	for e := 0; e < t.cfg.Epochs; e++ {
		start := time.Now()
		trainDL.Reset()

		var losses []float64
		for trainDL.HasNext() {
			batch, err := trainDL.Next()
			if err != nil {
				return nil, err
			}

			imgTs, maskTs := stackSamples(batch.([]Sample))

			input := imgTs.MustTo(t.cfg.Device, true)
			logit := t.net.ForwardT(input, true)
			input.MustDrop()
			pred := logit.MustTotype(gotch.Double, true)
			target := resizeMask(maskTs, pred).MustTo(t.cfg.Device, true)
			maskTs.MustDrop()

			loss := metric.BCEWithLogitsLoss(pred, target)
			pred.MustDrop()
			target.MustDrop()

			t.opt.BackwardStep(loss)
			losses = append(losses, loss.Float64Values()[0])
			loss.MustDrop()
		}

		vloss, dice, err := t.Validate(validDS)
		if err != nil {
			return nil, err
		}

		stats := EpochStats{
			Epoch:     e,
			TrainLoss: avg(losses),
			ValidLoss: vloss,
			Dice:      dice,
			Seconds:   time.Since(start).Seconds(),
		}
		history = append(history, stats)
		fmt.Printf("Epoch %02d\t train loss: %6.4f\t valid loss: %6.4f\t dice: %6.4f\t Taken time: %0.2fMin\n",
			e, stats.TrainLoss, stats.ValidLoss, stats.Dice, stats.Seconds/60)

		if t.cfg.CheckpointDir != "" {
			file := filepath.Join(t.cfg.CheckpointDir, fmt.Sprintf("unet-epoch%02d.gt", e))
			if err := t.vs.Save(file); err != nil {
				return nil, err
			}
		}
	}

	return history, nil
}

// Validate computes loss and dice score over validDS without gradients.
func (t *Trainer) Validate(validDS dutil.Dataset) (loss, dice float64, err error) {
	bs := t.cfg.BatchSize
	if bs > validDS.Len() {
		bs = validDS.Len()
	}
	s, err := dutil.NewBatchSampler(validDS.Len(), bs, true, false) // no shuffle
	if err != nil {
		return 0, 0, err
	}
	validDL, err := dutil.NewDataLoader(validDS, s)
	if err != nil {
		return 0, 0, err
	}

	var (
		losses []float64
		dices  []float64
	)
	for validDL.HasNext() {
		batch, err := validDL.Next()
		if err != nil {
			return 0, 0, err
		}

		imgTs, maskTs := stackSamples(batch.([]Sample))
		input := imgTs.MustTo(t.cfg.Device, true)

		var logit *ts.Tensor
		ts.NoGrad(func() {
			logit = t.net.ForwardT(input, false).MustTotype(gotch.Double, true)
		})
		input.MustDrop()

		target := resizeMask(maskTs, logit).MustTo(t.cfg.Device, true)
		maskTs.MustDrop()

		l := metric.BCEWithLogitsLoss(logit, target)
		losses = append(losses, l.Float64Values()[0])
		l.MustDrop()

		prob := logit.MustSigmoid(false)
		dices = append(dices, metric.DiceCoeffBatch(prob, target))
		prob.MustDrop()

		logit.MustDrop()
		target.MustDrop()
	}

	return avg(losses), avg(dices), nil
}

// stackSamples stacks a batch of samples into [B C H W] image and mask
// tensors, dropping the per-sample tensors.
func stackSamples(samples []Sample) (img, mask *ts.Tensor) {
	var imgs, masks []ts.Tensor
	for _, s := range samples {
		imgs = append(imgs, s.Image)
		masks = append(masks, s.Mask)
	}
	imgTs := ts.MustStack(imgs, 0)
	for _, x := range imgs {
		x.MustDrop()
	}
	maskTs := ts.MustStack(masks, 0)
	for _, x := range masks {
		x.MustDrop()
	}

	return imgTs, maskTs
}

// resizeMask resizes target masks to the logit geometry. With unpadded
// convolutions the score map is smaller than the input.
func resizeMask(mask, logit *ts.Tensor) *ts.Tensor {
	mSize := mask.MustSize()
	lSize := logit.MustSize()
	if mSize[2] == lSize[2] && mSize[3] == lSize[3] {
		return mask.MustShallowClone()
	}

	return mask.MustUpsampleNearest2d(lSize[2:], nil, nil, false)
}

func avg(input []float64) float64 {
	if len(input) == 0 {
		return 0
	}
	var sum float64
	for _, v := range input {
		sum += v
	}

	return sum / float64(len(input))
}

// LoadWeights loads model weights into vs from an '.ot'/'.gt' file.
// from is "checkpoint" for a full load or "scratch" for a partial load of
// whatever variables match.
func LoadWeights(vs *nn.VarStore, fpath, from string) {
	modelPath, err := filepath.Abs(fpath)
	if err != nil {
		log.Fatal(err)
	}

	switch from {
	case "checkpoint":
		err = vs.Load(modelPath)
		if err != nil {
			log.Fatal(err)
		}
	case "scratch":
		_, err = vs.LoadPartial(modelPath)
		if err != nil {
			log.Fatal(err)
		}
	default:
		err := fmt.Errorf("Invalid load option. Expected 'checkpoint' or 'scratch'. Got: %v\n", from)
		panic(err)
	}
}
