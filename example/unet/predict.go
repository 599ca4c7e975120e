package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/bseg/train"
	"github.com/sugarme/bseg/unet"
)

// runPredict runs inference on a single image: sigmoid over raw scores,
// threshold at 0.5, save the binary mask and an overlay.
func runPredict() {
	if ImagePath == "" {
		log.Fatal("predict task requires -image")
	}
	if ModelPath == "" {
		log.Fatal("predict task requires -model")
	}

	vs := nn.NewVarStore(Device)
	net := unet.NewUNet(vs.Root(), modelConfig())
	train.LoadWeights(vs, ModelPath, ModelFrom)

	img, err := readImage(ImagePath)
	if err != nil {
		log.Fatal(err)
	}
	img = resizeSquare(img, ImageSize, false)

	imgTs := imageToTensor(img).MustDiv1(ts.FloatScalar(255.0), true).MustUnsqueeze(0, true)
	input := imgTs.MustTo(Device, true)

	var logit *ts.Tensor
	ts.NoGrad(func() {
		logit = net.ForwardT(input, false)
	})
	input.MustDrop()

	prob := logit.MustSigmoid(true).MustSqueeze1(0, true) // [classes H' W']
	maskImg := maskToImage(prob, 0.5)
	prob.MustDrop()

	if err := os.MkdirAll(OutDir, 0755); err != nil {
		log.Fatal(err)
	}
	base := strings.TrimSuffix(filepath.Base(ImagePath), filepath.Ext(ImagePath))

	maskPath := fmt.Sprintf("%v/%v-mask.png", OutDir, base)
	if err := savePNG(maskImg, maskPath); err != nil {
		log.Fatal(err)
	}

	// overlay on the (resized) input; the score map is smaller when convs
	// are unpadded, so scale the mask back up first
	overlay := resizeSquare(maskImg, ImageSize, true)
	overlayPath := fmt.Sprintf("%v/%v-overlay.png", OutDir, base)
	if err := overlayMask(img, overlay, overlayPath); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("saved %v and %v\n", maskPath, overlayPath)
}
