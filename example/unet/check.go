package main

import (
	"fmt"
	"log"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/bseg/unet"
)

// runCheckModel repeatedly forwards a random batch to verify output
// geometry and watch for tensor leaks.
func runCheckModel() {
	vs := nn.NewVarStore(Device)
	cfg := modelConfig()
	net := unet.NewUNet(vs.Root(), cfg)

	batchSize := int64(BatchSize)
	imageSize := int64(ImageSize)

	oh, ow, err := cfg.OutputSize(imageSize, imageSize)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("input %vx%v -> score map %vx%v (align: %v)\n", imageSize, imageSize, oh, ow, cfg.Align)

	image := ts.MustRand([]int64{batchSize, 3, imageSize, imageSize}, gotch.Float, gotch.CPU)
	si := CPUInfo()
	for i := 0; i < 100; i++ {
		ts.NoGrad(func() {
			si = CPUInfo()
			ram0 := si.TotalRam - si.FreeRam
			logit := net.ForwardT(image, false)
			size := logit.MustSize()
			logit.MustDrop()
			si = CPUInfo()
			ram1 := si.TotalRam - si.FreeRam
			fmt.Printf("%02d- out shape: %v\t Leak: %8.2fMB\n", i, size, float64(ram1-ram0)/1024)
		})
	}
	image.MustDrop()
}
