package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sugarme/gotch/nn"

	"github.com/sugarme/bseg/train"
	"github.com/sugarme/bseg/unet"
)

func runTrain() {
	vs := nn.NewVarStore(Device)
	net := unet.NewUNet(vs.Root(), modelConfig())
	if ModelPath != "" {
		train.LoadWeights(vs, ModelPath, ModelFrom)
	}

	fnames, err := listImages(DataPath)
	if err != nil {
		log.Fatal(err)
	}
	validFiles, trainFiles := splitFiles(fnames, ValidCount)
	if len(trainFiles) == 0 || len(validFiles) == 0 {
		log.Fatalf("Not enough data: %v train / %v valid files\n", len(trainFiles), len(validFiles))
	}

	trainDS := NewSegDataset(DataPath, trainFiles, ImageSize, true)
	validDS := NewSegDataset(DataPath, validFiles, ImageSize, false)

	if err := os.MkdirAll(OutDir, 0755); err != nil {
		log.Fatal(err)
	}

	trainer, err := train.NewTrainer(vs, net, train.Config{
		Device:        Device,
		Optimizer:     OptStr,
		LR:            LR,
		Epochs:        Epochs,
		BatchSize:     BatchSize,
		CheckpointDir: OutDir,
	})
	if err != nil {
		log.Fatal(err)
	}

	history, err := trainer.Run(trainDS, validDS)
	if err != nil {
		log.Fatal(err)
	}

	if err := plotLossCurve(history, fmt.Sprintf("%v/loss.png", OutDir)); err != nil {
		log.Fatal(err)
	}
}

func runValidate() {
	vs := nn.NewVarStore(Device)
	net := unet.NewUNet(vs.Root(), modelConfig())
	if ModelPath == "" {
		log.Fatal("validate task requires -model")
	}
	train.LoadWeights(vs, ModelPath, ModelFrom)

	fnames, err := listImages(DataPath)
	if err != nil {
		log.Fatal(err)
	}
	validFiles, _ := splitFiles(fnames, ValidCount)
	validDS := NewSegDataset(DataPath, validFiles, ImageSize, false)

	trainer, err := train.NewTrainer(vs, net, train.Config{
		Device:    Device,
		Optimizer: OptStr,
		LR:        LR,
		BatchSize: BatchSize,
	})
	if err != nil {
		log.Fatal(err)
	}

	loss, dice, err := trainer.Validate(validDS)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("valid loss: %6.4f\t dice: %6.4f\n", loss, dice)
}
