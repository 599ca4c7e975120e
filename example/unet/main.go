package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/sugarme/gotch"

	"github.com/sugarme/bseg/unet"
)

// flag variables
var (
	DataPath  string
	ModelPath string
	ModelFrom string
	ImagePath string
	CSVPath   string
	OutDir    string
	Cuda      bool
	task      string
	Device    gotch.Device
)

// hyperparameters
var (
	LR         float64 // learning rate
	BatchSize  int     // batch size
	Epochs     int     // number of training epochs
	Classes    int     // number of output classes
	ImageSize  int     // square size images are resized to on load
	ValidCount int     // number of files held out for validation
	OptStr     string  // optimizer type
	AlignStr   string  // feature-map alignment strategy
	PaddedConv bool    // use padded convolutions (keeps spatial size)
	Attention  bool    // SCSE gate on expansive stages
)

func init() {
	flag.StringVar(&DataPath, "input", "./input", "specify input data directory with image/ and mask/ subdirs")
	flag.StringVar(&ModelPath, "model", "", "specify full path to model weight file")
	flag.StringVar(&ModelFrom, "from", "checkpoint", "specify weight load mode: 'checkpoint' or 'scratch'")
	flag.StringVar(&ImagePath, "image", "", "specify image file for the 'predict' task")
	flag.StringVar(&CSVPath, "csv", "", "specify dataset information CSV for the 'eda' task")
	flag.StringVar(&OutDir, "out", "./output", "specify output directory")
	flag.BoolVar(&Cuda, "cuda", false, "specify whether using CUDA or not.")
	flag.StringVar(&task, "task", "train", "specify task to run")
	flag.Float64Var(&LR, "lr", 0.001, "specify learning rate")
	flag.IntVar(&BatchSize, "batch", 8, "specify batch size")
	flag.IntVar(&Epochs, "epochs", 10, "specify number of epochs")
	flag.IntVar(&Classes, "classes", 1, "specify number of output classes")
	flag.IntVar(&ImageSize, "size", 256, "specify square image size (0 keeps original)")
	flag.IntVar(&ValidCount, "validate", 25, "specify number of files held out for validation")
	flag.StringVar(&OptStr, "opt", "SGD", "specify optimizer type")
	flag.StringVar(&AlignStr, "align", "resize", "specify skip alignment strategy: 'resize' or 'crop'")
	flag.BoolVar(&PaddedConv, "padded", false, "specify whether convolutions pad to keep spatial size")
	flag.BoolVar(&Attention, "attention", false, "specify whether to gate decoder stages with SCSE attention")
}

func main() {
	flag.Parse()

	DataPath = absPath(DataPath)
	OutDir = absPath(OutDir)

	Device = gotch.CPU
	if Cuda {
		Device = gotch.NewCuda().CudaIfAvailable()
	}

	switch task {
	case "model":
		runCheckModel()
	case "train":
		runTrain()
	case "validate":
		runValidate()
	case "predict":
		runPredict()
	case "eda":
		runEDA()
	default:
		err := fmt.Errorf("Unknown 'task' name. Please specify valid 'task' flag to run.\n")
		panic(err)
	}
}

func modelConfig() unet.Config {
	cfg := unet.DefaultConfig(3, int64(Classes))
	cfg.Attention = Attention
	if PaddedConv {
		cfg.Padding = 1
	}
	switch AlignStr {
	case "resize":
		cfg.Align = unet.AlignResize
	case "crop":
		cfg.Align = unet.AlignCrop
	default:
		log.Fatalf("Invalid 'align' option. Expected 'resize' or 'crop'. Got: %v\n", AlignStr)
	}

	return cfg
}

// helper to get absolute file path
func absPath(p string) string {
	fullpath, err := filepath.Abs(p)
	if err != nil {
		log.Fatal(err)
	}
	return fullpath
}
