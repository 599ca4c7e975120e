package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sugarme/bseg/train"
)

// runEDA summarizes the dataset information CSV and plots a histogram of
// mask coverage. Expected columns: image_file, width_pixels,
// height_pixels, mask_coverage.
func runEDA() {
	fname := CSVPath
	if fname == "" {
		fname = fmt.Sprintf("%v/dataset_information.csv", DataPath)
	}
	f, err := os.Open(fname)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f, dataframe.HasHeader(true))
	fmt.Printf("%v\n", df.Describe())

	coverage := df.Col("mask_coverage").Float()

	p, err := plot.New()
	if err != nil {
		log.Fatal(err)
	}

	v := make(plotter.Values, len(coverage))
	for i := 0; i < len(coverage); i++ {
		v[i] = coverage[i]
	}

	h, err := plotter.NewHist(v, 10)
	if err != nil {
		log.Fatal(err)
	}
	p.Title.Text = "Mask Coverage Histogram"
	p.X.Label.Text = "coverage"
	p.Add(h)

	if err := os.MkdirAll(OutDir, 0755); err != nil {
		log.Fatal(err)
	}
	if err := p.Save(4*vg.Inch, 4*vg.Inch, fmt.Sprintf("%v/coverage-histo.png", OutDir)); err != nil {
		log.Fatal(err)
	}
}

// plotLossCurve plots train and validation loss per epoch.
func plotLossCurve(history []train.EpochStats, outPath string) error {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = "Training Loss"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "loss"

	trainPts := make(plotter.XYs, len(history))
	validPts := make(plotter.XYs, len(history))
	for i, s := range history {
		trainPts[i].X = float64(s.Epoch)
		trainPts[i].Y = s.TrainLoss
		validPts[i].X = float64(s.Epoch)
		validPts[i].Y = s.ValidLoss
	}

	trainLine, err := plotter.NewLine(trainPts)
	if err != nil {
		return err
	}
	validLine, err := plotter.NewLine(validPts)
	if err != nil {
		return err
	}
	p.Add(trainLine, validLine)
	p.Legend.Add("train", trainLine)
	p.Legend.Add("valid", validLine)

	return p.Save(6*vg.Inch, 4*vg.Inch, outPath)
}
