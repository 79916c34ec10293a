// Command blurstats inspects a blur-segmentation dataset root and
// optionally pre-generates augmented training batches.
//
// Stats mode (default) reports split sizes under the configured ratio/seed
// and the per-sample blur coverage (fraction of pixels labeled blur),
// rendering a coverage histogram to a PNG:
//
//	blurstats -root /data/blur -hist coverage.png
//
// Pre-generation mode writes a number of epochs of stacked, augmented
// training batches to a binary file, so training runs can stream batches
// without paying the decode/augment cost:
//
//	blurstats -root /data/blur -pregen batches.bin -epochs 4
//
// The pre-generated file starts with three little-endian int32s (batch
// size, input dim, batch count) followed by, per batch, the int32 label
// tensor and the float32 image tensor in flat C order.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/blurlab/blurdata/datasets"
)

var (
	flagRoot      = flag.String("root", "", "dataset root with image/ and gt/ subfolders (required)")
	flagRatio     = flag.Float64("ratio", 0.8, "fraction of samples assigned to the training split")
	flagSeed      = flag.Int64("seed", 0, "shuffle seed shared by both splits")
	flagBatchSize = flag.Int("batch_size", 4, "samples per batch")
	flagWorkers   = flag.Int("workers", 0, "parallel decode workers (0 = NumCPU)")
	flagCropSize  = flag.Int("crop", 0, "training crop size (0 = default)")
	flagInputDim  = flag.Int("input_dim", 224, "model input dimension for stacked batches")
	flagHist      = flag.String("hist", "", "write a blur-coverage histogram PNG to this path")
	flagPregen    = flag.String("pregen", "", "write pre-generated training batches to this file")
	flagEpochs    = flag.Int("epochs", 1, "epochs of training batches to pre-generate")
)

func main() {
	flag.Parse()
	if *flagRoot == "" {
		flag.Usage()
		log.Fatal("-root is required")
	}

	ds, err := datasets.NewBlurDataset(*flagRoot)
	if err != nil {
		log.Fatalf("failed to open dataset: %v", err)
	}

	cfg := datasets.SplitConfig{
		Ratio:    *flagRatio,
		Seed:     *flagSeed,
		CropSize: *flagCropSize,
	}
	training := ds.TrainingSplit(cfg)
	validation := ds.ValidationSplit(cfg)
	fmt.Printf("dataset: %d pairs, %d training / %d validation (ratio %.2f, seed %d)\n",
		ds.Len(), training.Len(), validation.Len(), *flagRatio, *flagSeed)

	if *flagPregen != "" {
		if err := pregenerate(training); err != nil {
			log.Fatalf("pre-generation failed: %v", err)
		}
		return
	}

	if err := stats(ds); err != nil {
		log.Fatalf("stats failed: %v", err)
	}
}

// stats fetches every pair and reports blur coverage across the dataset.
func stats(ds *datasets.BlurDataset) error {
	coverage := make(plotter.Values, 0, ds.Len())
	var total, blurred float64
	for i := range ds.Len() {
		_, label, err := ds.Fetch(i)
		if err != nil {
			return err
		}
		var ones, size float64
		if err := tensors.ConstFlatData(label, func(flat []uint8) {
			size = float64(len(flat))
			for _, v := range flat {
				if v == 1 {
					ones++
				}
			}
		}); err != nil {
			return err
		}
		coverage = append(coverage, ones/size)
		total += size
		blurred += ones
	}
	fmt.Printf("blur coverage: %.2f%% of %0.f pixels across %d samples\n",
		100*blurred/total, total, ds.Len())

	if *flagHist == "" {
		return nil
	}
	p := plot.New()
	p.Title.Text = "Per-sample blur coverage"
	p.X.Label.Text = "fraction of pixels labeled blur"
	p.Y.Label.Text = "samples"
	h, err := plotter.NewHist(coverage, 20)
	if err != nil {
		return err
	}
	p.Add(h)
	if err := p.Save(8*vg.Inch, 6*vg.Inch, *flagHist); err != nil {
		return err
	}
	fmt.Printf("wrote histogram to %s\n", *flagHist)
	return nil
}

// pregenerate streams epochs of stacked training batches to the output
// file. Incomplete trailing batches are written too; readers get the batch
// count from the header.
func pregenerate(training *datasets.Split) error {
	loader := datasets.NewLoader(training, datasets.LoaderConfig{
		BatchSize: *flagBatchSize,
		Workers:   *flagWorkers,
		Shuffle:   true,
		Seed:      *flagSeed,
	})
	stacked := datasets.NewStackedDataset("pregen", loader, *flagInputDim)
	defer stacked.Close()

	f, err := os.Create(*flagPregen)
	if err != nil {
		return err
	}
	defer f.Close()

	numBatches := *flagEpochs * ((training.Len() + *flagBatchSize - 1) / *flagBatchSize)
	pBar := progressbar.NewOptions(numBatches,
		progressbar.OptionSetDescription("Pre-generating"),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("batches"),
		progressbar.OptionSetTheme(progressbar.ThemeUnicode),
	)
	if err := datasets.WriteBatches(f, stacked, *flagEpochs, func() { _ = pBar.Add(1) }); err != nil {
		return err
	}
	_ = pBar.Close()
	fmt.Printf("\nwrote %s\n", *flagPregen)
	return nil
}
