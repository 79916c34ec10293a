package main

// Example command that loads a blur-segmentation dataset root, builds the
// training and validation splits, and walks a couple of batches both as
// variable-size collated batches and as stacked model-input tensors.
//
// Usage:
//
//	go run ./example -root /data/blur
import (
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/blurlab/blurdata/datasets"
)

func main() {
	root := flag.String("root", "", "dataset root with image/ and gt/ subfolders")
	flag.Parse()
	if *root == "" {
		log.Fatal("-root is required")
	}

	ds, err := datasets.NewBlurDataset(*root)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	fmt.Printf("found %d image/label pairs\n", ds.Len())

	cfg := datasets.SplitConfig{Ratio: 0.8, Seed: 0}
	training := ds.TrainingSplit(cfg)
	validation := ds.ValidationSplit(cfg)
	fmt.Printf("training: %d samples, validation: %d samples\n", training.Len(), validation.Len())

	// Collated batches: three parallel slices, samples keep their own sizes.
	loader := datasets.NewLoader(validation, datasets.LoaderConfig{BatchSize: 2})
	defer loader.Close()
	for i := 0; i < 2; i++ {
		batch, err := loader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("failed to load batch: %v", err)
		}
		for j := range batch.Len() {
			fmt.Printf("batch %d sample %q: image %v, label %v\n",
				i, batch.Names[j], batch.Images[j].Shape(), batch.Labels[j].Shape())
		}
	}

	// Stacked batches: uniform tensors for a gomlx training loop.
	trainLoader := datasets.NewLoader(training, datasets.LoaderConfig{
		BatchSize: 2,
		Shuffle:   true,
	})
	stacked := datasets.NewStackedDataset("example", trainLoader, 224)
	defer stacked.Close()
	spec, inputs, labels, err := stacked.Yield()
	if err != nil {
		log.Fatalf("failed to yield stacked batch: %v", err)
	}
	fmt.Printf("stacked batch %v: inputs %v, labels %v\n", spec, inputs[0].Shape(), labels[0].Shape())
}
