package datasets

import (
	"io"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/blurlab/blurdata/augment"
)

func TestStackedYieldShapes(t *testing.T) {
	ds, err := NewBlurDataset(writeDataset(t, 13))
	if err != nil {
		t.Fatal(err)
	}
	training := ds.TrainingSplit(SplitConfig{Ratio: 0.8, Seed: 0, CropSize: 16})
	loader := NewLoader(training, LoaderConfig{BatchSize: 2})
	stacked := NewStackedDataset("train", loader, 32)
	defer stacked.Close()

	if stacked.Name() != "train" {
		t.Fatalf("unexpected dataset name %q", stacked.Name())
	}
	spec, inputs, labels, err := stacked.Yield()
	if err != nil {
		t.Fatalf("Yield failed: %v", err)
	}
	names, ok := spec.([]string)
	if !ok || len(names) != 2 {
		t.Fatalf("spec should carry the 2 batch names, got %#v", spec)
	}
	if len(inputs) != 1 || len(labels) != 1 {
		t.Fatalf("expected one input and one label tensor, got %d/%d", len(inputs), len(labels))
	}

	imgDims := inputs[0].Shape().Dimensions
	if len(imgDims) != 4 || imgDims[0] != 2 || imgDims[1] != 3 || imgDims[2] != 32 || imgDims[3] != 32 {
		t.Fatalf("input shape should be [2,3,32,32], got %v", imgDims)
	}
	labDims := labels[0].Shape().Dimensions
	if len(labDims) != 3 || labDims[0] != 2 || labDims[1] != 32 || labDims[2] != 32 {
		t.Fatalf("label shape should be [2,32,32], got %v", labDims)
	}

	if err := tensors.ConstFlatData(inputs[0], func(flat []float32) {
		for _, v := range flat {
			if v < 0 || v > 1 {
				t.Errorf("input value %f outside [0,1]", v)
				return
			}
		}
	}); err != nil {
		t.Fatal(err)
	}
	if err := tensors.ConstFlatData(labels[0], func(flat []int32) {
		for _, v := range flat {
			if v != 0 && v != 1 && v != augment.IgnoreLabel {
				t.Errorf("label value %d outside {0,1,%d}", v, augment.IgnoreLabel)
				return
			}
		}
	}); err != nil {
		t.Fatal(err)
	}
}

func TestStackedEpochReset(t *testing.T) {
	ds, err := NewBlurDataset(writeDataset(t, 10))
	if err != nil {
		t.Fatal(err)
	}
	validation := ds.ValidationSplit(SplitConfig{Ratio: 0.8, Seed: 0})
	loader := NewLoader(validation, LoaderConfig{BatchSize: 4})
	stacked := NewStackedDataset("validation", loader, 32)
	defer stacked.Close()

	// 2 validation samples, batch size 4 → one short batch per epoch.
	_, inputs, _, err := stacked.Yield()
	if err != nil {
		t.Fatalf("Yield failed: %v", err)
	}
	if got := inputs[0].Shape().Dimensions[0]; got != 2 {
		t.Fatalf("short batch should hold 2 samples, got %d", got)
	}
	if _, _, _, err := stacked.Yield(); err != io.EOF {
		t.Fatalf("expected io.EOF at end of epoch, got %v", err)
	}

	stacked.Reset()
	if _, _, _, err := stacked.Yield(); err != nil {
		t.Fatalf("Yield after Reset failed: %v", err)
	}
}
