package datasets

import (
	"sort"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/blurlab/blurdata/augment"
)

func TestSplitScenario(t *testing.T) {
	// 10 pairs, ratio 0.8, seed 0 → 8 training and 2 validation samples,
	// stable across repeated constructions.
	ds, err := NewBlurDataset(writeDataset(t, 10))
	if err != nil {
		t.Fatal(err)
	}
	cfg := SplitConfig{Ratio: 0.8, Seed: 0}
	training := ds.TrainingSplit(cfg)
	validation := ds.ValidationSplit(cfg)

	if training.Len() != 8 || validation.Len() != 2 {
		t.Fatalf("expected 8/2 split, got %d/%d", training.Len(), validation.Len())
	}
	if !training.Augmented() || validation.Augmented() {
		t.Fatal("training split must augment, validation must not")
	}

	// Disjoint, and together they cover the whole dataset.
	seen := make(map[string]int)
	for _, name := range append(training.Names(), validation.Names()...) {
		seen[name]++
	}
	if len(seen) != 10 {
		t.Fatalf("splits should cover all 10 samples, got %d distinct", len(seen))
	}
	for name, count := range seen {
		if count != 1 {
			t.Fatalf("sample %s appears %d times across splits", name, count)
		}
	}

	// Determinism: re-running split construction yields identical splits.
	training2 := ds.TrainingSplit(cfg)
	validation2 := ds.ValidationSplit(cfg)
	if !equalStrings(training.Names(), training2.Names()) {
		t.Fatal("training split order not reproducible")
	}
	if !equalStrings(validation.Names(), validation2.Names()) {
		t.Fatal("validation split order not reproducible")
	}
}

func TestSplitRatioRounding(t *testing.T) {
	ds, err := NewBlurDataset(writeDataset(t, 7))
	if err != nil {
		t.Fatal(err)
	}
	// round(7 * 0.8) = 6.
	cfg := SplitConfig{Ratio: 0.8, Seed: 3}
	if got := ds.TrainingSplit(cfg).Len(); got != 6 {
		t.Fatalf("expected 6 training samples, got %d", got)
	}
	if got := ds.ValidationSplit(cfg).Len(); got != 1 {
		t.Fatalf("expected 1 validation sample, got %d", got)
	}
}

func TestValidationAt(t *testing.T) {
	ds, err := NewBlurDataset(writeDataset(t, 10))
	if err != nil {
		t.Fatal(err)
	}
	validation := ds.ValidationSplit(SplitConfig{Ratio: 0.8, Seed: 0})
	names := validation.Names()

	for i := range validation.Len() {
		sample, err := validation.At(i, 0)
		if err != nil {
			t.Fatalf("At(%d) failed: %v", i, err)
		}
		if sample.Name != names[i] {
			t.Fatalf("sample %d name %q, want %q", i, sample.Name, names[i])
		}
		imgDims := sample.Image.Shape().Dimensions
		labelDims := sample.Label.Shape().Dimensions
		if len(imgDims) != 3 || imgDims[0] != 3 {
			t.Fatalf("sample image shape should be [3,H,W], got %v", imgDims)
		}
		if len(labelDims) != 2 || labelDims[0] != imgDims[1] || labelDims[1] != imgDims[2] {
			t.Fatalf("sample label shape %v does not match image %v", labelDims, imgDims)
		}
		// No augmentation: class indices only.
		if err := tensors.ConstFlatData(sample.Label, func(flat []int32) {
			for _, v := range flat {
				if v != 0 && v != 1 {
					t.Errorf("validation label value %d outside {0,1}", v)
					return
				}
			}
		}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestTrainingAtReproducible(t *testing.T) {
	ds, err := NewBlurDataset(writeDataset(t, 10))
	if err != nil {
		t.Fatal(err)
	}
	training := ds.TrainingSplit(SplitConfig{Ratio: 0.8, Seed: 0, CropSize: 24})

	first, err := training.At(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	second, err := training.At(2, 1)
	if err != nil {
		t.Fatal(err)
	}

	// Same (seed, epoch, index) → identical augmentation, regardless of
	// which call (or worker) performs it.
	if !first.Image.Shape().Equal(second.Image.Shape()) {
		t.Fatalf("augmented shapes differ: %v vs %v",
			first.Image.Shape(), second.Image.Shape())
	}
	if !equalFloat32(flatFloat32(t, first.Image), flatFloat32(t, second.Image)) {
		t.Fatal("augmented image data not reproducible")
	}

	// Augmentation may introduce the ignore value, but nothing else.
	if err := tensors.ConstFlatData(first.Label, func(flat []int32) {
		for _, v := range flat {
			if v != 0 && v != 1 && v != augment.IgnoreLabel {
				t.Errorf("training label value %d outside {0,1,%d}", v, augment.IgnoreLabel)
				return
			}
		}
	}); err != nil {
		t.Fatal(err)
	}
}

func flatFloat32(t *testing.T, tensor *tensors.Tensor) []float32 {
	t.Helper()
	var out []float32
	if err := tensors.ConstFlatData(tensor, func(flat []float32) {
		out = append(out, flat...)
	}); err != nil {
		t.Fatal(err)
	}
	return out
}

func equalFloat32(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}
