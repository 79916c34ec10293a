package datasets

import (
	// Image decoders for whatever formats show up under image/. Labels are
	// always PNG, images are "whatever the annotators shot".
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// This package loads blur-segmentation samples from a dataset root laid out
// as two parallel folders:
//
//	root/image/  — photographs, any decodable format
//	root/gt/     — per-pixel annotations, PNG, stem-matched to the images
//
// and presents them to gomlx training loops. Decoding is lazy: datasets
// store file paths and open/decode/close each pair per fetch, so memory
// stays proportional to the in-flight batches, not the dataset.
//
// Data flows filesystem → BlurDataset.Fetch (decode + normalize) →
// augment.Chain (training splits only) → Batch (parallel per-sample
// tensors) → StackedDataset (pad-resize + stack) → the training loop.

// Sample is one decoded, possibly augmented example as a split yields it.
type Sample struct {
	// Image is channel-first, shaped [3, H, W], float32 in [0, 1].
	Image *tensors.Tensor
	// Label is shaped [H, W], int32, values in {0, 1} plus
	// augment.IgnoreLabel on rotation borders of augmented samples.
	Label *tensors.Tensor
	// Name is the source image filename.
	Name string
}

// Batch keeps samples as three parallel slices rather than one stacked
// tensor: raw images vary in size, so stacking is deferred until
// StackResized pads everything to the model input dimension.
type Batch struct {
	Images []*tensors.Tensor
	Labels []*tensors.Tensor
	Names  []string
}

// Len returns the number of samples in the batch.
func (b *Batch) Len() int { return len(b.Names) }
