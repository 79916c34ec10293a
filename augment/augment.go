// Package augment implements the per-sample transforms used to augment
// blur-segmentation training data: random crop, scale, horizontal flip,
// brightness/contrast jitter, rotation, and the aspect-ratio-preserving
// pad-and-resize applied just before batches are stacked.
//
// Every primitive takes an explicit *rand.Rand, so callers control the
// randomness stream: the dataset loader derives one per (seed, epoch, index)
// and tests inject fixed seeds. Image and label always go through the same
// geometric transform, with the label resampled nearest-neighbor so class
// indices survive intact. The label argument may be nil for unlabeled data
// (e.g. the exposure/noise classification pipelines), in which case only the
// image is transformed.
package augment

import (
	"image"
	"image/color"
	"math"
	"math/rand"

	"github.com/disintegration/imaging"
)

// IgnoreLabel marks label pixels that carry no class information, such as
// the border pixels exposed by rotation. It is outside the {0, 1} class
// alphabet; loss functions should mask it out.
const IgnoreLabel = 255

// Defaults for the training chain parameters.
const (
	DefaultCropSize   = 384
	DefaultMaxDegrees = 20.0
)

// DefaultScales is the discrete set of ratios Scale draws from.
var DefaultScales = []float64{0.75, 1.0, 1.25, 1.5}

// Crop slices a random size×size window out of image and label, using the
// same top-left offset for both. When the image is already smaller than
// size along an axis, the offset degenerates to 0 and the window keeps the
// original extent, so the output is min(size, dim) along each axis; padding
// back up to a uniform size is PadResize's job at batch time.
func Crop(rng *rand.Rand, img *image.NRGBA, label *image.Gray, size int) (*image.NRGBA, *image.Gray) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	var x0, y0 int
	if w > size {
		x0 = rng.Intn(w - size + 1)
	}
	if h > size {
		y0 = rng.Intn(h - size + 1)
	}
	window := image.Rect(x0, y0, min(x0+size, w), min(y0+size, h))
	img = imaging.Crop(img, window)
	if label != nil {
		label = grayFrom(imaging.Crop(label, window))
	}
	return img, label
}

// Scale resizes image and label by a ratio drawn uniformly from scales
// (DefaultScales when empty): bilinear for the image, nearest for the label,
// so the two pixel grids stay aligned.
func Scale(rng *rand.Rand, img *image.NRGBA, label *image.Gray, scales []float64) (*image.NRGBA, *image.Gray) {
	if len(scales) == 0 {
		scales = DefaultScales
	}
	ratio := scales[rng.Intn(len(scales))]
	w := max(1, int(math.Round(float64(img.Rect.Dx())*ratio)))
	h := max(1, int(math.Round(float64(img.Rect.Dy())*ratio)))
	img = imaging.Resize(img, w, h, imaging.Linear)
	if label != nil {
		label = grayFrom(imaging.Resize(label, w, h, imaging.NearestNeighbor))
	}
	return img, label
}

// FlipH mirrors image and label along the horizontal axis with probability
// 0.5, and is a no-op otherwise.
func FlipH(rng *rand.Rand, img *image.NRGBA, label *image.Gray) (*image.NRGBA, *image.Gray) {
	if rng.Intn(2) == 0 {
		return img, label
	}
	return mirror(img, label)
}

func mirror(img *image.NRGBA, label *image.Gray) (*image.NRGBA, *image.Gray) {
	img = imaging.FlipH(img)
	if label != nil {
		label = grayFrom(imaging.FlipH(label))
	}
	return img, label
}

// ColorJitter multiplies brightness by a factor drawn uniformly from
// [0.7, 1.2] and adjusts contrast by a factor drawn uniformly from
// [0.8, 1.2]. The label passes through unchanged.
func ColorJitter(rng *rand.Rand, img *image.NRGBA, label *image.Gray) (*image.NRGBA, *image.Gray) {
	brightness := 0.7 + rng.Float64()*0.5
	contrast := 0.8 + rng.Float64()*0.4
	img = imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.R = mulClamp(c.R, brightness)
		c.G = mulClamp(c.G, brightness)
		c.B = mulClamp(c.B, brightness)
		return c
	})
	img = imaging.AdjustContrast(img, (contrast-1)*100)
	return img, label
}

func mulClamp(v uint8, factor float64) uint8 {
	x := float64(v)*factor + 0.5
	if x >= 255 {
		return 255
	}
	return uint8(x)
}

// Step is one (image, label) transform in a Chain.
type Step func(rng *rand.Rand, img *image.NRGBA, label *image.Gray) (*image.NRGBA, *image.Gray)

// Chain applies a fixed sequence of augmentation steps. Steps are pure, so
// a Chain is safe for concurrent use as long as each call gets its own rng.
type Chain struct {
	steps []Step
}

// NewChain builds a Chain from the given steps, applied in order.
func NewChain(steps ...Step) *Chain {
	return &Chain{steps: steps}
}

// Training returns the standard training chain:
// crop → scale → flip → color jitter → rotate.
// Zero or nil arguments select the package defaults.
func Training(cropSize int, scales []float64, maxDegrees float64) *Chain {
	if cropSize <= 0 {
		cropSize = DefaultCropSize
	}
	if len(scales) == 0 {
		scales = DefaultScales
	}
	if maxDegrees <= 0 {
		maxDegrees = DefaultMaxDegrees
	}
	return NewChain(
		func(rng *rand.Rand, img *image.NRGBA, label *image.Gray) (*image.NRGBA, *image.Gray) {
			return Crop(rng, img, label, cropSize)
		},
		func(rng *rand.Rand, img *image.NRGBA, label *image.Gray) (*image.NRGBA, *image.Gray) {
			return Scale(rng, img, label, scales)
		},
		FlipH,
		ColorJitter,
		func(rng *rand.Rand, img *image.NRGBA, label *image.Gray) (*image.NRGBA, *image.Gray) {
			return Rotate(rng, img, label, maxDegrees)
		},
	)
}

// Apply runs every step of the chain on the pair.
func (c *Chain) Apply(rng *rand.Rand, img *image.NRGBA, label *image.Gray) (*image.NRGBA, *image.Gray) {
	for _, step := range c.steps {
		img, label = step(rng, img, label)
	}
	return img, label
}

// grayFrom extracts the red channel of an imaging result back into a Gray
// plane. Label planes travel through imaging as equal-channel images, so
// taking a single channel is exact.
func grayFrom(m *image.NRGBA) *image.Gray {
	w, h := m.Rect.Dx(), m.Rect.Dy()
	gray := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		row := m.Pix[y*m.Stride : y*m.Stride+w*4]
		out := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for x := range w {
			out[x] = row[x*4]
		}
	}
	return gray
}
