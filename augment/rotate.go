package augment

import (
	"image"
	"image/color"
	"math"
	"math/rand"

	"github.com/disintegration/imaging"
)

// Rotate rotates image and label by the same angle, drawn uniformly from
// [-maxDegrees, maxDegrees]. The image is rotated by imaging with a black
// fill; the label is resampled nearest-neighbor onto a canvas of the exact
// dimensions imaging produced, with IgnoreLabel filling the exposed border.
// Interpolating the label is not an option: blending class indices 0, 1 and
// 255 would produce values outside the label alphabet.
func Rotate(rng *rand.Rand, img *image.NRGBA, label *image.Gray, maxDegrees float64) (*image.NRGBA, *image.Gray) {
	angle := (rng.Float64()*2 - 1) * maxDegrees
	rotated := imaging.Rotate(img, angle, color.NRGBA{A: 255})
	if label != nil {
		label = rotateLabelNearest(label, angle, rotated.Rect.Dx(), rotated.Rect.Dy())
	}
	return rotated, label
}

// rotateLabelNearest rotates a label plane counter-clockwise by angle
// degrees onto a dstW×dstH canvas, picking the nearest source pixel for
// each destination pixel and filling out-of-range pixels with IgnoreLabel.
// The inverse mapping mirrors imaging's rotation (rotation about the pixel
// center of the plane), so the label stays aligned with the imaging-rotated
// image within sub-pixel rounding.
func rotateLabelNearest(src *image.Gray, angle float64, dstW, dstH int) *image.Gray {
	srcW, srcH := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, dstW, dstH))

	sin, cos := math.Sincos(angle * math.Pi / 180)
	srcXOff := float64(srcW)/2 - 0.5
	srcYOff := float64(srcH)/2 - 0.5
	dstXOff := float64(dstW)/2 - 0.5
	dstYOff := float64(dstH)/2 - 0.5

	for dy := range dstH {
		out := dst.Pix[dy*dst.Stride : dy*dst.Stride+dstW]
		for dx := range dstW {
			x := float64(dx) - dstXOff
			y := float64(dy) - dstYOff
			srcX := int(math.Floor(x*cos - y*sin + srcXOff + 0.5))
			srcY := int(math.Floor(x*sin + y*cos + srcYOff + 0.5))
			if srcX < 0 || srcX >= srcW || srcY < 0 || srcY >= srcH {
				out[dx] = IgnoreLabel
				continue
			}
			out[dx] = src.Pix[srcY*src.Stride+srcX]
		}
	}
	return dst
}
