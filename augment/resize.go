package augment

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// PadResize squares img by padding it to a centered zero canvas, resizes
// the square to dim×dim with bicubic filtering, and center-crops to dim
// exactly. Padding first preserves the aspect ratio; the final crop guards
// against off-by-one canvas sizes from the centering arithmetic.
func PadResize(img *image.NRGBA, dim int) *image.NRGBA {
	img = padSquare(img, color.NRGBA{A: 255})
	img = imaging.Resize(img, dim, dim, imaging.CatmullRom)
	return imaging.CropCenter(img, dim, dim)
}

// PadResizeLabel is PadResize for a label plane: same geometry, but
// nearest-neighbor resampling and a background-class (0) pad fill so no new
// label values are invented.
func PadResizeLabel(label *image.Gray, dim int) *image.Gray {
	padded := padSquare(label, color.Gray{})
	resized := imaging.Resize(padded, dim, dim, imaging.NearestNeighbor)
	return grayFrom(imaging.CropCenter(resized, dim, dim))
}

func padSquare(img image.Image, fill color.Color) *image.NRGBA {
	b := img.Bounds()
	side := max(b.Dx(), b.Dy())
	canvas := imaging.New(side, side, fill)
	return imaging.PasteCenter(canvas, img)
}
