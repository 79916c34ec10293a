package datasets

import (
	"image"
	"image/draw"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// decodeImage opens and decodes one photograph, undoing any EXIF
// orientation so pixel (0,0) is the visual top-left.
func decodeImage(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	orientation := readOrientation(f)
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return applyOrientation(imaging.Clone(img), orientation), nil
}

// readOrientation extracts the EXIF Orientation tag (1-8) and rewinds the
// reader for the actual decode. Files without EXIF data are simply upright.
func readOrientation(r io.ReadSeeker) int {
	defer func() { _, _ = r.Seek(0, io.SeekStart) }()
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// applyOrientation undoes an EXIF orientation value.
func applyOrientation(img *image.NRGBA, orientation int) *image.NRGBA {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

// decodeLabel opens an annotation image, flattens it to a single gray
// plane, and remaps the source foreground value 255 to class index 1. The
// annotations are black and white with no masked-out region, so after the
// remap the plane holds only class indices {0, 1}.
func decodeLabel(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	for i, v := range gray.Pix {
		if v == 255 {
			gray.Pix[i] = 1
		}
	}
	return gray, nil
}
