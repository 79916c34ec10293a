package datasets

import (
	"image"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"

	"github.com/blurlab/blurdata/augment"
)

// Tensor layout converters. gomlx's tensors/images helpers only produce
// channels-last layouts, while the segmentation model here consumes
// channels-first, so the pixel loops live here. All image data is 8-bit at
// the source, which makes the float32 round-trip in tensorToImage exact.

// fillCHW lays img out channel-first into data, which must hold 3*h*w
// float32 values.
func fillCHW(data []float32, img *image.NRGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	plane := h * w
	for y := range h {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := range w {
			pos := y*w + x
			data[pos] = float32(row[x*4]) / 255
			data[plane+pos] = float32(row[x*4+1]) / 255
			data[2*plane+pos] = float32(row[x*4+2]) / 255
		}
	}
}

// imageTensor converts a decoded image to a squeezed [3, H, W] float32
// tensor with values in [0, 1].
func imageTensor(img *image.NRGBA) *tensors.Tensor {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	t := tensors.FromShape(shapes.Make(dtypes.Float32, 3, h, w))
	t.MustMutableFlatData(func(flat any) {
		fillCHW(flat.([]float32), img)
	})
	return t
}

// imageTensorBatched is imageTensor with a leading singleton batch axis:
// [1, 3, H, W].
func imageTensorBatched(img *image.NRGBA) *tensors.Tensor {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	t := tensors.FromShape(shapes.Make(dtypes.Float32, 1, 3, h, w))
	t.MustMutableFlatData(func(flat any) {
		fillCHW(flat.([]float32), img)
	})
	return t
}

// labelTensorBatched converts a label plane to [1, 1, H, W] uint8.
func labelTensorBatched(label *image.Gray) *tensors.Tensor {
	w, h := label.Rect.Dx(), label.Rect.Dy()
	t := tensors.FromShape(shapes.Make(dtypes.Uint8, 1, 1, h, w))
	t.MustMutableFlatData(func(flat any) {
		data := flat.([]uint8)
		for y := range h {
			copy(data[y*w:(y+1)*w], label.Pix[y*label.Stride:y*label.Stride+w])
		}
	})
	return t
}

// labelTensorWide converts a label plane to a squeezed [H, W] tensor,
// promoted to int32 for loss-function compatibility.
func labelTensorWide(label *image.Gray) *tensors.Tensor {
	w, h := label.Rect.Dx(), label.Rect.Dy()
	t := tensors.FromShape(shapes.Make(dtypes.Int32, h, w))
	t.MustMutableFlatData(func(flat any) {
		data := flat.([]int32)
		for y := range h {
			row := label.Pix[y*label.Stride : y*label.Stride+w]
			out := data[y*w : (y+1)*w]
			for x := range w {
				out[x] = int32(row[x])
			}
		}
	})
	return t
}

// tensorToImage converts a squeezed [3, H, W] float32 tensor back to an
// image for the pad-and-resize step.
func tensorToImage(t *tensors.Tensor) (*image.NRGBA, error) {
	dims := t.Shape().Dimensions
	if len(dims) != 3 || dims[0] != 3 {
		return nil, errors.Errorf("image tensor must be shaped [3, H, W], got %v", dims)
	}
	h, w := dims[1], dims[2]
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	err := tensors.ConstFlatData(t, func(flat []float32) {
		plane := h * w
		for y := range h {
			row := img.Pix[y*img.Stride : y*img.Stride+w*4]
			for x := range w {
				pos := y*w + x
				row[x*4] = quantize(flat[pos])
				row[x*4+1] = quantize(flat[plane+pos])
				row[x*4+2] = quantize(flat[2*plane+pos])
				row[x*4+3] = 255
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// tensorToLabel converts a squeezed [H, W] int32 label tensor back to a
// gray plane for the pad-and-resize step.
func tensorToLabel(t *tensors.Tensor) (*image.Gray, error) {
	dims := t.Shape().Dimensions
	if len(dims) != 2 {
		return nil, errors.Errorf("label tensor must be shaped [H, W], got %v", dims)
	}
	h, w := dims[0], dims[1]
	label := image.NewGray(image.Rect(0, 0, w, h))
	err := tensors.ConstFlatData(t, func(flat []int32) {
		for y := range h {
			out := label.Pix[y*label.Stride : y*label.Stride+w]
			for x := range w {
				out[x] = uint8(flat[y*w+x])
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return label, nil
}

func quantize(v float32) uint8 {
	x := v*255 + 0.5
	if x >= 255 {
		return 255
	}
	if x <= 0 {
		return 0
	}
	return uint8(x)
}

// StackResized applies the deferred pad-and-resize to every sample of a
// collated batch and stacks the results into uniform tensors: images
// [B, 3, dim, dim] float32 and labels [B, dim, dim] int32. This is the
// point where heterogeneous-size batches become model-input tensors.
func StackResized(batch *Batch, dim int) (imgs, labels *tensors.Tensor, err error) {
	n := batch.Len()
	if n == 0 {
		return nil, nil, errors.Errorf("cannot stack an empty batch")
	}
	if len(batch.Images) != n || len(batch.Labels) != n {
		return nil, nil, errors.Errorf(
			"batch slices out of sync: %d images, %d labels, %d names",
			len(batch.Images), len(batch.Labels), n)
	}

	resized := make([]*image.NRGBA, n)
	resizedLabels := make([]*image.Gray, n)
	for i := range n {
		img, err := tensorToImage(batch.Images[i])
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "sample %d (%s)", i, batch.Names[i])
		}
		label, err := tensorToLabel(batch.Labels[i])
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "sample %d (%s)", i, batch.Names[i])
		}
		resized[i] = augment.PadResize(img, dim)
		resizedLabels[i] = augment.PadResizeLabel(label, dim)
	}

	plane := dim * dim
	imgs = tensors.FromShape(shapes.Make(dtypes.Float32, n, 3, dim, dim))
	imgs.MustMutableFlatData(func(flat any) {
		data := flat.([]float32)
		for i := range n {
			fillCHW(data[i*3*plane:(i+1)*3*plane], resized[i])
		}
	})
	labels = tensors.FromShape(shapes.Make(dtypes.Int32, n, dim, dim))
	labels.MustMutableFlatData(func(flat any) {
		data := flat.([]int32)
		for i := range n {
			label := resizedLabels[i]
			for y := range dim {
				row := label.Pix[y*label.Stride : y*label.Stride+dim]
				out := data[i*plane+y*dim : i*plane+(y+1)*dim]
				for x := range dim {
					out[x] = int32(row[x])
				}
			}
		}
	})
	return imgs, labels, nil
}
