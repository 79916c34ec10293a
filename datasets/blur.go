package datasets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

const (
	imageSubDir = "image"
	labelSubDir = "gt"
	labelExt    = ".png"
)

// BlurDataset wraps a dataset root containing parallel image/ and gt/
// folders. Each label path is derived from the image file's stem, so the
// two path lists are always the same length and positionally paired.
// Enumeration uses os.ReadDir, which sorts entries, so discovery order is
// reproducible across runs and machines.
type BlurDataset struct {
	// Root of the dataset directory.
	Root string

	imagePaths []string
	labelPaths []string
}

// NewBlurDataset enumerates root/image and derives the gt/ label path for
// every image. It fails fast if the image folder is empty or unreadable, or
// if any derived label file is missing, so pairing violations surface at
// construction instead of mid-epoch.
func NewBlurDataset(root string) (*BlurDataset, error) {
	imageDir := filepath.Join(root, imageSubDir)
	entries, err := os.ReadDir(imageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image folder: %w", err)
	}

	ds := &BlurDataset{Root: root}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		ds.imagePaths = append(ds.imagePaths, filepath.Join(imageDir, entry.Name()))
		ds.labelPaths = append(ds.labelPaths, filepath.Join(root, labelSubDir, stem+labelExt))
	}
	if len(ds.imagePaths) == 0 {
		return nil, fmt.Errorf("no images found under %s", imageDir)
	}

	for i, labelPath := range ds.labelPaths {
		if _, err := os.Stat(labelPath); err != nil {
			return nil, fmt.Errorf("no label for image %s: %w", ds.imagePaths[i], err)
		}
	}
	return ds, nil
}

// Len returns the number of image/label pairs.
func (d *BlurDataset) Len() int { return len(d.imagePaths) }

// ImagePaths returns the discovered image paths, in enumeration order.
func (d *BlurDataset) ImagePaths() []string { return d.imagePaths }

// LabelPaths returns the derived label paths, positionally paired with
// ImagePaths.
func (d *BlurDataset) LabelPaths() []string { return d.labelPaths }

// Fetch decodes and normalizes the pair at idx:
//
//   - image: EXIF-orientation corrected, converted to RGB, byte values
//     normalized to [0, 1], shaped [1, 3, H, W] float32. The leading
//     singleton batch axis lets downstream code treat single samples
//     uniformly with batch-shaped tensors.
//   - label: shaped [1, 1, H, W] uint8 with the annotation value 255
//     (foreground/blur in the source format) remapped to class index 1.
//
// A missing or undecodable file is a fatal error for the sample; there is
// no skip-and-retry here, callers decide the resilience policy.
func (d *BlurDataset) Fetch(idx int) (img, label *tensors.Tensor, err error) {
	if idx < 0 || idx >= len(d.imagePaths) {
		return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(d.imagePaths))
	}
	decoded, err := decodeImage(d.imagePaths[idx])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image %s: %w", d.imagePaths[idx], err)
	}
	plane, err := decodeLabel(d.labelPaths[idx])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode label %s: %w", d.labelPaths[idx], err)
	}
	return imageTensorBatched(decoded), labelTensorBatched(plane), nil
}
