package datasets

import (
	"encoding/binary"
	"io"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// WriteBatches streams epochs of stacked batches to w, so training runs can
// re-read augmented batches without paying the decode/augment cost. The
// layout is a header of three little-endian int32s (batch size, input dim,
// batch count) followed by, per batch, the int32 label tensor and the
// float32 image tensor in flat C order. Incomplete trailing batches are
// written too; readers take the batch count from the header.
//
// onBatch, when non-nil, is called after each batch is written, for progress
// reporting.
func WriteBatches(w io.Writer, stacked *StackedDataset, epochs int, onBatch func()) error {
	batchSize := stacked.loader.cfg.BatchSize
	perEpoch := (stacked.loader.split.Len() + batchSize - 1) / batchSize
	header := []int32{int32(batchSize), int32(stacked.dim), int32(epochs * perEpoch)}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}

	for range epochs {
		for {
			_, inputs, labels, err := stacked.Yield()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			if err := writeTensor(w, labels[0]); err != nil {
				return err
			}
			if err := writeTensor(w, inputs[0]); err != nil {
				return err
			}
			if onBatch != nil {
				onBatch()
			}
		}
		stacked.Reset()
	}
	return nil
}

func writeTensor(w io.Writer, t *tensors.Tensor) error {
	var writeErr error
	t.MustConstFlatData(func(flat any) {
		writeErr = binary.Write(w, binary.LittleEndian, flat)
	})
	return writeErr
}
