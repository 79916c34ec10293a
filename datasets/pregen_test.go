package datasets

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWriteBatches(t *testing.T) {
	ds, err := NewBlurDataset(writeDataset(t, 10))
	if err != nil {
		t.Fatal(err)
	}
	// 2 validation samples, batch size 2 → exactly one batch per epoch.
	validation := ds.ValidationSplit(SplitConfig{Ratio: 0.8, Seed: 0})
	loader := NewLoader(validation, LoaderConfig{BatchSize: 2})
	stacked := NewStackedDataset("pregen", loader, 16)
	defer stacked.Close()

	var buf bytes.Buffer
	var batches int
	if err := WriteBatches(&buf, stacked, 2, func() { batches++ }); err != nil {
		t.Fatalf("WriteBatches failed: %v", err)
	}
	if batches != 2 {
		t.Fatalf("expected 2 batch callbacks, got %d", batches)
	}

	var header [3]int32
	if err := binary.Read(&buf, binary.LittleEndian, &header); err != nil {
		t.Fatal(err)
	}
	if header != [3]int32{2, 16, 2} {
		t.Fatalf("header should be [batchSize, inputDim, batches] = [2 16 2], got %v", header)
	}

	// Per batch: int32 labels [2,16,16] then float32 images [2,3,16,16].
	perBatch := 2*16*16*4 + 2*3*16*16*4
	if buf.Len() != 2*perBatch {
		t.Fatalf("payload should hold 2 batches of %d bytes, got %d", perBatch, buf.Len())
	}

	labels := make([]int32, 2*16*16)
	if err := binary.Read(&buf, binary.LittleEndian, labels); err != nil {
		t.Fatal(err)
	}
	for _, v := range labels {
		if v != 0 && v != 1 {
			t.Fatalf("serialized validation label value %d outside {0,1}", v)
		}
	}
}
