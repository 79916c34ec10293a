package datasets

import (
	"sync"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
)

// StackedDataset adapts a Loader to gomlx's train.Dataset: every sample of
// a collated batch is pad-resized to the model input dimension and the
// batch is stacked into uniform tensors ready for a forward pass.
//
// Yield returns:
//   - spec: the []string of source filenames for the batch.
//   - inputs: one tensor shaped [batch, 3, dim, dim], float32 in [0, 1].
//   - labels: one tensor shaped [batch, dim, dim], int32 class indices
//     ({0, 1} plus augment.IgnoreLabel on rotation borders).
//
// The underlying Loader already prefetches with parallel workers; Yield is
// additionally serialized with a mutex, so the adapter can be wrapped with
// gomlx's datasets.Parallel or datasets.ReadAhead for more pipelining.
type StackedDataset struct {
	name   string
	loader *Loader
	dim    int

	mu sync.Mutex
}

var _ train.Dataset = (*StackedDataset)(nil)

// NewStackedDataset wraps loader, resizing every sample to inputDim (the
// model's fixed input dimension, e.g. 224).
func NewStackedDataset(name string, loader *Loader, inputDim int) *StackedDataset {
	return &StackedDataset{name: name, loader: loader, dim: inputDim}
}

// Name implements train.Dataset.
func (s *StackedDataset) Name() string { return s.name }

// Yield implements train.Dataset. It returns io.EOF at the end of the
// epoch; call Reset to start the next one.
func (s *StackedDataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := s.loader.Next()
	if err != nil {
		return nil, nil, nil, err
	}
	imgT, labT, err := StackResized(batch, s.dim)
	if err != nil {
		return nil, nil, nil, err
	}
	return batch.Names, []*tensors.Tensor{imgT}, []*tensors.Tensor{labT}, nil
}

// Reset implements train.Dataset.
func (s *StackedDataset) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loader.Reset()
}

// Close releases the underlying Loader's producer goroutine.
func (s *StackedDataset) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loader.Close()
}
