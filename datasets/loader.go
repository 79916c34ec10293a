package datasets

import (
	"io"
	"math/rand"
	"runtime"
	"sync"

	"k8s.io/klog/v2"
)

// LoaderConfig configures batch assembly over a Split.
type LoaderConfig struct {
	// BatchSize is the number of samples per batch. The final batch of an
	// epoch may be smaller. Default 4.
	BatchSize int
	// Workers is the number of goroutines decoding and augmenting samples
	// of a batch concurrently. Default runtime.NumCPU().
	Workers int
	// Prefetch is how many ready batches are buffered ahead of Next.
	// Default 2.
	Prefetch int
	// Shuffle re-permutes the sample order at the start of every epoch.
	// Set it for training splits; validation batches should stay in split
	// order.
	Shuffle bool
	// Seed drives the epoch-order shuffle when Shuffle is set.
	Seed int64
}

func (cfg LoaderConfig) withDefaults() LoaderConfig {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 4
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 2
	}
	return cfg
}

// Loader assembles batches from a split, overlapping file decode and
// augmentation with consumption. A background producer walks the epoch
// order batch by batch, fanning each batch's samples out to a bounded
// worker pool, and delivers ready batches through a buffered channel, so
// batch order is deterministic regardless of the worker count.
//
// Next returns io.EOF at the end of the epoch; Reset starts the next one.
// A Loader is for a single consumer goroutine; wrap the StackedDataset
// adapter if concurrent yields are needed.
type Loader struct {
	split *Split
	cfg   LoaderConfig

	order    []int
	epoch    int
	orderRNG *rand.Rand

	batches chan prefetched
	stop    chan struct{}
}

type prefetched struct {
	batch *Batch
	err   error
}

// NewLoader creates a Loader over the split and starts prefetching the
// first epoch. Call Close when done to release the producer goroutine.
func NewLoader(split *Split, cfg LoaderConfig) *Loader {
	l := &Loader{
		split:    split,
		cfg:      cfg.withDefaults(),
		order:    make([]int, split.Len()),
		orderRNG: rand.New(rand.NewSource(cfg.Seed)),
	}
	for i := range l.order {
		l.order[i] = i
	}
	l.startEpoch()
	return l
}

func (l *Loader) startEpoch() {
	if l.cfg.Shuffle {
		l.orderRNG.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
	l.batches = make(chan prefetched, l.cfg.Prefetch)
	l.stop = make(chan struct{})
	go l.produce(l.order, l.epoch, l.batches, l.stop)
}

// produce fills out with the epoch's batches in order. It exits when the
// epoch is exhausted, on the first sample error, or when stop closes.
func (l *Loader) produce(order []int, epoch int, out chan<- prefetched, stop <-chan struct{}) {
	defer close(out)
	for start := 0; start < len(order); start += l.cfg.BatchSize {
		end := min(start+l.cfg.BatchSize, len(order))
		batch, err := l.assemble(order[start:end], epoch)
		if err != nil {
			klog.Errorf("loader (%s split): %+v", l.split.Name(), err)
			select {
			case out <- prefetched{err: err}:
			case <-stop:
			}
			return
		}
		select {
		case out <- prefetched{batch: batch}:
		case <-stop:
			return
		}
	}
}

// assemble fetches the samples for one batch in parallel, each into its
// position, and collates them into the three parallel slices.
func (l *Loader) assemble(indices []int, epoch int) (*Batch, error) {
	samples := make([]*Sample, len(indices))
	errs := make([]error, len(indices))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range min(l.cfg.Workers, len(indices)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pos := range jobs {
				samples[pos], errs[pos] = l.split.At(indices[pos], epoch)
			}
		}()
	}
	for pos := range indices {
		jobs <- pos
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return collate(samples), nil
}

// collate combines fetched samples into a batch of parallel slices,
// preserving per-sample order.
func collate(samples []*Sample) *Batch {
	batch := &Batch{}
	for _, s := range samples {
		batch.Images = append(batch.Images, s.Image)
		batch.Labels = append(batch.Labels, s.Label)
		batch.Names = append(batch.Names, s.Name)
	}
	return batch
}

// Next returns the next batch of the epoch, or io.EOF when the epoch is
// exhausted. Any sample error aborts the epoch and is returned as is.
func (l *Loader) Next() (*Batch, error) {
	p, ok := <-l.batches
	if !ok {
		return nil, io.EOF
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.batch, nil
}

// Reset stops the current epoch and starts the next one, reshuffling the
// sample order when the Loader was configured with Shuffle.
func (l *Loader) Reset() {
	l.drain()
	l.epoch++
	l.startEpoch()
}

// Close stops the producer goroutine. The Loader must not be used after.
func (l *Loader) Close() {
	l.drain()
}

func (l *Loader) drain() {
	close(l.stop)
	for range l.batches {
	}
}
