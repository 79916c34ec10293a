package datasets

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"math/rand"
	"path/filepath"

	"github.com/blurlab/blurdata/augment"
)

// SplitConfig controls how a BlurDataset is partitioned into training and
// validation views. The same Ratio and Seed must be used for both splits of
// a run: the partition is a prefix/suffix cut of one seeded shuffle, so
// equal parameters are what make the two splits disjoint and exhaustive.
type SplitConfig struct {
	// Ratio is the fraction of samples assigned to training. Default 0.8.
	Ratio float64
	// Seed drives the deterministic shuffle of the pair list and the
	// per-sample augmentation streams. The zero value is a valid seed.
	Seed int64

	// Training-chain parameters; zero values select augment defaults.
	// Ignored by ValidationSplit.
	CropSize   int
	Scales     []float64
	MaxDegrees float64
}

func (cfg SplitConfig) withDefaults() SplitConfig {
	if cfg.Ratio <= 0 || cfg.Ratio >= 1 {
		cfg.Ratio = 0.8
	}
	return cfg
}

// pathPair glues an image path to its label path through the shuffle.
type pathPair struct {
	image, label string
}

// Split is a training or validation view over a BlurDataset. The two
// variants share all fetch logic and differ only in the slice of pairs they
// see and in whether an augmentation chain is applied; augmentation is a
// composed policy rather than a subclassing hierarchy.
type Split struct {
	name  string
	pairs []pathPair
	chain *augment.Chain // nil for validation.
	seed  int64
}

// TrainingSplit returns the training view: the shuffled prefix of the
// dataset, with the full augmentation chain applied after each fetch.
func (d *BlurDataset) TrainingSplit(cfg SplitConfig) *Split {
	cfg = cfg.withDefaults()
	pairs := d.shuffledPairs(cfg.Seed)
	return &Split{
		name:  "train",
		pairs: pairs[:splitPoint(len(pairs), cfg.Ratio)],
		chain: augment.Training(cfg.CropSize, cfg.Scales, cfg.MaxDegrees),
		seed:  cfg.Seed,
	}
}

// ValidationSplit returns the validation view: the shuffled suffix of the
// dataset, fetched without augmentation so performance is measured on
// unmodified, differently-aspect-ratioed images.
func (d *BlurDataset) ValidationSplit(cfg SplitConfig) *Split {
	cfg = cfg.withDefaults()
	pairs := d.shuffledPairs(cfg.Seed)
	return &Split{
		name:  "validation",
		pairs: pairs[splitPoint(len(pairs), cfg.Ratio):],
		seed:  cfg.Seed,
	}
}

func (d *BlurDataset) shuffledPairs(seed int64) []pathPair {
	pairs := make([]pathPair, len(d.imagePaths))
	for i := range pairs {
		pairs[i] = pathPair{image: d.imagePaths[i], label: d.labelPaths[i]}
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(pairs), func(i, j int) {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	})
	return pairs
}

func splitPoint(n int, ratio float64) int {
	return int(math.Round(float64(n) * ratio))
}

// Name returns "train" or "validation".
func (s *Split) Name() string { return s.name }

// Len returns the number of samples in the split.
func (s *Split) Len() int { return len(s.pairs) }

// Augmented reports whether this split applies the augmentation chain.
func (s *Split) Augmented() bool { return s.chain != nil }

// Names returns the source image filenames of the split, in split order.
func (s *Split) Names() []string {
	names := make([]string, len(s.pairs))
	for i, p := range s.pairs {
		names[i] = filepath.Base(p.image)
	}
	return names
}

// At decodes the pair at idx and, on training splits, runs the augmentation
// chain before tensorizing. The epoch argument selects the per-sample
// randomness stream: augmentation for a given (seed, epoch, index) is
// identical no matter which worker fetches it or in what order, and varies
// across epochs.
func (s *Split) At(idx, epoch int) (*Sample, error) {
	if idx < 0 || idx >= len(s.pairs) {
		return nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(s.pairs))
	}
	p := s.pairs[idx]
	img, err := decodeImage(p.image)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", p.image, err)
	}
	label, err := decodeLabel(p.label)
	if err != nil {
		return nil, fmt.Errorf("failed to decode label %s: %w", p.label, err)
	}
	if s.chain != nil {
		rng := rand.New(rand.NewSource(sampleSeed(s.seed, epoch, idx)))
		img, label = s.chain.Apply(rng, img, label)
	}
	return &Sample{
		Image: imageTensor(img),
		Label: labelTensorWide(label),
		Name:  filepath.Base(p.image),
	}, nil
}

// sampleSeed hashes (seed, epoch, index) into an RNG seed for one
// augmentation call.
func sampleSeed(seed int64, epoch, idx int) int64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(seed))
	binary.LittleEndian.PutUint64(buf[8:], uint64(epoch))
	binary.LittleEndian.PutUint64(buf[16:], uint64(idx))
	return int64(crc32.ChecksumIEEE(buf[:]))
}
