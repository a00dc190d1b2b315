package dataset

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/drakos74/planet-vision/internal/concurrent"
	"github.com/drakos74/planet-vision/internal/metrics"
	"github.com/drakos74/planet-vision/internal/model"
	"github.com/rs/zerolog/log"
)

// Sequence is an out-of-memory batch iterator over a manifest.
// It partitions the tile indices into fixed size batches and reads the
// corresponding images from disk one batch at a time, so that only a
// single batch of tensors is ever held in memory.
// One pass over the sequence visits every tile exactly once.
type Sequence struct {
	manifest Manifest
	loader   *Loader
	pool     *concurrent.Pool
	batch    int
	shuffle  bool
	rng      *rand.Rand
	indices  []int
}

// NewSequence creates a new batch sequence.
func NewSequence(manifest Manifest, loader *Loader, batch int) *Sequence {
	indices := make([]int, manifest.Len())
	for i := range indices {
		indices[i] = i
	}
	return &Sequence{
		manifest: manifest,
		loader:   loader,
		pool:     concurrent.NewPool(1),
		batch:    batch,
		indices:  indices,
	}
}

// WithWorkers fans the image loading of each batch out over the given
// number of workers.
func (s *Sequence) WithWorkers(workers int) *Sequence {
	s.pool = concurrent.NewPool(workers)
	return s
}

// WithShuffle re-shuffles the index space at the start of every epoch.
func (s *Sequence) WithShuffle(seed int64) *Sequence {
	s.shuffle = true
	s.rng = rand.New(rand.NewSource(seed))
	return s
}

// Batches returns the number of batches in one epoch.
func (s *Sequence) Batches() int {
	return (s.manifest.Len() + s.batch - 1) / s.batch
}

// Len returns the number of tiles in the sequence.
func (s *Sequence) Len() int {
	return s.manifest.Len()
}

// Batch materializes the batch at the given index.
// The last batch of an epoch may be short.
func (s *Sequence) Batch(index int) (model.Batch, error) {

	if index < 0 || index >= s.Batches() {
		return model.Batch{}, fmt.Errorf("batch index %d out of range [0,%d)", index, s.Batches())
	}

	from := index * s.batch
	to := from + s.batch
	if to > len(s.indices) {
		to = len(s.indices)
	}
	window := s.indices[from:to]

	samples := make([]model.Sample, len(window))

	tasks := make([]concurrent.Task, len(window))
	for i, idx := range window {
		i, idx := i, idx
		tasks[i] = func() error {
			tile := s.manifest.Tiles[idx]
			pixels, err := s.loader.Load(tile.ID)
			if err != nil {
				return err
			}
			// each task owns its slot, so no locking is needed
			samples[i] = model.Sample{
				ID:      tile.ID,
				Size:    s.loader.Size(),
				Pixels:  pixels,
				Weather: tile.Weather,
				Ground:  tile.Ground,
			}
			return nil
		}
	}

	if errs := s.pool.Run(tasks); len(errs) > 0 {
		return model.Batch{}, fmt.Errorf("could not load batch %d: %w", index, errs[0])
	}

	metrics.Observer.IncrementBatches()

	return model.Batch{
		Index:   index,
		Samples: samples,
	}, nil
}

// Epoch streams one full pass of batches into the returned channel.
// The channel closes when the epoch completes or the context is cancelled.
func (s *Sequence) Epoch(ctx context.Context) <-chan model.Batch {

	if s.shuffle {
		s.rng.Shuffle(len(s.indices), func(i, j int) {
			s.indices[i], s.indices[j] = s.indices[j], s.indices[i]
		})
	}

	out := make(chan model.Batch)

	go func() {
		defer close(out)
		for i := 0; i < s.Batches(); i++ {
			batch, err := s.Batch(i)
			if err != nil {
				log.Error().Err(err).Int("batch", i).Msg("could not load batch")
				select {
				case out <- model.Batch{Index: i, Err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
