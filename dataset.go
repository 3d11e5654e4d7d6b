package infinistream

import (
	"errors"
	"fmt"

	"github.com/joeycumines/logiface"
)

type (
	// ChunkedDatasetConfig models optional configuration, for
	// NewChunkedDataset.
	ChunkedDatasetConfig struct {
		// BufferSize is the reservoir size, in items, for the shuffle stage.
		// **Defaults to 1<<20, if 0.**
		BufferSize int

		// Transform, if non-nil, is applied to each item as a final stage.
		Transform func(string) string

		// Seed for chunk-order shuffling; the item shuffle derives its own
		// seed from it.
		Seed uint64

		// NoShuffle bypasses both the chunk reshuffle and the item shuffle.
		NoShuffle bool

		// NumInstances / InstanceRank shard the chunk stream for
		// multi-process data loading. NumInstances defaults to 1.
		NumInstances int
		InstanceRank int

		// Logger, if non-nil, receives scan diagnostics.
		Logger *logiface.Logger[logiface.Event]
	}
)

// NewChunkedDataset composes the canonical pipeline for a dataset stored as
// directories of gzipped text chunks: an infinite permutation of the chunk
// file paths, flattened into decompressed lines, reservoir shuffled, and
// optionally transformed. The dataset infinitely repeats the data.
//
// Non-.gz files under the given paths are ignored; chunk order is sorted
// before permutation so it is identical across operating systems. An error is
// returned if a path cannot be scanned, or no chunk files are found.
func NewChunkedDataset(config *ChunkedDatasetConfig, paths ...string) (Iterator[string], error) {
	if len(paths) == 0 {
		return nil, errors.New(`infinistream: no dataset paths`)
	}
	var cfg ChunkedDatasetConfig
	if config != nil {
		cfg = *config
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 1 << 20
	}
	chunkPaths, err := scanChunkPaths(paths)
	if err != nil {
		return nil, err
	}
	if len(chunkPaths) == 0 {
		return nil, fmt.Errorf(`infinistream: no chunk files under %q`, paths)
	}
	cfg.Logger.Debug().
		Int(`chunks`, len(chunkPaths)).
		Int(`dirs`, len(paths)).
		Log(`dataset scan complete`)
	chunks := NewInfinitePermutation(chunkPaths, &PermutationConfig{
		Seed:         cfg.Seed,
		NoShuffle:    cfg.NoShuffle,
		NumInstances: cfg.NumInstances,
		InstanceRank: cfg.InstanceRank,
	})
	samples := NewChunkedReadlines(chunks)
	if !cfg.NoShuffle {
		samples = NewBufferedShuffle(samples, cfg.BufferSize, bumpSeed(cfg.Seed))
	}
	if cfg.Transform != nil {
		samples = NewMap(samples, cfg.Transform)
	}
	return samples, nil
}

// bumpSeed derives the seed for a randomized stage immediately downstream of
// another, so the two never share a generator stream.
func bumpSeed(seed uint64) uint64 {
	return seed + 1
}
