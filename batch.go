package infinistream

import (
	"errors"
	"io"
	"slices"
	"sort"

	"golang.org/x/exp/constraints"
)

type (
	// BucketedReadaheadBatchConfig models configuration, for
	// NewBucketedReadaheadBatch.
	BucketedReadaheadBatchConfig[T any] struct {
		// ReadAhead is the number of items fetched ahead and grouped as one
		// window. Restart cost is proportional to this, not to total
		// consumption.
		ReadAhead int

		// BatchSize fixes the number of items per batch, if positive.
		BatchSize int

		// DynamicBatchSize determines each batch's size from its first
		// (longest) item, evaluated once per batch. Exactly one of BatchSize
		// or DynamicBatchSize must be set.
		DynamicBatchSize func(T) int

		// NoShuffle bypasses shuffling of the batch list within each window.
		NoShuffle bool

		// Seed for batch shuffling.
		Seed uint64
	}

	// BucketState is the checkpoint of the bucketed batcher; the window it
	// describes is recomputed deterministically on restart and the first
	// Served batches skipped.
	BucketState struct {
		Input  Nested `json:"input"`
		RNG    []byte `json:"rng,omitempty"`
		Served int    `json:"served"`
	}

	bucketedReadaheadBatch[T any, K constraints.Ordered] struct {
		source           Iterator[T]
		key              func(T) K
		readAhead        int
		batchSize        int
		dynamicBatchSize func(T) int
		seed             uint64
		gen              *generator
		inputState       Checkpoint
		rngState         []byte
		served           int
		batches          [][]T
		pending          bool
		exhausted        bool
	}
)

func (*BucketState) Tag() string { return `bucket` }

// NewBucketedReadaheadBatch groups items of similar length into batches: it
// reads ahead a window of items, sorts them by the user-provided key
// (descending, longest first), and groups them into batches from start to
// end, yielding length-homogeneous batches that reduce padding waste. The
// sort is stable, so upstream randomization is not undone for items tied on
// key - only the length grouping is imposed. Unless disabled, the list of
// batches (not the items within) is then shuffled, restoring macro-level
// randomness. The final batch of each window may be partial.
//
// The source is typically infinite; a finite source ends the stream once its
// last, short window is served.
//
// A panic will occur if config is nil or inconsistent, per the field docs.
func NewBucketedReadaheadBatch[T any, K constraints.Ordered](source Iterator[T], key func(T) K, config *BucketedReadaheadBatchConfig[T]) Iterator[[]T] {
	if source == nil {
		panic(`infinistream: nil source iterator`)
	}
	if key == nil {
		panic(`infinistream: nil key function`)
	}
	if config == nil {
		panic(`infinistream: nil config`)
	}
	if config.ReadAhead < 1 {
		panic(`infinistream: read ahead must be at least 1`)
	}
	if (config.BatchSize > 0) == (config.DynamicBatchSize != nil) {
		panic(`infinistream: exactly one of BatchSize or DynamicBatchSize must be set`)
	}
	x := bucketedReadaheadBatch[T, K]{
		source:           source,
		key:              key,
		readAhead:        config.ReadAhead,
		batchSize:        config.BatchSize,
		dynamicBatchSize: config.DynamicBatchSize,
		seed:             config.Seed,
	}
	if !config.NoShuffle {
		x.gen = newGenerator(x.seed)
	}
	_ = x.SetState(nil)
	return &x
}

func (x *bucketedReadaheadBatch[T, K]) Next() ([]T, error) {
	for {
		if !x.pending {
			if x.exhausted {
				return nil, io.EOF
			}
			// snapshot before pulling, so the window can be recomputed
			x.inputState = x.source.GetState()
			x.rngState = nil
			if x.gen != nil {
				x.rngState = x.gen.state()
			}
			items, err := x.readWindow()
			if err != nil {
				return nil, err
			}
			x.batches = x.createBatches(items)
			if x.gen != nil {
				x.gen.Shuffle(len(x.batches), func(i, j int) {
					x.batches[i], x.batches[j] = x.batches[j], x.batches[i]
				})
			}
			if x.served > len(x.batches) {
				return nil, errors.New(`infinistream: batch window shorter than checkpoint`)
			}
			x.pending = true
		}
		if x.served < len(x.batches) {
			batch := x.batches[x.served]
			x.served++
			return batch, nil
		}
		x.pending = false
		x.batches = nil
		x.served = 0
	}
}

func (x *bucketedReadaheadBatch[T, K]) GetState() Checkpoint {
	return &BucketState{
		Input:  Nested{x.inputState},
		RNG:    slices.Clone(x.rngState),
		Served: x.served,
	}
}

func (x *bucketedReadaheadBatch[T, K]) SetState(checkpoint Checkpoint) error {
	x.pending = false
	x.batches = nil
	x.exhausted = false
	x.inputState = nil
	x.rngState = nil
	x.served = 0
	if x.gen != nil {
		x.gen = newGenerator(x.seed)
	}
	if checkpoint == nil {
		return x.source.SetState(nil)
	}
	state, err := stateAs[*BucketState](checkpoint)
	if err != nil {
		return err
	}
	if x.gen != nil && state.RNG != nil {
		if err := x.gen.restore(state.RNG); err != nil {
			return err
		}
	}
	x.served = state.Served
	return x.source.SetState(state.Input.Checkpoint)
}

func (x *bucketedReadaheadBatch[T, K]) readWindow() ([]T, error) {
	items := make([]T, 0, x.readAhead)
	for len(items) < x.readAhead {
		item, err := x.source.Next()
		if errors.Is(err, io.EOF) {
			x.exhausted = true
			break
		}
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (x *bucketedReadaheadBatch[T, K]) createBatches(items []T) [][]T {
	keys := make([]K, len(items))
	for i, item := range items {
		keys[i] = x.key(item)
	}
	// stable sort, longest first, so that prior randomization is preserved
	// for items tied on key
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return keys[order[a]] > keys[order[b]]
	})
	var batches [][]T
	var batch []T
	var size int
	for _, i := range order {
		item := items[i]
		if batch == nil {
			size = x.batchSize
			if x.dynamicBatchSize != nil {
				size = x.dynamicBatchSize(item)
			}
			if size < 1 {
				size = 1
			}
		}
		batch = append(batch, item)
		if len(batch) >= size {
			batches = append(batches, batch)
			batch = nil
		}
	}
	if batch != nil {
		batches = append(batches, batch)
	}
	return batches
}
