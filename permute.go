package infinistream

import (
	"fmt"
	"slices"
)

type (
	// PermutationConfig models optional configuration, for
	// NewInfinitePermutation.
	PermutationConfig struct {
		// Seed for the per-pass reshuffle.
		Seed uint64

		// NoShuffle bypasses the reshuffle, making the iterator a
		// checkpointed infinite cycle over the items in original order.
		NoShuffle bool

		// NumInstances is the number of instances of this dataset, for
		// multi-process data loading, e.g. in distributed training.
		// **Defaults to 1, if 0, or PermutationConfig is nil.**
		NumInstances int

		// InstanceRank is the rank of this instance, in [0, NumInstances).
		InstanceRank int
	}

	// PermutationState is the checkpoint of the infinite permutation. It is
	// constant-size: the position within the current pass plus the generator
	// state from before that pass's reshuffle.
	PermutationState struct {
		// RNG is the generator state before the current pass's reshuffle,
		// or nil if no pass has started.
		RNG []byte `json:"rng,omitempty"`
		// ItemCount is the number of unsharded positions consumed within the
		// current pass. It deliberately counts unsharded positions, not the
		// items this rank emitted, which keeps the shard stride deterministic
		// on restart.
		ItemCount int `json:"item_count"`
	}

	infinitePermutation[T any] struct {
		items        []T
		seed         uint64
		shuffle      bool
		numInstances int
		instanceRank int
		gen          *generator
		rngState     []byte
		itemCount    int
		pass         []T
	}
)

func (*PermutationState) Tag() string { return `permute` }

// NewInfinitePermutation infinitely generates permutations of the given
// items. Unlike the other stages, it loads all items into RAM - it is meant
// for in-memory sets such as the pathnames of data chunks read downstream.
//
// Each pass is a fresh reshuffle; the generator advances naturally across
// passes and is never reseeded. With sharding configured, each rank emits the
// disjoint subsequence of pass positions congruent to its rank, so the union
// of all ranks over one pass is exactly the item set.
//
// A panic will occur if items is empty, or the sharding pair is invalid.
func NewInfinitePermutation[T any](items []T, config *PermutationConfig) Iterator[T] {
	if len(items) == 0 {
		panic(`infinistream: infinite permutation of an empty item set`)
	}
	x := infinitePermutation[T]{
		items:        slices.Clone(items),
		shuffle:      true,
		numInstances: 1,
	}
	if config != nil {
		x.seed = config.Seed
		x.shuffle = !config.NoShuffle
		if config.NumInstances != 0 {
			x.numInstances = config.NumInstances
		}
		x.instanceRank = config.InstanceRank
	}
	if x.numInstances < 1 {
		panic(`infinistream: num instances must be at least 1`)
	}
	if x.instanceRank < 0 || x.instanceRank >= x.numInstances {
		panic(`infinistream: instance rank out of range`)
	}
	_ = x.SetState(nil)
	return &x
}

func (x *infinitePermutation[T]) Next() (T, error) {
	for {
		if x.itemCount >= len(x.pass) {
			x.startPass()
		}
		i := x.itemCount
		x.itemCount++
		if i%x.numInstances == x.instanceRank {
			return x.pass[i], nil
		}
	}
}

func (x *infinitePermutation[T]) GetState() Checkpoint {
	return &PermutationState{
		RNG:       slices.Clone(x.rngState),
		ItemCount: x.itemCount,
	}
}

func (x *infinitePermutation[T]) SetState(checkpoint Checkpoint) error {
	x.gen = newGenerator(x.seed)
	x.rngState = nil
	x.itemCount = 0
	x.pass = nil
	if checkpoint == nil {
		return nil
	}
	state, err := stateAs[*PermutationState](checkpoint)
	if err != nil {
		return err
	}
	if state.ItemCount < 0 || state.ItemCount > len(x.items) {
		return fmt.Errorf(`infinistream: permutation checkpoint out of range: %d`, state.ItemCount)
	}
	if state.RNG == nil {
		// captured before the first pass started
		return nil
	}
	if err := x.gen.restore(state.RNG); err != nil {
		return err
	}
	x.rngState = slices.Clone(state.RNG)
	x.itemCount = state.ItemCount
	// reproduce the in-flight pass; Next resumes at the checkpointed
	// position without yielding the skipped prefix
	x.shufflePass()
	return nil
}

// startPass captures the generator state then reshuffles, so the resulting
// checkpoint can reproduce the pass from its beginning.
func (x *infinitePermutation[T]) startPass() {
	x.rngState = x.gen.state()
	x.itemCount = 0
	x.shufflePass()
}

func (x *infinitePermutation[T]) shufflePass() {
	x.pass = slices.Clone(x.items)
	if x.shuffle {
		x.gen.Shuffle(len(x.pass), func(i, j int) {
			x.pass[i], x.pass[j] = x.pass[j], x.pass[i]
		})
	}
}
