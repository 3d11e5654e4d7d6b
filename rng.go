package infinistream

import (
	"fmt"

	"golang.org/x/exp/rand"
)

type (
	// RandomState is the checkpoint of the uniform random iterator, see
	// NewRandom.
	RandomState struct {
		RNG []byte `json:"rng"`
	}

	// generator is a deterministic PRNG whose full state round-trips through
	// the PCG source's binary marshaling, so it can live inside checkpoints.
	// The wire format is frozen by the source implementation; checkpoints
	// embedding generator state are portable across processes of this
	// library.
	generator struct {
		src rand.PCGSource
		*rand.Rand
	}

	randomIterator struct {
		seed uint64
		gen  *generator
	}
)

func (*RandomState) Tag() string { return `random` }

func newGenerator(seed uint64) *generator {
	var x generator
	x.src.Seed(seed)
	x.Rand = rand.New(&x.src)
	return &x
}

func (x *generator) state() []byte {
	state, err := x.src.MarshalBinary()
	if err != nil {
		// the PCG source's marshaling cannot fail
		panic(fmt.Errorf(`infinistream: prng state capture: %w`, err))
	}
	return state
}

func (x *generator) restore(state []byte) error {
	if err := x.src.UnmarshalBinary(state); err != nil {
		return fmt.Errorf(`infinistream: prng state restore: %w`, err)
	}
	return nil
}

// NewRandom returns an infinite checkpointable iterator of uniformly
// distributed random numbers in [0, 1). Very similar to calling Float64 on a
// seeded generator, except that values are obtained via Next, and the
// generator state is captured by GetState.
func NewRandom(seed uint64) Iterator[float64] {
	return &randomIterator{seed: seed, gen: newGenerator(seed)}
}

func (x *randomIterator) Next() (float64, error) {
	return x.gen.Float64(), nil
}

func (x *randomIterator) GetState() Checkpoint {
	return &RandomState{RNG: x.gen.state()}
}

func (x *randomIterator) SetState(checkpoint Checkpoint) error {
	if checkpoint == nil {
		x.gen = newGenerator(x.seed)
		return nil
	}
	state, err := stateAs[*RandomState](checkpoint)
	if err != nil {
		return err
	}
	return x.gen.restore(state.RNG)
}
