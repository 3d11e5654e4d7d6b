package infinistream

import (
	"fmt"

	"golang.org/x/exp/rand"
)

type (
	// RecurrentState is the checkpoint of the recurrent stage; both fields
	// are captured between steps.
	RecurrentState[S any] struct {
		State S      `json:"state"`
		Input Nested `json:"input"`
	}

	recurrent[S, T, U any] struct {
		source  Iterator[T]
		step    func(S, T) (S, U)
		initial S
		state   S
	}
)

func (*RecurrentState[S]) Tag() string { return `recurrent` }

// NewRecurrent iterates statefully over a step function, threading a
// recurrent state through the stream: step receives the current state and the
// next source item, and returns the new state and the output to yield. The
// state is carried inside the checkpoint by value, so it should be a plain
// value (or treated as immutable) for checkpoints to stay independent of
// continued iteration.
func NewRecurrent[S, T, U any](source Iterator[T], initial S, step func(S, T) (S, U)) Iterator[U] {
	if source == nil {
		panic(`infinistream: nil source iterator`)
	}
	if step == nil {
		panic(`infinistream: nil step function`)
	}
	x := recurrent[S, T, U]{source: source, step: step, initial: initial, state: initial}
	_ = x.source.SetState(nil)
	return &x
}

func (x *recurrent[S, T, U]) Next() (U, error) {
	item, err := x.source.Next()
	if err != nil {
		var zero U
		return zero, err
	}
	var out U
	x.state, out = x.step(x.state, item)
	return out, nil
}

func (x *recurrent[S, T, U]) GetState() Checkpoint {
	return &RecurrentState[S]{
		State: x.state,
		Input: Nested{x.source.GetState()},
	}
}

func (x *recurrent[S, T, U]) SetState(checkpoint Checkpoint) error {
	if checkpoint == nil {
		x.state = x.initial
		return x.source.SetState(nil)
	}
	state, err := stateAs[*RecurrentState[S]](checkpoint)
	if err != nil {
		return err
	}
	x.state = state.State
	return x.source.SetState(state.Input.Checkpoint)
}

// NewSamplingRandomMap calls a transform on each item, passing a
// checkpointed random generator: it is a recurrent stage whose recurrent
// state is the generator state, restored before and captured after every
// step.
func NewSamplingRandomMap[T, U any](source Iterator[T], seed uint64, transform func(*rand.Rand, T) U) Iterator[U] {
	if transform == nil {
		panic(`infinistream: nil transform function`)
	}
	gen := newGenerator(seed)
	return NewRecurrent(source, gen.state(), func(state []byte, item T) ([]byte, U) {
		if err := gen.restore(state); err != nil {
			panic(fmt.Errorf(`infinistream: corrupt sampling checkpoint: %w`, err))
		}
		out := transform(gen.Rand, item)
		return gen.state(), out
	})
}
