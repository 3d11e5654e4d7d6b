package infinistream

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
)

type (
	// Iterator is a checkpointable producer of a (potentially infinite)
	// stream of items.
	//
	// Next advances the iterator one step, returning io.EOF once the stream
	// is exhausted; any other error poisons the pipeline, though checkpoints
	// captured before the failing Next remain valid for retry on a freshly
	// constructed pipeline.
	//
	// GetState captures an opaque, serializable token, with no observable
	// side effects on the output sequence. Restoring that token, via
	// SetState, onto a freshly constructed iterator of identical
	// configuration reproduces exactly the suffix this iterator would have
	// produced next. A nil checkpoint restores the initial position.
	// Checkpoints are plain values - they deep-copy any mutable buffers, and
	// survive unchanged through arbitrarily many subsequent Next calls.
	Iterator[T any] interface {
		Next() (T, error)
		GetState() Checkpoint
		SetState(checkpoint Checkpoint) error
	}

	// ItemsState is the checkpoint of the slice and sequence sources, see
	// FromSlice and FromSeq.
	ItemsState struct {
		Consumed int `json:"consumed"`
	}

	sliceIterator[T any] struct {
		items    []T
		consumed int
	}

	seqIterator[T any] struct {
		seq      func() iter.Seq[T]
		next     func() (T, bool)
		stop     func()
		consumed int
	}
)

func (*ItemsState) Tag() string { return `items` }

// FromSlice adapts a slice into a checkpointable iterator over its elements,
// in order. The slice is copied; restore cost is O(1).
func FromSlice[T any](items []T) Iterator[T] {
	return &sliceIterator[T]{items: slices.Clone(items)}
}

func (x *sliceIterator[T]) Next() (T, error) {
	if x.consumed >= len(x.items) {
		var zero T
		return zero, io.EOF
	}
	item := x.items[x.consumed]
	x.consumed++
	return item, nil
}

func (x *sliceIterator[T]) GetState() Checkpoint {
	return &ItemsState{Consumed: x.consumed}
}

func (x *sliceIterator[T]) SetState(checkpoint Checkpoint) error {
	if checkpoint == nil {
		x.consumed = 0
		return nil
	}
	state, err := stateAs[*ItemsState](checkpoint)
	if err != nil {
		return err
	}
	if state.Consumed < 0 || state.Consumed > len(x.items) {
		return fmt.Errorf(`infinistream: items checkpoint out of range: %d`, state.Consumed)
	}
	x.consumed = state.Consumed
	return nil
}

// FromSeq adapts a restartable sequence into a checkpointable iterator.
// Restore replays the sequence up to the checkpointed position, so it is
// inefficient for some important use cases - prefer FromSlice where the
// items fit in memory.
//
// The seq function must return a fresh traversal of the same items on every
// call; a single-use iterator cannot satisfy the checkpoint contract, which
// is why the restartable-function form is required here.
func FromSeq[T any](seq func() iter.Seq[T]) Iterator[T] {
	if seq == nil {
		panic(`infinistream: nil sequence`)
	}
	x := seqIterator[T]{seq: seq}
	_ = x.SetState(nil)
	return &x
}

func (x *seqIterator[T]) Next() (T, error) {
	item, ok := x.next()
	if !ok {
		var zero T
		return zero, io.EOF
	}
	x.consumed++
	return item, nil
}

func (x *seqIterator[T]) GetState() Checkpoint {
	return &ItemsState{Consumed: x.consumed}
}

func (x *seqIterator[T]) SetState(checkpoint Checkpoint) error {
	consumed := 0
	if checkpoint != nil {
		state, err := stateAs[*ItemsState](checkpoint)
		if err != nil {
			return err
		}
		consumed = state.Consumed
	}
	if x.stop != nil {
		x.stop()
	}
	x.next, x.stop = iter.Pull(x.seq())
	x.consumed = 0
	for x.consumed < consumed {
		if _, ok := x.next(); !ok {
			return fmt.Errorf(`infinistream: sequence ended after %d of %d checkpointed items`, x.consumed, consumed)
		}
		x.consumed++
	}
	return nil
}

// stateAs narrows a checkpoint to the concrete state type a stage expects.
func stateAs[S Checkpoint](checkpoint Checkpoint) (S, error) {
	state, ok := checkpoint.(S)
	if !ok {
		return state, fmt.Errorf(`infinistream: unexpected checkpoint type %T`, checkpoint)
	}
	return state, nil
}

// discard advances an iterator by n items without yielding them.
func discard[T any](it Iterator[T], n int) error {
	for i := 0; i < n; i++ {
		if _, err := it.Next(); err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf(`infinistream: stream ended after %d of %d discarded items: %w`, i, n, err)
			}
			return err
		}
	}
	return nil
}
