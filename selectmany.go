package infinistream

import (
	"errors"
	"iter"
)

type (
	// FlattenState is the checkpoint of the flattening stage, see
	// NewSelectMany.
	FlattenState struct {
		// Input is the upstream state from before the in-flight source item
		// was produced, committed only once its expansion is fully drained.
		Input Nested `json:"input"`
		// Index is the number of items emitted from the current expansion.
		Index int `json:"index"`
	}

	selectMany[T, U any] struct {
		source     Iterator[T]
		expand     func(T) iter.Seq2[U, error]
		inputState Checkpoint
		index      int
		next       func() (U, error, bool)
		stop       func()
	}
)

func (*FlattenState) Tag() string { return `flatten` }

// NewSelectMany projects each element of the source to a finite sequence and
// flattens the resulting sequences into one. Each expansion is consumed at
// most once, so it is fine to return single-use sequences. Errors yielded by
// an expansion propagate to the caller of Next.
//
// Restart re-produces the in-flight source item, re-expands it, and skips the
// already-emitted prefix - which requires expand to be deterministic for a
// given item.
func NewSelectMany[T, U any](source Iterator[T], expand func(T) iter.Seq2[U, error]) Iterator[U] {
	if source == nil {
		panic(`infinistream: nil source iterator`)
	}
	if expand == nil {
		panic(`infinistream: nil expand function`)
	}
	x := selectMany[T, U]{source: source, expand: expand}
	_ = x.source.SetState(nil)
	return &x
}

func (x *selectMany[T, U]) Next() (U, error) {
	var zero U
	for {
		if x.next == nil {
			item, err := x.source.Next()
			if err != nil {
				return zero, err
			}
			x.next, x.stop = iter.Pull2(x.expand(item))
			for skip := x.index; skip > 0; skip-- {
				_, err, ok := x.next()
				if !ok {
					x.release()
					return zero, errors.New(`infinistream: expansion shorter than checkpoint`)
				}
				if err != nil {
					x.release()
					return zero, err
				}
			}
		}
		item, err, ok := x.next()
		if ok {
			if err != nil {
				x.release()
				return zero, err
			}
			x.index++
			return item, nil
		}
		// expansion drained; commit the upstream position
		x.release()
		x.inputState = x.source.GetState()
		x.index = 0
	}
}

func (x *selectMany[T, U]) GetState() Checkpoint {
	return &FlattenState{
		Input: Nested{x.inputState},
		Index: x.index,
	}
}

func (x *selectMany[T, U]) SetState(checkpoint Checkpoint) error {
	x.release()
	x.inputState = nil
	x.index = 0
	if checkpoint != nil {
		state, err := stateAs[*FlattenState](checkpoint)
		if err != nil {
			return err
		}
		x.inputState = state.Input.Checkpoint
		x.index = state.Index
	}
	return x.source.SetState(x.inputState)
}

func (x *selectMany[T, U]) release() {
	if x.stop != nil {
		x.stop()
	}
	x.next, x.stop = nil, nil
}
