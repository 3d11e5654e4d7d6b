package infinistream

import (
	"errors"
)

type (
	// ZipState is the checkpoint of the zip stage, the tuple of its upstream
	// checkpoints.
	ZipState struct {
		Inputs []Nested `json:"inputs"`
	}

	mapIterator[T, U any] struct {
		source    Iterator[T]
		transform func(T) U
	}

	zipIterator[T any] struct {
		sources []Iterator[T]
	}
)

func (*ZipState) Tag() string { return `zip` }

// NewMap applies a stateless transform to each item of the source. Its
// checkpoint is the source's, verbatim.
func NewMap[T, U any](source Iterator[T], transform func(T) U) Iterator[U] {
	if source == nil {
		panic(`infinistream: nil source iterator`)
	}
	if transform == nil {
		panic(`infinistream: nil transform function`)
	}
	return &mapIterator[T, U]{source: source, transform: transform}
}

func (x *mapIterator[T, U]) Next() (U, error) {
	item, err := x.source.Next()
	if err != nil {
		var zero U
		return zero, err
	}
	return x.transform(item), nil
}

func (x *mapIterator[T, U]) GetState() Checkpoint {
	return x.source.GetState()
}

func (x *mapIterator[T, U]) SetState(checkpoint Checkpoint) error {
	return x.source.SetState(checkpoint)
}

// NewZip advances all sources in lockstep, in declaration order, yielding one
// element from each per Next. Like zip functions elsewhere, iteration stops
// as soon as the shortest source is exhausted; sources earlier in the
// declaration order may have been advanced past their final yielded item when
// that happens.
func NewZip[T any](sources ...Iterator[T]) Iterator[[]T] {
	if len(sources) == 0 {
		panic(`infinistream: zip of no sources`)
	}
	for _, source := range sources {
		if source == nil {
			panic(`infinistream: nil source iterator`)
		}
	}
	return &zipIterator[T]{sources: sources}
}

func (x *zipIterator[T]) Next() ([]T, error) {
	out := make([]T, len(x.sources))
	for i, source := range x.sources {
		item, err := source.Next()
		if err != nil {
			return nil, err
		}
		out[i] = item
	}
	return out, nil
}

func (x *zipIterator[T]) GetState() Checkpoint {
	states := make([]Nested, len(x.sources))
	for i, source := range x.sources {
		states[i] = Nested{source.GetState()}
	}
	return &ZipState{Inputs: states}
}

func (x *zipIterator[T]) SetState(checkpoint Checkpoint) error {
	if checkpoint == nil {
		for _, source := range x.sources {
			if err := source.SetState(nil); err != nil {
				return err
			}
		}
		return nil
	}
	state, err := stateAs[*ZipState](checkpoint)
	if err != nil {
		return err
	}
	if len(state.Inputs) != len(x.sources) {
		return errors.New(`infinistream: zip checkpoint arity mismatch`)
	}
	for i, source := range x.sources {
		if err := source.SetState(state.Inputs[i].Checkpoint); err != nil {
			return err
		}
	}
	return nil
}
