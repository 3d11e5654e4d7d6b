package infinistream

import (
	"errors"
	"io"
)

type (
	// ShuffleState is the checkpoint of the buffered shuffle, see
	// NewBufferedShuffle. The buffer is deep-copied on capture, so a retained
	// checkpoint is unaffected by continued consumption.
	ShuffleState[T any] struct {
		Input Nested `json:"input"`
		// Buffer is the reservoir snapshot; nil entries are empty slots.
		Buffer []*T   `json:"buffer"`
		RNG    []byte `json:"rng"`
	}

	bufferedShuffle[T any] struct {
		source   Iterator[T]
		seed     uint64
		gen      *generator
		buf      []*T
		draining bool
		drainPos int
	}
)

func (*ShuffleState[T]) Tag() string { return `shuffle` }

// NewBufferedShuffle shuffles the source using a fixed-size reservoir,
// a variant of the Fisher-Yates shuffle modified to run with a constant-size
// buffer. Each incoming item displaces a uniformly chosen slot; the displaced
// occupant, if any, is emitted. The store happens before the emit, so a
// checkpoint captured between Next calls never needs to replay an emission.
// When the source ends, the buffer is drained last-to-first.
//
// A bufferSize of 1 degenerates to pass-through with a one-step delay. A
// panic will occur if bufferSize < 1.
func NewBufferedShuffle[T any](source Iterator[T], bufferSize int, seed uint64) Iterator[T] {
	if source == nil {
		panic(`infinistream: nil source iterator`)
	}
	if bufferSize < 1 {
		panic(`infinistream: shuffle buffer size must be at least 1`)
	}
	x := bufferedShuffle[T]{source: source, seed: seed, buf: make([]*T, bufferSize)}
	_ = x.SetState(nil)
	return &x
}

func (x *bufferedShuffle[T]) Next() (T, error) {
	var zero T
	if !x.draining {
		for {
			item, err := x.source.Next()
			if errors.Is(err, io.EOF) {
				x.draining = true
				x.drainPos = len(x.buf)
				break
			}
			if err != nil {
				return zero, err
			}
			i := x.gen.Intn(len(x.buf))
			prev := x.buf[i]
			v := item
			x.buf[i] = &v
			if prev != nil {
				return *prev, nil
			}
		}
	}
	for x.drainPos > 0 {
		x.drainPos--
		if p := x.buf[x.drainPos]; p != nil {
			x.buf[x.drainPos] = nil
			return *p, nil
		}
	}
	return zero, io.EOF
}

func (x *bufferedShuffle[T]) GetState() Checkpoint {
	return &ShuffleState[T]{
		Input:  Nested{x.source.GetState()},
		Buffer: cloneBuffer(x.buf),
		RNG:    x.gen.state(),
	}
}

func (x *bufferedShuffle[T]) SetState(checkpoint Checkpoint) error {
	x.draining = false
	x.drainPos = 0
	if checkpoint == nil {
		x.gen = newGenerator(x.seed)
		x.buf = make([]*T, len(x.buf))
		return x.source.SetState(nil)
	}
	state, err := stateAs[*ShuffleState[T]](checkpoint)
	if err != nil {
		return err
	}
	if len(state.Buffer) != len(x.buf) {
		return errors.New(`infinistream: shuffle checkpoint buffer size mismatch`)
	}
	x.gen = newGenerator(x.seed)
	if err := x.gen.restore(state.RNG); err != nil {
		return err
	}
	x.buf = cloneBuffer(state.Buffer)
	return x.source.SetState(state.Input.Checkpoint)
}

func cloneBuffer[T any](buf []*T) []*T {
	out := make([]*T, len(buf))
	for i, p := range buf {
		if p != nil {
			v := *p
			out[i] = &v
		}
	}
	return out
}
