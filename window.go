package infinistream

import (
	"errors"
	"io"
)

type (
	// WindowState is the checkpoint of the sliding window stage, see
	// NewWindowed.
	WindowState struct {
		// Input is the upstream state for the first item of the current half.
		Input Nested `json:"input"`
		// Index is the offset of the next window within the current half.
		Index int `json:"index"`
	}

	windowed[T any] struct {
		source         Iterator[T]
		width          int
		fifo           *ringBuffer[T]
		inputState     Checkpoint
		nextInputState Checkpoint
		index          int
		last           int
		primed         bool
		done           bool
	}
)

func (*WindowState) Tag() string { return `window` }

// NewWindowed yields width consecutive source items in a sliding window:
// [1, 2, 3, 4] with width 2 yields [1 2], [2 3], [3 4]. Internally it works
// in overlapping halves over a FIFO of size 2*width, which keeps checkpoints
// at a constant two fields regardless of position. When fewer than width
// items remain, no further windows are emitted.
//
// A panic will occur if width < 1.
func NewWindowed[T any](source Iterator[T], width int) Iterator[[]T] {
	if source == nil {
		panic(`infinistream: nil source iterator`)
	}
	if width < 1 {
		panic(`infinistream: window width must be at least 1`)
	}
	x := windowed[T]{source: source, width: width, fifo: newRingBuffer[T](ceilPow2(2 * width))}
	_ = x.SetState(nil)
	return &x
}

func (x *windowed[T]) Next() ([]T, error) {
	for {
		if x.done {
			return nil, io.EOF
		}
		if !x.primed {
			x.fifo.Reset()
			if err := x.fill(); err != nil {
				return nil, err
			}
			if x.fifo.Len() < x.width {
				x.done = true
				continue
			}
			if err := x.extend(); err != nil {
				return nil, err
			}
			x.primed = true
		}
		if x.index <= x.last {
			window := x.fifo.Window(x.index, x.width)
			x.index++
			return window, nil
		}
		// drop the half we just served; its end state becomes the new origin
		x.fifo.Discard(x.last + 1)
		x.inputState = x.nextInputState
		x.index = 0
		if x.fifo.Len() < x.width {
			x.done = true
			continue
		}
		if err := x.extend(); err != nil {
			return nil, err
		}
	}
}

func (x *windowed[T]) GetState() Checkpoint {
	return &WindowState{
		Input: Nested{x.inputState},
		Index: x.index,
	}
}

func (x *windowed[T]) SetState(checkpoint Checkpoint) error {
	x.primed = false
	x.done = false
	x.inputState = nil
	x.nextInputState = nil
	x.index = 0
	x.last = 0
	if checkpoint != nil {
		state, err := stateAs[*WindowState](checkpoint)
		if err != nil {
			return err
		}
		if state.Index < 0 || state.Index > x.width {
			return errors.New(`infinistream: window checkpoint index out of range`)
		}
		x.inputState = state.Input.Checkpoint
		x.index = state.Index
	}
	return x.source.SetState(x.inputState)
}

// fill appends up to width items to the FIFO, stopping early at end of
// stream.
func (x *windowed[T]) fill() error {
	for i := 0; i < x.width; i++ {
		item, err := x.source.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		x.fifo.Push(item)
	}
	return nil
}

// extend captures the state for the next half, appends another width items,
// and bounds the serveable positions of the current half.
func (x *windowed[T]) extend() error {
	x.nextInputState = x.source.GetState()
	if err := x.fill(); err != nil {
		return err
	}
	x.last = min(x.width-1, x.fifo.Len()-x.width)
	return nil
}

func ceilPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
