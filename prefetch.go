package infinistream

import (
	"errors"
	"io"

	"github.com/joeycumines/logiface"
)

type (
	// PrefetchConfig models optional configuration, for NewPrefetch.
	PrefetchConfig struct {
		// Capacity is the size of the queue between the producer and the
		// consumer, and the window length for checkpoint synthesis.
		// **Defaults to 1000, if 0, or PrefetchConfig is nil.**
		Capacity int

		// Logger, if non-nil, receives producer lifecycle events.
		Logger *logiface.Logger[logiface.Event]
	}

	// PrefetchState is the checkpoint of the prefetch stage: the last source
	// checkpoint relayed by the producer, plus the number of items consumed
	// since. Restart restores the source and discards Offset items before
	// production resumes.
	PrefetchState struct {
		Input  Nested `json:"input"`
		Offset int    `json:"offset"`
	}

	// Prefetch pre-drains its source on a background goroutine to smooth out
	// I/O latency, see NewPrefetch. Instances must be initialized using the
	// NewPrefetch factory.
	Prefetch[T any] struct {
		source      Iterator[T]
		capacity    int
		logger      *logiface.Logger[logiface.Event]
		queue       chan prefetchMessage[T]
		stop        chan struct{}
		done        chan struct{}
		sourceState Checkpoint
		offset      int
		err         error
	}

	// prefetchMessage is what flows over the queue. A non-nil state marks the
	// end of a capacity-length window and is the source checkpoint from after
	// item was retrieved. A non-nil err (including io.EOF) is terminal and
	// enqueued exactly once.
	prefetchMessage[T any] struct {
		item  T
		state Checkpoint
		err   error
	}
)

func (*PrefetchState) Tag() string { return `prefetch` }

// NewPrefetch wraps the source with a background producer goroutine feeding a
// bounded FIFO queue, so that downstream Next calls rarely block on upstream
// I/O. The consumer observes items in the exact order the producer pulled
// them. Source errors, including end of stream, are relayed to the consumer
// rather than lost, and re-returned on every subsequent Next.
//
// The source must not be used by anything else once handed to Prefetch - the
// producer goroutine owns it between SetState calls. Call Close (or SetState)
// to stop the producer; it also stops, without external involvement, once the
// source is exhausted or the owning process exits.
func NewPrefetch[T any](source Iterator[T], config *PrefetchConfig) *Prefetch[T] {
	if source == nil {
		panic(`infinistream: nil source iterator`)
	}
	x := Prefetch[T]{source: source, capacity: 1000}
	if config != nil {
		if config.Capacity != 0 {
			x.capacity = config.Capacity
		}
		x.logger = config.Logger
	}
	if x.capacity < 1 {
		panic(`infinistream: prefetch capacity must be at least 1`)
	}
	_ = x.SetState(nil)
	return &x
}

func (x *Prefetch[T]) Next() (T, error) {
	var zero T
	if x.err != nil {
		return zero, x.err
	}
	msg := <-x.queue
	if msg.err != nil {
		x.err = msg.err
		return zero, msg.err
	}
	if msg.state != nil {
		// a source state arrives exactly at the end of each window
		if x.offset != x.capacity-1 {
			panic(`infinistream: prefetch offset out of sync`)
		}
		x.sourceState = msg.state
		x.offset = 0
	} else {
		x.offset++
		if x.offset >= x.capacity {
			panic(`infinistream: prefetch offset out of sync`)
		}
	}
	return msg.item, nil
}

func (x *Prefetch[T]) GetState() Checkpoint {
	return &PrefetchState{
		Input:  Nested{x.sourceState},
		Offset: x.offset,
	}
}

// SetState stops and joins any running producer, restores the source, resets
// the queue, and starts a new producer, which discards the checkpointed
// offset from the source before producing.
func (x *Prefetch[T]) SetState(checkpoint Checkpoint) error {
	x.join()
	x.sourceState = nil
	x.offset = 0
	if checkpoint != nil {
		state, err := stateAs[*PrefetchState](checkpoint)
		if err != nil {
			return err
		}
		x.sourceState = state.Input.Checkpoint
		x.offset = state.Offset
	}
	if err := x.source.SetState(x.sourceState); err != nil {
		return err
	}
	x.err = nil
	x.queue = make(chan prefetchMessage[T], x.capacity)
	x.stop = make(chan struct{})
	x.done = make(chan struct{})
	go x.produce(x.offset, x.queue, x.stop, x.done)
	return nil
}

// Close stops the background producer and waits for it to exit. The iterator
// must not be used after Close, other than calling SetState to revive it.
func (x *Prefetch[T]) Close() error {
	x.join()
	return nil
}

func (x *Prefetch[T]) join() {
	if x.done == nil {
		return
	}
	close(x.stop)
	<-x.done
	x.done = nil
}

func (x *Prefetch[T]) produce(skip int, queue chan<- prefetchMessage[T], stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	x.logger.Debug().
		Int(`skip`, skip).
		Log(`prefetch producer started`)
	defer x.logger.Debug().Log(`prefetch producer stopped`)

	send := func(msg prefetchMessage[T]) bool {
		// the bounded select keeps a full queue from deadlocking teardown
		select {
		case queue <- msg:
			return true
		case <-stop:
			return false
		}
	}

	if err := discard[T](x.source, skip); err != nil {
		x.logger.Err().
			Err(err).
			Log(`prefetch skip to checkpoint failed`)
		send(prefetchMessage[T]{err: err})
		return
	}

	offset := skip
	for {
		select {
		case <-stop:
			return
		default:
		}
		item, err := x.source.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				x.logger.Err().
					Err(err).
					Log(`prefetch source failed`)
			}
			send(prefetchMessage[T]{err: err})
			return
		}
		var state Checkpoint
		if offset == x.capacity-1 {
			state = x.source.GetState()
		}
		offset = (offset + 1) % x.capacity
		if !send(prefetchMessage[T]{item: item, state: state}) {
			return
		}
	}
}
