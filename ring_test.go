package infinistream

import (
	"testing"
)

func TestRingBuffer_fifo(t *testing.T) {
	ring := newRingBuffer[int](4)
	for i := 1; i <= 4; i++ {
		ring.Push(i)
	}
	if ring.Len() != 4 || ring.Cap() != 4 {
		t.Fatalf(`unexpected len/cap: %d/%d`, ring.Len(), ring.Cap())
	}
	ring.Discard(2)
	ring.Push(5)
	ring.Push(6)
	want := []int{3, 4, 5, 6}
	got := ring.Window(0, 4)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf(`unexpected contents: %v`, got)
		}
	}
}

func TestRingBuffer_windowWraps(t *testing.T) {
	ring := newRingBuffer[int](4)
	ring.Push(1)
	ring.Push(2)
	ring.Push(3)
	ring.Discard(3)
	ring.Push(4)
	ring.Push(5)
	ring.Push(6)
	got := ring.Window(1, 2)
	if got[0] != 5 || got[1] != 6 {
		t.Fatalf(`unexpected window: %v`, got)
	}
}

func TestRingBuffer_reset(t *testing.T) {
	ring := newRingBuffer[int](2)
	ring.Push(1)
	ring.Reset()
	if ring.Len() != 0 {
		t.Fatalf(`unexpected len: %d`, ring.Len())
	}
	ring.Push(2)
	if got := ring.Window(0, 1); got[0] != 2 {
		t.Fatalf(`unexpected contents: %v`, got)
	}
}

func TestRingBuffer_panics(t *testing.T) {
	for _, tc := range [...]struct {
		name string
		do   func()
	}{
		{`size not power of 2`, func() { newRingBuffer[int](3) }},
		{`push full`, func() {
			ring := newRingBuffer[int](2)
			ring.Push(1)
			ring.Push(2)
			ring.Push(3)
		}},
		{`discard too many`, func() { newRingBuffer[int](2).Discard(1) }},
		{`window out of range`, func() { newRingBuffer[int](2).Window(0, 1) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error(`expected a panic`)
				}
			}()
			tc.do()
		})
	}
}
