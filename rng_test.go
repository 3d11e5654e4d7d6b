package infinistream

import (
	"testing"
)

func TestGenerator_deterministic(t *testing.T) {
	a, b := newGenerator(42), newGenerator(42)
	for i := 0; i < 100; i++ {
		if av, bv := a.Intn(1000), b.Intn(1000); av != bv {
			t.Fatalf(`diverged at %d: %d != %d`, i, av, bv)
		}
	}
}

func TestGenerator_stateRoundTrip(t *testing.T) {
	a := newGenerator(7)
	for i := 0; i < 13; i++ {
		a.Uint64()
	}
	state := a.state()
	want := make([]uint64, 10)
	for i := range want {
		want[i] = a.Uint64()
	}
	b := newGenerator(0)
	if err := b.restore(state); err != nil {
		t.Fatal(err)
	}
	for i, w := range want {
		if got := b.Uint64(); got != w {
			t.Fatalf(`diverged at %d: %d != %d`, i, got, w)
		}
	}
}

func TestGenerator_restoreGarbage(t *testing.T) {
	if err := newGenerator(0).restore([]byte(`bogus`)); err == nil {
		t.Fatal(`expected an error`)
	}
}

func TestNewRandom_range(t *testing.T) {
	it := NewRandom(1)
	for i := 0; i < 1000; i++ {
		v, err := it.Next()
		if err != nil {
			t.Fatal(err)
		}
		if v < 0 || v >= 1 {
			t.Fatalf(`value out of range: %v`, v)
		}
	}
}

func TestNewRandom_checkpointProperty(t *testing.T) {
	for _, k := range []int{0, 1, 17} {
		checkpointProperty(t, func() Iterator[float64] { return NewRandom(3) }, k, 25)
	}
}
