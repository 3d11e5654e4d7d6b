package infinistream

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/exp/rand"
)

func TestRecurrent_runningSum(t *testing.T) {
	it := NewRecurrent(FromSlice([]int{1, 2, 3, 4}), 0, func(sum, item int) (int, int) {
		sum += item
		return sum, sum
	})
	if diff := cmp.Diff([]int{1, 3, 6, 10}, drain(t, it)); diff != `` {
		t.Errorf(`unexpected items (-want +got):%s`, diff)
	}
}

func TestRecurrent_checkpointProperty(t *testing.T) {
	construct := func() Iterator[int] {
		return NewRecurrent(FromSlice([]int{1, 2, 3, 4, 5, 6}), 0, func(sum, item int) (int, int) {
			sum += item
			return sum, sum
		})
	}
	for _, k := range []int{0, 1, 3, 6} {
		checkpointProperty(t, construct, k, 4)
	}
}

func TestRecurrent_resetRestoresInitialState(t *testing.T) {
	it := NewRecurrent(FromSlice([]int{1, 1}), 10, func(sum, item int) (int, int) {
		sum += item
		return sum, sum
	})
	_ = drain(t, it)
	if err := it.SetState(nil); err != nil {
		t.Fatal(err)
	}
	if got, err := it.Next(); err != nil || got != 11 {
		t.Fatalf(`expected 11 after reset, got %v, %v`, got, err)
	}
}

func TestSamplingRandomMap_deterministic(t *testing.T) {
	items := shuffleItems(10)
	construct := func() Iterator[string] {
		return NewSamplingRandomMap(FromSlice(items), 42, func(r *rand.Rand, item string) string {
			if r.Float64() < 0.5 {
				return item
			}
			return item + `!`
		})
	}
	a := drain(t, construct())
	b := drain(t, construct())
	if diff := cmp.Diff(a, b); diff != `` {
		t.Errorf(`identical seeds diverged (-want +got):%s`, diff)
	}
	if diff := cmp.Diff(multiset(items), multiset(drain(t, NewMap(construct(), func(s string) string {
		if len(s) > 0 && s[len(s)-1] == '!' {
			return s[:len(s)-1]
		}
		return s
	})))); diff != `` {
		t.Errorf(`transform lost items (-want +got):%s`, diff)
	}
}

func TestSamplingRandomMap_checkpointProperty(t *testing.T) {
	items := shuffleItems(12)
	construct := func() Iterator[string] {
		return NewSamplingRandomMap(FromSlice(items), 7, func(r *rand.Rand, item string) string {
			// stamp each item with the generator's next draw
			return item + `:` + string(rune('a'+r.Intn(26)))
		})
	}
	for _, k := range []int{0, 1, 5, 11} {
		checkpointProperty(t, construct, k, 6)
	}
}
