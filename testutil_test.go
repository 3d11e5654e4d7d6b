package infinistream

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// take consumes exactly n items, failing the test on any error.
func take[T any](t *testing.T, it Iterator[T], n int) []T {
	t.Helper()
	out := make([]T, 0, n)
	for len(out) < n {
		item, err := it.Next()
		if err != nil {
			t.Fatalf(`next %d: %v`, len(out), err)
		}
		out = append(out, item)
	}
	return out
}

// takeUpTo consumes up to n items, stopping at the first error.
func takeUpTo[T any](it Iterator[T], n int) ([]T, error) {
	out := []T{}
	for len(out) < n {
		item, err := it.Next()
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}

// drain consumes the remainder of a finite stream.
func drain[T any](t *testing.T, it Iterator[T]) []T {
	t.Helper()
	var out []T
	for {
		item, err := it.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf(`next %d: %v`, len(out), err)
		}
		out = append(out, item)
	}
}

// checkpointProperty asserts the universal checkpoint property: consume k
// items from a fresh pipeline and snapshot; a second fresh pipeline restored
// from the snapshot must produce the same next m items (and end at the same
// point, if it ends).
func checkpointProperty[T any](t *testing.T, construct func() Iterator[T], k, m int) {
	t.Helper()
	a := construct()
	_ = take(t, a, k)
	state := a.GetState()

	b := construct()
	if err := b.SetState(state); err != nil {
		t.Fatalf(`set state after %d items: %v`, k, err)
	}

	wantItems, wantErr := takeUpTo(a, m)
	gotItems, gotErr := takeUpTo(b, m)
	if !errors.Is(gotErr, wantErr) && gotErr != wantErr {
		t.Fatalf(`restored stream error mismatch after %d items: %v != %v`, k, gotErr, wantErr)
	}
	if diff := cmp.Diff(wantItems, gotItems); diff != `` {
		t.Errorf(`restored stream diverged after %d items (-want +got):%s`, k, diff)
	}
}

// multiset is a tiny convenience for set-style comparisons.
func multiset(items []string) map[string]int {
	out := make(map[string]int, len(items))
	for _, item := range items {
		out[item]++
	}
	return out
}
