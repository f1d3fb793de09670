package dupstat

import (
	"fmt"
	"slices"
	"sync"
	"testing"
)

func TestIndexFinalize(t *testing.T) {
	x := NewIndex()

	sigA := Signature{1}
	sigB := Signature{2}
	sigC := Signature{3}

	x.Add(sigA, FileRecord{Path: "z/a2", Size: 10})
	x.Add(sigA, FileRecord{Path: "a1", Size: 10})
	x.Add(sigB, FileRecord{Path: "unique", Size: 99})
	x.Add(sigC, FileRecord{Path: "c1", Size: 50})
	x.Add(sigC, FileRecord{Path: "c2", Size: 50})
	x.Add(sigC, FileRecord{Path: "c3", Size: 50})
	x.Count(FileRecord{Path: "probed", Size: 7})

	groups := x.Finalize()

	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2: %+v", len(groups), groups)
	}

	// Ordered by wasted bytes: sigC wastes 100, sigA wastes 10.
	if groups[0].Signature != sigC || groups[1].Signature != sigA {
		t.Errorf("group order = %s, %s", groups[0].Signature, groups[1].Signature)
	}

	if want := []string{"a1", "z/a2"}; !slices.Equal(groups[1].Members, want) {
		t.Errorf("members = %v, want %v", groups[1].Members, want)
	}

	for _, g := range groups {
		if len(g.Members) < 2 {
			t.Errorf("group %s survived with %d members", g.Signature, len(g.Members))
		}
	}

	if got, want := x.TotalBytes(), uint64(10+10+99+50*3+7); got != want {
		t.Errorf("TotalBytes = %d, want %d", got, want)
	}

	if got, want := x.Files(), uint64(7); got != want {
		t.Errorf("Files = %d, want %d", got, want)
	}

	if got := x.lookup(sigB); len(got) != 0 {
		t.Errorf("lookup(unique) = %v, want none", got)
	}

	if got := x.lookup(sigA); len(got) != 1 || got[0].Size != 10 {
		t.Errorf("lookup(sigA) = %v", got)
	}

	if again := x.Finalize(); len(again) != len(groups) {
		t.Errorf("second Finalize returned %d groups", len(again))
	}
}

func TestIndexEmpty(t *testing.T) {
	groups := NewIndex().Finalize()

	if groups == nil || len(groups) != 0 {
		t.Errorf("Finalize on empty index = %#v, want empty non-nil slice", groups)
	}
}

func TestIndexAddAfterFinalizePanics(t *testing.T) {
	x := NewIndex()
	x.Finalize()

	defer func() {
		if recover() == nil {
			t.Error("Add after Finalize did not panic")
		}
	}()

	x.Add(Signature{}, FileRecord{Path: "late"})
}

func TestIndexConcurrentAdd(t *testing.T) {
	x := NewIndex()

	var wg sync.WaitGroup

	for w := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 100 {
				x.Add(Signature{byte(i % 10)}, FileRecord{Path: fmt.Sprintf("w%d/f%d", w, i), Size: 1})
			}
		}()
	}

	wg.Wait()

	groups := x.Finalize()
	if len(groups) != 10 {
		t.Fatalf("got %d groups, want 10", len(groups))
	}

	for _, g := range groups {
		if len(g.Members) != 80 {
			t.Errorf("group %s has %d members, want 80", g.Signature, len(g.Members))
		}
	}

	if x.TotalBytes() != 800 {
		t.Errorf("TotalBytes = %d, want 800", x.TotalBytes())
	}
}
