package ledger

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

type entry struct {
	ID   uint64
	Tags []string
}

func cloneEntry(e entry) entry {
	e.Tags = append([]string(nil), e.Tags...)
	return e
}

func TestAppendAssignsPositionalIndex(t *testing.T) {
	l := New[entry](cloneEntry)

	first := l.Append(func(index uint64) entry { return entry{ID: index, Tags: []string{"a"}} })
	second := l.Append(func(index uint64) entry { return entry{ID: index} })

	if first.ID != 0 || second.ID != 1 {
		t.Fatalf("expected indexes 0 and 1, got %d and %d", first.ID, second.ID)
	}
	if l.Len() != 2 {
		t.Fatalf("expected len 2, got %d", l.Len())
	}
	if _, ok := l.Get(2); ok {
		t.Fatalf("expected out of range get to miss")
	}
}

func TestRecordsAreClonedInAndOut(t *testing.T) {
	l := New[entry](cloneEntry)
	tags := []string{"kw1"}
	l.Append(func(index uint64) entry { return entry{ID: index, Tags: tags} })

	tags[0] = "mutated"
	got, _ := l.Get(0)
	if got.Tags[0] != "kw1" {
		t.Fatalf("expected stored record isolated from input slice, got %v", got.Tags)
	}

	got.Tags[0] = "changed"
	again := l.All()
	if again[0].Tags[0] != "kw1" {
		t.Fatalf("expected stored record isolated from returned copy, got %v", again[0].Tags)
	}
}

func TestUpdateLeavesRecordOnError(t *testing.T) {
	l := New[entry](cloneEntry)
	l.Append(func(index uint64) entry { return entry{ID: index, Tags: []string{"x"}} })

	boom := errors.New("boom")
	_, found, err := l.Update(0, func(e entry) (entry, error) {
		e.Tags = []string{"y"}
		return e, boom
	})
	if !found || !errors.Is(err, boom) {
		t.Fatalf("expected found with boom, got found=%v err=%v", found, err)
	}
	got, _ := l.Get(0)
	if got.Tags[0] != "x" {
		t.Fatalf("expected record untouched, got %v", got.Tags)
	}

	updated, found, err := l.Update(0, func(e entry) (entry, error) {
		e.Tags = append(e.Tags, "z")
		return e, nil
	})
	if err != nil || !found || len(updated.Tags) != 2 {
		t.Fatalf("unexpected update result %+v found=%v err=%v", updated, found, err)
	}

	if _, found, _ := l.Update(5, func(e entry) (entry, error) { return e, nil }); found {
		t.Fatalf("expected missing index to report not found")
	}
}

func TestSelectAndReset(t *testing.T) {
	l := New[entry](nil)
	for i := 0; i < 5; i++ {
		l.Append(func(index uint64) entry { return entry{ID: index} })
	}
	even := l.Select(func(e entry) bool { return e.ID%2 == 0 })
	if len(even) != 3 || even[2].ID != 4 {
		t.Fatalf("unexpected selection: %+v", even)
	}

	l.Reset([]entry{{ID: 0}, {ID: 1}})
	if l.Len() != 2 {
		t.Fatalf("expected reset to replace contents, got len %d", l.Len())
	}
	next := l.Append(func(index uint64) entry { return entry{ID: index} })
	if next.ID != 2 {
		t.Fatalf("expected append after reset at index 2, got %d", next.ID)
	}
}

func TestFindAndFindLast(t *testing.T) {
	l := New[entry](cloneEntry)
	for i := 0; i < 4; i++ {
		tag := "odd"
		if i%2 == 0 {
			tag = "even"
		}
		l.Append(func(index uint64) entry { return entry{ID: index, Tags: []string{tag}} })
	}
	isEven := func(e entry) bool { return e.Tags[0] == "even" }

	first, ok := l.Find(isEven)
	if !ok || first.ID != 0 {
		t.Fatalf("expected first even at 0, got %+v ok=%v", first, ok)
	}
	last, ok := l.FindLast(isEven)
	if !ok || last.ID != 2 {
		t.Fatalf("expected last even at 2, got %+v ok=%v", last, ok)
	}
	if _, ok := l.Find(func(entry) bool { return false }); ok {
		t.Fatalf("expected no match")
	}
	if _, ok := l.FindLast(func(entry) bool { return false }); ok {
		t.Fatalf("expected no match")
	}
}

func TestConcurrentAppendsAndReads(t *testing.T) {
	l := New[entry](cloneEntry)
	const writers = 50

	var wg sync.WaitGroup
	wg.Add(writers * 2)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			l.Append(func(index uint64) entry {
				return entry{ID: index, Tags: []string{fmt.Sprintf("w%d", i)}}
			})
		}(i)
		go func() {
			defer wg.Done()
			for idx, e := range l.All() {
				if e.ID != uint64(idx) {
					t.Errorf("record at %d carries id %d", idx, e.ID)
				}
			}
		}()
	}
	wg.Wait()

	if l.Len() != writers {
		t.Fatalf("expected %d records, got %d", writers, l.Len())
	}
}
