package sequence

import (
	"sync"
	"testing"
)

func TestNextStartsAtZeroPerNamespace(t *testing.T) {
	table := New()

	if got := table.Next("msr"); got != 0 {
		t.Fatalf("expected first msr value 0, got %d", got)
	}
	if got := table.Next("msr"); got != 1 {
		t.Fatalf("expected second msr value 1, got %d", got)
	}
	if got := table.Next("instance"); got != 0 {
		t.Fatalf("expected independent instance sequence, got %d", got)
	}
	if got := table.Peek("msr"); got != 2 {
		t.Fatalf("expected peek 2, got %d", got)
	}
	if got := table.Peek("specification"); got != 0 {
		t.Fatalf("expected untouched namespace to peek 0, got %d", got)
	}
}

func TestExportRestoreRoundTrip(t *testing.T) {
	table := New()
	table.Next("msr")
	table.Next("msr")
	table.Next("instance")

	exported := table.Export()
	exported["msr"] = 99
	if table.Peek("msr") != 2 {
		t.Fatalf("expected export to be a copy")
	}

	restored := New()
	restored.Restore(table.Export())
	if restored.Peek("msr") != 2 || restored.Peek("instance") != 1 {
		t.Fatalf("unexpected restored values: %v", restored.Export())
	}
	names := restored.Namespaces()
	if len(names) != 2 || names[0] != "instance" || names[1] != "msr" {
		t.Fatalf("unexpected namespaces: %v", names)
	}
}

func TestNextConcurrentValuesAreUnique(t *testing.T) {
	table := New()
	const workers = 64
	values := make(chan uint64, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			values <- table.Next("instance")
		}()
	}
	wg.Wait()
	close(values)

	seen := map[uint64]bool{}
	for value := range values {
		if seen[value] {
			t.Fatalf("value %d handed out twice", value)
		}
		seen[value] = true
	}
	if len(seen) != workers || table.Peek("instance") != workers {
		t.Fatalf("expected %d unique values, got %d (peek %d)", workers, len(seen), table.Peek("instance"))
	}
}
