// Package sequence hands out monotonically increasing identifiers per
// namespace. Values start at zero and are never reused; a value is consumed
// only when Next is called, so callers advance a sequence after every check
// that could still fail.
package sequence

import (
	"sort"
	"sync"
)

// Namespace names one independent sequence.
type Namespace string

// Table holds the current value of every namespace.
type Table struct {
	mu     sync.Mutex
	values map[Namespace]uint64
}

// New returns an empty table; every namespace starts at zero.
func New() *Table {
	return &Table{values: map[Namespace]uint64{}}
}

// Next returns the current value of ns and advances it.
func (t *Table) Next(ns Namespace) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	value := t.values[ns]
	t.values[ns] = value + 1
	return value
}

// Peek returns the value the next call to Next(ns) would hand out.
func (t *Table) Peek(ns Namespace) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.values[ns]
}

// Export returns a copy of every namespace value, keyed by name.
func (t *Table) Export() map[string]uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]uint64, len(t.values))
	for ns, value := range t.values {
		out[string(ns)] = value
	}
	return out
}

// Restore replaces the table contents with values.
func (t *Table) Restore(values map[string]uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values = make(map[Namespace]uint64, len(values))
	for name, value := range values {
		t.values[Namespace(name)] = value
	}
}

// Namespaces returns the namespaces that have been advanced or restored,
// sorted by name.
func (t *Table) Namespaces() []Namespace {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Namespace, 0, len(t.values))
	for ns := range t.values {
		out = append(out, ns)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
