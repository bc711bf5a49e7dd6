// Package ledger provides an append-only, position-indexed record log.
//
// Appends serialize on an internal mutex. Every record lives in its own slot
// behind an atomic pointer, and the slot slice itself is published
// atomically, so readers never take a lock and never observe a record that is
// only partly written. Records are stored by value and cloned on the way in
// and out, so callers cannot reach stored state through shared slices.
//
// The ledger does not order concurrent updates to the same slot; callers that
// need read-modify-write semantics serialize per index themselves.
package ledger

import (
	"sync"
	"sync/atomic"
)

// CloneFunc returns an independent copy of a record.
type CloneFunc[T any] func(T) T

// Ledger is an append-only record log indexed from zero.
type Ledger[T any] struct {
	mu    sync.Mutex
	slots atomic.Pointer[[]*slot[T]]
	clone CloneFunc[T]
}

type slot[T any] struct {
	record atomic.Pointer[T]
}

// New constructs an empty ledger. A nil clone copies records by assignment.
func New[T any](clone CloneFunc[T]) *Ledger[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	l := &Ledger[T]{clone: clone}
	empty := make([]*slot[T], 0)
	l.slots.Store(&empty)
	return l
}

func (l *Ledger[T]) load() []*slot[T] {
	return *l.slots.Load()
}

// Append calls build with the index the record will occupy and stores its
// result. build runs while the append lock is held and must not block or
// fail; all validation belongs before Append.
func (l *Ledger[T]) Append(build func(index uint64) T) T {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.load()
	record := l.clone(build(uint64(len(current))))
	s := &slot[T]{}
	s.record.Store(&record)

	// Readers holding the previous header never look past their length, so
	// appending into spare capacity is safe.
	next := append(current, s)
	l.slots.Store(&next)
	return l.clone(record)
}

// Len returns the number of published records.
func (l *Ledger[T]) Len() int {
	return len(l.load())
}

// Get returns a copy of the record at index.
func (l *Ledger[T]) Get(index uint64) (T, bool) {
	var zero T
	slots := l.load()
	if index >= uint64(len(slots)) {
		return zero, false
	}
	return l.clone(*slots[index].record.Load()), true
}

// All returns copies of every record in append order.
func (l *Ledger[T]) All() []T {
	slots := l.load()
	out := make([]T, 0, len(slots))
	for _, s := range slots {
		out = append(out, l.clone(*s.record.Load()))
	}
	return out
}

// Select returns copies of the records keep accepts, in append order.
func (l *Ledger[T]) Select(keep func(T) bool) []T {
	slots := l.load()
	out := make([]T, 0)
	for _, s := range slots {
		record := *s.record.Load()
		if keep(record) {
			out = append(out, l.clone(record))
		}
	}
	return out
}

// Find returns a copy of the first record keep accepts.
func (l *Ledger[T]) Find(keep func(T) bool) (T, bool) {
	var zero T
	for _, s := range l.load() {
		record := *s.record.Load()
		if keep(record) {
			return l.clone(record), true
		}
	}
	return zero, false
}

// FindLast returns a copy of the most recently appended record keep accepts.
func (l *Ledger[T]) FindLast(keep func(T) bool) (T, bool) {
	var zero T
	slots := l.load()
	for i := len(slots) - 1; i >= 0; i-- {
		record := *slots[i].record.Load()
		if keep(record) {
			return l.clone(record), true
		}
	}
	return zero, false
}

// Update replaces the record at index with the result of fn. When fn fails
// the stored record is left untouched and the error is returned.
func (l *Ledger[T]) Update(index uint64, fn func(T) (T, error)) (T, bool, error) {
	var zero T
	slots := l.load()
	if index >= uint64(len(slots)) {
		return zero, false, nil
	}
	target := slots[index]
	updated, err := fn(l.clone(*target.record.Load()))
	if err != nil {
		return zero, true, err
	}
	stored := l.clone(updated)
	target.record.Store(&stored)
	return l.clone(stored), true, nil
}

// Reset replaces the whole log with records.
func (l *Ledger[T]) Reset(records []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]*slot[T], 0, len(records))
	for _, record := range records {
		stored := l.clone(record)
		s := &slot[T]{}
		s.record.Store(&stored)
		next = append(next, s)
	}
	l.slots.Store(&next)
}
