// Package eventlog provides an in-memory append-only log that is safe for
// concurrent appends and reads.
package eventlog

import "sync"

// Log is an append-only sequence of entries.
type Log[T any] struct {
	mu      sync.RWMutex
	entries []T
}

// New creates an empty log.
func New[T any]() *Log[T] {
	return &Log[T]{}
}

// Append adds an entry and returns its zero-based position.
func (l *Log[T]) Append(entry T) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return len(l.entries) - 1
}

// Len returns the number of entries.
func (l *Log[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// At returns the entry at position i.
func (l *Log[T]) At(i int) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.entries) {
		var zero T
		return zero, false
	}
	return l.entries[i], true
}

// Entries returns a snapshot of all entries in append order.
func (l *Log[T]) Entries() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.entries))
	copy(out, l.entries)
	return out
}

// Tail returns up to n of the most recent entries, oldest first.
func (l *Log[T]) Tail(n int) []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 {
		return []T{}
	}
	start := len(l.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]T, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}
