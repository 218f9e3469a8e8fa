package utils

import "sync"

// Ring keeps the last items pushed to it. It is safe for concurrent use.
type Ring[T any] struct {
	mu    sync.Mutex
	items []T
	next  int
	full  bool
}

// NewRing creates a ring holding at most size items. size is at least 1.
func NewRing[T any](size int) *Ring[T] {
	if size < 1 {
		size = 1
	}
	return &Ring[T]{items: make([]T, size)}
}

// Push stores item and reports whether the oldest item was overwritten.
func (r *Ring[T]) Push(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	overwrote := r.full
	r.items[r.next] = item
	r.next = (r.next + 1) % len(r.items)
	if r.next == 0 {
		r.full = true
	}
	return overwrote
}

// Len is the number of items held.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.len()
}

func (r *Ring[T]) len() int {
	if r.full {
		return len(r.items)
	}
	return r.next
}

// at returns the i-th newest item, 0 being the newest.
func (r *Ring[T]) at(i int) T {
	return r.items[(r.next-1-i+len(r.items))%len(r.items)]
}

// Newest returns the held items, newest first.
func (r *Ring[T]) Newest() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, r.len())
	for i := range out {
		out[i] = r.at(i)
	}
	return out
}

// Find returns the newest item matching fn.
func (r *Ring[T]) Find(fn func(T) bool) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < r.len(); i++ {
		if item := r.at(i); fn(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}
