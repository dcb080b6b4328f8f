// Package syncx provides extended synchronization primitives
package syncx

import "sync"

// RWGuard wraps RWMutex with scoped lock helpers.
type RWGuard[T comparable] struct {
	mu    sync.RWMutex
	value T
}

// NewGuard creates a guarded value.
func NewGuard[T comparable](initial T) *RWGuard[T] {
	return &RWGuard[T]{value: initial}
}

// Get returns a copy of the value.
func (g *RWGuard[T]) Get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// Set replaces the value.
func (g *RWGuard[T]) Set(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
}

// Swap replaces and returns the old value.
func (g *RWGuard[T]) Swap(v T) T {
	g.mu.Lock()
	defer g.mu.Unlock()
	old := g.value
	g.value = v
	return old
}

// CompareAndSwap sets next only when the current value equals want.
func (g *RWGuard[T]) CompareAndSwap(want, next T) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.value != want {
		return false
	}
	g.value = next
	return true
}

// Transition applies fn under the write lock; fn returns the next value and
// whether to commit it.
func (g *RWGuard[T]) Transition(fn func(cur T) (T, bool)) (T, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	next, ok := fn(g.value)
	if ok {
		g.value = next
	}
	return g.value, ok
}
