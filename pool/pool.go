// Package pool provides a generic, mutex-guarded free-list for short-lived
// objects such as projectiles.
package pool

import (
	"fmt"
	"sync"
)

// Option configures a Pool.
type Option[T any] func(*Pool[T])

// WithReset sets a hook run on every released item before it is returned
// to the free-list.
func WithReset[T any](reset func(T)) Option[T] {
	return func(p *Pool[T]) { p.reset = reset }
}

// WithPrealloc sizes the free-list capacity up front. Items are still
// created lazily.
func WithPrealloc[T any](n int) Option[T] {
	return func(p *Pool[T]) {
		if n > 0 {
			p.free = make([]T, 0, n)
		}
	}
}

// Stats is a point-in-time view of pool counters.
type Stats struct {
	Created  int // items built by the factory
	Reused   int // acquires served from the free-list
	Released int
	Free     int // items currently on the free-list
}

// Pool hands out recycled items when available and builds new ones
// otherwise. It never bounds its size. Callers must not use an item after
// releasing it.
type Pool[T any] struct {
	mu      sync.Mutex
	factory func() (T, error)
	reset   func(T)
	free    []T

	created  int
	reused   int
	released int
}

// New creates a pool around factory.
func New[T any](factory func() (T, error), opts ...Option[T]) *Pool[T] {
	p := &Pool[T]{factory: factory}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire returns a free item, or builds one when the free-list is empty.
// Factory errors are returned unchanged in meaning and nothing is retained.
func (p *Pool[T]) Acquire() (T, error) {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		item := p.free[n-1]
		var zero T
		p.free[n-1] = zero
		p.free = p.free[:n-1]
		p.reused++
		p.mu.Unlock()
		return item, nil
	}
	p.mu.Unlock()

	// Build outside the lock so a slow factory does not serialise releases.
	item, err := p.factory()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("pool factory: %w", err)
	}

	p.mu.Lock()
	p.created++
	p.mu.Unlock()
	return item, nil
}

// Release resets item and returns it to the free-list.
func (p *Pool[T]) Release(item T) {
	if p.reset != nil {
		p.reset(item)
	}
	p.mu.Lock()
	p.free = append(p.free, item)
	p.released++
	p.mu.Unlock()
}

// Stats returns the current counters.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Created:  p.created,
		Reused:   p.reused,
		Released: p.released,
		Free:     len(p.free),
	}
}
