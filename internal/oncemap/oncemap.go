// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package oncemap provides a concurrent map of write-once cells.
//
// Each key moves through three states: unregistered, registered (exactly one
// caller has claimed the duty to produce the value) and done (the value is
// stored and every waiter is released). A done cell never changes again.
package oncemap

import (
	"context"
	"fmt"
	"sync"
)

type cell[V any] struct {
	claimed bool
	done    chan struct{}
	val     V
}

// Map is a map of write-once cells. The zero value is not usable; use New.
type Map[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]*cell[V]
}

// New returns an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{items: make(map[K]*cell[V])}
}

// cell returns the cell for k, creating it unclaimed if needed. m.mu must be
// held.
func (m *Map[K, V]) cell(k K) *cell[V] {
	c, has := m.items[k]
	if !has {
		c = &cell[V]{done: make(chan struct{})}
		m.items[k] = c
	}
	return c
}

// Register claims k. It returns true iff this is the first call to claim k;
// the caller then owes a call to Done.
func (m *Map[K, V]) Register(k K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.cell(k)
	if c.claimed {
		return false
	}
	c.claimed = true
	return true
}

// Done stores v for k and releases every waiter. Calling Done twice for the
// same key is a programming error and panics.
func (m *Map[K, V]) Done(k K, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.cell(k)
	select {
	case <-c.done:
		panic(fmt.Sprintf("oncemap: value for %v stored twice", k))
	default:
	}
	c.claimed = true
	c.val = v
	close(c.done)
}

// Wait blocks until a value is stored for k, or ctx is done. Waiting on a
// key nobody registered creates its cell without claiming it, so a later
// Register still succeeds.
func (m *Map[K, V]) Wait(ctx context.Context, k K) (V, error) {
	m.mu.Lock()
	c := m.cell(k)
	m.mu.Unlock()

	select {
	case <-c.done:
		return c.val, nil
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Get returns the value stored for k without blocking.
func (m *Map[K, V]) Get(k K) (V, bool) {
	m.mu.Lock()
	c, has := m.items[k]
	m.mu.Unlock()

	var zero V
	if !has {
		return zero, false
	}
	select {
	case <-c.done:
		return c.val, true
	default:
		return zero, false
	}
}

// Registered reports whether k has been claimed.
func (m *Map[K, V]) Registered(k K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, has := m.items[k]
	return has && c.claimed
}

// Keys lists every key with a stored value, in no particular order.
func (m *Map[K, V]) Keys() []K {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []K
	for k, c := range m.items {
		select {
		case <-c.done:
			keys = append(keys, k)
		default:
		}
	}
	return keys
}
