// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package registry

import (
	"context"
	"sync"

	"github.com/DelevoXDG/scarb/core"
	"github.com/armon/go-radix"
	"github.com/pkg/errors"
)

// registryTrie is a typed wrapper around a radix tree of registries.
type registryTrie struct {
	t *radix.Tree
}

func newRegistryTrie() registryTrie {
	return registryTrie{
		t: radix.New(),
	}
}

// Insert is used to add a newentry or update an existing entry. Returns if updated.
func (t registryTrie) Insert(s string, v core.Registry) (core.Registry, bool) {
	if v2, had := t.t.Insert(s, v); had {
		return v2.(core.Registry), had
	}
	return nil, false
}

// LongestPrefix is like Get, but instead of an exact match, it will return the
// longest prefix match.
func (t registryTrie) LongestPrefix(s string) (string, core.Registry, bool) {
	if p, v, has := t.t.LongestPrefix(s); has {
		return p, v.(core.Registry), has
	}
	return "", nil, false
}

// Len is used to return the number of elements in the tree
func (t registryTrie) Len() int {
	return t.t.Len()
}

// ToMap is used to walk the tree and convert it to a map.
func (t registryTrie) ToMap() map[string]core.Registry {
	m := make(map[string]core.Registry)
	t.t.Walk(func(s string, v interface{}) bool {
		m[s] = v.(core.Registry)
		return false
	})

	return m
}

// Dispatcher routes each query to the registry mounted on the longest prefix
// of the dependency's source string, e.g. "git+https://github.com/" or
// "registry+https://scarbs.xyz/".
type Dispatcher struct {
	mu       sync.RWMutex
	trie     registryTrie
	fallback core.Registry
}

// NewDispatcher returns a Dispatcher with nothing mounted. fallback, if not
// nil, answers queries no mount matches.
func NewDispatcher(fallback core.Registry) *Dispatcher {
	return &Dispatcher{
		trie:     newRegistryTrie(),
		fallback: fallback,
	}
}

// Mount routes sources starting with prefix to r, replacing any registry
// mounted on the same prefix.
func (d *Dispatcher) Mount(prefix string, r core.Registry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.trie.Insert(prefix, r)
}

// Mounts returns the mounted prefixes and their registries.
func (d *Dispatcher) Mounts() map[string]core.Registry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.trie.ToMap()
}

func (d *Dispatcher) route(src core.SourceID) (core.Registry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if _, r, has := d.trie.LongestPrefix(src.String()); has {
		return r, nil
	}
	if d.fallback != nil {
		return d.fallback, nil
	}
	return nil, errors.Errorf("no registry serves source %s", src)
}

// Query forwards dep to the registry serving its source.
func (d *Dispatcher) Query(ctx context.Context, dep core.ManifestDependency) ([]*core.Summary, error) {
	r, err := d.route(dep.Source)
	if err != nil {
		return nil, err
	}
	return r.Query(ctx, dep)
}
