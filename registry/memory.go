// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package registry holds core.Registry implementations: an in-memory
// registry fed from index files, a dispatcher routing queries by source, and
// a persistent cache in front of any of them.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/DelevoXDG/scarb/core"
	"github.com/pkg/errors"
)

type memKey struct {
	name core.PackageName
	src  core.SourceID
}

// Memory is a registry that knows exactly the summaries added to it. It
// counts queries per package, which tests use to check deduplication.
type Memory struct {
	mu       sync.RWMutex
	packages map[memKey][]*core.Summary
	fail     map[core.PackageName]error
	queries  map[memKey]int
}

// NewMemory returns a Memory holding summaries.
func NewMemory(summaries ...*core.Summary) *Memory {
	m := &Memory{
		packages: make(map[memKey][]*core.Summary),
		fail:     make(map[core.PackageName]error),
		queries:  make(map[memKey]int),
	}
	m.Add(summaries...)
	return m
}

// Add stores summaries. A summary with an ID already present replaces it.
func (m *Memory) Add(summaries ...*core.Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()

outer:
	for _, s := range summaries {
		k := memKey{name: s.ID.Name, src: s.ID.Source}
		for i, have := range m.packages[k] {
			if have.ID.Equal(s.ID) {
				m.packages[k][i] = s
				continue outer
			}
		}
		m.packages[k] = append(m.packages[k], s)
	}
}

// FailOn makes every query for name return err.
func (m *Memory) FailOn(name core.PackageName, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[name] = err
}

// Query returns the summaries matching dep, in ascending version order.
func (m *Memory) Query(ctx context.Context, dep core.ManifestDependency) ([]*core.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k := memKey{name: dep.Name, src: dep.Source}
	m.mu.Lock()
	m.queries[k]++
	err := m.fail[dep.Name]
	all := m.packages[k]
	m.mu.Unlock()

	if err != nil {
		return nil, errors.Wrapf(err, "querying %s", dep.Name)
	}

	var out []*core.Summary
	for _, s := range all {
		if dep.MatchesSummary(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.Version.LessThan(out[j].ID.Version)
	})
	return out, nil
}

// Queries reports how many times the package name from src was queried.
func (m *Memory) Queries(name core.PackageName, src core.SourceID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queries[memKey{name: name, src: src}]
}

// TotalQueries reports how many queries were made in all.
func (m *Memory) TotalQueries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int
	for _, c := range m.queries {
		n += c
	}
	return n
}

// Summaries returns every stored summary, ordered by name, source, then
// version.
func (m *Memory) Summaries() []*core.Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*core.Summary
	for _, ss := range m.packages {
		out = append(out, ss...)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ID, out[j].ID
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Source != b.Source {
			return a.Source.String() < b.Source.String()
		}
		return a.Version.LessThan(b.Version)
	})
	return out
}

// Lookup returns the summary of exactly id.
func (m *Memory) Lookup(id core.PackageID) (*core.Summary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.packages[memKey{name: id.Name, src: id.Source}] {
		if s.ID.Equal(id) {
			return s, true
		}
	}
	return nil, false
}
