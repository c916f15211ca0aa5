// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

import (
	"sort"

	"github.com/pkg/errors"
)

// Resolve is the outcome of a resolution: exactly one package version per
// name, and the dependency edges between them.
type Resolve struct {
	packages  map[PackageName]PackageID
	summaries map[PackageName]*Summary
	edges     map[PackageName][]PackageName
}

// NewResolve returns an empty graph.
func NewResolve() *Resolve {
	return &Resolve{
		packages:  make(map[PackageName]PackageID),
		summaries: make(map[PackageName]*Summary),
		edges:     make(map[PackageName][]PackageName),
	}
}

// AddPackage adds the package described by s as a node. A second package
// with the same name is rejected.
func (r *Resolve) AddPackage(s *Summary) error {
	if existing, has := r.packages[s.ID.Name]; has && !existing.Equal(s.ID) {
		return errors.Errorf("package %s already resolved to %s", s.ID, existing)
	}
	r.packages[s.ID.Name] = s.ID
	r.summaries[s.ID.Name] = s
	return nil
}

// AddEdge records that from depends on to. Both must already be nodes.
func (r *Resolve) AddEdge(from, to PackageName) error {
	if _, has := r.packages[from]; !has {
		return errors.Errorf("unknown package %s", from)
	}
	if _, has := r.packages[to]; !has {
		return errors.Errorf("unknown package %s", to)
	}
	for _, n := range r.edges[from] {
		if n == to {
			return nil
		}
	}
	r.edges[from] = append(r.edges[from], to)
	return nil
}

// Len returns the number of resolved packages.
func (r *Resolve) Len() int {
	return len(r.packages)
}

// Lookup returns the resolved id for name.
func (r *Resolve) Lookup(name PackageName) (PackageID, bool) {
	id, has := r.packages[name]
	return id, has
}

// Summary returns the summary the package named name was resolved from.
func (r *Resolve) Summary(name PackageName) (*Summary, bool) {
	s, has := r.summaries[name]
	return s, has
}

// PackageIDs lists every resolved package, sorted by name.
func (r *Resolve) PackageIDs() []PackageID {
	ids := make([]PackageID, 0, len(r.packages))
	for _, id := range r.packages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Name < ids[j].Name })
	return ids
}

// Deps lists the resolved direct dependencies of id, sorted by name.
func (r *Resolve) Deps(id PackageID) []PackageID {
	names := r.edges[id.Name]
	out := make([]PackageID, 0, len(names))
	for _, n := range names {
		out = append(out, r.packages[n])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
