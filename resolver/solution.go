// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"sort"

	"github.com/DelevoXDG/scarb/core"
	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

// sortedPackages returns the packages of sol ordered by name, then source.
func sortedPackages(sol map[Package]*semver.Version) []Package {
	pkgs := make([]Package, 0, len(sol))
	for pkg := range sol {
		pkgs = append(pkgs, pkg)
	}
	sort.Slice(pkgs, func(i, j int) bool {
		if pkgs[i].Name != pkgs[j].Name {
			return pkgs[i].Name < pkgs[j].Name
		}
		return pkgs[i].Source.String() < pkgs[j].Source.String()
	})
	return pkgs
}

// validateSolution rejects solutions that pick one name from two sources.
func validateSolution(sol map[Package]*semver.Version) error {
	seen := make(map[core.PackageName]core.SourceID, len(sol))
	for _, pkg := range sortedPackages(sol) {
		if src, has := seen[pkg.Name]; has {
			return &IncompatibleSourcesError{Name: pkg.Name, First: src, Second: pkg.Source}
		}
		seen[pkg.Name] = pkg.Source
	}
	return nil
}

// buildResolve turns a validated solution into a dependency graph. Names are
// unique in sol, so edges are drawn by name.
func (p *provider) buildResolve(sol map[Package]*semver.Version) (*core.Resolve, error) {
	r := core.NewResolve()
	pkgs := sortedPackages(sol)

	for _, pkg := range pkgs {
		s, has := p.cached(core.NewPackageID(pkg.Name, sol[pkg], pkg.Source))
		if !has {
			return nil, errors.Errorf("no summary for %s %s in solution", pkg.errString(), sol[pkg])
		}
		if err := r.AddPackage(s); err != nil {
			return nil, err
		}
	}

	for _, pkg := range pkgs {
		id := core.NewPackageID(pkg.Name, sol[pkg], pkg.Source)
		s, _ := p.cached(id)
		for _, d := range s.FilteredFullDependencies(core.Propagation(p.isMain(id))) {
			if d.Name == pkg.Name {
				continue
			}
			if _, has := r.Lookup(d.Name); !has {
				return nil, errors.Errorf("%s depends on %s, which is missing from the solution", id, d)
			}
			if err := r.AddEdge(pkg.Name, d.Name); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}
