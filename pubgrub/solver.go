// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pubgrub implements the PubGrub version solving algorithm over
// semantic version ranges.
//
// The solver is generic over the package identifier and over the priority
// type a DependencyProvider uses to steer branching. All interaction with
// the outside world goes through the DependencyProvider; the solver itself
// never blocks, but providers are free to.
package pubgrub

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Ordered is implemented by priority values. Compare returns a positive
// number when the receiver ranks higher than other.
type Ordered[T any] interface {
	Compare(other T) int
}

// Dependency is a single edge handed back by a DependencyProvider.
type Dependency[P Package] struct {
	Package P
	Range   Range
}

// Dependencies of one package version. When Available is false, Reason says
// why the dependencies could not be determined and the version is dropped.
type Dependencies[P Package] struct {
	Available bool
	List      []Dependency[P]
	Reason    string
}

// Available wraps a known dependency list.
func Available[P Package](deps []Dependency[P]) Dependencies[P] {
	return Dependencies[P]{Available: true, List: deps}
}

// Unknown marks a version whose dependencies cannot be obtained.
func Unknown[P Package](reason string) Dependencies[P] {
	return Dependencies[P]{Reason: reason}
}

// DependencyProvider is everything the solver needs to know about packages.
type DependencyProvider[P Package, Pr Ordered[Pr]] interface {
	// Prioritize ranks an undecided package; the highest ranked package is
	// decided next.
	Prioritize(p P, r Range) Pr
	// ChooseVersion picks a version of p inside r, or nil if there is none.
	ChooseVersion(p P, r Range) (*semver.Version, error)
	// GetDependencies lists the dependencies of p at version v.
	GetDependencies(p P, v *semver.Version) (Dependencies[P], error)
}

// Resolve runs a full resolution starting from root at version v.
func Resolve[P Package, Pr Ordered[Pr]](provider DependencyProvider[P, Pr], root P, v *semver.Version) (map[P]*semver.Version, error) {
	return ResolveState(provider, NewState(root, v), root)
}

// ResolveState drives a prepared State to a solution. next is the package
// whose incompatibilities are propagated first.
func ResolveState[P Package, Pr Ordered[Pr]](provider DependencyProvider[P, Pr], state *State[P], next P) (map[P]*semver.Version, error) {
	added := make(map[P]map[string]struct{})

	for {
		if err := state.UnitPropagation(next); err != nil {
			return nil, err
		}

		pkg, ok := pickHighestPriority(state.partial, provider.Prioritize)
		if !ok {
			return state.partial.extractSolution(), nil
		}
		next = pkg

		term, ok := state.partial.termIntersection(next)
		if !ok {
			return nil, &FailureError{Msg: fmt.Sprintf("a package was chosen but we don't have a term for %s", next)}
		}
		rng := term.UnwrapPositive()

		v, err := provider.ChooseVersion(next, rng)
		if err != nil {
			return nil, &ChoosingVersionError{Err: err}
		}
		if v == nil {
			state.addIncompatibility(noVersions(next, term))
			continue
		}
		if !rng.Contains(v) {
			return nil, &FailureError{Msg: fmt.Sprintf("choose_version picked %s %s, which is outside of %s", next, v, rng)}
		}

		seen, has := added[next]
		if !has {
			seen = make(map[string]struct{})
			added[next] = seen
		}
		if _, dup := seen[v.String()]; dup {
			state.partial.addDecision(next, v)
			continue
		}
		seen[v.String()] = struct{}{}

		deps, err := provider.GetDependencies(next, v)
		if err != nil {
			return nil, &RetrievingDependenciesError[P]{Package: next, Version: v, Err: err}
		}
		if !deps.Available {
			state.addIncompatibility(unavailable(next, v, deps.Reason))
			continue
		}

		list, err := normalizeDependencies(next, v, deps.List)
		if err != nil {
			return nil, err
		}

		ids := state.addIncompatibilitiesFromDependencies(next, v, list)
		state.partial.addVersion(next, v, ids, state.store)
	}
}

// normalizeDependencies folds duplicate edges into one by intersecting their
// ranges, and rejects packages depending on themselves.
func normalizeDependencies[P Package](p P, v *semver.Version, deps []Dependency[P]) ([]Dependency[P], error) {
	out := make([]Dependency[P], 0, len(deps))
	index := make(map[P]int, len(deps))
	for _, d := range deps {
		if d.Package == p {
			return nil, &SelfDependencyError[P]{Package: p, Version: v}
		}
		if i, has := index[d.Package]; has {
			out[i].Range = out[i].Range.Intersection(d.Range)
			continue
		}
		index[d.Package] = len(out)
		out = append(out, d)
	}
	return out, nil
}
