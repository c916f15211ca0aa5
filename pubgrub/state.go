// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pubgrub

import (
	"github.com/Masterminds/semver/v3"
)

// State is the mutable state of one PubGrub run: the incompatibility store,
// the per-package index into it and the partial solution.
//
// A State may be prepared incrementally (see AddIncompatibility and
// UnitPropagation) before being handed to ResolveState.
type State[P Package] struct {
	root        P
	rootVersion *semver.Version

	store             []*incompatibility[P]
	incompatibilities map[P][]incompID
	contradicted      map[incompID]struct{}

	partial *partialSolution[P]
	buffer  []P
}

// NewState initializes solver state with root pinned at version v.
func NewState[P Package](root P, v *semver.Version) *State[P] {
	s := &State[P]{
		root:              root,
		rootVersion:       v,
		incompatibilities: make(map[P][]incompID),
		contradicted:      make(map[incompID]struct{}),
		partial:           newPartialSolution[P](),
	}
	s.addIncompatibility(notRoot(root, v))
	return s
}

// Root returns the package the state was initialized with.
func (s *State[P]) Root() P {
	return s.root
}

// AddNotRoot pins an additional package p at version v, the same way the
// root package is pinned.
func (s *State[P]) AddNotRoot(p P, v *semver.Version) {
	s.addIncompatibility(notRoot(p, v))
}

func (s *State[P]) addIncompatibility(in *incompatibility[P]) incompID {
	id := incompID(len(s.store))
	s.store = append(s.store, in)
	s.mergeIncompatibility(id)
	return id
}

func (s *State[P]) mergeIncompatibility(id incompID) {
	for _, pt := range s.store[id].terms {
		s.incompatibilities[pt.pkg] = append(s.incompatibilities[pt.pkg], id)
	}
}

// addIncompatibilitiesFromDependencies records one incompatibility per
// dependency of p at v and returns their ids.
func (s *State[P]) addIncompatibilitiesFromDependencies(p P, v *semver.Version, deps []Dependency[P]) []incompID {
	ids := make([]incompID, 0, len(deps))
	for _, d := range deps {
		ids = append(ids, s.addIncompatibility(fromDependency(p, v, d.Package, d.Range)))
	}
	return ids
}

// UnitPropagation derives every assignment forced by the current
// incompatibilities, starting from pkg, and resolves conflicts on the way.
// It returns a *NoSolutionError if the conflict reaches the root.
func (s *State[P]) UnitPropagation(pkg P) error {
	s.buffer = append(s.buffer[:0], pkg)

	for len(s.buffer) > 0 {
		current := s.buffer[len(s.buffer)-1]
		s.buffer = s.buffer[:len(s.buffer)-1]

		conflict, hasConflict := incompID(0), false
		ids := s.incompatibilities[current]
		// Newest first.
		for i := len(ids) - 1; i >= 0; i-- {
			id := ids[i]
			if _, done := s.contradicted[id]; done {
				continue
			}

			rel := s.partial.relation(s.store[id])
			switch rel.kind {
			case relSatisfied:
				conflict, hasConflict = id, true
			case relAlmostSatisfied:
				if !s.buffered(rel.pkg) {
					s.buffer = append(s.buffer, rel.pkg)
				}
				s.partial.addDerivation(rel.pkg, id, s.store)
				s.contradicted[id] = struct{}{}
			case relContradicted:
				s.contradicted[id] = struct{}{}
			}
			if hasConflict {
				break
			}
		}

		if hasConflict {
			almost, rootCause, err := s.conflictResolution(conflict)
			if err != nil {
				return err
			}
			s.buffer = append(s.buffer[:0], almost)
			s.partial.addDerivation(almost, rootCause, s.store)
			s.contradicted[rootCause] = struct{}{}
		}
	}
	return nil
}

func (s *State[P]) buffered(p P) bool {
	for _, q := range s.buffer {
		if q == p {
			return true
		}
	}
	return false
}

// conflictResolution learns from a satisfied incompatibility until it finds
// one that lets the solver backtrack, and returns the package to derive
// next together with that root cause.
func (s *State[P]) conflictResolution(id incompID) (P, incompID, error) {
	changed := false
	for {
		current := s.store[id]
		if current.isTerminal(s.root, s.rootVersion) {
			var zero P
			return zero, 0, &NoSolutionError[P]{Tree: s.buildDerivationTree(id)}
		}

		p, sat, previousLevel := s.partial.satisfierSearch(current, s.store)
		if previousLevel < sat.level {
			s.backtrack(id, changed, previousLevel)
			return p, id, nil
		}

		id = s.addStored(priorCause(s.store, id, sat.cause, p))
		changed = true
	}
}

// addStored appends to the store without indexing; the incompatibility is
// indexed once conflict resolution settles on it.
func (s *State[P]) addStored(in *incompatibility[P]) incompID {
	id := incompID(len(s.store))
	s.store = append(s.store, in)
	return id
}

func (s *State[P]) backtrack(id incompID, changed bool, level decisionLevel) {
	s.partial.backtrack(level)
	for k := range s.contradicted {
		delete(s.contradicted, k)
	}
	if changed {
		s.mergeIncompatibility(id)
	}
}

func (s *State[P]) buildDerivationTree(id incompID) DerivationTree[P] {
	all := make(map[incompID]struct{})
	shared := make(map[incompID]struct{})
	stack := []incompID{id}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		in := s.store[i]
		if in.kind != kindDerivedFrom {
			continue
		}
		if _, seen := all[i]; seen {
			shared[i] = struct{}{}
			continue
		}
		all[i] = struct{}{}
		stack = append(stack, in.cause1, in.cause2)
	}
	return s.derivationTree(id, shared)
}

func (s *State[P]) derivationTree(id incompID, shared map[incompID]struct{}) DerivationTree[P] {
	in := s.store[id]
	switch in.kind {
	case kindDerivedFrom:
		d := &Derived[P]{
			Terms:  in.terms,
			Cause1: s.derivationTree(in.cause1, shared),
			Cause2: s.derivationTree(in.cause2, shared),
		}
		if _, ok := shared[id]; ok {
			d.SharedID = int(id)
			d.Shared = true
		}
		return d
	case kindNotRoot:
		return &External[P]{Kind: NotRoot, Package: in.pkg, Version: in.version}
	case kindNoVersions:
		return &External[P]{Kind: NoVersions, Package: in.pkg, Range: in.rng}
	case kindUnavailable:
		return &External[P]{Kind: Unavailable, Package: in.pkg, Range: in.rng, Reason: in.reason}
	default:
		return &External[P]{Kind: FromDependencyOf, Package: in.pkg, Range: in.rng, Dependency: in.dep, DependencyRange: in.depRng}
	}
}
