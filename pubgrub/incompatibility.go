// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pubgrub

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Package is the constraint every package identifier handled by the solver
// must satisfy.
type Package interface {
	comparable
	fmt.Stringer
}

type incompID int

type incompKind uint8

const (
	kindNotRoot incompKind = iota
	kindNoVersions
	kindUnavailable
	kindFromDependencyOf
	kindDerivedFrom
)

// packageTerm pairs a package with the term an incompatibility holds for it.
type packageTerm[P Package] struct {
	pkg  P
	term Term
}

// incompatibility is a set of terms that must never all be satisfied at the
// same time. Terms are kept in insertion order so that reports are stable.
type incompatibility[P Package] struct {
	terms []packageTerm[P]
	kind  incompKind

	// Cause data, depending on kind.
	pkg     P
	rng     Range
	dep     P
	depRng  Range
	version *semver.Version
	reason  string
	cause1  incompID
	cause2  incompID
}

func (in *incompatibility[P]) get(p P) (Term, bool) {
	for _, pt := range in.terms {
		if pt.pkg == p {
			return pt.term, true
		}
	}
	return Term{}, false
}

func (in *incompatibility[P]) mustGet(p P) Term {
	t, ok := in.get(p)
	if !ok {
		panic(fmt.Sprintf("package %s not present in incompatibility %s", p, in))
	}
	return t
}

// notRoot forbids anything other than the root package at its version.
func notRoot[P Package](root P, v *semver.Version) *incompatibility[P] {
	return &incompatibility[P]{
		terms:   []packageTerm[P]{{pkg: root, term: Negative(Singleton(v))}},
		kind:    kindNotRoot,
		pkg:     root,
		version: v,
	}
}

// noVersions records that no version of p exists inside the positive term t.
func noVersions[P Package](p P, t Term) *incompatibility[P] {
	return &incompatibility[P]{
		terms: []packageTerm[P]{{pkg: p, term: t}},
		kind:  kindNoVersions,
		pkg:   p,
		rng:   t.UnwrapPositive(),
	}
}

// unavailable records that the dependencies of p at v cannot be known.
func unavailable[P Package](p P, v *semver.Version, reason string) *incompatibility[P] {
	r := Singleton(v)
	return &incompatibility[P]{
		terms:  []packageTerm[P]{{pkg: p, term: Positive(r)}},
		kind:   kindUnavailable,
		pkg:    p,
		rng:    r,
		reason: reason,
	}
}

// fromDependency encodes "p at v depends on dep in depRng".
func fromDependency[P Package](p P, v *semver.Version, dep P, depRng Range) *incompatibility[P] {
	r := Singleton(v)
	terms := []packageTerm[P]{{pkg: p, term: Positive(r)}}
	if !depRng.IsEmpty() {
		terms = append(terms, packageTerm[P]{pkg: dep, term: Negative(depRng)})
	}
	return &incompatibility[P]{
		terms:  terms,
		kind:   kindFromDependencyOf,
		pkg:    p,
		rng:    r,
		dep:    dep,
		depRng: depRng,
	}
}

// priorCause derives a new incompatibility from the current one and the
// cause of its satisfier, resolving on package p.
func priorCause[P Package](store []*incompatibility[P], current, satisfierCause incompID, p P) *incompatibility[P] {
	a, b := store[current], store[satisfierCause]

	var terms []packageTerm[P]
	for _, pt := range a.terms {
		if pt.pkg != p {
			terms = append(terms, pt)
		}
	}
	for _, pt := range b.terms {
		if pt.pkg == p {
			continue
		}
		merged := false
		for i := range terms {
			if terms[i].pkg == pt.pkg {
				terms[i].term = terms[i].term.Intersection(pt.term)
				merged = true
				break
			}
		}
		if !merged {
			terms = append(terms, pt)
		}
	}

	t := a.mustGet(p).Union(b.mustGet(p))
	if !t.Equal(anyTerm()) {
		terms = append(terms, packageTerm[P]{pkg: p, term: t})
	}

	return &incompatibility[P]{
		terms:  terms,
		kind:   kindDerivedFrom,
		cause1: current,
		cause2: satisfierCause,
	}
}

// isTerminal reports whether the incompatibility proves that the root
// package itself cannot be selected.
func (in *incompatibility[P]) isTerminal(root P, rootVersion *semver.Version) bool {
	switch len(in.terms) {
	case 0:
		return true
	case 1:
		return in.terms[0].pkg == root && in.terms[0].term.Contains(rootVersion)
	}
	return false
}

type relationKind uint8

const (
	relSatisfied relationKind = iota
	relContradicted
	relAlmostSatisfied
	relInconclusive
)

// relation is the result of checking an incompatibility against a partial
// solution. pkg is the contradicted or almost satisfied package.
type relation[P Package] struct {
	kind relationKind
	pkg  P
}

func (in *incompatibility[P]) relation(assigned func(P) (Term, bool)) relation[P] {
	rel := relation[P]{kind: relSatisfied}
	for _, pt := range in.terms {
		t, ok := assigned(pt.pkg)
		if ok {
			switch pt.term.relationWith(t) {
			case termSatisfied:
				continue
			case termContradicted:
				return relation[P]{kind: relContradicted, pkg: pt.pkg}
			}
		}
		if rel.kind == relSatisfied {
			rel = relation[P]{kind: relAlmostSatisfied, pkg: pt.pkg}
		} else {
			rel = relation[P]{kind: relInconclusive}
		}
	}
	return rel
}

func (in *incompatibility[P]) String() string {
	return termsString(in.terms)
}
