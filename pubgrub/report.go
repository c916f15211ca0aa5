// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pubgrub

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DerivationTree explains why no solution exists. Leaves are External
// incompatibilities; inner nodes are Derived ones.
type DerivationTree[P Package] interface {
	isDerivationTree(P)
}

// ExternalKind tells where an external incompatibility came from.
type ExternalKind uint8

const (
	// NotRoot: the root package is pinned at its version.
	NotRoot ExternalKind = iota
	// NoVersions: no version of the package exists in the range.
	NoVersions
	// Unavailable: the dependencies of a package version are unknown.
	Unavailable
	// FromDependencyOf: a package version depends on another package.
	FromDependencyOf
)

// External is an incompatibility that was not derived by the solver.
type External[P Package] struct {
	Kind            ExternalKind
	Package         P
	Version         *semver.Version
	Range           Range
	Reason          string
	Dependency      P
	DependencyRange Range
}

func (*External[P]) isDerivationTree(P) {}

func (e *External[P]) String() string {
	switch e.Kind {
	case NotRoot:
		return fmt.Sprintf("we are solving dependencies of %s %s", e.Package, e.Version)
	case NoVersions:
		if e.Range.IsFull() {
			return fmt.Sprintf("there is no available version for %s", e.Package)
		}
		return fmt.Sprintf("there is no version of %s in %s", e.Package, e.Range)
	case Unavailable:
		if e.Range.IsFull() {
			return fmt.Sprintf("dependencies of %s are unavailable %s", e.Package, e.Reason)
		}
		return fmt.Sprintf("dependencies of %s at version %s are unavailable %s", e.Package, e.Range, e.Reason)
	default:
		return dependsOn(e.Package, e.Range, e.Dependency, e.DependencyRange)
	}
}

func dependsOn(p fmt.Stringer, r Range, dep fmt.Stringer, depR Range) string {
	switch {
	case r.IsFull() && depR.IsFull():
		return fmt.Sprintf("%s depends on %s", p, dep)
	case r.IsFull():
		return fmt.Sprintf("%s depends on %s %s", p, dep, depR)
	case depR.IsFull():
		return fmt.Sprintf("%s %s depends on %s", p, r, dep)
	default:
		return fmt.Sprintf("%s %s depends on %s %s", p, r, dep, depR)
	}
}

// Derived is an incompatibility learned from two causes. Shared is set when
// the node is referenced more than once in the tree.
type Derived[P Package] struct {
	Terms    []packageTerm[P]
	Shared   bool
	SharedID int
	Cause1   DerivationTree[P]
	Cause2   DerivationTree[P]
}

func (*Derived[P]) isDerivationTree(P) {}

// Report renders a derivation tree as a numbered, human-readable
// explanation.
func Report[P Package](tree DerivationTree[P]) string {
	switch t := tree.(type) {
	case *External[P]:
		return t.String()
	case *Derived[P]:
		r := &reporter[P]{shared: make(map[int]int)}
		r.build(t)
		return strings.Join(r.lines, "\n")
	}
	return ""
}

type reporter[P Package] struct {
	refCount int
	shared   map[int]int
	lines    []string
}

func (r *reporter[P]) build(d *Derived[P]) {
	r.buildHelper(d)
	if d.Shared {
		if _, has := r.shared[d.SharedID]; !has {
			r.addLineRef()
			r.shared[d.SharedID] = r.refCount
		}
	}
}

func (r *reporter[P]) addLineRef() {
	r.refCount++
	if n := len(r.lines); n > 0 {
		r.lines[n-1] = fmt.Sprintf("%s (%d)", r.lines[n-1], r.refCount)
	}
}

func (r *reporter[P]) lineRef(d *Derived[P]) (int, bool) {
	if !d.Shared {
		return 0, false
	}
	ref, has := r.shared[d.SharedID]
	return ref, has
}

func (r *reporter[P]) buildHelper(current *Derived[P]) {
	ext1, isExt1 := current.Cause1.(*External[P])
	ext2, isExt2 := current.Cause2.(*External[P])
	der1, _ := current.Cause1.(*Derived[P])
	der2, _ := current.Cause2.(*Derived[P])

	switch {
	case isExt1 && isExt2:
		r.lines = append(r.lines, fmt.Sprintf("Because %s and %s, %s.", ext1, ext2, termsString(current.Terms)))
	case isExt2:
		r.reportOneEach(der1, ext2, current.Terms)
	case isExt1:
		r.reportOneEach(der2, ext1, current.Terms)
	default:
		ref1, has1 := r.lineRef(der1)
		ref2, has2 := r.lineRef(der2)
		switch {
		case has1 && has2:
			r.lines = append(r.lines, fmt.Sprintf("Because %s (%d) and %s (%d), %s.",
				termsString(der1.Terms), ref1, termsString(der2.Terms), ref2, termsString(current.Terms)))
		case has1:
			r.build(der2)
			r.lines = append(r.lines, andExplainRef(ref1, der1, current.Terms))
		case has2:
			r.build(der1)
			r.lines = append(r.lines, andExplainRef(ref2, der2, current.Terms))
		default:
			r.build(der1)
			if der1.Shared {
				r.lines = append(r.lines, "")
				r.build(current)
			} else {
				r.addLineRef()
				ref := r.refCount
				r.lines = append(r.lines, "")
				r.build(der2)
				r.lines = append(r.lines, andExplainRef(ref, der1, current.Terms))
			}
		}
	}
}

func (r *reporter[P]) reportOneEach(derived *Derived[P], external *External[P], terms []packageTerm[P]) {
	if ref, has := r.lineRef(derived); has {
		r.lines = append(r.lines, fmt.Sprintf("Because %s (%d) and %s, %s.",
			termsString(derived.Terms), ref, external, termsString(terms)))
		return
	}

	// Chain external explanations when the derived cause has an external
	// prior cause itself.
	switch {
	case isExternal[P](derived.Cause2) && !isExternal[P](derived.Cause1):
		r.build(derived.Cause1.(*Derived[P]))
		r.lines = append(r.lines, fmt.Sprintf("And because %s and %s, %s.", derived.Cause2, external, termsString(terms)))
	case isExternal[P](derived.Cause1) && !isExternal[P](derived.Cause2):
		r.build(derived.Cause2.(*Derived[P]))
		r.lines = append(r.lines, fmt.Sprintf("And because %s and %s, %s.", derived.Cause1, external, termsString(terms)))
	default:
		r.build(derived)
		r.lines = append(r.lines, fmt.Sprintf("And because %s, %s.", external, termsString(terms)))
	}
}

func isExternal[P Package](t DerivationTree[P]) bool {
	_, ok := t.(*External[P])
	return ok
}

func andExplainRef[P Package](ref int, derived *Derived[P], terms []packageTerm[P]) string {
	return fmt.Sprintf("And because %s (%d), %s.", termsString(derived.Terms), ref, termsString(terms))
}

func termsString[P Package](terms []packageTerm[P]) string {
	switch len(terms) {
	case 0:
		return "version solving failed"
	case 1:
		if terms[0].term.Positive {
			return fmt.Sprintf("%s %s is forbidden", terms[0].pkg, terms[0].term.Range)
		}
		return fmt.Sprintf("%s %s is mandatory", terms[0].pkg, terms[0].term.Range)
	case 2:
		a, b := terms[0], terms[1]
		if a.term.Positive && !b.term.Positive {
			return dependsOn(a.pkg, a.term.Range, b.pkg, b.term.Range)
		}
		if !a.term.Positive && b.term.Positive {
			return dependsOn(b.pkg, b.term.Range, a.pkg, a.term.Range)
		}
	}

	parts := make([]string, 0, len(terms))
	for _, pt := range terms {
		parts = append(parts, fmt.Sprintf("%s %s", pt.pkg, pt.term))
	}
	return strings.Join(parts, ", ") + " are incompatible"
}
