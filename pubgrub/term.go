// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pubgrub

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Term is a statement about a package's version: a positive term says the
// chosen version lies in Range, a negative term says it does not (which
// includes the package not being selected at all).
type Term struct {
	Positive bool
	Range    Range
}

// Positive builds a positive term over r.
func Positive(r Range) Term { return Term{Positive: true, Range: r} }

// Negative builds a negative term over r.
func Negative(r Range) Term { return Term{Positive: false, Range: r} }

// Exact is the positive term admitting only v.
func Exact(v *semver.Version) Term { return Positive(Singleton(v)) }

// anyTerm is satisfied by every assignment, including no selection.
func anyTerm() Term { return Negative(Empty()) }

// voidTerm is satisfied by nothing.
func voidTerm() Term { return Positive(Empty()) }

// Negate flips the polarity of the term.
func (t Term) Negate() Term {
	return Term{Positive: !t.Positive, Range: t.Range}
}

// Contains reports whether version v satisfies the term.
func (t Term) Contains(v *semver.Version) bool {
	if t.Positive {
		return t.Range.Contains(v)
	}
	return !t.Range.Contains(v)
}

// UnwrapPositive returns the range of a positive term, and panics on a
// negative one.
func (t Term) UnwrapPositive() Range {
	if !t.Positive {
		panic(fmt.Sprintf("negative term %s has no positive range", t))
	}
	return t.Range
}

func (t Term) isEmpty() bool {
	return t.Positive && t.Range.IsEmpty()
}

// Equal reports structural equality of two terms.
func (t Term) Equal(o Term) bool {
	return t.Positive == o.Positive && t.Range.Equal(o.Range)
}

// Intersection returns the term satisfied exactly when both t and o are.
func (t Term) Intersection(o Term) Term {
	switch {
	case t.Positive && o.Positive:
		return Positive(t.Range.Intersection(o.Range))
	case t.Positive:
		return Positive(t.Range.Intersection(o.Range.Complement()))
	case o.Positive:
		return Positive(t.Range.Complement().Intersection(o.Range))
	default:
		return Negative(t.Range.Union(o.Range))
	}
}

// Union returns the term satisfied when either t or o is.
func (t Term) Union(o Term) Term {
	return t.Negate().Intersection(o.Negate()).Negate()
}

// SubsetOf reports whether every assignment satisfying t also satisfies o.
func (t Term) SubsetOf(o Term) bool {
	return t.Intersection(o).Equal(t)
}

type termRelation uint8

const (
	// the assignment implies the term
	termSatisfied termRelation = iota
	// the assignment excludes the term
	termContradicted
	termInconclusive
)

// relationWith describes how the accumulated assignment for a package
// relates to t.
func (t Term) relationWith(assigned Term) termRelation {
	full := t.Intersection(assigned)
	switch {
	case full.Equal(assigned):
		return termSatisfied
	case full.isEmpty():
		return termContradicted
	default:
		return termInconclusive
	}
}

func (t Term) String() string {
	if t.Positive {
		return t.Range.String()
	}
	return fmt.Sprintf("Not ( %s )", t.Range)
}
