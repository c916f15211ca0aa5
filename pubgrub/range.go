// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pubgrub

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

type boundKind uint8

const (
	unbounded boundKind = iota
	included
	excluded
)

type bound struct {
	kind boundKind
	v    *semver.Version
}

func (b bound) equal(o bound) bool {
	if b.kind != o.kind {
		return false
	}
	if b.kind == unbounded {
		return true
	}
	return b.v.Compare(o.v) == 0
}

// interval is a contiguous set of versions between a lower and an upper
// bound. An unbounded lower bound means "from the lowest version", an
// unbounded upper bound "to infinity".
type interval struct {
	lo, hi bound
}

// cmpLower orders two lower bounds by the first version they admit.
func cmpLower(a, b bound) int {
	switch {
	case a.kind == unbounded && b.kind == unbounded:
		return 0
	case a.kind == unbounded:
		return -1
	case b.kind == unbounded:
		return 1
	}
	if c := a.v.Compare(b.v); c != 0 {
		return c
	}
	switch {
	case a.kind == b.kind:
		return 0
	case a.kind == included:
		return -1
	default:
		return 1
	}
}

// cmpUpper orders two upper bounds by the last version they admit.
func cmpUpper(a, b bound) int {
	switch {
	case a.kind == unbounded && b.kind == unbounded:
		return 0
	case a.kind == unbounded:
		return 1
	case b.kind == unbounded:
		return -1
	}
	if c := a.v.Compare(b.v); c != 0 {
		return c
	}
	switch {
	case a.kind == b.kind:
		return 0
	case a.kind == excluded:
		return -1
	default:
		return 1
	}
}

func (iv interval) valid() bool {
	if iv.lo.kind == unbounded || iv.hi.kind == unbounded {
		return true
	}
	c := iv.lo.v.Compare(iv.hi.v)
	if c < 0 {
		return true
	}
	return c == 0 && iv.lo.kind == included && iv.hi.kind == included
}

func (iv interval) contains(v *semver.Version) bool {
	switch iv.lo.kind {
	case included:
		if v.Compare(iv.lo.v) < 0 {
			return false
		}
	case excluded:
		if v.Compare(iv.lo.v) <= 0 {
			return false
		}
	}
	switch iv.hi.kind {
	case included:
		return v.Compare(iv.hi.v) <= 0
	case excluded:
		return v.Compare(iv.hi.v) < 0
	}
	return true
}

// Range is a set of semantic versions, stored as a sorted list of disjoint,
// non-adjacent intervals. The zero value is the empty set.
//
// Ranges are immutable; every operation returns a new Range.
type Range struct {
	segs []interval
}

// Empty returns the set containing no versions.
func Empty() Range {
	return Range{}
}

// Full returns the set containing every version.
func Full() Range {
	return Range{segs: []interval{{lo: bound{kind: unbounded}, hi: bound{kind: unbounded}}}}
}

// Singleton returns the set containing only v.
func Singleton(v *semver.Version) Range {
	return Range{segs: []interval{{lo: bound{included, v}, hi: bound{included, v}}}}
}

// HigherThan returns the set of versions >= v.
func HigherThan(v *semver.Version) Range {
	return Range{segs: []interval{{lo: bound{included, v}, hi: bound{kind: unbounded}}}}
}

// StrictlyHigherThan returns the set of versions > v.
func StrictlyHigherThan(v *semver.Version) Range {
	return Range{segs: []interval{{lo: bound{excluded, v}, hi: bound{kind: unbounded}}}}
}

// LowerThan returns the set of versions <= v.
func LowerThan(v *semver.Version) Range {
	return Range{segs: []interval{{lo: bound{kind: unbounded}, hi: bound{included, v}}}}
}

// StrictlyLowerThan returns the set of versions < v.
func StrictlyLowerThan(v *semver.Version) Range {
	return Range{segs: []interval{{lo: bound{kind: unbounded}, hi: bound{excluded, v}}}}
}

// Between returns the set of versions >= lo and < hi.
func Between(lo, hi *semver.Version) Range {
	iv := interval{lo: bound{included, lo}, hi: bound{excluded, hi}}
	if !iv.valid() {
		return Empty()
	}
	return Range{segs: []interval{iv}}
}

// IsEmpty reports whether the set contains no versions.
func (r Range) IsEmpty() bool {
	return len(r.segs) == 0
}

// IsFull reports whether the set contains every version.
func (r Range) IsFull() bool {
	return len(r.segs) == 1 && r.segs[0].lo.kind == unbounded && r.segs[0].hi.kind == unbounded
}

// Contains reports whether v is a member of the set.
func (r Range) Contains(v *semver.Version) bool {
	for _, iv := range r.segs {
		if iv.contains(v) {
			return true
		}
	}
	return false
}

// Equal reports whether both sets hold exactly the same versions.
func (r Range) Equal(o Range) bool {
	if len(r.segs) != len(o.segs) {
		return false
	}
	for i := range r.segs {
		if !r.segs[i].lo.equal(o.segs[i].lo) || !r.segs[i].hi.equal(o.segs[i].hi) {
			return false
		}
	}
	return true
}

// Complement returns the set of all versions not in r.
func (r Range) Complement() Range {
	if r.IsEmpty() {
		return Full()
	}

	var out []interval
	lo := bound{kind: unbounded}
	for _, iv := range r.segs {
		if iv.lo.kind != unbounded {
			gap := interval{lo: lo, hi: flip(iv.lo)}
			if gap.valid() {
				out = append(out, gap)
			}
		}
		if iv.hi.kind == unbounded {
			return Range{segs: out}
		}
		lo = flip(iv.hi)
	}
	return Range{segs: append(out, interval{lo: lo, hi: bound{kind: unbounded}})}
}

// flip turns the bound closing one interval into the bound opening its
// neighbour, and the other way around.
func flip(b bound) bound {
	switch b.kind {
	case included:
		return bound{excluded, b.v}
	case excluded:
		return bound{included, b.v}
	}
	return b
}

// Intersection returns the set of versions present in both r and o.
func (r Range) Intersection(o Range) Range {
	var out []interval
	i, j := 0, 0
	for i < len(r.segs) && j < len(o.segs) {
		a, b := r.segs[i], o.segs[j]

		lo := a.lo
		if cmpLower(b.lo, a.lo) > 0 {
			lo = b.lo
		}
		hi := a.hi
		if cmpUpper(b.hi, a.hi) < 0 {
			hi = b.hi
		}
		if iv := (interval{lo: lo, hi: hi}); iv.valid() {
			out = append(out, iv)
		}

		if cmpUpper(a.hi, b.hi) < 0 {
			i++
		} else {
			j++
		}
	}
	return Range{segs: out}
}

// Union returns the set of versions present in either r or o.
func (r Range) Union(o Range) Range {
	return r.Complement().Intersection(o.Complement()).Complement()
}

// IsDisjoint reports whether r and o share no version.
func (r Range) IsDisjoint(o Range) bool {
	return r.Intersection(o).IsEmpty()
}

// SubsetOf reports whether every version of r is also in o.
func (r Range) SubsetOf(o Range) bool {
	return r.Intersection(o).Equal(r)
}

func (r Range) String() string {
	if r.IsEmpty() {
		return "∅"
	}
	if r.IsFull() {
		return "*"
	}

	parts := make([]string, 0, len(r.segs))
	for _, iv := range r.segs {
		parts = append(parts, iv.String())
	}
	return strings.Join(parts, " || ")
}

func (iv interval) String() string {
	if iv.lo.kind == included && iv.hi.kind == included && iv.lo.v.Compare(iv.hi.v) == 0 {
		return "=" + iv.lo.v.String()
	}

	var parts []string
	switch iv.lo.kind {
	case included:
		parts = append(parts, ">="+iv.lo.v.String())
	case excluded:
		parts = append(parts, ">"+iv.lo.v.String())
	}
	switch iv.hi.kind {
	case included:
		parts = append(parts, "<="+iv.hi.v.String())
	case excluded:
		parts = append(parts, "<"+iv.hi.v.String())
	}
	return strings.Join(parts, ", ")
}
