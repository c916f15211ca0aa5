// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

import (
	"strconv"
	"strings"

	"github.com/DelevoXDG/scarb/pubgrub"
	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

type op uint8

const (
	opCaret op = iota
	opExact
	opGreater
	opGreaterEq
	opLess
	opLessEq
	opTilde
	opWildcard
)

var opPrefixes = []struct {
	prefix string
	op     op
}{
	// Longest prefixes first.
	{"==", opExact},
	{">=", opGreaterEq},
	{"<=", opLessEq},
	{"=", opExact},
	{">", opGreater},
	{"<", opLess},
	{"~", opTilde},
	{"^", opCaret},
}

// comparator is one clause of a requirement. minor and patch are -1 when the
// version was written partially.
type comparator struct {
	op                  op
	major, minor, patch int64
	pre                 string
}

// VersionReq is a Cargo-style version requirement: a comma separated list of
// comparators, all of which must match.
type VersionReq struct {
	comparators []comparator
}

// ParseVersionReq parses requirements such as "^1.2", "~0.3.1", ">=1, <2",
// "=1.0.0", "1.*" or "*". A bare version means caret.
func ParseVersionReq(s string) (VersionReq, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return VersionReq{}, errors.New("empty version requirement")
	}

	var req VersionReq
	for _, part := range strings.Split(s, ",") {
		c, err := parseComparator(strings.TrimSpace(part))
		if err != nil {
			return VersionReq{}, errors.Wrapf(err, "invalid version requirement %q", s)
		}
		if c.op == opWildcard && c.major < 0 {
			// "*" matches everything and contributes nothing.
			continue
		}
		req.comparators = append(req.comparators, c)
	}
	return req, nil
}

// MustParseVersionReq is like ParseVersionReq but panics on error.
func MustParseVersionReq(s string) VersionReq {
	req, err := ParseVersionReq(s)
	if err != nil {
		panic(err)
	}
	return req
}

// ExactReq returns the requirement "=v".
func ExactReq(v *semver.Version) VersionReq {
	return VersionReq{comparators: []comparator{{
		op:    opExact,
		major: int64(v.Major()),
		minor: int64(v.Minor()),
		patch: int64(v.Patch()),
		pre:   v.Prerelease(),
	}}}
}

func parseComparator(s string) (comparator, error) {
	if s == "" {
		return comparator{}, errors.New("empty comparator")
	}

	c := comparator{op: opCaret, major: -1, minor: -1, patch: -1}
	explicit := false
	for _, p := range opPrefixes {
		if strings.HasPrefix(s, p.prefix) {
			c.op = p.op
			s = strings.TrimSpace(s[len(p.prefix):])
			explicit = true
			break
		}
	}

	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '-'); i >= 0 {
		c.pre = s[i+1:]
		s = s[:i]
		if c.pre == "" {
			return comparator{}, errors.New("empty pre-release identifier")
		}
	}

	fields := strings.Split(s, ".")
	if len(fields) > 3 {
		return comparator{}, errors.Errorf("too many version components in %q", s)
	}

	wild := false
	nums := []*int64{&c.major, &c.minor, &c.patch}
	for i, f := range fields {
		if f == "*" || f == "x" || f == "X" {
			wild = true
			continue
		}
		if wild {
			return comparator{}, errors.Errorf("unexpected version component %q after wildcard", f)
		}
		n, err := strconv.ParseUint(f, 10, 63)
		if err != nil {
			return comparator{}, errors.Errorf("invalid version component %q", f)
		}
		*nums[i] = int64(n)
	}

	if wild {
		if explicit && c.op != opCaret && c.op != opExact && c.op != opTilde {
			return comparator{}, errors.Errorf("wildcard not allowed with this operator in %q", s)
		}
		if c.pre != "" {
			return comparator{}, errors.New("wildcard versions cannot have a pre-release")
		}
		c.op = opWildcard
		return c, nil
	}
	if c.pre != "" && c.patch < 0 {
		return comparator{}, errors.New("pre-release requires a full version")
	}
	return c, nil
}

func ver(major, minor, patch int64, pre string) *semver.Version {
	return semver.New(uint64(major), uint64(minor), uint64(patch), pre, "")
}

// lower returns the smallest version the comparator names, with missing
// components filled by zero.
func (c comparator) lower() *semver.Version {
	minor, patch := c.minor, c.patch
	if minor < 0 {
		minor = 0
	}
	if patch < 0 {
		patch = 0
	}
	return ver(c.major, minor, patch, c.pre)
}

// next returns the first version past the most specific component written.
func (c comparator) next() *semver.Version {
	switch {
	case c.minor < 0:
		return ver(c.major+1, 0, 0, "")
	case c.patch < 0:
		return ver(c.major, c.minor+1, 0, "")
	}
	return ver(c.major, c.minor, c.patch+1, "")
}

func (c comparator) rng() pubgrub.Range {
	lo := c.lower()
	switch c.op {
	case opExact:
		if c.patch >= 0 {
			return pubgrub.Singleton(lo)
		}
		return pubgrub.Between(lo, c.next())
	case opGreater:
		if c.patch >= 0 {
			return pubgrub.StrictlyHigherThan(lo)
		}
		return pubgrub.HigherThan(c.next())
	case opGreaterEq:
		return pubgrub.HigherThan(lo)
	case opLess:
		return pubgrub.StrictlyLowerThan(lo)
	case opLessEq:
		if c.patch >= 0 {
			return pubgrub.LowerThan(lo)
		}
		return pubgrub.StrictlyLowerThan(c.next())
	case opTilde:
		if c.minor < 0 {
			return pubgrub.Between(lo, ver(c.major+1, 0, 0, ""))
		}
		return pubgrub.Between(lo, ver(c.major, c.minor+1, 0, ""))
	case opWildcard:
		return pubgrub.Between(lo, c.next())
	}

	// Caret.
	switch {
	case c.major > 0 || c.minor < 0:
		return pubgrub.Between(lo, ver(c.major+1, 0, 0, ""))
	case c.minor > 0 || c.patch < 0:
		return pubgrub.Between(lo, ver(0, c.minor+1, 0, ""))
	}
	return pubgrub.Between(lo, ver(0, 0, c.patch+1, ""))
}

// Range converts the requirement into a version set.
func (r VersionReq) Range() pubgrub.Range {
	out := pubgrub.Full()
	for _, c := range r.comparators {
		out = out.Intersection(c.rng())
	}
	return out
}

// Matches reports whether v satisfies the requirement.
func (r VersionReq) Matches(v *semver.Version) bool {
	return r.Range().Contains(v)
}

// IsAny reports whether the requirement accepts every version.
func (r VersionReq) IsAny() bool {
	return len(r.comparators) == 0
}

func (r VersionReq) String() string {
	if r.IsAny() {
		return "*"
	}
	parts := make([]string, 0, len(r.comparators))
	for _, c := range r.comparators {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ", ")
}

func (c comparator) String() string {
	var b strings.Builder
	switch c.op {
	case opExact:
		b.WriteString("=")
	case opGreater:
		b.WriteString(">")
	case opGreaterEq:
		b.WriteString(">=")
	case opLess:
		b.WriteString("<")
	case opLessEq:
		b.WriteString("<=")
	case opTilde:
		b.WriteString("~")
	case opCaret:
		b.WriteString("^")
	}

	b.WriteString(strconv.FormatInt(c.major, 10))
	for _, n := range []int64{c.minor, c.patch} {
		if n < 0 {
			if c.op == opWildcard {
				b.WriteString(".*")
			}
			break
		}
		b.WriteString(".")
		b.WriteString(strconv.FormatInt(n, 10))
	}
	if c.pre != "" {
		b.WriteString("-")
		b.WriteString(c.pre)
	}
	return b.String()
}

type reqKind uint8

const (
	reqAny reqKind = iota
	reqSemver
	reqLocked
)

// DependencyVersionReq is the version requirement of a dependency: any
// version, a semver requirement, or a version pinned by the lockfile while
// still remembering the requirement it was pinned under.
type DependencyVersionReq struct {
	kind  reqKind
	req   VersionReq
	exact *semver.Version
}

// AnyVersion returns the unconstrained requirement.
func AnyVersion() DependencyVersionReq {
	return DependencyVersionReq{}
}

// Req wraps a semver requirement.
func Req(r VersionReq) DependencyVersionReq {
	if r.IsAny() {
		return AnyVersion()
	}
	return DependencyVersionReq{kind: reqSemver, req: r}
}

// ExactVersion returns the requirement "=v".
func ExactVersion(v *semver.Version) DependencyVersionReq {
	return Req(ExactReq(v))
}

// Locked pins exact, which was chosen under req.
func Locked(exact *semver.Version, req VersionReq) DependencyVersionReq {
	return DependencyVersionReq{kind: reqLocked, req: req, exact: exact}
}

// ParseDependencyVersionReq parses s as a requirement; "*" and the empty
// string mean any version.
func ParseDependencyVersionReq(s string) (DependencyVersionReq, error) {
	if strings.TrimSpace(s) == "" {
		return AnyVersion(), nil
	}
	r, err := ParseVersionReq(s)
	if err != nil {
		return DependencyVersionReq{}, err
	}
	return Req(r), nil
}

// IsAny reports whether every version is accepted.
func (d DependencyVersionReq) IsAny() bool { return d.kind == reqAny }

// IsLocked reports whether the requirement was pinned by a lockfile.
func (d DependencyVersionReq) IsLocked() bool { return d.kind == reqLocked }

// LockedVersion returns the pinned version, if any.
func (d DependencyVersionReq) LockedVersion() (*semver.Version, bool) {
	return d.exact, d.kind == reqLocked
}

// VersionReq returns the semver requirement, "*" for any.
func (d DependencyVersionReq) VersionReq() VersionReq {
	return d.req
}

// Matches reports whether v is acceptable.
func (d DependencyVersionReq) Matches(v *semver.Version) bool {
	switch d.kind {
	case reqSemver:
		return d.req.Matches(v)
	case reqLocked:
		return d.exact.Equal(v)
	}
	return true
}

// Range converts the requirement into a version set. A locked requirement
// is the singleton of its pinned version.
func (d DependencyVersionReq) Range() pubgrub.Range {
	switch d.kind {
	case reqSemver:
		return d.req.Range()
	case reqLocked:
		return pubgrub.Singleton(d.exact)
	}
	return pubgrub.Full()
}

func (d DependencyVersionReq) String() string {
	switch d.kind {
	case reqSemver:
		return d.req.String()
	case reqLocked:
		return "=" + d.exact.String()
	}
	return "*"
}
