// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package core holds the data model shared by the resolver, the registries
// and the command line: package identifiers, sources, version requirements,
// dependencies, summaries and the resolved dependency graph.
package core

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// PackageName is the name a package is published under.
type PackageName string

func (n PackageName) String() string { return string(n) }

// PackageID is a package name at a concrete version, drawn from a source.
type PackageID struct {
	Name    PackageName
	Version *semver.Version
	Source  SourceID
}

// NewPackageID builds a PackageID.
func NewPackageID(name PackageName, v *semver.Version, src SourceID) PackageID {
	return PackageID{Name: name, Version: v, Source: src}
}

// Equal reports whether both ids name the same package version from the
// same source.
func (id PackageID) Equal(o PackageID) bool {
	return id.Name == o.Name && id.Source == o.Source && id.Version.Equal(o.Version)
}

func (id PackageID) String() string {
	return fmt.Sprintf("%s v%s (%s)", id.Name, id.Version, id.Source)
}

// Summary describes one package version: its id and everything it depends
// on. Summaries are immutable once built and are shared by pointer.
type Summary struct {
	ID           PackageID
	Dependencies []ManifestDependency
}

// FullDependencies lists every dependency of the package, of any kind.
func (s *Summary) FullDependencies() []ManifestDependency {
	return s.Dependencies
}

// FilteredFullDependencies lists the dependencies accepted by f.
func (s *Summary) FilteredFullDependencies(f DependencyFilter) []ManifestDependency {
	var out []ManifestDependency
	for _, d := range s.Dependencies {
		if f.Filter(d) {
			out = append(out, d)
		}
	}
	return out
}

// DepKind tells when a dependency is needed. The zero value is a normal
// dependency; target dependencies are only needed by a given target kind.
type DepKind struct {
	Target string
}

// NormalDep is a dependency needed wherever the package is used.
var NormalDep = DepKind{}

// TargetDep returns the kind of a dependency needed only by target kind t.
func TargetDep(t string) DepKind { return DepKind{Target: t} }

// IsNormal reports whether the kind is a normal dependency.
func (k DepKind) IsNormal() bool { return k.Target == "" }

// IsTest reports whether the dependency is needed only for tests.
func (k DepKind) IsTest() bool { return k.Target == "test" }

// IsPropagated reports whether the dependency matters to packages that
// depend on the declaring one.
func (k DepKind) IsPropagated() bool { return !k.IsTest() }

func (k DepKind) String() string {
	if k.IsNormal() {
		return "normal"
	}
	return "target=" + k.Target
}

// ManifestDependency is a dependency as declared in a manifest.
type ManifestDependency struct {
	Name       PackageName
	Source     SourceID
	VersionReq DependencyVersionReq
	Kind       DepKind
}

// WithSource returns a copy of d drawn from src.
func (d ManifestDependency) WithSource(src SourceID) ManifestDependency {
	d.Source = src
	return d
}

// WithVersionReq returns a copy of d with requirement r.
func (d ManifestDependency) WithVersionReq(r DependencyVersionReq) ManifestDependency {
	d.VersionReq = r
	return d
}

// MatchesSummary reports whether s satisfies d: same name, same source and a
// version accepted by the requirement.
func (d ManifestDependency) MatchesSummary(s *Summary) bool {
	return d.Name == s.ID.Name && d.Source == s.ID.Source && d.VersionReq.Matches(s.ID.Version)
}

func (d ManifestDependency) String() string {
	return fmt.Sprintf("%s %s (%s)", d.Name, d.VersionReq, d.Source)
}

// DependencyFilter selects which dependencies of a package take part in
// resolution.
type DependencyFilter struct {
	doPropagate bool
}

// Propagation returns the filter for a package: the packages being built
// (isMain) keep every dependency, every other package keeps only the
// dependencies that propagate to its dependents.
func Propagation(isMain bool) DependencyFilter {
	return DependencyFilter{doPropagate: isMain}
}

// Filter reports whether d passes.
func (f DependencyFilter) Filter(d ManifestDependency) bool {
	return f.doPropagate || d.Kind.IsPropagated()
}
