// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"github.com/DelevoXDG/scarb/core"
	"github.com/DelevoXDG/scarb/internal/oncemap"
	"github.com/Masterminds/semver/v3"
)

// Package is the unit the solver selects versions for: a package name drawn
// from one source. The same name from two sources is two packages.
type Package struct {
	Name   core.PackageName
	Source core.SourceID
}

func packageOf(d core.ManifestDependency) Package {
	return Package{Name: d.Name, Source: d.Source}
}

func packageOfID(id core.PackageID) Package {
	return Package{Name: id.Name, Source: id.Source}
}

// dependency is the registry query listing every version of p.
func (p Package) dependency() core.ManifestDependency {
	return core.ManifestDependency{Name: p.Name, Source: p.Source, VersionReq: core.AnyVersion()}
}

// String prints just the name; sources only show up where they disambiguate.
func (p Package) String() string {
	return string(p.Name)
}

func (p Package) errString() string {
	return string(p.Name) + " (" + p.Source.String() + ")"
}

// versionKey identifies one version of a package.
type versionKey struct {
	pkg     Package
	version string
}

func keyOf(id core.PackageID) versionKey {
	return versionKey{pkg: packageOfID(id), version: id.Version.String()}
}

func keyFor(p Package, v *semver.Version) versionKey {
	return versionKey{pkg: p, version: v.String()}
}

// versionsResponse is everything a registry knows about one package.
type versionsResponse struct {
	summaries []*core.Summary
}

// inMemoryIndex is shared by the fetch goroutines and the solver goroutine.
// An entry is registered by whoever first asks for the package, and fulfilled
// exactly once when the registry answers.
type inMemoryIndex struct {
	packages *oncemap.Map[Package, *versionsResponse]
}

func newInMemoryIndex() *inMemoryIndex {
	return &inMemoryIndex{packages: oncemap.New[Package, *versionsResponse]()}
}
