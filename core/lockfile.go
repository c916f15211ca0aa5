// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

import (
	"bytes"
	"io"
	"os"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// LockName is the lockfile name.
const LockName = "Scarb.lock"

// LockVersion is the lockfile format version understood by ReadLockfile.
const LockVersion = 1

// LockedPackage is one pinned package.
type LockedPackage struct {
	Name         PackageName
	Version      *semver.Version
	Source       SourceID
	Dependencies []PackageName
}

// Lockfile pins package versions from an earlier resolution. The resolver
// only reads it as a hint; nothing here is authoritative.
type Lockfile struct {
	Version  int
	Packages []LockedPackage
}

// NewLockfile returns an empty lockfile.
func NewLockfile() *Lockfile {
	return &Lockfile{Version: LockVersion}
}

// Lookup returns the version pinned for name drawn from src.
func (l *Lockfile) Lookup(name PackageName, src SourceID) (*semver.Version, bool) {
	if l == nil {
		return nil, false
	}
	for _, p := range l.Packages {
		if p.Name == name && p.Source == src {
			return p.Version, true
		}
	}
	return nil, false
}

// LockfileFromResolve builds a lockfile pinning every package of r.
func LockfileFromResolve(r *Resolve) *Lockfile {
	l := NewLockfile()
	for _, id := range r.PackageIDs() {
		lp := LockedPackage{Name: id.Name, Version: id.Version, Source: id.Source}
		for _, d := range r.Deps(id) {
			lp.Dependencies = append(lp.Dependencies, d.Name)
		}
		l.Packages = append(l.Packages, lp)
	}
	return l
}

type rawLock struct {
	Version  int          `toml:"version"`
	Packages []rawLockPkg `toml:"package"`
}

type rawLockPkg struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Source       string   `toml:"source,omitempty"`
	Dependencies []string `toml:"dependencies,omitempty"`
}

// ReadLockfile reads a lockfile from r.
func ReadLockfile(r io.Reader) (*Lockfile, error) {
	buf := &bytes.Buffer{}
	_, err := buf.ReadFrom(r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read byte stream")
	}

	raw := rawLock{}
	err = toml.Unmarshal(buf.Bytes(), &raw)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse the lockfile as TOML")
	}
	return fromRawLock(raw)
}

// LoadLockfile reads the lockfile at path.
func LoadLockfile(path string) (*Lockfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open lockfile %s", path)
	}
	defer f.Close()

	l, err := ReadLockfile(f)
	return l, errors.Wrapf(err, "unable to load lockfile %s", path)
}

func fromRawLock(raw rawLock) (*Lockfile, error) {
	if raw.Version != LockVersion {
		return nil, errors.Errorf("unsupported lockfile version %d", raw.Version)
	}

	l := &Lockfile{Version: raw.Version, Packages: make([]LockedPackage, 0, len(raw.Packages))}
	for i, rp := range raw.Packages {
		if rp.Name == "" {
			return nil, errors.Errorf("package #%d has no name", i)
		}
		v, err := semver.StrictNewVersion(rp.Version)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid version %q for package %s", rp.Version, rp.Name)
		}

		src := DefaultRegistry()
		if rp.Source != "" {
			src, err = ParseSourceID(rp.Source)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid source for package %s", rp.Name)
			}
		}

		lp := LockedPackage{Name: PackageName(rp.Name), Version: v, Source: src}
		for _, d := range rp.Dependencies {
			lp.Dependencies = append(lp.Dependencies, PackageName(d))
		}
		l.Packages = append(l.Packages, lp)
	}
	return l, nil
}

// toRaw converts the lockfile into a representation suitable to write to disk.
func (l *Lockfile) toRaw() rawLock {
	raw := rawLock{Version: l.Version, Packages: make([]rawLockPkg, 0, len(l.Packages))}
	for _, p := range l.Packages {
		rp := rawLockPkg{Name: string(p.Name), Version: p.Version.String()}
		if !p.Source.IsDefaultRegistry() {
			rp.Source = p.Source.String()
		}
		for _, d := range p.Dependencies {
			rp.Dependencies = append(rp.Dependencies, string(d))
		}
		sort.Strings(rp.Dependencies)
		raw.Packages = append(raw.Packages, rp)
	}
	sort.Slice(raw.Packages, func(i, j int) bool { return raw.Packages[i].Name < raw.Packages[j].Name })
	return raw
}

// MarshalTOML serializes the lockfile into TOML via an intermediate raw form.
func (l *Lockfile) MarshalTOML() ([]byte, error) {
	result, err := toml.Marshal(l.toRaw())
	return result, errors.Wrap(err, "unable to marshal lockfile to TOML")
}
