// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

import (
	"strings"

	"github.com/pkg/errors"
)

// SourceKind enumerates the places packages can be drawn from.
type SourceKind uint8

const (
	// RegistrySource is a package index served over HTTP.
	RegistrySource SourceKind = iota
	// GitSource is a git repository, optionally pinned to a reference.
	GitSource
	// PathSource is a directory on the local filesystem.
	PathSource
	// StdSource is the bundled standard library.
	StdSource
)

func (k SourceKind) String() string {
	switch k {
	case RegistrySource:
		return "registry"
	case GitSource:
		return "git"
	case PathSource:
		return "path"
	case StdSource:
		return "std"
	}
	return "unknown"
}

// DefaultRegistryURL is the registry used by dependencies that do not name a
// source.
const DefaultRegistryURL = "https://scarbs.xyz/"

// SourceID identifies where a package comes from. It is a comparable value
// and may be used as a map key.
type SourceID struct {
	Kind SourceKind
	URL  string
	// Reference is the git reference in "branch=x", "tag=x" or "rev=x"
	// form. Empty for every other kind and for the default git branch.
	Reference string
}

// DefaultRegistry returns the source of the default package registry.
func DefaultRegistry() SourceID {
	return SourceID{Kind: RegistrySource, URL: DefaultRegistryURL}
}

// NewPathSource returns a path source rooted at dir.
func NewPathSource(dir string) SourceID {
	return SourceID{Kind: PathSource, URL: dir}
}

// NewGitSource returns a git source for url at ref. ref may be empty.
func NewGitSource(url, ref string) SourceID {
	return SourceID{Kind: GitSource, URL: url, Reference: ref}
}

// ParseSourceID parses the canonical string form produced by String.
func ParseSourceID(s string) (SourceID, error) {
	if s == "std" {
		return SourceID{Kind: StdSource}, nil
	}

	parts := strings.SplitN(s, "+", 2)
	if len(parts) != 2 || parts[1] == "" {
		return SourceID{}, errors.Errorf("invalid source id %q: expected kind+url", s)
	}

	kind, rest := parts[0], parts[1]
	switch kind {
	case "registry":
		return SourceID{Kind: RegistrySource, URL: rest}, nil
	case "path":
		return SourceID{Kind: PathSource, URL: rest}, nil
	case "git":
		url, query := rest, ""
		if i := strings.IndexByte(rest, '?'); i >= 0 {
			url, query = rest[:i], rest[i+1:]
		}
		if query != "" && !validGitReference(query) {
			return SourceID{}, errors.Errorf("invalid git reference %q in source id %q", query, s)
		}
		return SourceID{Kind: GitSource, URL: url, Reference: query}, nil
	}
	return SourceID{}, errors.Errorf("unsupported source kind %q in source id %q", kind, s)
}

func validGitReference(ref string) bool {
	kv := strings.SplitN(ref, "=", 2)
	if len(kv) != 2 || kv[1] == "" {
		return false
	}
	switch kv[0] {
	case "branch", "tag", "rev":
		return true
	}
	return false
}

// IsGit reports whether the source is a git repository.
func (s SourceID) IsGit() bool { return s.Kind == GitSource }

// IsPath reports whether the source is a local directory.
func (s SourceID) IsPath() bool { return s.Kind == PathSource }

// IsRegistry reports whether the source is a package registry.
func (s SourceID) IsRegistry() bool { return s.Kind == RegistrySource }

// IsDefaultRegistry reports whether s is the default registry.
func (s SourceID) IsDefaultRegistry() bool {
	return s == DefaultRegistry()
}

func (s SourceID) String() string {
	switch s.Kind {
	case StdSource:
		return "std"
	case GitSource:
		if s.Reference != "" {
			return "git+" + s.URL + "?" + s.Reference
		}
		return "git+" + s.URL
	}
	return s.Kind.String() + "+" + s.URL
}

// MarshalText implements encoding.TextMarshaler.
func (s SourceID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SourceID) UnmarshalText(b []byte) error {
	id, err := ParseSourceID(string(b))
	if err != nil {
		return err
	}
	*s = id
	return nil
}
