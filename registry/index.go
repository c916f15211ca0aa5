// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package registry

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/DelevoXDG/scarb/core"
	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Format is an index file encoding.
type Format int

const (
	// TOML index files end in .toml.
	TOML Format = iota
	// YAML index files end in .yaml or .yml.
	YAML
)

func (f Format) String() string {
	switch f {
	case TOML:
		return "toml"
	case YAML:
		return "yaml"
	}
	return "unknown"
}

// FormatOf picks the format of an index file from its extension.
func FormatOf(path string) (Format, error) {
	switch filepath.Ext(path) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return 0, errors.Errorf("cannot tell the format of index file %s: want .toml, .yaml or .yml", path)
}

// An index file lists package versions and their dependencies:
//
//	default-source = "registry+https://scarbs.xyz/"
//
//	[[package]]
//	name = "foo"
//	version = "1.0.0"
//
//	[[package.dependency]]
//	name = "bar"
//	req = "^1.0"
//	kind = "test"
//
// Sources left out default to default-source, and without it to the default
// registry.
type rawIndex struct {
	DefaultSource string       `toml:"default-source,omitempty" yaml:"default-source,omitempty"`
	Packages      []rawSummary `toml:"package" yaml:"package"`
}

type rawSummary struct {
	Name         string          `toml:"name" yaml:"name"`
	Version      string          `toml:"version" yaml:"version"`
	Source       string          `toml:"source,omitempty" yaml:"source,omitempty"`
	Dependencies []rawDependency `toml:"dependency,omitempty" yaml:"dependency,omitempty"`
}

type rawDependency struct {
	Name   string `toml:"name" yaml:"name"`
	Req    string `toml:"req,omitempty" yaml:"req,omitempty"`
	Source string `toml:"source,omitempty" yaml:"source,omitempty"`
	Kind   string `toml:"kind,omitempty" yaml:"kind,omitempty"`
}

// LoadIndex reads the index file at path.
func LoadIndex(path string) ([]*core.Summary, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open index file %s", path)
	}
	defer file.Close()

	summaries, err := ReadIndex(file, f)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read index file %s", path)
	}
	return summaries, nil
}

// ReadIndex reads an index in format f.
func ReadIndex(r io.Reader, f Format) ([]*core.Summary, error) {
	buf := &bytes.Buffer{}
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, errors.Wrap(err, "unable to read byte stream")
	}

	var raw rawIndex
	var err error
	switch f {
	case TOML:
		err = toml.Unmarshal(buf.Bytes(), &raw)
	case YAML:
		err = yaml.Unmarshal(buf.Bytes(), &raw)
	default:
		err = errors.Errorf("unknown index format %d", f)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse %s index", f)
	}
	return fromRawIndex(raw)
}

// MarshalIndex encodes summaries as an index document in format f.
func MarshalIndex(summaries []*core.Summary, f Format) ([]byte, error) {
	raw := toRawIndex(summaries)
	switch f {
	case TOML:
		return toml.Marshal(raw)
	case YAML:
		return yaml.Marshal(raw)
	}
	return nil, errors.Errorf("unknown index format %d", f)
}

func fromRawIndex(raw rawIndex) ([]*core.Summary, error) {
	def := core.DefaultRegistry()
	if raw.DefaultSource != "" {
		var err error
		if def, err = core.ParseSourceID(raw.DefaultSource); err != nil {
			return nil, errors.Wrap(err, "invalid default-source")
		}
	}

	summaries := make([]*core.Summary, 0, len(raw.Packages))
	for i, rs := range raw.Packages {
		s, err := rs.summary(def)
		if err != nil {
			return nil, errors.Wrapf(err, "package %d", i)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func parseSource(s string, def core.SourceID) (core.SourceID, error) {
	if s == "" {
		return def, nil
	}
	return core.ParseSourceID(s)
}

func (rs rawSummary) summary(def core.SourceID) (*core.Summary, error) {
	if rs.Name == "" {
		return nil, errors.New("missing package name")
	}
	v, err := semver.StrictNewVersion(rs.Version)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid version %q of %s", rs.Version, rs.Name)
	}
	src, err := parseSource(rs.Source, def)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid source of %s", rs.Name)
	}

	s := &core.Summary{ID: core.NewPackageID(core.PackageName(rs.Name), v, src)}
	for _, rd := range rs.Dependencies {
		d, err := rd.dependency(def)
		if err != nil {
			return nil, errors.Wrapf(err, "dependency of %s", s.ID)
		}
		s.Dependencies = append(s.Dependencies, d)
	}
	return s, nil
}

func (rd rawDependency) dependency(def core.SourceID) (core.ManifestDependency, error) {
	if rd.Name == "" {
		return core.ManifestDependency{}, errors.New("missing dependency name")
	}
	req, err := core.ParseDependencyVersionReq(rd.Req)
	if err != nil {
		return core.ManifestDependency{}, errors.Wrapf(err, "invalid requirement of %s", rd.Name)
	}
	src, err := parseSource(rd.Source, def)
	if err != nil {
		return core.ManifestDependency{}, errors.Wrapf(err, "invalid source of %s", rd.Name)
	}
	kind := core.NormalDep
	if rd.Kind != "" && rd.Kind != "normal" {
		kind = core.TargetDep(rd.Kind)
	}
	return core.ManifestDependency{
		Name:       core.PackageName(rd.Name),
		Source:     src,
		VersionReq: req,
		Kind:       kind,
	}, nil
}

func toRawIndex(summaries []*core.Summary) rawIndex {
	raw := rawIndex{Packages: make([]rawSummary, 0, len(summaries))}
	for _, s := range summaries {
		rs := rawSummary{
			Name:    string(s.ID.Name),
			Version: s.ID.Version.String(),
			Source:  s.ID.Source.String(),
		}
		for _, d := range s.Dependencies {
			rd := rawDependency{
				Name:   string(d.Name),
				Source: d.Source.String(),
			}
			if !d.VersionReq.IsAny() {
				rd.Req = d.VersionReq.String()
			}
			if !d.Kind.IsNormal() {
				rd.Kind = d.Kind.Target
			}
			rs.Dependencies = append(rs.Dependencies, rd)
		}
		raw.Packages = append(raw.Packages, rs)
	}
	return raw
}
