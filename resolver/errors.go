// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"bytes"
	"fmt"

	"github.com/DelevoXDG/scarb/core"
	"github.com/DelevoXDG/scarb/pubgrub"
	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

// ErrChannelClosed reports that the solver and the fetch side lost track of
// each other. It always indicates a bug.
var ErrChannelClosed = errors.New("channel closed")

// NoSolutionError is returned when no set of versions satisfies every
// constraint. Tree holds the full explanation.
type NoSolutionError struct {
	Tree pubgrub.DerivationTree[Package]
}

func (e *NoSolutionError) Error() string {
	return fmt.Sprintf("version solving failed:\n%s\n", pubgrub.Report[Package](e.Tree))
}

// PackageNotFoundError is returned when no summary satisfies a dependency.
type PackageNotFoundError struct {
	Name core.PackageName
	Req  core.DependencyVersionReq
}

func (e *PackageNotFoundError) Error() string {
	return fmt.Sprintf("cannot find package `%s %s`", e.Name, e.Req)
}

// QueryFailedError wraps an error returned by the registry.
type QueryFailedError struct {
	Package Package
	Err     error
}

func (e *QueryFailedError) Error() string {
	return fmt.Sprintf("failed to query package `%s`: %s", e.Package.errString(), e.Err)
}

// Cause returns the registry error.
func (e *QueryFailedError) Cause() error { return e.Err }

func (e *QueryFailedError) Unwrap() error { return e.Err }

// SelfDependencyError is returned when a package depends on itself.
type SelfDependencyError struct {
	Package Package
	Version *semver.Version
}

func (e *SelfDependencyError) Error() string {
	return fmt.Sprintf("self dependency found: `%s@%s`", e.Package, e.Version)
}

// IncompatibleSourcesError is returned when the solution picks the same
// package name from two sources.
type IncompatibleSourcesError struct {
	Name   core.PackageName
	First  core.SourceID
	Second core.SourceID
}

func (e *IncompatibleSourcesError) Error() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "found dependencies on the same package `%s` coming from incompatible sources:\n", e.Name)
	fmt.Fprintf(&buf, "source 1: %s\n", e.First)
	fmt.Fprintf(&buf, "source 2: %s", e.Second)
	return buf.String()
}

// formatError turns a solver error into one of the errors above, with
// context added where the solver's own message is not enough.
func formatError(err error) error {
	switch e := err.(type) {
	case *pubgrub.NoSolutionError[Package]:
		return &NoSolutionError{Tree: e.Tree}
	case *pubgrub.ChoosingVersionError:
		var qf *QueryFailedError
		var nf *PackageNotFoundError
		switch {
		case errors.As(e.Err, &qf):
			return errors.Wrap(qf, "dependency query failed")
		case errors.As(e.Err, &nf):
			return nf
		case errors.Is(e.Err, ErrChannelClosed):
			return e.Err
		}
		return errors.Wrap(e.Err, "cannot choose package version")
	case *pubgrub.RetrievingDependenciesError[Package]:
		return errors.Wrapf(e.Err, "cannot get dependencies of `%s@%s`", e.Package, e.Version)
	case *pubgrub.SelfDependencyError[Package]:
		return &SelfDependencyError{Package: e.Package, Version: e.Version}
	case *pubgrub.FailureError:
		return errors.Wrap(e, "resolver failure")
	}
	return err
}
