// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pubgrub

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// NoSolutionError is returned when the constraints cannot be satisfied.
type NoSolutionError[P Package] struct {
	Tree DerivationTree[P]
}

func (e *NoSolutionError[P]) Error() string {
	return "no solution found:\n" + Report[P](e.Tree)
}

// ChoosingVersionError wraps an error returned by
// DependencyProvider.ChooseVersion.
type ChoosingVersionError struct {
	Err error
}

func (e *ChoosingVersionError) Error() string {
	return fmt.Sprintf("error choosing package version: %s", e.Err)
}

func (e *ChoosingVersionError) Unwrap() error { return e.Err }

// RetrievingDependenciesError wraps an error returned by
// DependencyProvider.GetDependencies.
type RetrievingDependenciesError[P Package] struct {
	Package P
	Version *semver.Version
	Err     error
}

func (e *RetrievingDependenciesError[P]) Error() string {
	return fmt.Sprintf("error retrieving dependencies of %s %s: %s", e.Package, e.Version, e.Err)
}

func (e *RetrievingDependenciesError[P]) Unwrap() error { return e.Err }

// SelfDependencyError is returned when a package version lists itself as a
// dependency.
type SelfDependencyError[P Package] struct {
	Package P
	Version *semver.Version
}

func (e *SelfDependencyError[P]) Error() string {
	return fmt.Sprintf("%s %s depends on itself", e.Package, e.Version)
}

// FailureError signals a bug in the solver or a misbehaving provider.
type FailureError struct {
	Msg string
}

func (e *FailureError) Error() string {
	return e.Msg
}
