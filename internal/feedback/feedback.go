// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package feedback

import (
	"fmt"
	"log"
)

// DepTypeMember represents a root package of the workspace
const DepTypeMember = "workspace member"

// DepTypeDirect represents a direct dependency of a workspace member
const DepTypeDirect = "direct dep"

// DepTypeTransitive represents a transitive dependency,
// or a dependency of a dependency
const DepTypeTransitive = "transitive dep"

// LockFeedback holds the change of one package in the lock file.
type LockFeedback struct {
	Name, DependencyType string
	Version              StringDiff
}

// LogFeedback logs the feedback
func (lf LockFeedback) LogFeedback(logger *log.Logger) {
	switch {
	case lf.Version.Previous == "":
		logger.Printf("  %v", GetLockingFeedback(lf.Version.Current, lf.DependencyType, lf.Name))
	case lf.Version.Current == "":
		logger.Printf("  %v", GetRemovingFeedback(lf.Version.Previous, lf.Name))
	default:
		logger.Printf("  %v", GetUpdatingFeedback(lf.Version, lf.DependencyType, lf.Name))
	}
}

// GetLockingFeedback returns dependency locking feedback string.
// Example:
// Locking in 1.1.4 for direct dep foo
func GetLockingFeedback(version, depType, name string) string {
	return fmt.Sprintf("Locking in %s for %s %s", version, depType, name)
}

// GetUpdatingFeedback returns dependency updating feedback string.
// Example:
// Updating 1.1.4 -> 1.2.0 for transitive dep bar
func GetUpdatingFeedback(version StringDiff, depType, name string) string {
	return fmt.Sprintf("Updating %s for %s %s", version, depType, name)
}

// GetRemovingFeedback returns dependency removal feedback string.
// Example:
// Removing 0.3.0 of unused baz
func GetRemovingFeedback(version, name string) string {
	return fmt.Sprintf("Removing %s of unused %s", version, name)
}
