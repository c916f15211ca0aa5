// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

import "context"

// A Registry answers which package versions satisfy a dependency.
//
// Implementations must be safe for concurrent use, and Query must be
// idempotent: the resolver may call it for the same dependency more than once
// across runs, although never concurrently for the same package within one.
type Registry interface {
	// Query returns the summaries of every version matching dep. An unknown
	// package is not an error; it yields no summaries.
	Query(ctx context.Context, dep ManifestDependency) ([]*Summary, error)
}
