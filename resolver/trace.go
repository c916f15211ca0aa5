// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"fmt"
	"strings"

	"github.com/DelevoXDG/scarb/core"
	"github.com/DelevoXDG/scarb/pubgrub"
	"github.com/Masterminds/semver/v3"
)

const (
	successChar   = "✓"
	successCharSp = successChar + " "
	failChar      = "✗"
	failCharSp    = failChar + " "
	backChar      = "←"
)

func (p *provider) tracePrefixFor(pkg Package) string {
	depth, has := p.depthOf(pkg)
	if !has {
		depth = 0
	}
	return strings.Repeat("| ", depth+1)
}

func (p *provider) traceSelect(pkg Package, rng pubgrub.Range, v *semver.Version) {
	if !p.trace {
		return
	}

	prefix := p.tracePrefixFor(pkg)
	var msg string
	if v == nil {
		msg = fmt.Sprintf("%sno version of %s in %s", failCharSp, pkg.errString(), rng)
	} else {
		msg = fmt.Sprintf("%sselect %s at %s", successCharSp, pkg.errString(), v)
	}
	p.l.Info(tracePrefix(msg, prefix, prefix))
}

func (p *provider) traceDependencies(pkg Package, v *semver.Version, deps []pubgrub.Dependency[Package]) {
	if !p.trace {
		return
	}

	prefix := p.tracePrefixFor(pkg)
	var buf strings.Builder
	fmt.Fprintf(&buf, "? %s %s has %d dependencies", pkg.errString(), v, len(deps))
	for _, d := range deps {
		fmt.Fprintf(&buf, "\n  %s %s", d.Package.errString(), d.Range)
	}
	p.l.Info(tracePrefix(buf.String(), prefix, prefix))
}

func (p *provider) traceRewrite(parent core.PackageID, from, to core.ManifestDependency, used bool) {
	if !p.trace {
		return
	}

	prefix := p.tracePrefixFor(packageOfID(parent))
	var msg string
	if used {
		msg = fmt.Sprintf("%s%s: %s rewritten to %s", successCharSp, parent.Name, from, to.Source)
	} else {
		msg = fmt.Sprintf("%s%s: %s not available from %s, keeping %s", backChar+" ", parent.Name, from.Name, to.Source, from.Source)
	}
	p.l.Info(tracePrefix(msg, prefix, prefix))
}

func (p *provider) traceInvalid(err error) {
	if !p.trace {
		return
	}
	p.l.Info(tracePrefix(fmt.Sprintf("%s%s", failCharSp, err), "  ", ""))
}

func tracePrefix(msg, sep, fsep string) string {
	parts := strings.Split(strings.TrimSuffix(msg, "\n"), "\n")
	for k, str := range parts {
		if k == 0 {
			parts[k] = fsep + str
		} else {
			parts[k] = sep + str
		}
	}

	return strings.Join(parts, "\n")
}
