// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"context"
	"sort"
	"sync"

	"github.com/DelevoXDG/scarb/core"
	"github.com/DelevoXDG/scarb/pubgrub"
	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type priorityKind uint8

const (
	// No depth known yet.
	noPriority priorityKind = iota
	// Ordered by distance from the roots.
	unspecifiedPriority
	// The range allows a single version. Not assigned yet.
	singletonPriority
	// The package was given by a direct URL. Not assigned yet.
	directURLPriority
	// The package is one of the roots.
	rootPriority
)

// priority ranks undecided packages for the solver: roots first, then by
// breadth-first depth from the roots, shallower first.
type priority struct {
	kind  priorityKind
	depth int
}

func (p priority) Compare(o priority) int {
	if p.kind != o.kind {
		return int(p.kind) - int(o.kind)
	}
	return o.depth - p.depth
}

// provider answers the solver's questions. Its methods run on the solver
// goroutine and block on the shared index until the fetch side has answered.
type provider struct {
	ctx      context.Context
	state    *resolverState
	requests chan<- request
	lock     *core.Lockfile
	l        *logrus.Logger
	trace    bool

	roots map[Package]struct{}
	main  map[versionKey]struct{}

	prioMu   sync.RWMutex // guards depth
	depth    map[Package]int
	sumMu    sync.RWMutex // guards packages
	packages map[versionKey]*core.Summary
}

func newProvider(ctx context.Context, state *resolverState, requests chan<- request, roots []*core.Summary, lock *core.Lockfile, o Options) *provider {
	p := &provider{
		ctx:      ctx,
		state:    state,
		requests: requests,
		lock:     lock,
		l:        o.Logger,
		trace:    o.Trace,
		roots:    make(map[Package]struct{}, len(roots)),
		main:     make(map[versionKey]struct{}, len(roots)),
		depth:    make(map[Package]int),
		packages: make(map[versionKey]*core.Summary),
	}
	for _, s := range roots {
		pkg := packageOfID(s.ID)
		p.roots[pkg] = struct{}{}
		p.main[keyOf(s.ID)] = struct{}{}
		p.depth[pkg] = 0
	}
	return p
}

// seed stores the root summaries in the index, so roots are never fetched,
// and requests every direct dependency of the roots.
func (p *provider) seed(roots []*core.Summary) {
	byPkg := make(map[Package][]*core.Summary)
	var order []Package
	for _, s := range roots {
		pkg := packageOfID(s.ID)
		if _, has := byPkg[pkg]; !has {
			order = append(order, pkg)
		}
		byPkg[pkg] = append(byPkg[pkg], s)
	}

	for _, pkg := range order {
		if p.state.index.packages.Register(pkg) {
			p.state.index.packages.Done(pkg, &versionsResponse{summaries: byPkg[pkg]})
		}
	}
	for _, s := range roots {
		for _, d := range s.FullDependencies() {
			p.enqueue(packageOf(d))
		}
	}
}

// enqueue asks the fetch side for pkg unless somebody already did.
func (p *provider) enqueue(pkg Package) {
	if !p.state.index.packages.Register(pkg) {
		return
	}

	if p.l.Level >= logrus.DebugLevel {
		p.l.WithFields(logrus.Fields{
			"package": pkg.Name,
			"source":  pkg.Source,
		}).Debug("Requesting package versions")
	}

	select {
	case p.requests <- request{pkg: pkg}:
	case <-p.ctx.Done():
		// The run is over; the wait that follows reports why.
	}
}

func (p *provider) isRoot(pkg Package) bool {
	_, has := p.roots[pkg]
	return has
}

func (p *provider) isMain(id core.PackageID) bool {
	_, has := p.main[keyOf(id)]
	return has
}

func (p *provider) depthOf(pkg Package) (int, bool) {
	p.prioMu.RLock()
	defer p.prioMu.RUnlock()
	d, has := p.depth[pkg]
	return d, has
}

// Prioritize makes sure pkg is being fetched and ranks it.
func (p *provider) Prioritize(pkg Package, _ pubgrub.Range) priority {
	p.enqueue(pkg)

	if p.isRoot(pkg) {
		return priority{kind: rootPriority}
	}
	if d, has := p.depthOf(pkg); has {
		return priority{kind: unspecifiedPriority, depth: d}
	}
	return priority{kind: noPriority}
}

// ChooseVersion picks the highest known version of pkg inside rng.
func (p *provider) ChooseVersion(pkg Package, rng pubgrub.Range) (*semver.Version, error) {
	summaries, err := p.query(pkg.dependency())
	if err != nil {
		return nil, err
	}

	for _, s := range summaries {
		if rng.Contains(s.ID.Version) {
			p.cache(s.ID, s)
			p.traceSelect(pkg, rng, s.ID.Version)
			return s.ID.Version, nil
		}
	}
	p.traceSelect(pkg, rng, nil)
	return nil, nil
}

// GetDependencies lists the dependencies of pkg at v as solver constraints.
func (p *provider) GetDependencies(pkg Package, v *semver.Version) (pubgrub.Dependencies[Package], error) {
	id := core.NewPackageID(pkg.Name, v, pkg.Source)
	summary, err := p.fetchSummary(id)
	if err != nil {
		return pubgrub.Dependencies[Package]{}, err
	}

	p.propagateDepth(pkg, summary)

	var deps []pubgrub.Dependency[Package]
	for _, d := range summary.FilteredFullDependencies(core.Propagation(p.isMain(id))) {
		if packageOf(d) == pkg {
			// Left for the solver to reject.
			deps = append(deps, pubgrub.Dependency[Package]{Package: pkg, Range: d.VersionReq.Range()})
			continue
		}

		d, err = p.rewriteDependencySource(summary.ID, d)
		if err != nil {
			return pubgrub.Dependencies[Package]{}, err
		}

		summaries, err := p.query(d)
		if err != nil {
			return pubgrub.Dependencies[Package]{}, err
		}
		d = p.lockDependency(d, summaries)

		var found *core.Summary
		for _, s := range summaries {
			if d.VersionReq.Matches(s.ID.Version) {
				found = s
				break
			}
		}
		if found == nil {
			return pubgrub.Dependencies[Package]{}, &PackageNotFoundError{Name: d.Name, Req: d.VersionReq}
		}
		deps = append(deps, pubgrub.Dependency[Package]{Package: packageOfID(found.ID), Range: d.VersionReq.Range()})
	}

	p.traceDependencies(pkg, v, deps)
	return pubgrub.Available(deps), nil
}

// propagateDepth places every dependency of summary one level below pkg,
// unless it is already known to sit higher.
func (p *provider) propagateDepth(pkg Package, summary *core.Summary) {
	d, has := p.depthOf(pkg)
	if !has {
		return
	}

	p.prioMu.Lock()
	defer p.prioMu.Unlock()
	for _, dep := range summary.FullDependencies() {
		dp := packageOf(dep)
		if cur, has := p.depth[dp]; !has || cur > d+1 {
			p.depth[dp] = d + 1
		}
	}
}

// lockDependency pins d to the version recorded in the lockfile, if d
// accepts that version and it is still available.
func (p *provider) lockDependency(d core.ManifestDependency, available []*core.Summary) core.ManifestDependency {
	if d.VersionReq.IsLocked() {
		return d
	}
	v, has := p.lock.Lookup(d.Name, d.Source)
	if !has || !d.VersionReq.Matches(v) {
		return d
	}
	for _, s := range available {
		if s.ID.Version.Equal(v) {
			return d.WithVersionReq(core.Locked(v, d.VersionReq.VersionReq()))
		}
	}
	return d
}

func (p *provider) cached(id core.PackageID) (*core.Summary, bool) {
	p.sumMu.RLock()
	defer p.sumMu.RUnlock()
	s, has := p.packages[keyOf(id)]
	return s, has
}

func (p *provider) cache(id core.PackageID, s *core.Summary) {
	p.sumMu.Lock()
	defer p.sumMu.Unlock()
	p.packages[keyOf(id)] = s
}

// fetchSummary returns the summary of exactly id, and starts fetching its
// dependencies.
func (p *provider) fetchSummary(id core.PackageID) (*core.Summary, error) {
	summary, has := p.cached(id)
	if !has {
		dep := core.ManifestDependency{
			Name:       id.Name,
			Source:     id.Source,
			VersionReq: core.ExactVersion(id.Version),
		}
		summaries, err := p.query(dep)
		if err != nil {
			return nil, err
		}
		for _, s := range summaries {
			if s.ID.Equal(id) {
				summary = s
				break
			}
		}
		if summary == nil {
			return nil, &PackageNotFoundError{Name: dep.Name, Req: dep.VersionReq}
		}
		p.cache(id, summary)
	}

	for _, d := range summary.FullDependencies() {
		p.enqueue(packageOf(d))
	}
	return summary, nil
}

// query is where the solver meets the fetch side: it requests the package
// of dep if nobody has yet, waits for the answer, and returns every known
// version sorted from highest to lowest.
func (p *provider) query(dep core.ManifestDependency) ([]*core.Summary, error) {
	pkg := packageOf(dep)
	p.enqueue(pkg)

	resp, err := p.state.index.packages.Wait(p.ctx, pkg)
	if err != nil {
		return nil, errors.Wrapf(ErrChannelClosed, "waiting for %s: %s", pkg.errString(), context.Cause(p.ctx))
	}

	summaries := make([]*core.Summary, len(resp.summaries))
	copy(summaries, resp.summaries)
	for _, s := range summaries {
		p.cache(s.ID, s)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].ID.Version.GreaterThan(summaries[j].ID.Version)
	})
	return summaries, nil
}

// rewriteDependencySource resolves path dependencies of git packages against
// the git source: a path inside a checkout means nothing outside of it. The
// rewritten dependency is used when the git source knows the package;
// otherwise d is returned unchanged.
func (p *provider) rewriteDependencySource(parent core.PackageID, d core.ManifestDependency) (core.ManifestDependency, error) {
	if !parent.Source.IsGit() || !d.Source.IsPath() {
		return d, nil
	}

	rewritten := d.WithSource(parent.Source)
	orig, alias := packageOf(d), packageOf(rewritten)

	// Reuse what was already fetched for the path source.
	if resp, has := p.state.index.packages.Get(orig); has && len(resp.summaries) > 0 && p.state.index.packages.Register(alias) {
		p.state.index.packages.Done(alias, resp)
	}

	summaries, err := p.query(rewritten)
	if err != nil {
		return core.ManifestDependency{}, err
	}
	if len(summaries) > 0 {
		p.traceRewrite(parent, d, rewritten, true)
		return rewritten, nil
	}
	p.traceRewrite(parent, d, rewritten, false)
	return d, nil
}
