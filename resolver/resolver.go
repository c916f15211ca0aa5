// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resolver picks one version of every package a set of root packages
// depends on, using the PubGrub algorithm.
//
// Package metadata is fetched concurrently while the solver runs. The solver
// runs on its own goroutine and asks for metadata through a shared index of
// write-once entries: the first request for a package starts a registry
// query, and every later request waits on the same entry. No package is ever
// queried twice in a run.
package resolver

import (
	"context"
	"fmt"

	"github.com/DelevoXDG/scarb/core"
	"github.com/DelevoXDG/scarb/pubgrub"
	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Resolve computes one version of every package reachable from summaries,
// querying registry for package metadata. lock may be nil; when given, the
// versions it records are preferred wherever the dependencies allow them.
//
// Resolve returns once every registry query it started has returned.
func Resolve(ctx context.Context, summaries []*core.Summary, registry core.Registry, lock *core.Lockfile, opts ...Option) (*core.Resolve, error) {
	r, _, err := run(ctx, summaries, registry, lock, newOptions(opts))
	return r, err
}

type solveResult struct {
	resolve *core.Resolve
	err     error
}

func run(ctx context.Context, summaries []*core.Summary, registry core.Registry, lock *core.Lockfile, o Options) (*core.Resolve, *resolverState, error) {
	if len(summaries) == 0 {
		return nil, nil, errors.New("empty summaries")
	}

	runCtx, fail := context.WithCancelCause(ctx)
	defer fail(nil)

	state := &resolverState{
		index:    newInMemoryIndex(),
		registry: registry,
		calls:    newCallManager(ctx),
		l:        o.Logger,
	}
	defer state.calls.cancelFunc()

	requests := make(chan request, o.RequestBuffer)
	fetched := make(chan error, 1)
	go func() {
		fetched <- state.fetch(runCtx, requests, fail)
	}()

	p := newProvider(runCtx, state, requests, summaries, lock, o)
	p.seed(summaries)

	done := make(chan solveResult, 1)
	go func() {
		defer close(done)
		defer close(requests)
		defer func() {
			if r := recover(); r != nil {
				o.Logger.WithField("panic", fmt.Sprint(r)).Error("Solver crashed")
			}
		}()

		r, err := p.solve(summaries)
		done <- solveResult{resolve: r, err: err}
	}()

	ferr := <-fetched
	res, ok := <-done
	state.calls.logStats(o.Logger)

	if err := ctx.Err(); err != nil {
		return nil, state, err
	}
	if ferr != nil {
		return nil, state, ferr
	}
	if !ok {
		return nil, state, ErrChannelClosed
	}
	if res.err != nil {
		return nil, state, res.err
	}

	if o.Logger.Level >= logrus.InfoLevel {
		o.Logger.WithField("packages", res.resolve.Len()).Info("Resolution complete")
	}
	return res.resolve, state, nil
}

// solve pins every root, runs the solver to completion and turns the
// solution into a graph.
func (p *provider) solve(summaries []*core.Summary) (*core.Resolve, error) {
	type root struct {
		pkg Package
		v   *semver.Version
	}
	var roots []root
	seen := make(map[versionKey]struct{})
	for _, s := range summaries {
		k := keyOf(s.ID)
		if _, has := seen[k]; has {
			continue
		}
		seen[k] = struct{}{}
		roots = append(roots, root{pkg: packageOfID(s.ID), v: s.ID.Version})
	}

	first, rest := roots[0], roots[1:]
	state := pubgrub.NewState(first.pkg, first.v)
	if err := state.UnitPropagation(first.pkg); err != nil {
		return nil, errors.Wrap(formatError(err), "unit propagation failed")
	}
	for _, r := range rest {
		state.AddNotRoot(r.pkg, r.v)
		if err := state.UnitPropagation(r.pkg); err != nil {
			return nil, errors.Wrap(formatError(err), "unit propagation failed")
		}
	}

	solution, err := pubgrub.ResolveState[Package, priority](p, state, first.pkg)
	if err != nil {
		err = formatError(err)
		p.traceInvalid(err)
		return nil, err
	}

	if err := validateSolution(solution); err != nil {
		p.traceInvalid(err)
		return nil, err
	}
	return p.buildResolve(solution)
}
