// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DelevoXDG/scarb/core"
	"github.com/sdboyer/constext"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type timeCount struct {
	count int
	start time.Time
}

type durCount struct {
	count int
	dur   time.Duration
}

// callManager keeps track of running registry queries and how long they took,
// per source kind. Its lifetime context outlives any single run failure, so
// queries already started are allowed to finish.
type callManager struct {
	ctx        context.Context
	cancelFunc context.CancelFunc
	mu         sync.Mutex // Guards all maps.
	running    map[Package]timeCount
	ran        map[core.SourceKind]durCount
}

func newCallManager(ctx context.Context) *callManager {
	ctx, cf := context.WithCancel(ctx)
	return &callManager{
		ctx:        ctx,
		cancelFunc: cf,
		running:    make(map[Package]timeCount),
		ran:        make(map[core.SourceKind]durCount),
	}
}

// setUpCall registers a call for pkg, combines inctx with the lifetime
// context, and returns a func to be deferred to clean it all up.
func (cm *callManager) setUpCall(inctx context.Context, pkg Package) (cctx context.Context, doneFunc func(), err error) {
	octx, err := cm.run(pkg)
	if err != nil {
		return nil, nil, err
	}

	cctx, cancelFunc := constext.Cons(inctx, octx)
	return cctx, func() {
		cm.done(pkg)
		cancelFunc() // ensure constext cancel goroutine is cleaned up
	}, nil
}

func (cm *callManager) run(pkg Package) (context.Context, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.ctx.Err() != nil {
		// We've already been canceled; error out.
		return nil, cm.ctx.Err()
	}

	if existing, has := cm.running[pkg]; has {
		existing.count++
		cm.running[pkg] = existing
	} else {
		cm.running[pkg] = timeCount{
			count: 1,
			start: time.Now(),
		}
	}

	return cm.ctx, nil
}

func (cm *callManager) done(pkg Package) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	existing, has := cm.running[pkg]
	if !has {
		panic(fmt.Sprintf("resolver: tried to complete a query for %s that had not registered via run()", pkg.errString()))
	}

	if existing.count > 1 {
		// If more than one is pending, don't stop the clock yet.
		existing.count--
		cm.running[pkg] = existing
		return
	}

	dc := cm.ran[pkg.Source.Kind]
	dc.count++
	dc.dur += time.Since(existing.start)
	cm.ran[pkg.Source.Kind] = dc
	delete(cm.running, pkg)
}

// logStats writes query counts and total durations per source kind.
func (cm *callManager) logStats(l *logrus.Logger) {
	if l.Level < logrus.DebugLevel {
		return
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	kinds := make([]core.SourceKind, 0, len(cm.ran))
	for k := range cm.ran {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		dc := cm.ran[k]
		l.WithFields(logrus.Fields{
			"source":   k.String(),
			"queries":  dc.count,
			"duration": dc.dur,
		}).Debug("Registry query statistics")
	}
}

// request asks the fetch coordinator for every version of a package.
type request struct {
	pkg Package
}

// resolverState is what the fetch side and the solver side of a run share.
type resolverState struct {
	index    *inMemoryIndex
	registry core.Registry
	calls    *callManager
	l        *logrus.Logger
}

// fetch drains requests, querying the registry for each one on its own
// goroutine, and fulfils the index with every answer. It returns once
// requests is closed and every query has returned.
//
// The first failing query cancels runCtx through fail, which stops the solver
// from waiting on answers that will never come. Queries already running are
// not interrupted; requests received afterwards are dropped.
func (s *resolverState) fetch(runCtx context.Context, requests <-chan request, fail context.CancelCauseFunc) error {
	var g errgroup.Group

	for req := range requests {
		if runCtx.Err() != nil {
			continue
		}

		req := req
		g.Go(func() error {
			summaries, err := s.processRequest(req)
			if err != nil {
				fail(err)
				return err
			}
			s.index.packages.Done(req.pkg, &versionsResponse{summaries: summaries})

			if s.l.Level >= logrus.DebugLevel {
				s.l.WithFields(logrus.Fields{
					"package":  req.pkg.Name,
					"source":   req.pkg.Source,
					"versions": len(summaries),
				}).Debug("Fetched package versions")
			}
			return nil
		})
	}

	return g.Wait()
}

func (s *resolverState) processRequest(req request) ([]*core.Summary, error) {
	ctx, done, err := s.calls.setUpCall(context.Background(), req.pkg)
	if err != nil {
		return nil, &QueryFailedError{Package: req.pkg, Err: err}
	}
	defer done()

	summaries, err := s.registry.Query(ctx, req.pkg.dependency())
	if err != nil {
		return nil, &QueryFailedError{Package: req.pkg, Err: err}
	}
	return summaries, nil
}
