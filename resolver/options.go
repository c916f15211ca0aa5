// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolver

import (
	"io"

	"github.com/sirupsen/logrus"
)

// DefaultRequestBuffer is how many fetch requests may be queued before the
// solver waits for the fetch side to catch up.
const DefaultRequestBuffer = 300

// Options tune a resolution run.
type Options struct {
	// Logger receives debug output and, with Trace set, the solver trace.
	// Defaults to a logger that discards everything.
	Logger *logrus.Logger
	// Trace logs every version choice and dependency lookup of the solver.
	Trace bool
	// RequestBuffer is the capacity of the fetch request queue.
	RequestBuffer int
}

// An Option changes Options.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithTrace turns the solver trace on or off.
func WithTrace(trace bool) Option {
	return func(o *Options) { o.Trace = trace }
}

// WithRequestBuffer sets the fetch request queue capacity.
func WithRequestBuffer(n int) Option {
	return func(o *Options) { o.RequestBuffer = n }
}

func newOptions(opts []Option) Options {
	o := Options{RequestBuffer: DefaultRequestBuffer}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = logrus.New()
		o.Logger.Out = io.Discard
	}
	if o.RequestBuffer < 1 {
		o.RequestBuffer = 1
	}
	return o
}
