// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/DelevoXDG/scarb/core"
	"github.com/DelevoXDG/scarb/internal/feedback"
	"github.com/DelevoXDG/scarb/internal/fs"
	"github.com/DelevoXDG/scarb/registry"
	"github.com/DelevoXDG/scarb/resolver"
	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const resolveShortHelp = `Resolve the dependencies of root packages`
const resolveLongHelp = `
Resolve the dependencies of one or more root packages against package index
files, and print the chosen version of every package.

Each ROOT is name@version, or just name to pick the highest version of name
found in the indexes. Roots are resolved together, as one workspace.

Index files are TOML (.toml) or YAML (.yaml, .yml). -index may be repeated;
every source must be described by a single index file.

Unless -lock is given, Scarb.lock in the working directory is used as a hint
when it exists. With -write-lock, the result is written back to Scarb.lock.

The default output is a table of NAME, VERSION and SOURCE. -graph also lists
the direct dependencies of every package, -json prints the same data as JSON,
and -dot prints the dependency graph in GraphViz format.
`

func (cmd *resolveCommand) Name() string      { return "resolve" }
func (cmd *resolveCommand) Args() string      { return "ROOT..." }
func (cmd *resolveCommand) ShortHelp() string { return resolveShortHelp }
func (cmd *resolveCommand) LongHelp() string  { return resolveLongHelp }
func (cmd *resolveCommand) Hidden() bool      { return false }

func (cmd *resolveCommand) Register(fs *flag.FlagSet) {
	fs.Var(&cmd.indexes, "index", "package index file, may be repeated")
	fs.StringVar(&cmd.lock, "lock", "", "lock file used as a resolution hint")
	fs.StringVar(&cmd.cache, "cache", "", "summary cache directory (defaults to $SCARB_CACHE)")
	fs.BoolVar(&cmd.refresh, "refresh", false, "ignore summaries cached before this run")
	fs.BoolVar(&cmd.trace, "trace", false, "trace the solver's decisions")
	fs.BoolVar(&cmd.graph, "graph", false, "list the dependencies of every package")
	fs.BoolVar(&cmd.json, "json", false, "output in JSON format")
	fs.BoolVar(&cmd.dot, "dot", false, "output the dependency graph in GraphViz format")
	fs.BoolVar(&cmd.writeLock, "write-lock", false, "write the resolution to Scarb.lock")
	fs.DurationVar(&cmd.timeout, "timeout", 0, "give up after this long (0 means never)")
}

type resolveCommand struct {
	indexes   stringSlice
	lock      string
	cache     string
	refresh   bool
	trace     bool
	graph     bool
	json      bool
	dot       bool
	writeLock bool
	timeout   time.Duration
}

// stringSlice is a flag.Value collecting every occurrence of a flag.
type stringSlice []string

func (s *stringSlice) String() string {
	if s == nil || len(*s) == 0 {
		return ""
	}
	return strings.Join(*s, ", ")
}

func (s *stringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func (cmd *resolveCommand) Run(ctx *Ctx, args []string) error {
	if len(cmd.indexes) == 0 {
		return errors.New("at least one -index file is required")
	}
	if len(args) == 0 {
		return errors.New("no root packages given")
	}
	outputs := 0
	for _, b := range []bool{cmd.graph, cmd.json, cmd.dot} {
		if b {
			outputs++
		}
	}
	if outputs > 1 {
		return errors.New("only one of -graph, -json and -dot may be given")
	}

	l := cmd.logger(ctx)

	reg, all, err := cmd.loadIndexes(ctx)
	if err != nil {
		return err
	}

	roots := make([]*core.Summary, 0, len(args))
	for _, arg := range args {
		s, err := findRoot(all, arg)
		if err != nil {
			return err
		}
		roots = append(roots, s)
	}

	lock, err := cmd.loadLock(ctx)
	if err != nil {
		return err
	}

	var upstream core.Registry = reg
	cacheDir := cmd.cache
	if cacheDir == "" {
		cacheDir = ctx.CacheDir
	}
	if cacheDir != "" {
		var epoch int64
		if cmd.refresh {
			epoch = time.Now().Unix()
		}
		bc, err := registry.NewBoltCache(ctx.abs(cacheDir), reg, epoch, l)
		if err != nil {
			return err
		}
		defer bc.Close()
		upstream = bc
	}

	rctx := context.Background()
	if cmd.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(rctx, cmd.timeout)
		defer cancel()
	}

	r, err := resolver.Resolve(rctx, roots, upstream, lock,
		resolver.WithLogger(l),
		resolver.WithTrace(cmd.trace),
	)
	if err != nil {
		return err
	}

	if cmd.writeLock {
		next := core.LockfileFromResolve(r)
		b, err := next.MarshalTOML()
		if err != nil {
			return errors.Wrap(err, "unable to encode lock file")
		}
		path := filepath.Join(ctx.WorkingDir, core.LockName)
		if err := fs.WriteFileAtomic(path, b, 0666); err != nil {
			return errors.Wrapf(err, "unable to write %s", path)
		}

		members := make([]core.PackageName, 0, len(roots))
		for _, s := range roots {
			members = append(members, s.ID.Name)
		}
		for _, f := range feedback.DiffLocks(lock, next, members) {
			f.LogFeedback(ctx.Err)
		}
	}

	w := ctx.Out.Writer()
	var out outputter
	switch {
	case cmd.graph:
		out = &graphOutput{w: w}
	case cmd.json:
		out = &jsonOutput{w: w}
	case cmd.dot:
		out = &dotOutput{w: w}
	default:
		out = &tableOutput{w: tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)}
	}
	runOutput(out, r)
	return nil
}

func (cmd *resolveCommand) logger(ctx *Ctx) *logrus.Logger {
	l := logrus.New()
	l.Out = ctx.Err.Writer()
	l.Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	switch {
	case ctx.Verbose:
		l.Level = logrus.DebugLevel
	case cmd.trace:
		l.Level = logrus.InfoLevel
	default:
		l.Level = logrus.WarnLevel
	}
	return l
}

// loadIndexes reads every index file into its own registry, mounted under each
// source the file describes.
func (cmd *resolveCommand) loadIndexes(ctx *Ctx) (*registry.Dispatcher, []*core.Summary, error) {
	d := registry.NewDispatcher(registry.NewMemory())
	owners := make(map[string]string)
	var all []*core.Summary

	for _, path := range cmd.indexes {
		path = ctx.abs(path)
		summaries, err := registry.LoadIndex(path)
		if err != nil {
			return nil, nil, err
		}
		m := registry.NewMemory(summaries...)
		mounted := make(map[string]bool)
		for _, s := range summaries {
			src := s.ID.Source.String()
			if mounted[src] {
				continue
			}
			if owner, has := owners[src]; has {
				return nil, nil, errors.Errorf("source %s is described by both %s and %s", src, owner, path)
			}
			owners[src] = path
			mounted[src] = true
			d.Mount(src, m)
		}
		all = append(all, summaries...)
	}
	return d, all, nil
}

func (cmd *resolveCommand) loadLock(ctx *Ctx) (*core.Lockfile, error) {
	if cmd.lock != "" {
		return core.LoadLockfile(ctx.abs(cmd.lock))
	}
	path := filepath.Join(ctx.WorkingDir, core.LockName)
	if ok, err := fs.IsRegular(path); err != nil {
		return nil, errors.Wrapf(err, "unable to check %s", path)
	} else if !ok {
		return nil, nil
	}
	return core.LoadLockfile(path)
}

// findRoot picks the summary named by arg, which is name@version or name.
// A bare name selects the highest version.
func findRoot(all []*core.Summary, arg string) (*core.Summary, error) {
	name, ver := arg, ""
	if i := strings.IndexByte(arg, '@'); i >= 0 {
		name, ver = arg[:i], arg[i+1:]
	}
	if name == "" {
		return nil, errors.Errorf("invalid root %q", arg)
	}

	var want *semver.Version
	if ver != "" {
		var err error
		if want, err = semver.StrictNewVersion(ver); err != nil {
			return nil, errors.Wrapf(err, "invalid version in root %q", arg)
		}
	}

	var found []*core.Summary
	for _, s := range all {
		if s.ID.Name != core.PackageName(name) {
			continue
		}
		if want != nil && !s.ID.Version.Equal(want) {
			continue
		}
		found = append(found, s)
	}
	if len(found) == 0 {
		return nil, errors.Errorf("root %s not found in any index", arg)
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].ID.Version.GreaterThan(found[j].ID.Version)
	})
	best := found[0]
	for _, s := range found[1:] {
		if s.ID.Version.Equal(best.ID.Version) && s.ID.Source != best.ID.Source {
			return nil, errors.Errorf("root %s is ambiguous: found in %s and %s", arg, best.ID.Source, s.ID.Source)
		}
	}
	return best, nil
}

// PackageStatus is what is reported about a single resolved package.
type PackageStatus struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Source       string   `json:"source"`
	Dependencies []string `json:"dependencies,omitempty"`
}

type outputter interface {
	Header()
	Line(*PackageStatus)
	Footer()
}

func runOutput(out outputter, r *core.Resolve) {
	out.Header()
	for _, id := range r.PackageIDs() {
		ps := &PackageStatus{
			Name:    string(id.Name),
			Version: id.Version.String(),
			Source:  id.Source.String(),
		}
		for _, dep := range r.Deps(id) {
			ps.Dependencies = append(ps.Dependencies, string(dep.Name))
		}
		out.Line(ps)
	}
	out.Footer()
}

type tableOutput struct{ w *tabwriter.Writer }

func (out *tableOutput) Header() {
	fmt.Fprintf(out.w, "NAME\tVERSION\tSOURCE\t\n")
}

func (out *tableOutput) Line(ps *PackageStatus) {
	fmt.Fprintf(out.w, "%s\t%s\t%s\t\n", ps.Name, ps.Version, ps.Source)
}

func (out *tableOutput) Footer() {
	out.w.Flush()
}

type graphOutput struct{ w io.Writer }

func (out *graphOutput) Header() {}

func (out *graphOutput) Line(ps *PackageStatus) {
	fmt.Fprintf(out.w, "%s %s (%s)\n", ps.Name, ps.Version, ps.Source)
	for _, d := range ps.Dependencies {
		fmt.Fprintf(out.w, "    %s\n", d)
	}
}

func (out *graphOutput) Footer() {}

type jsonOutput struct {
	w        io.Writer
	packages []*PackageStatus
}

func (out *jsonOutput) Header() {
	out.packages = []*PackageStatus{}
}

func (out *jsonOutput) Line(ps *PackageStatus) {
	out.packages = append(out.packages, ps)
}

func (out *jsonOutput) Footer() {
	json.NewEncoder(out.w).Encode(out.packages)
}

type dotOutput struct {
	w io.Writer
	g *graphviz
}

func (out *dotOutput) Header() {
	out.g = (&graphviz{}).New()
}

func (out *dotOutput) Line(ps *PackageStatus) {
	out.g.createNode(ps.Name, ps.Version, ps.Dependencies)
}

func (out *dotOutput) Footer() {
	gvo := out.g.output()
	fmt.Fprint(out.w, gvo.String())
	fmt.Fprintln(out.w)
}
