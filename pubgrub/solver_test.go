// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pubgrub

import (
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/Masterminds/semver/v3"
)

type pkg string

func (p pkg) String() string { return string(p) }

// candidates ranks packages with fewer matching versions higher.
type candidates int

func (c candidates) Compare(o candidates) int { return int(o) - int(c) }

// offlineProvider serves a fixed, in-memory universe of packages and always
// picks the highest matching version.
type offlineProvider struct {
	deps    map[pkg]map[string][]Dependency[pkg]
	failOn  pkg
	lookups int
}

func newOfflineProvider() *offlineProvider {
	return &offlineProvider{deps: make(map[pkg]map[string][]Dependency[pkg])}
}

func (op *offlineProvider) add(p pkg, ver string, deps ...Dependency[pkg]) {
	if op.deps[p] == nil {
		op.deps[p] = make(map[string][]Dependency[pkg])
	}
	op.deps[p][v(ver).String()] = deps
}

func (op *offlineProvider) versions(p pkg) []*semver.Version {
	var vs []*semver.Version
	for s := range op.deps[p] {
		vs = append(vs, v(s))
	}
	sort.Sort(sort.Reverse(semver.Collection(vs)))
	return vs
}

func (op *offlineProvider) Prioritize(p pkg, r Range) candidates {
	n := 0
	for _, ver := range op.versions(p) {
		if r.Contains(ver) {
			n++
		}
	}
	return candidates(n)
}

func (op *offlineProvider) ChooseVersion(p pkg, r Range) (*semver.Version, error) {
	if p == op.failOn {
		return nil, errors.New("registry unreachable")
	}
	for _, ver := range op.versions(p) {
		if r.Contains(ver) {
			return ver, nil
		}
	}
	return nil, nil
}

func (op *offlineProvider) GetDependencies(p pkg, ver *semver.Version) (Dependencies[pkg], error) {
	op.lookups++
	deps, has := op.deps[p][ver.String()]
	if !has {
		return Unknown[pkg]("not in index"), nil
	}
	return Available(deps), nil
}

func dep(p pkg, r Range) Dependency[pkg] {
	return Dependency[pkg]{Package: p, Range: r}
}

func caret(s string) Range {
	lo := v(s)
	return Between(lo, semver.New(lo.Major()+1, 0, 0, "", ""))
}

func assertSolution(t *testing.T, got map[pkg]*semver.Version, want map[pkg]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d packages in solution, got %d: %v", len(want), len(got), got)
	}
	for p, ver := range want {
		gv, has := got[p]
		if !has {
			t.Errorf("expected %s in solution", p)
			continue
		}
		if gv.String() != ver {
			t.Errorf("expected %s at %s, got %s", p, ver, gv)
		}
	}
}

func TestResolveNoConflict(t *testing.T) {
	op := newOfflineProvider()
	op.add("root", "1.0.0", dep("foo", caret("1.0.0")))
	op.add("foo", "1.0.0", dep("bar", caret("2.0.0")))
	op.add("bar", "1.0.0")
	op.add("bar", "2.0.0")

	sol, err := Resolve[pkg, candidates](op, "root", v("1.0.0"))
	if err != nil {
		t.Fatal(err)
	}
	assertSolution(t, sol, map[pkg]string{"root": "1.0.0", "foo": "1.0.0", "bar": "2.0.0"})
}

func TestResolveAvoidsConflictDuringDecisionMaking(t *testing.T) {
	op := newOfflineProvider()
	op.add("root", "1.0.0", dep("foo", caret("1.0.0")), dep("bar", caret("1.0.0")))
	op.add("foo", "1.1.0", dep("bar", caret("2.0.0")))
	op.add("foo", "1.0.0")
	op.add("bar", "1.0.0")
	op.add("bar", "1.1.0")
	op.add("bar", "2.0.0")

	sol, err := Resolve[pkg, candidates](op, "root", v("1.0.0"))
	if err != nil {
		t.Fatal(err)
	}
	assertSolution(t, sol, map[pkg]string{"root": "1.0.0", "foo": "1.0.0", "bar": "1.1.0"})
}

func TestResolveConflictResolution(t *testing.T) {
	op := newOfflineProvider()
	op.add("root", "1.0.0", dep("foo", HigherThan(v("1.0.0"))))
	op.add("foo", "2.0.0", dep("bar", caret("1.0.0")))
	op.add("foo", "1.0.0")
	op.add("bar", "1.0.0", dep("foo", caret("1.0.0")))

	sol, err := Resolve[pkg, candidates](op, "root", v("1.0.0"))
	if err != nil {
		t.Fatal(err)
	}
	assertSolution(t, sol, map[pkg]string{"root": "1.0.0", "foo": "1.0.0"})
}

func TestResolveConflictWithPartialSatisfier(t *testing.T) {
	op := newOfflineProvider()
	op.add("root", "1.0.0", dep("foo", caret("1.0.0")), dep("target", caret("2.0.0")))
	op.add("foo", "1.1.0", dep("left", caret("1.0.0")), dep("right", caret("1.0.0")))
	op.add("foo", "1.0.0")
	op.add("left", "1.0.0", dep("shared", HigherThan(v("1.0.0"))))
	op.add("right", "1.0.0", dep("shared", StrictlyLowerThan(v("2.0.0"))))
	op.add("shared", "2.0.0")
	op.add("shared", "1.0.0", dep("target", caret("1.0.0")))
	op.add("target", "2.0.0")
	op.add("target", "1.0.0")

	sol, err := Resolve[pkg, candidates](op, "root", v("1.0.0"))
	if err != nil {
		t.Fatal(err)
	}
	assertSolution(t, sol, map[pkg]string{"root": "1.0.0", "foo": "1.0.0", "target": "2.0.0"})
}

func TestResolveDoubleChoices(t *testing.T) {
	op := newOfflineProvider()
	op.add("a", "0.0.0", dep("b", Full()), dep("c", Full()))
	op.add("b", "0.0.0", dep("d", Singleton(v("0.0.0"))))
	op.add("b", "1.0.0", dep("d", Singleton(v("1.0.0"))))
	op.add("c", "0.0.0")
	op.add("c", "1.0.0", dep("d", Singleton(v("2.0.0"))))
	op.add("d", "0.0.0")

	sol, err := Resolve[pkg, candidates](op, "a", v("0.0.0"))
	if err != nil {
		t.Fatal(err)
	}
	assertSolution(t, sol, map[pkg]string{"a": "0.0.0", "b": "0.0.0", "c": "0.0.0", "d": "0.0.0"})
}

func TestResolveNoSolution(t *testing.T) {
	op := newOfflineProvider()
	op.add("root", "1.0.0", dep("foo", caret("1.0.0")))
	op.add("foo", "1.0.0", dep("bar", caret("2.0.0")))
	op.add("bar", "1.0.0")

	_, err := Resolve[pkg, candidates](op, "root", v("1.0.0"))
	var nse *NoSolutionError[pkg]
	if !errors.As(err, &nse) {
		t.Fatalf("expected a NoSolutionError, got %v", err)
	}

	msg := nse.Error()
	for _, want := range []string{"foo", "bar >=2.0.0, <3.0.0", "root =1.0.0"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected report to mention %q, got:\n%s", want, msg)
		}
	}
}

func TestResolveSharedConflict(t *testing.T) {
	op := newOfflineProvider()
	op.add("root", "1.0.0", dep("a", caret("1.0.0")), dep("b", caret("1.0.0")))
	op.add("a", "1.0.0", dep("e", Between(v("1.0.0"), v("1.1.0"))))
	op.add("b", "1.0.0", dep("e", Between(v("2.0.0"), v("2.1.0"))))
	op.add("e", "1.0.0")
	op.add("e", "2.0.0")

	_, err := Resolve[pkg, candidates](op, "root", v("1.0.0"))
	var nse *NoSolutionError[pkg]
	if !errors.As(err, &nse) {
		t.Fatalf("expected a NoSolutionError, got %v", err)
	}
	msg := nse.Error()
	for _, want := range []string{"e >=1.0.0, <1.1.0", "e >=2.0.0, <2.1.0"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected report to mention %q, got:\n%s", want, msg)
		}
	}
}

func TestResolveSelfDependency(t *testing.T) {
	op := newOfflineProvider()
	op.add("root", "1.0.0", dep("foo", Full()))
	op.add("foo", "1.0.0", dep("foo", Full()))

	_, err := Resolve[pkg, candidates](op, "root", v("1.0.0"))
	var sde *SelfDependencyError[pkg]
	if !errors.As(err, &sde) {
		t.Fatalf("expected a SelfDependencyError, got %v", err)
	}
	if sde.Package != "foo" {
		t.Errorf("expected foo to be reported, got %s", sde.Package)
	}
}

func TestResolveProviderError(t *testing.T) {
	op := newOfflineProvider()
	op.add("root", "1.0.0", dep("foo", Full()))
	op.add("foo", "1.0.0")
	op.failOn = "foo"

	_, err := Resolve[pkg, candidates](op, "root", v("1.0.0"))
	var cve *ChoosingVersionError
	if !errors.As(err, &cve) {
		t.Fatalf("expected a ChoosingVersionError, got %v", err)
	}
	if !strings.Contains(err.Error(), "registry unreachable") {
		t.Errorf("expected the provider error to be wrapped, got %q", err)
	}
}

func TestResolveRootPinnedAtVersion(t *testing.T) {
	op := newOfflineProvider()
	op.add("root", "1.0.0", dep("root", Full()))

	_, err := Resolve[pkg, candidates](op, "root", v("1.0.0"))
	if err == nil {
		t.Fatal("expected an error for a root depending on itself")
	}
}

func TestNormalizeDependenciesIntersectsDuplicates(t *testing.T) {
	deps, err := normalizeDependencies[pkg]("root", v("1.0.0"), []Dependency[pkg]{
		dep("foo", caret("1.0.0")),
		dep("bar", Full()),
		dep("foo", HigherThan(v("1.2.0"))),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(deps))
	}
	if want := Between(v("1.2.0"), v("2.0.0")); !deps[0].Range.Equal(want) {
		t.Errorf("expected %s, got %s", want, deps[0].Range)
	}
}
