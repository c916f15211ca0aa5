// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DelevoXDG/scarb/core"
	"github.com/Masterminds/semver/v3"
)

func TestParseArgs(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		args         []string
		cmdName      string
		wantHelp     bool
		showOverview bool
	}{
		{[]string{"scarb-resolve"}, "", false, true},
		{[]string{"scarb-resolve", "help"}, "help", false, true},
		{[]string{"scarb-resolve", "-h"}, "-h", false, true},
		{[]string{"scarb-resolve", "version"}, "version", false, false},
		{[]string{"scarb-resolve", "help", "resolve"}, "resolve", true, false},
		{[]string{"scarb-resolve", "resolve", "-index", "x.toml", "a"}, "resolve", false, false},
	}

	for _, tc := range tcs {
		cmdName, wantHelp, showOverview := parseArgs(tc.args)
		if cmdName != tc.cmdName || wantHelp != tc.wantHelp || showOverview != tc.showOverview {
			t.Errorf("parseArgs(%q) = (%q, %v, %v), want (%q, %v, %v)",
				tc.args, cmdName, wantHelp, showOverview, tc.cmdName, tc.wantHelp, tc.showOverview)
		}
	}
}

func TestGetEnv(t *testing.T) {
	t.Parallel()

	env := []string{"SCARB_CACHE=/a", "OTHER=x", "SCARB_CACHE=/b", "EMPTY"}
	if got := getEnv(env, "SCARB_CACHE"); got != "/b" {
		t.Errorf("expected last value /b, got %q", got)
	}
	if got := getEnv(env, "EMPTY"); got != "" {
		t.Errorf("expected empty value, got %q", got)
	}
	if got := getEnv(env, "MISSING"); got != "" {
		t.Errorf("expected empty value, got %q", got)
	}
}

type runResult struct {
	code           int
	stdout, stderr string
}

func runIn(wd string, env []string, args ...string) runResult {
	var stdout, stderr bytes.Buffer
	c := &Config{
		WorkingDir: wd,
		Args:       append([]string{"scarb-resolve"}, args...),
		Env:        env,
		Stdout:     &stdout,
		Stderr:     &stderr,
	}
	code := c.Run()
	return runResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

const testIndex = `
[[package]]
name = "app"
version = "0.1.0"
source = "path+/work"

  [[package.dependency]]
  name = "foo"
  req = "^1.0"

[[package]]
name = "foo"
version = "1.0.0"

[[package]]
name = "foo"
version = "1.3.0"

  [[package.dependency]]
  name = "bar"

[[package]]
name = "bar"
version = "0.1.0"
`

func writeIndex(t *testing.T) string {
	t.Helper()
	wd := t.TempDir()
	if err := ioutil.WriteFile(filepath.Join(wd, "index.toml"), []byte(testIndex), 0666); err != nil {
		t.Fatal(err)
	}
	return wd
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	r := runIn(t.TempDir(), nil, "version")
	if r.code != 0 {
		t.Fatalf("unexpected exit code %d: %s", r.code, r.stderr)
	}
	if strings.TrimSpace(r.stdout) != Version {
		t.Errorf("expected %q, got %q", Version, r.stdout)
	}
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()

	r := runIn(t.TempDir(), nil, "frobnicate")
	if r.code != 1 {
		t.Fatalf("expected exit code 1, got %d", r.code)
	}
	if !strings.Contains(r.stderr, "frobnicate: no such command") {
		t.Errorf("unexpected stderr:\n%s", r.stderr)
	}
	if !strings.Contains(r.stderr, "Usage: scarb-resolve <command>") {
		t.Errorf("expected usage in stderr:\n%s", r.stderr)
	}
}

func TestUsage(t *testing.T) {
	t.Parallel()

	r := runIn(t.TempDir(), nil, "help")
	if r.code != 1 {
		t.Fatalf("expected exit code 1, got %d", r.code)
	}
	if r.stdout != "" {
		t.Errorf("expected usage on stderr only, got stdout:\n%s", r.stdout)
	}
	for _, want := range []string{
		"Usage: scarb-resolve <command>",
		"resolve  " + resolveShortHelp,
		"version  " + versionShortHelp,
		"resolve foo and bar as one workspace",
		"scarb-resolve help <command>",
	} {
		if !strings.Contains(r.stderr, want) {
			t.Errorf("expected %q in usage:\n%s", want, r.stderr)
		}
	}
}

func TestVersionRejectsArguments(t *testing.T) {
	t.Parallel()

	r := runIn(t.TempDir(), nil, "version", "extra")
	if r.code != 1 {
		t.Fatalf("expected exit code 1, got %d", r.code)
	}
	if !strings.Contains(r.stderr, "scarb-resolve version: unexpected arguments") {
		t.Errorf("unexpected stderr:\n%s", r.stderr)
	}
}

func TestCommandHelp(t *testing.T) {
	t.Parallel()

	r := runIn(t.TempDir(), nil, "help", "resolve")
	if r.code != 1 {
		t.Fatalf("expected exit code 1, got %d", r.code)
	}
	for _, want := range []string{"Usage: scarb-resolve resolve [flags] ROOT...", "-index", "-write-lock"} {
		if !strings.Contains(r.stderr, want) {
			t.Errorf("expected %q in help:\n%s", want, r.stderr)
		}
	}
}

func TestResolveWriteLock(t *testing.T) {
	t.Parallel()

	wd := writeIndex(t)
	r := runIn(wd, nil, "resolve", "-index", "index.toml", "-write-lock", "app")
	if r.code != 0 {
		t.Fatalf("unexpected exit code %d: %s", r.code, r.stderr)
	}

	for _, want := range []string{"Locking in 0.1.0 for workspace member app", "Locking in 1.3.0 for direct dep foo", "Locking in 0.1.0 for transitive dep bar"} {
		if !strings.Contains(r.stderr, want) {
			t.Errorf("expected %q in stderr:\n%s", want, r.stderr)
		}
	}

	l, err := core.LoadLockfile(filepath.Join(wd, core.LockName))
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Packages) != 3 {
		t.Fatalf("expected 3 locked packages, got %d", len(l.Packages))
	}
	v, has := l.Lookup("foo", core.DefaultRegistry())
	if !has || !v.Equal(semver.MustParse("1.3.0")) {
		t.Errorf("expected foo locked at 1.3.0, got %v", v)
	}
	app := l.Packages[0]
	if app.Name != "app" || app.Source != core.NewPathSource("/work") {
		t.Errorf("unexpected first locked package %s (%s)", app.Name, app.Source)
	}
	if len(app.Dependencies) != 1 || app.Dependencies[0] != "foo" {
		t.Errorf("expected app to depend on foo, got %v", app.Dependencies)
	}

	// The written lock pins foo on the next run, even once a newer version
	// appears.
	newer := testIndex + `
[[package]]
name = "foo"
version = "1.4.0"
`
	if err := ioutil.WriteFile(filepath.Join(wd, "index.toml"), []byte(newer), 0666); err != nil {
		t.Fatal(err)
	}
	r = runIn(wd, nil, "resolve", "-index", "index.toml", "-json", "app")
	if r.code != 0 {
		t.Fatalf("unexpected exit code %d: %s", r.code, r.stderr)
	}
	if !strings.Contains(r.stdout, `"name":"foo","version":"1.3.0"`) {
		t.Errorf("expected foo to stay at 1.3.0:\n%s", r.stdout)
	}
}

func TestResolveJSON(t *testing.T) {
	t.Parallel()

	wd := writeIndex(t)
	r := runIn(wd, nil, "resolve", "-index", "index.toml", "-json", "app@0.1.0")
	if r.code != 0 {
		t.Fatalf("unexpected exit code %d: %s", r.code, r.stderr)
	}

	var got []PackageStatus
	if err := json.Unmarshal([]byte(r.stdout), &got); err != nil {
		t.Fatal(err)
	}
	want := []PackageStatus{
		{Name: "app", Version: "0.1.0", Source: "path+/work", Dependencies: []string{"foo"}},
		{Name: "bar", Version: "0.1.0", Source: "registry+https://scarbs.xyz/"},
		{Name: "foo", Version: "1.3.0", Source: "registry+https://scarbs.xyz/", Dependencies: []string{"bar"}},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d packages, got %d", len(want), len(got))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Name != w.Name || g.Version != w.Version || g.Source != w.Source ||
			strings.Join(g.Dependencies, ",") != strings.Join(w.Dependencies, ",") {
			t.Errorf("package %d: expected %+v, got %+v", i, w, g)
		}
	}
}

func TestResolveDot(t *testing.T) {
	t.Parallel()

	wd := writeIndex(t)
	r := runIn(wd, nil, "resolve", "-index", "index.toml", "-dot", "app")
	if r.code != 0 {
		t.Fatalf("unexpected exit code %d: %s", r.code, r.stderr)
	}
	if !strings.HasPrefix(r.stdout, "digraph { node [shape=box]; ") {
		t.Errorf("expected a digraph, got:\n%s", r.stdout)
	}
	if !strings.Contains(r.stdout, "[label=\"foo\n1.3.0\"];") {
		t.Errorf("expected a foo node, got:\n%s", r.stdout)
	}
}

func TestResolveCache(t *testing.T) {
	t.Parallel()

	wd := writeIndex(t)
	cache := filepath.Join(wd, "cache")
	env := []string{"SCARB_CACHE=" + cache}

	for i := 0; i < 2; i++ {
		r := runIn(wd, env, "resolve", "-index", "index.toml", "-v", "app")
		if r.code != 0 {
			t.Fatalf("run %d: unexpected exit code %d: %s", i, r.code, r.stderr)
		}
		if !strings.Contains(r.stdout, "1.3.0") {
			t.Errorf("run %d: expected foo 1.3.0 in output:\n%s", i, r.stdout)
		}
		if i == 1 && !strings.Contains(r.stderr, "hit=true") {
			t.Errorf("expected cache hits on the second run:\n%s", r.stderr)
		}
	}
	if _, err := os.Stat(filepath.Join(cache, "summaries.db")); err != nil {
		t.Errorf("expected the cache database to exist: %v", err)
	}
}

func TestResolveFlagErrors(t *testing.T) {
	t.Parallel()

	wd := writeIndex(t)
	tcs := []struct {
		args []string
		want string
	}{
		{[]string{"resolve", "-index", "index.toml"}, "no root packages given"},
		{[]string{"resolve", "-index", "index.toml", "-dot", "-json", "app"}, "only one of -graph, -json and -dot"},
		{[]string{"resolve", "-index", "index.toml", "nope"}, "root nope not found in any index"},
		{[]string{"resolve", "-index", "index.toml", "app@0.2.0"}, "root app@0.2.0 not found in any index"},
		{[]string{"resolve", "-index", "index.toml", "app@x"}, "invalid version in root"},
		{[]string{"resolve", "-index", "index.toml", "-index", "index.toml", "app"}, "is described by both"},
		{[]string{"resolve", "-index", "index.json", "app"}, "index.json"},
	}

	for _, tc := range tcs {
		r := runIn(wd, nil, tc.args...)
		if r.code != 1 {
			t.Errorf("%v: expected exit code 1, got %d", tc.args, r.code)
			continue
		}
		if !strings.Contains(r.stderr, tc.want) {
			t.Errorf("%v: expected %q in stderr:\n%s", tc.args, tc.want, r.stderr)
		}
	}
}

func TestFindRoot(t *testing.T) {
	t.Parallel()

	mk := func(name, v string, src core.SourceID) *core.Summary {
		return &core.Summary{ID: core.NewPackageID(core.PackageName(name), semver.MustParse(v), src)}
	}
	work := core.NewPathSource("/work")
	all := []*core.Summary{
		mk("a", "0.1.0", work),
		mk("a", "0.3.0", work),
		mk("a", "0.2.0", work),
		mk("b", "1.0.0", work),
		mk("b", "1.0.0", core.DefaultRegistry()),
	}

	s, err := findRoot(all, "a")
	if err != nil {
		t.Fatal(err)
	}
	if s.ID.Version.String() != "0.3.0" {
		t.Errorf("expected the highest version 0.3.0, got %s", s.ID.Version)
	}

	s, err = findRoot(all, "a@0.2.0")
	if err != nil {
		t.Fatal(err)
	}
	if s.ID.Version.String() != "0.2.0" {
		t.Errorf("expected 0.2.0, got %s", s.ID.Version)
	}

	if _, err = findRoot(all, "b"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("expected an ambiguity error, got %v", err)
	}
	if _, err = findRoot(all, "@1.0.0"); err == nil {
		t.Error("expected an error for a root without a name")
	}
}
