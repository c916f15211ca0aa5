// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package test

import (
	"encoding/json"
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode"
)

var (
	// UpdateGolden controls updating test fixtures.
	UpdateGolden = flag.Bool("update", false, "update golden files")
)

// TestCase manages a command test case directory:
//
//	testcase.json  commands to run and the expected error
//	initial/       files the commands start from
//	stdout.txt     expected output of the last command
type TestCase struct {
	t             *testing.T
	name          string
	rootPath      string
	initialPath   string
	Commands      [][]string `json:"commands"`
	ErrorExpected string     `json:"error-expected"`
}

// NewTestCase loads the test case dir/name.
func NewTestCase(t *testing.T, dir, name string) *TestCase {
	rootPath := filepath.FromSlash(filepath.Join(dir, name))
	n := &TestCase{
		t:           t,
		name:        name,
		rootPath:    rootPath,
		initialPath: filepath.Join(rootPath, "initial"),
	}
	j, err := ioutil.ReadFile(filepath.Join(rootPath, "testcase.json"))
	if err != nil {
		t.Fatal(err)
	}
	err = json.Unmarshal(j, n)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

// CopyInitial copies the initial files into dir.
func (tc *TestCase) CopyInitial(dir string) {
	files, err := ioutil.ReadDir(tc.initialPath)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		tc.t.Fatal(err)
	}
	for _, fi := range files {
		if fi.IsDir() {
			continue
		}
		b, err := ioutil.ReadFile(filepath.Join(tc.initialPath, fi.Name()))
		if err != nil {
			tc.t.Fatal(err)
		}
		if err := ioutil.WriteFile(filepath.Join(dir, fi.Name()), b, 0666); err != nil {
			tc.t.Fatal(err)
		}
	}
}

// CompareOutput compares expected and actual stdout output.
func (tc *TestCase) CompareOutput(stdout string) {
	path := filepath.Join(tc.rootPath, "stdout.txt")
	if *UpdateGolden {
		if err := ioutil.WriteFile(path, []byte(stdout), 0666); err != nil {
			tc.t.Fatal(err)
		}
		return
	}

	expected, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Nothing to verify
			return
		}
		tc.t.Fatal(err)
	}

	expStr := normalizeLines(string(expected))
	stdout = normalizeLines(stdout)

	if expStr != stdout {
		tc.t.Errorf("(WNT):\n%s\n(GOT):\n%s\n", expStr, stdout)
	}
}

// normalizeLines returns a version with trailing whitespace stripped from each line.
func normalizeLines(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimRightFunc(lines[i], unicode.IsSpace)
	}
	return strings.Join(lines, "\n")
}

// CompareError compares expected and actual error
func (tc *TestCase) CompareError(err error, stderr string) {
	wantExists, want := tc.ErrorExpected != "", tc.ErrorExpected
	gotExists, got := stderr != "" && err != nil, stderr

	if wantExists && gotExists {
		switch c := strings.Count(got, want); c {
		case 0:
			tc.t.Errorf("expected error containing %s, got error %s", want, got)
		case 1:
		default:
			tc.t.Errorf("expected error %s matches %d times to actual error %s", want, c, got)
		}
	} else if !wantExists && gotExists {
		tc.t.Fatalf("error raised where none was expected: \n%v", stderr)
	} else if wantExists && !gotExists {
		tc.t.Error("error not raised where one was expected:", want)
	}
}
