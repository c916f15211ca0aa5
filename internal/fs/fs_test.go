// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestRenameWithFallback(t *testing.T) {
	dir := t.TempDir()

	if err := RenameWithFallback(filepath.Join(dir, "does_not_exists"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for non existing file, but got nil")
	}

	srcpath := filepath.Join(dir, "src")
	if err := ioutil.WriteFile(srcpath, []byte("lock"), 0644); err != nil {
		t.Fatal(err)
	}

	dstpath := filepath.Join(dir, "dst")
	if err := RenameWithFallback(srcpath, dstpath); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(srcpath); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be gone, got %v", srcpath, err)
	}
	b, err := ioutil.ReadFile(dstpath)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "lock" {
		t.Fatalf("expected contents %q, got %q", "lock", b)
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()

	srcf := filepath.Join(dir, "srcfile")
	want := "hello world"
	if err := ioutil.WriteFile(srcf, []byte(want), 0640); err != nil {
		t.Fatal(err)
	}

	destf := filepath.Join(dir, "destf")
	if err := copyFile(srcf, destf); err != nil {
		t.Fatal(err)
	}

	got, err := ioutil.ReadFile(destf)
	if err != nil {
		t.Fatal(err)
	}
	if want != string(got) {
		t.Fatalf("expected: %s, got: %s", want, string(got))
	}

	wantinfo, err := os.Stat(srcf)
	if err != nil {
		t.Fatal(err)
	}
	gotinfo, err := os.Stat(destf)
	if err != nil {
		t.Fatal(err)
	}
	if wantinfo.Mode() != gotinfo.Mode() {
		t.Fatalf("expected %s: %#v\n to be the same mode as %s: %#v", srcf, wantinfo.Mode(), destf, gotinfo.Mode())
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Scarb.lock")

	for _, contents := range []string{"version = 1\n", "version = 1\n\n[[package]]\nname = \"a\"\n"} {
		if err := WriteFileAtomic(path, []byte(contents), 0644); err != nil {
			t.Fatal(err)
		}
		got, err := ioutil.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != contents {
			t.Fatalf("expected %q, got %q", contents, got)
		}
	}

	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the written file to remain, got %d entries", len(entries))
	}

	if err := WriteFileAtomic(filepath.Join(dir, "missing", "Scarb.lock"), nil, 0644); err == nil {
		t.Fatal("expected an error writing into a missing directory")
	}
}

func TestIsRegular(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "file")
	if err := ioutil.WriteFile(fn, nil, 0644); err != nil {
		t.Fatal(err)
	}

	absent := filepath.Join(dir, "absent")
	tests := []struct {
		path   string
		exists bool
		err    bool
	}{
		{dir, false, true},
		{fn, true, false},
		{absent, false, false},
	}

	for _, want := range tests {
		f := want.path
		got, err := IsRegular(f)
		if (err != nil) != want.err {
			t.Fatalf("unexpected error state for %s: %v", f, err)
		}
		if got != want.exists {
			t.Fatalf("expected %t for %s, got %t", want.exists, f, got)
		}
	}
}
