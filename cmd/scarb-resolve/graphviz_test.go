// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"testing"
)

func TestEmptyProject(t *testing.T) {
	t.Parallel()

	g := new(graphviz).New()

	b := g.output()
	want := "digraph { node [shape=box]; }"

	if b.String() != want {
		t.Fatalf("expected '%v', got '%v'", want, b.String())
	}
}

func TestSimpleProject(t *testing.T) {
	t.Parallel()

	g := new(graphviz).New()

	g.createNode("app", "0.1.0", []string{"bar", "foo"})
	g.createNode("bar", "0.2.1", nil)
	g.createNode("foo", "1.1.0", []string{"bar", "baz"})

	b := g.output()
	want := "digraph { node [shape=box]; " +
		"527074092 [label=\"app\n0.1.0\"];" +
		"1991736602 [label=\"bar\n0.2.1\"];" +
		"2851307223 [label=\"foo\n1.1.0\"];" +
		"527074092 -> 1991736602; " +
		"527074092 -> 2851307223; " +
		"2851307223 -> 1991736602; " +
		"}"
	if b.String() != want {
		t.Fatalf("expected '%v', got '%v'", want, b.String())
	}
}

func TestNoLinks(t *testing.T) {
	t.Parallel()

	g := new(graphviz).New()

	g.createNode("app", "", []string{})

	b := g.output()
	want := "digraph { node [shape=box]; 527074092 [label=\"app\"];}"
	if b.String() != want {
		t.Fatalf("expected '%v', got '%v'", want, b.String())
	}
}
