// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"strings"
)

type graphviz struct {
	ps []*gvnode
	b  bytes.Buffer
	h  map[string]uint32
}

type gvnode struct {
	pkg      string
	version  string
	children []string
}

func (g graphviz) New() *graphviz {
	ga := &graphviz{
		ps: []*gvnode{},
		h:  make(map[string]uint32),
	}
	return ga
}

func (g graphviz) output() bytes.Buffer {
	g.b.WriteString("digraph { node [shape=box]; ")

	for _, gvp := range g.ps {
		g.h[gvp.pkg] = gvp.hash()

		// Create node string
		g.b.WriteString(fmt.Sprintf("%d [label=\"%s\"];", gvp.hash(), gvp.label()))
	}

	// Store relations to avoid duplication
	rels := make(map[string]bool)

	// Create relations
	for _, dp := range g.ps {
		for _, child := range dp.children {
			hsh, has := g.h[child]
			if !has {
				continue
			}
			r := fmt.Sprintf("%d -> %d", g.h[dp.pkg], hsh)

			if _, ex := rels[r]; !ex {
				g.b.WriteString(r + "; ")
				rels[r] = true
			}
		}
	}

	g.b.WriteString("}")

	return g.b
}

func (g *graphviz) createNode(p, v string, c []string) {
	pr := &gvnode{
		pkg:      p,
		version:  v,
		children: c,
	}

	g.ps = append(g.ps, pr)
}

func (dp gvnode) hash() uint32 {
	h := fnv.New32a()
	h.Write([]byte(dp.pkg))
	return h.Sum32()
}

func (dp gvnode) label() string {
	label := []string{dp.pkg}

	if dp.version != "" {
		label = append(label, dp.version)
	}

	return strings.Join(label, "\n")
}
