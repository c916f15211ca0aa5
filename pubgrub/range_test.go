// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pubgrub

import (
	"testing"

	"github.com/Masterminds/semver/v3"
)

func v(s string) *semver.Version {
	return semver.MustParse(s)
}

func TestRangeContains(t *testing.T) {
	table := []struct {
		name string
		r    Range
		in   []string
		out  []string
	}{
		{
			name: "empty",
			r:    Empty(),
			out:  []string{"0.0.0", "1.0.0"},
		},
		{
			name: "full",
			r:    Full(),
			in:   []string{"0.0.0", "1.0.0", "99.1.2"},
		},
		{
			name: "singleton",
			r:    Singleton(v("1.2.3")),
			in:   []string{"1.2.3"},
			out:  []string{"1.2.2", "1.2.4"},
		},
		{
			name: "between",
			r:    Between(v("1.0.0"), v("2.0.0")),
			in:   []string{"1.0.0", "1.9.9"},
			out:  []string{"0.9.0", "2.0.0"},
		},
		{
			name: "strict bounds",
			r:    StrictlyHigherThan(v("1.0.0")).Intersection(LowerThan(v("2.0.0"))),
			in:   []string{"1.0.1", "2.0.0"},
			out:  []string{"1.0.0", "2.0.1"},
		},
	}

	for _, c := range table {
		for _, s := range c.in {
			if !c.r.Contains(v(s)) {
				t.Errorf("%s: expected %s to contain %s", c.name, c.r, s)
			}
		}
		for _, s := range c.out {
			if c.r.Contains(v(s)) {
				t.Errorf("%s: expected %s not to contain %s", c.name, c.r, s)
			}
		}
	}
}

func TestRangeSetAlgebra(t *testing.T) {
	a := Between(v("1.0.0"), v("2.0.0"))
	b := Between(v("1.5.0"), v("3.0.0"))

	if got, want := a.Intersection(b), Between(v("1.5.0"), v("2.0.0")); !got.Equal(want) {
		t.Errorf("intersection: got %s, want %s", got, want)
	}
	if got, want := a.Union(b), Between(v("1.0.0"), v("3.0.0")); !got.Equal(want) {
		t.Errorf("union: got %s, want %s", got, want)
	}
	if !a.Complement().Complement().Equal(a) {
		t.Errorf("double complement of %s changed it to %s", a, a.Complement().Complement())
	}
	if !a.Intersection(a.Complement()).IsEmpty() {
		t.Errorf("%s intersected with its complement should be empty", a)
	}
	if !a.Union(a.Complement()).IsFull() {
		t.Errorf("%s united with its complement should be full", a)
	}
	if !Empty().Complement().IsFull() || !Full().Complement().IsEmpty() {
		t.Error("empty and full should complement each other")
	}

	// Adjacent intervals merge into one.
	c := Between(v("1.0.0"), v("2.0.0")).Union(Between(v("2.0.0"), v("3.0.0")))
	if !c.Equal(Between(v("1.0.0"), v("3.0.0"))) {
		t.Errorf("adjacent union should merge, got %s", c)
	}

	// Removing a single version splits the interval.
	split := a.Intersection(Singleton(v("1.2.0")).Complement())
	if split.Contains(v("1.2.0")) || !split.Contains(v("1.1.0")) || !split.Contains(v("1.3.0")) {
		t.Errorf("unexpected membership for %s", split)
	}
	if got := split.String(); got != ">=1.0.0, <1.2.0 || >1.2.0, <2.0.0" {
		t.Errorf("unexpected string %q", got)
	}

	if !Singleton(v("1.2.0")).SubsetOf(a) || a.SubsetOf(Singleton(v("1.2.0"))) {
		t.Error("subset relation is wrong")
	}
}

func TestRangeString(t *testing.T) {
	table := map[string]Range{
		"∅":                Empty(),
		"*":                Full(),
		"=1.0.0":           Singleton(v("1.0.0")),
		">=1.0.0, <2.0.0":  Between(v("1.0.0"), v("2.0.0")),
		"<1.0.0 || >1.0.0": Singleton(v("1.0.0")).Complement(),
	}
	for want, r := range table {
		if got := r.String(); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestTermRelations(t *testing.T) {
	r := Between(v("1.0.0"), v("2.0.0"))
	pos := Positive(r)
	neg := Negative(r)

	if !pos.Intersection(neg).isEmpty() {
		t.Error("a term intersected with its negation should be empty")
	}
	if !pos.Union(neg).Equal(anyTerm()) {
		t.Errorf("a term united with its negation should be any, got %s", pos.Union(neg))
	}
	if got := pos.relationWith(Exact(v("1.5.0"))); got != termSatisfied {
		t.Errorf("expected satisfied, got %v", got)
	}
	if got := pos.relationWith(Exact(v("2.5.0"))); got != termContradicted {
		t.Errorf("expected contradicted, got %v", got)
	}
	if got := pos.relationWith(Positive(Full())); got != termInconclusive {
		t.Errorf("expected inconclusive, got %v", got)
	}
	if !neg.Contains(v("2.0.0")) || neg.Contains(v("1.0.0")) {
		t.Error("negative term membership is wrong")
	}
}
