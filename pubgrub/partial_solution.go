// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pubgrub

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

type decisionLevel int

type datedDerivation struct {
	globalIndex int
	level       decisionLevel
	cause       incompID
	// intersection of this derivation with every earlier one for the package
	accumulated Term
}

type packageAssignments struct {
	smallestLevel decisionLevel
	highestLevel  decisionLevel
	derivations   []datedDerivation

	// Exactly one of these describes the current state: a decision (version
	// set) or the running intersection of derivations.
	decided        bool
	decisionIndex  int
	decision       *semver.Version
	derivationTerm Term
}

func (pa *packageAssignments) term() Term {
	if pa.decided {
		return Exact(pa.decision)
	}
	return pa.derivationTerm
}

// partialSolution is the set of assignments made so far, in the order they
// were made, grouped per package.
type partialSolution[P Package] struct {
	nextGlobalIndex int
	currentLevel    decisionLevel
	assignments     map[P]*packageAssignments
	order           []P
}

func newPartialSolution[P Package]() *partialSolution[P] {
	return &partialSolution[P]{
		assignments: make(map[P]*packageAssignments),
	}
}

func (ps *partialSolution[P]) addDecision(p P, v *semver.Version) {
	pa, has := ps.assignments[p]
	if !has {
		panic(fmt.Sprintf("derivations must already exist for %s before deciding on it", p))
	}
	if pa.decided {
		panic(fmt.Sprintf("%s was already decided", p))
	}

	ps.currentLevel++
	pa.highestLevel = ps.currentLevel
	pa.decided = true
	pa.decision = v
	pa.decisionIndex = ps.nextGlobalIndex
	ps.nextGlobalIndex++
}

func (ps *partialSolution[P]) addDerivation(p P, cause incompID, store []*incompatibility[P]) {
	dd := datedDerivation{
		globalIndex: ps.nextGlobalIndex,
		level:       ps.currentLevel,
		cause:       cause,
		accumulated: store[cause].mustGet(p).Negate(),
	}
	ps.nextGlobalIndex++

	pa, has := ps.assignments[p]
	if !has {
		ps.assignments[p] = &packageAssignments{
			smallestLevel:  ps.currentLevel,
			highestLevel:   ps.currentLevel,
			derivations:    []datedDerivation{dd},
			derivationTerm: dd.accumulated,
		}
		ps.order = append(ps.order, p)
		return
	}

	if pa.decided {
		panic(fmt.Sprintf("derivation added for %s after a decision", p))
	}
	pa.highestLevel = ps.currentLevel
	pa.derivationTerm = pa.derivationTerm.Intersection(dd.accumulated)
	dd.accumulated = pa.derivationTerm
	pa.derivations = append(pa.derivations, dd)
}

// pickHighestPriority returns the undecided package with a positive
// derivation that the prioritizer ranks highest. Ties go to the package that
// was assigned first.
func pickHighestPriority[P Package, Pr Ordered[Pr]](ps *partialSolution[P], prioritize func(P, Range) Pr) (P, bool) {
	var (
		best     P
		bestPrio Pr
		found    bool
	)
	for _, p := range ps.order {
		pa := ps.assignments[p]
		if pa.decided || !pa.derivationTerm.Positive {
			continue
		}
		prio := prioritize(p, pa.derivationTerm.Range)
		if !found || prio.Compare(bestPrio) > 0 {
			best, bestPrio, found = p, prio, true
		}
	}
	return best, found
}

func (ps *partialSolution[P]) extractSolution() map[P]*semver.Version {
	sol := make(map[P]*semver.Version)
	for _, p := range ps.order {
		if pa := ps.assignments[p]; pa.decided {
			sol[p] = pa.decision
		}
	}
	return sol
}

// backtrack undoes every assignment made above level.
func (ps *partialSolution[P]) backtrack(level decisionLevel) {
	ps.currentLevel = level

	kept := ps.order[:0]
	for _, p := range ps.order {
		pa := ps.assignments[p]
		switch {
		case pa.smallestLevel > level:
			delete(ps.assignments, p)
			continue
		case pa.highestLevel > level:
			for len(pa.derivations) > 0 && pa.derivations[len(pa.derivations)-1].level > level {
				pa.derivations = pa.derivations[:len(pa.derivations)-1]
			}
			if len(pa.derivations) == 0 {
				panic(fmt.Sprintf("no derivation left for %s after backtracking", p))
			}
			last := pa.derivations[len(pa.derivations)-1]
			pa.highestLevel = last.level
			pa.decided = false
			pa.decision = nil
			pa.derivationTerm = last.accumulated
		}
		kept = append(kept, p)
	}
	ps.order = kept
}

// addVersion records v for p as a decision, unless one of the incompatibilities
// introduced by p's dependencies would immediately be satisfied by it.
func (ps *partialSolution[P]) addVersion(p P, v *semver.Version, added []incompID, store []*incompatibility[P]) {
	exact := Exact(v)
	for _, id := range added {
		rel := store[id].relation(func(q P) (Term, bool) {
			if q == p {
				return exact, true
			}
			return ps.termIntersection(q)
		})
		if rel.kind == relSatisfied {
			return
		}
	}
	ps.addDecision(p, v)
}

func (ps *partialSolution[P]) termIntersection(p P) (Term, bool) {
	pa, has := ps.assignments[p]
	if !has {
		return Term{}, false
	}
	return pa.term(), true
}

func (ps *partialSolution[P]) relation(in *incompatibility[P]) relation[P] {
	return in.relation(ps.termIntersection)
}

type satisfier struct {
	cause       incompID
	hasCause    bool
	globalIndex int
	level       decisionLevel
}

// satisfier finds the earliest assignment for p which, intersected with
// start and all earlier assignments, satisfies t.
func (pa *packageAssignments) satisfier(p fmt.Stringer, t, start Term, causeTerm func(incompID) Term) satisfier {
	accum := start
	for _, dd := range pa.derivations {
		accum = accum.Intersection(causeTerm(dd.cause).Negate())
		if accum.SubsetOf(t) {
			return satisfier{cause: dd.cause, hasCause: true, globalIndex: dd.globalIndex, level: dd.level}
		}
	}
	if !pa.decided {
		panic(fmt.Sprintf("no satisfier for %s among derivations and no decision", p))
	}
	return satisfier{globalIndex: pa.decisionIndex, level: pa.highestLevel}
}

// satisfierSearch locates the assignment that turned in into a satisfied
// incompatibility, and the decision level of the previous satisfier.
func (ps *partialSolution[P]) satisfierSearch(in *incompatibility[P], store []*incompatibility[P]) (p P, sat satisfier, previousLevel decisionLevel) {
	found := make(map[P]satisfier, len(in.terms))
	for _, pt := range in.terms {
		pa := ps.assignments[pt.pkg]
		pkg := pt.pkg
		found[pkg] = pa.satisfier(pkg, pt.term, anyTerm(), func(id incompID) Term {
			return store[id].mustGet(pkg)
		})
	}

	p = latestSatisfier(in, found)
	sat = found[p]

	// Look for the previous satisfier of p: start from the satisfier's own
	// term and search again.
	pa := ps.assignments[p]
	var start Term
	if sat.hasCause {
		start = store[sat.cause].mustGet(p).Negate()
	} else {
		start = pa.term()
	}
	found[p] = pa.satisfier(p, in.mustGet(p), start, func(id incompID) Term {
		return store[id].mustGet(p)
	})

	previousLevel = found[latestSatisfier(in, found)].level
	if previousLevel < 1 {
		previousLevel = 1
	}
	return p, sat, previousLevel
}

func latestSatisfier[P Package](in *incompatibility[P], found map[P]satisfier) P {
	var (
		latest P
		idx    = -1
	)
	for _, pt := range in.terms {
		if s := found[pt.pkg]; s.globalIndex > idx {
			latest, idx = pt.pkg, s.globalIndex
		}
	}
	return latest
}
