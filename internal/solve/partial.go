package solve

import (
	"crossdep/internal/unified"
	"crossdep/internal/version"
)

// assignment is one entry of the chronological partial solution: either a
// decision (cause nil, ver set) or a derivation forced by an
// incompatibility.
type assignment struct {
	pkg   unified.Ref
	t     term
	level int
	cause *incompatibility
	ver   version.Version
}

// partialSolution is the solver's trail: the assignment sequence plus the
// per-package accumulated intersection of every term asserted so far.
type partialSolution struct {
	assignments []assignment
	decisions   map[unified.Ref]version.Version
	cumulative  map[unified.Ref]term
	level       int
}

func newPartialSolution() *partialSolution {
	return &partialSolution{
		decisions:  make(map[unified.Ref]version.Version),
		cumulative: make(map[unified.Ref]term),
	}
}

func (ps *partialSolution) accumulate(pkg unified.Ref, t term) {
	if acc, ok := ps.cumulative[pkg]; ok {
		ps.cumulative[pkg] = acc.intersect(t)
	} else {
		ps.cumulative[pkg] = t
	}
}

func (ps *partialSolution) addDecision(pkg unified.Ref, v version.Version, set unified.VersionSet) {
	ps.level++
	ps.decisions[pkg] = v
	t := positiveTerm(set)
	ps.assignments = append(ps.assignments, assignment{pkg: pkg, t: t, level: ps.level, ver: v})
	ps.accumulate(pkg, t)
}

func (ps *partialSolution) addDerivation(pkg unified.Ref, t term, cause *incompatibility) {
	ps.assignments = append(ps.assignments, assignment{pkg: pkg, t: t, level: ps.level, cause: cause})
	ps.accumulate(pkg, t)
}

// relation classifies an incompatibility against the current accumulated
// terms: satisfied (conflict), almost satisfied (exactly one term
// undetermined — its negation can be derived), or inconclusive.
func (ps *partialSolution) relation(ic *incompatibility) (relation, unified.Ref) {
	var unsatisfied unified.Ref
	found := false
	for _, pkg := range ic.packages() {
		t := ic.terms[pkg]
		acc, ok := ps.cumulative[pkg]
		if !ok {
			// nothing known: a negative term is trivially possible, a
			// positive one is undetermined
			if found {
				return relationInconclusive, 0
			}
			unsatisfied, found = pkg, true
			continue
		}
		switch relate(acc, t) {
		case relationContradicted:
			return relationContradicted, pkg
		case relationInconclusive:
			if found {
				return relationInconclusive, 0
			}
			unsatisfied, found = pkg, true
		}
	}
	if found {
		return relationAlmostSatisfied, unsatisfied
	}
	return relationSatisfied, 0
}

// relationAlmostSatisfied extends the term-level relation enum for the
// incompatibility level.
const relationAlmostSatisfied relation = relationInconclusive + 1

// satisfierIndex returns the index of the earliest assignment such that
// the prefix ending there satisfies ic.
func (ps *partialSolution) satisfierIndex(ic *incompatibility) (int, bool) {
	running := make(map[unified.Ref]term, len(ic.terms))
	satisfied := func() bool {
		for pkg, t := range ic.terms {
			acc, ok := running[pkg]
			if !ok || relate(acc, t) != relationSatisfied {
				return false
			}
		}
		return true
	}
	for i, a := range ps.assignments {
		if _, relevant := ic.terms[a.pkg]; !relevant {
			continue
		}
		if acc, ok := running[a.pkg]; ok {
			running[a.pkg] = acc.intersect(a.t)
		} else {
			running[a.pkg] = a.t
		}
		if satisfied() {
			return i, true
		}
	}
	return 0, false
}

// previousSatisfierLevel is the decision level of the earliest prefix
// that, together with the satisfier itself, satisfies ic; 1 when the
// satisfier alone suffices.
func (ps *partialSolution) previousSatisfierLevel(ic *incompatibility, satisfier int) int {
	sat := ps.assignments[satisfier]
	running := map[unified.Ref]term{sat.pkg: sat.t}
	satisfied := func() bool {
		for pkg, t := range ic.terms {
			acc, ok := running[pkg]
			if !ok || relate(acc, t) != relationSatisfied {
				return false
			}
		}
		return true
	}
	if satisfied() {
		return 1
	}
	for i := 0; i < satisfier; i++ {
		a := ps.assignments[i]
		if _, relevant := ic.terms[a.pkg]; !relevant {
			continue
		}
		if acc, ok := running[a.pkg]; ok {
			running[a.pkg] = acc.intersect(a.t)
		} else {
			running[a.pkg] = a.t
		}
		if satisfied() {
			if a.level < 1 {
				return 1
			}
			return a.level
		}
	}
	return 1
}

// backtrack drops every assignment above level and rebuilds the
// accumulated terms and decisions.
func (ps *partialSolution) backtrack(level int) {
	kept := ps.assignments[:0]
	for _, a := range ps.assignments {
		if a.level <= level {
			kept = append(kept, a)
		}
	}
	ps.assignments = kept
	ps.level = level
	ps.decisions = make(map[unified.Ref]version.Version)
	ps.cumulative = make(map[unified.Ref]term)
	for _, a := range ps.assignments {
		if a.cause == nil {
			ps.decisions[a.pkg] = a.ver
		}
		ps.accumulate(a.pkg, a.t)
	}
}
