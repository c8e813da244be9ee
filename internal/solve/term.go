// Package solve implements the conflict-driven version solver behind the
// unified index: PubGrub-style unit propagation and
// conflict resolution over `package -> version-set` terms, producing
// either a selected-dependencies map or a derivation tree explaining why
// no solution exists.
package solve

import "crossdep/internal/unified"

// term is a statement about one package: a positive term asserts the
// selected version lies in set, a negative term asserts it does not (or
// the package is not selected at all).
type term struct {
	positive bool
	set      unified.VersionSet
}

func positiveTerm(set unified.VersionSet) term { return term{positive: true, set: set} }
func negativeTerm(set unified.VersionSet) term { return term{positive: false, set: set} }

func (t term) negate() term { return term{positive: !t.positive, set: t.set} }

// allowed is the version set a term admits, with negative terms admitting
// the complement. Every term about one package stays within that package's
// ecosystem, so the complement is the within-ecosystem one.
func (t term) allowed() unified.VersionSet {
	if t.positive {
		return t.set
	}
	return t.set.Complement()
}

// intersect is the conjunction of two statements about the same package.
func (t term) intersect(o term) term {
	switch {
	case t.positive && o.positive:
		return positiveTerm(t.set.Intersection(o.set))
	case !t.positive && !o.positive:
		return negativeTerm(t.set.Union(o.set))
	case t.positive:
		return positiveTerm(t.set.Intersection(o.set.Complement()))
	default:
		return positiveTerm(o.set.Intersection(t.set.Complement()))
	}
}

// union is the disjunction, by De Morgan.
func (t term) union(o term) term {
	return t.negate().intersect(o.negate()).negate()
}

// difference is t minus o.
func (t term) difference(o term) term { return t.intersect(o.negate()) }

func (t term) isEmpty() bool { return t.allowed().IsEmpty() }

// subsetOf reports whether every version satisfying t also satisfies o —
// the "t satisfies o" relation of the PubGrub paper.
func (t term) subsetOf(o term) bool {
	return t.intersect(o.negate()).isEmpty()
}

// relation classifies how an accumulated assignment term relates to an
// incompatibility term.
type relation int

const (
	relationSatisfied relation = iota
	relationContradicted
	relationInconclusive
)

func relate(acc term, t term) relation {
	if acc.subsetOf(t) {
		return relationSatisfied
	}
	if acc.intersect(t).isEmpty() {
		return relationContradicted
	}
	return relationInconclusive
}
