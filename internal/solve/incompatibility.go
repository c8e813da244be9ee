package solve

import (
	"sort"

	"crossdep/internal/unified"
	"crossdep/internal/version"
)

// icKind tags why an incompatibility exists: the external facts the
// provider reported, or a derived combination of two earlier ones. The
// incompatibility graph doubles as the derivation tree on failure.
type icKind int

const (
	icNotRoot icKind = iota
	icNoVersions
	icUnavailable
	icFromDependency
	icDerived
)

// incompatibility is a set of terms that cannot all hold at once.
type incompatibility struct {
	terms map[unified.Ref]term
	kind  icKind

	// icNoVersions, icUnavailable, icFromDependency
	pkg unified.Ref
	set unified.VersionSet

	// icUnavailable
	ver    version.Version
	reason string

	// icFromDependency
	dep    unified.Ref
	depSet unified.VersionSet

	// icDerived
	cause1, cause2 *incompatibility
}

// packages lists the incompatibility's packages in deterministic order.
func (ic *incompatibility) packages() []unified.Ref {
	out := make([]unified.Ref, 0, len(ic.terms))
	for ref := range ic.terms {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// isTerminal reports whether the incompatibility proves the whole query
// unsatisfiable: no terms at all, or only a positive term about the root.
func (ic *incompatibility) isTerminal(root unified.Ref) bool {
	if len(ic.terms) == 0 {
		return true
	}
	if len(ic.terms) == 1 {
		t, ok := ic.terms[root]
		return ok && t.positive
	}
	return false
}

// notRoot is the seed incompatibility: it is incompatible for the root
// package not to be selected at its singular version.
func notRoot(root unified.Ref) *incompatibility {
	return &incompatibility{
		kind:  icNotRoot,
		pkg:   root,
		terms: map[unified.Ref]term{root: negativeTerm(unified.SingletonSingular())},
	}
}

// noVersions records that no listed version of pkg lies in set.
func noVersions(pkg unified.Ref, set unified.VersionSet) *incompatibility {
	return &incompatibility{
		kind:  icNoVersions,
		pkg:   pkg,
		set:   set,
		terms: map[unified.Ref]term{pkg: positiveTerm(set)},
	}
}

// unavailable records that pkg@ver has no resolvable dependency data.
func unavailable(pkg unified.Ref, ver version.Version, set unified.VersionSet, reason string) *incompatibility {
	return &incompatibility{
		kind:   icUnavailable,
		pkg:    pkg,
		ver:    ver,
		set:    set,
		reason: reason,
		terms:  map[unified.Ref]term{pkg: positiveTerm(set)},
	}
}

// fromDependency records that pkg in pkgSet requires dep in depSet.
func fromDependency(pkg unified.Ref, pkgSet unified.VersionSet, dep unified.Ref, depSet unified.VersionSet) *incompatibility {
	return &incompatibility{
		kind:   icFromDependency,
		pkg:    pkg,
		set:    pkgSet,
		dep:    dep,
		depSet: depSet,
		terms: map[unified.Ref]term{
			pkg: positiveTerm(pkgSet),
			dep: negativeTerm(depSet),
		},
	}
}

// derive combines a conflict with the cause of its satisfier into the
// prior cause: the union of both term sets minus the satisfier package,
// plus, when the satisfier only partially covered the conflict's term,
// the leftover difference (PubGrub's conflict resolution step).
func derive(conflict, cause *incompatibility, satisfierPkg unified.Ref, satisfierTerm term, partial bool) *incompatibility {
	terms := make(map[unified.Ref]term, len(conflict.terms)+len(cause.terms))
	for ref, t := range conflict.terms {
		if ref == satisfierPkg {
			continue
		}
		terms[ref] = t
	}
	for ref, t := range cause.terms {
		if ref == satisfierPkg {
			continue
		}
		if existing, ok := terms[ref]; ok {
			terms[ref] = existing.union(t)
		} else {
			terms[ref] = t
		}
	}
	if partial {
		leftover := satisfierTerm.difference(conflict.terms[satisfierPkg]).negate()
		if existing, ok := terms[satisfierPkg]; ok {
			terms[satisfierPkg] = existing.union(leftover)
		} else {
			terms[satisfierPkg] = leftover
		}
	}
	return &incompatibility{kind: icDerived, terms: terms, cause1: conflict, cause2: cause}
}
