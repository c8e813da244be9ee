package solve

import (
	"context"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"crossdep/internal/unified"
	"crossdep/internal/version"
)

// Provider adapts the unified index to the solver, carrying the query's
// cancellation context: callbacks observe cancellation at their boundary
// and surface it as an unavailability.
type Provider struct {
	Index *unified.Index
	Ctx   context.Context
}

// ListVersions lists candidates newest-first.
func (p *Provider) ListVersions(ref unified.Ref) []version.Version {
	return p.Index.ListVersions(ref)
}

// ChooseVersion returns the first listed version contained in set.
func (p *Provider) ChooseVersion(ref unified.Ref, set unified.VersionSet) (version.Version, bool) {
	for _, v := range p.Index.ListVersions(ref) {
		if set.Contains(v) {
			return v, true
		}
	}
	return nil, false
}

// Prioritize ranks a package for decision order. Every package ranks
// equally; ties break on the interning order, which is deterministic per
// query.
func (p *Provider) Prioritize(ref unified.Ref, set unified.VersionSet) int { return 1 }

// GetDependencies resolves pkg@v through the unified index.
func (p *Provider) GetDependencies(ref unified.Ref, v version.Version) unified.Dependencies {
	if p.Ctx != nil && p.Ctx.Err() != nil {
		return unified.Unavailable("cancelled")
	}
	return p.Index.GetDependencies(ref, v)
}

// Result is a successful resolution: the selected version of every
// package the solver decided, synthetic packages included (the façade
// filters those for presentation).
type Result struct {
	Selected map[unified.Ref]version.Version
}

// Resolve runs conflict-driven resolution rooted at root. It returns
// exactly one of: a Result, a DerivationTree (no solution), or an error
// (cancellation or internal failure).
func Resolve(ctx context.Context, provider *Provider, root unified.Ref) (*Result, *DerivationTree, error) {
	s := &state{
		provider: provider,
		root:     root,
		ps:       newPartialSolution(),
		byPkg:    make(map[unified.Ref][]*incompatibility),
	}
	s.record(notRoot(root))

	next := root
	for {
		if ctx.Err() != nil {
			return nil, nil, errbuilder.New().
				WithCode(errbuilder.CodeCanceled).
				WithMsg("resolution cancelled").
				WithCause(ctx.Err())
		}
		conflict, err := s.unitPropagation(next)
		if err != nil {
			return nil, nil, err
		}
		if conflict != nil {
			return nil, newDerivationTree(conflict, provider.Index.Interner), nil
		}
		pkg, done := s.makeDecision()
		if done {
			log.Ctx(ctx).Debug().Int("packages", len(s.ps.decisions)).Msg("resolution complete")
			return &Result{Selected: s.ps.decisions}, nil, nil
		}
		next = pkg
	}
}

type state struct {
	provider *Provider
	root     unified.Ref
	ps       *partialSolution
	byPkg    map[unified.Ref][]*incompatibility
}

func (s *state) record(ic *incompatibility) {
	for _, pkg := range ic.packages() {
		s.byPkg[pkg] = append(s.byPkg[pkg], ic)
	}
}

// unitPropagation derives everything forced by the incompatibilities
// touching changed packages, running conflict resolution whenever one is
// fully satisfied. A non-nil incompatibility return is a terminal proof
// of unsatisfiability.
func (s *state) unitPropagation(next unified.Ref) (*incompatibility, error) {
	worklist := []unified.Ref{next}
	for len(worklist) > 0 {
		pkg := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		incompats := s.byPkg[pkg]
		for i := len(incompats) - 1; i >= 0; i-- {
			ic := incompats[i]
			rel, unsatisfied := s.ps.relation(ic)
			switch rel {
			case relationSatisfied:
				rootCause, terminal, err := s.resolveConflict(ic)
				if terminal != nil || err != nil {
					return terminal, err
				}
				rel, unsatisfied = s.ps.relation(rootCause)
				if rel != relationAlmostSatisfied {
					return nil, errbuilder.New().
						WithCode(errbuilder.CodeInternal).
						WithMsg("conflict resolution did not yield an almost-satisfied cause")
				}
				s.ps.addDerivation(unsatisfied, rootCause.terms[unsatisfied].negate(), rootCause)
				worklist = worklist[:0]
				worklist = append(worklist, unsatisfied)
			case relationAlmostSatisfied:
				s.ps.addDerivation(unsatisfied, ic.terms[unsatisfied].negate(), ic)
				worklist = append(worklist, unsatisfied)
			}
		}
	}
	return nil, nil
}

// resolveConflict walks satisfier causes back to a root cause, learning a
// derived incompatibility and backtracking (PubGrub conflict resolution).
func (s *state) resolveConflict(conflict *incompatibility) (*incompatibility, *incompatibility, error) {
	ic := conflict
	for {
		if ic.isTerminal(s.root) {
			return nil, ic, nil
		}
		idx, ok := s.ps.satisfierIndex(ic)
		if !ok {
			return nil, nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("satisfied incompatibility has no satisfier")
		}
		satisfier := s.ps.assignments[idx]
		prevLevel := s.ps.previousSatisfierLevel(ic, idx)
		if satisfier.cause == nil || prevLevel != satisfier.level {
			s.ps.backtrack(prevLevel)
			if ic != conflict {
				s.record(ic)
			}
			return ic, nil, nil
		}
		partial := !satisfier.t.subsetOf(ic.terms[satisfier.pkg])
		ic = derive(ic, satisfier.cause, satisfier.pkg, satisfier.t, partial)
	}
}

// makeDecision selects the next undecided package and version, adding the
// version's dependency incompatibilities first; it declines to decide
// when one of them would be violated on the spot, leaving propagation to
// rule the version out.
func (s *state) makeDecision() (unified.Ref, bool) {
	pkg, acc, ok := s.nextUndecided()
	if !ok {
		return 0, true
	}
	allowed := acc.allowed()
	v, found := s.provider.ChooseVersion(pkg, allowed)
	if !found {
		s.record(noVersions(pkg, allowed))
		return pkg, false
	}

	deps := s.provider.GetDependencies(pkg, v)
	chosen := singletonSetFor(v, allowed)
	if !deps.IsAvailable() {
		s.record(unavailable(pkg, v, chosen, deps.Reason()))
		return pkg, false
	}

	conflictImmediately := false
	for _, depRef := range sortedRefs(deps.Constraints()) {
		depSet := deps.Constraints()[depRef]
		if depRef == pkg {
			if !depSet.Contains(v) {
				s.record(noVersions(pkg, chosen))
				conflictImmediately = true
			}
			continue
		}
		ic := fromDependency(pkg, chosen, depRef, depSet)
		s.record(ic)
		if s.wouldConflict(ic, pkg) {
			conflictImmediately = true
		}
	}
	if !conflictImmediately {
		s.ps.addDecision(pkg, v, chosen)
	}
	return pkg, false
}

// nextUndecided picks the undecided package with a positive accumulated
// term, preferring higher provider priority then lower interning order.
func (s *state) nextUndecided() (unified.Ref, term, bool) {
	bestSet := false
	var best unified.Ref
	bestPriority := 0
	for pkg, acc := range s.ps.cumulative {
		if !acc.positive {
			continue
		}
		if _, decided := s.ps.decisions[pkg]; decided {
			continue
		}
		priority := s.provider.Prioritize(pkg, acc.set)
		if !bestSet || priority > bestPriority || (priority == bestPriority && pkg < best) {
			best, bestPriority, bestSet = pkg, priority, true
		}
	}
	if !bestSet {
		return 0, term{}, false
	}
	return best, s.ps.cumulative[best], true
}

// wouldConflict reports whether deciding pkg@v would immediately satisfy
// ic: its other terms are already satisfied and the pkg term would be by
// the decision.
func (s *state) wouldConflict(ic *incompatibility, pkg unified.Ref) bool {
	for ref, t := range ic.terms {
		if ref == pkg {
			continue
		}
		acc, ok := s.ps.cumulative[ref]
		if !ok || relate(acc, t) != relationSatisfied {
			return false
		}
	}
	return true
}

func sortedRefs(m map[unified.Ref]unified.VersionSet) []unified.Ref {
	out := make([]unified.Ref, 0, len(m))
	for ref := range m {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// singletonSetFor builds the singleton set for a chosen version in its
// own ecosystem, narrowing from the accumulated allowed set's tag when
// the version type alone is ambiguous.
func singletonSetFor(v version.Version, allowed unified.VersionSet) unified.VersionSet {
	switch ver := v.(type) {
	case version.OpamVersion:
		return unified.SingletonOpam(ver)
	case version.DebianVersion:
		return unified.SingletonDebian(ver)
	case version.AlpineVersion:
		return unified.SingletonAlpine(ver)
	case version.CargoVersion:
		return unified.SingletonCargo(ver)
	case version.PlatformVersion:
		return unified.SingletonPlatform(ver)
	case version.SingularVersion:
		return unified.SingletonSingular()
	default:
		return allowed
	}
}
