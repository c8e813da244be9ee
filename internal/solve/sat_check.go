package solve

import (
	"context"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/crillab/gophersat/solver"
	"github.com/rs/zerolog/log"

	"crossdep/internal/unified"
)

// VerifySolution cross-checks a resolution against an independent SAT
// encoding: every selected package becomes a variable, every dependency
// edge an implication clause, and the root is asserted. A solution the
// conflict-driven engine produced must leave the formula satisfiable;
// a failure here means the provider answered inconsistently between the
// two passes. Used by the façade's verification debug path.
func VerifySolution(ctx context.Context, provider *Provider, root unified.Ref, result *Result) (bool, error) {
	if result == nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("no solution to verify")
	}
	vars := make(map[unified.Ref]int, len(result.Selected))
	nbVars := 0
	for _, ref := range sortedSelectedRefs(result) {
		nbVars++
		vars[ref] = nbVars
	}
	rootVar, ok := vars[root]
	if !ok {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("solution does not include the root package")
	}

	var clauses [][]int
	clauses = append(clauses, []int{rootVar})
	for ref, id := range vars {
		if ctx.Err() != nil {
			return false, errbuilder.New().
				WithCode(errbuilder.CodeCanceled).
				WithMsg("verification cancelled").
				WithCause(ctx.Err())
		}
		deps := provider.GetDependencies(ref, result.Selected[ref])
		if !deps.IsAvailable() {
			clauses = append(clauses, []int{-id})
			continue
		}
		for depRef, set := range deps.Constraints() {
			if depRef == ref {
				continue
			}
			depID, selected := vars[depRef]
			if !selected || !set.Contains(result.Selected[depRef]) {
				// the engine claims this edge satisfied but the selection
				// does not witness it
				clauses = append(clauses, []int{-id})
				continue
			}
			clauses = append(clauses, []int{-id, depID})
		}
	}

	costLits := make([]solver.Lit, 0, nbVars)
	costWeights := make([]int, 0, nbVars)
	for _, id := range vars {
		costLits = append(costLits, solver.IntToLit(int32(id)))
		costWeights = append(costWeights, 0)
	}
	problem := solver.ParseSliceNb(clauses, nbVars)
	problem.SetCostFunc(costLits, costWeights)
	sat := solver.New(problem)
	cost := sat.Minimize()
	satisfiable := cost >= 0
	if !satisfiable {
		log.Ctx(ctx).Warn().Int("packages", len(vars)).Msg("sat cross-check refuted the solution")
	}
	return satisfiable, nil
}

func sortedSelectedRefs(result *Result) []unified.Ref {
	out := make([]unified.Ref, 0, len(result.Selected))
	for ref := range result.Selected {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
