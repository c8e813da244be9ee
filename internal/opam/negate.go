package opam

import (
	"github.com/ZanzyTHEbar/errbuilder-go"
)

// Negate rewrites e so that it holds exactly when e does not, for the
// purpose of deciding whether a filtered dependency is wanted: De Morgan
// on conjunction/disjunction, relop flip on comparators, literals
// preserved, and pure version sub-terms stripped (they answer "which
// version", never "is this dependency wanted").
//
// A bare VersionRange cannot be negated in this context: the compiler
// never wraps a version-only expression in a Formula proxy, so reaching
// one here means the compiler state is inconsistent — an internal error,
// not a panic.
func Negate(e VersionExpr) (VersionExpr, error) {
	switch expr := e.(type) {
	case VersionRange:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("cannot negate a pure version range in a filter context")
	case Variable:
		return NotVariable{Name: expr.Name}, nil
	case NotVariable:
		return Variable{Name: expr.Name}, nil
	case VAnd:
		if _, ok := expr.LHS.(VersionRange); ok {
			return Negate(expr.RHS)
		}
		if _, ok := expr.RHS.(VersionRange); ok {
			return Negate(expr.LHS)
		}
		lhs, err := Negate(expr.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := Negate(expr.RHS)
		if err != nil {
			return nil, err
		}
		return VOr{LHS: lhs, RHS: rhs}, nil
	case VOr:
		if _, ok := expr.LHS.(VersionRange); ok {
			return Negate(expr.RHS)
		}
		if _, ok := expr.RHS.(VersionRange); ok {
			return Negate(expr.LHS)
		}
		lhs, err := Negate(expr.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := Negate(expr.RHS)
		if err != nil {
			return nil, err
		}
		return VAnd{LHS: lhs, RHS: rhs}, nil
	case Comparator:
		return Comparator{Op: NegateRelOp(expr.Op), LHS: expr.LHS, RHS: expr.RHS}, nil
	case Lit:
		return expr, nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("unknown version expression in negation")
	}
}
