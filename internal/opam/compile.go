package opam

import (
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"crossdep/internal/unified"
	"crossdep/internal/version"
)

// The two-valued version universes of the synthetic proxy packages.
const (
	TrueVersion  = version.OpamVersion("true")
	FalseVersion = version.OpamVersion("false")
	LhsVersion   = version.OpamVersion("lhs")
	RhsVersion   = version.OpamVersion("rhs")
)

// lorPayload carries the two branches of an `A | B` package disjunction
// inside a Lor unified package. Its String is the Lor's structural
// identity, so two occurrences of the same disjunction collapse to one
// solver variable.
type lorPayload struct {
	lhs, rhs PackageFormula
}

func (l lorPayload) String() string { return fmt.Sprintf("%s | %s", l.lhs, l.rhs) }

// Compiler lowers OPAM package formulas into `unified package ->
// version-set` constraint maps, introducing Formula/Proxy/Lor/
// ConflictClass synthetic packages where the formula escapes plain
// version ranges. All interning and cache
// updates go through the query-scoped Interner and Context.
type Compiler struct {
	interner *unified.Interner
	ctx      *unified.Context
}

// NewCompiler returns a compiler bound to one query's interner and cache
// context.
func NewCompiler(interner *unified.Interner, ctx *unified.Context) *Compiler {
	return &Compiler{interner: interner, ctx: ctx}
}

func internalError(msg string) error {
	return errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg(msg)
}

// FromFormulas compiles a package's whole dependency block.
func (c *Compiler) FromFormulas(formulas []PackageFormula) (map[unified.Ref]unified.VersionSet, error) {
	out := map[unified.Ref]unified.VersionSet{}
	for _, f := range formulas {
		cons, err := c.FromFormula(f)
		if err != nil {
			return nil, err
		}
		out = unified.Merge(out, cons)
	}
	return out, nil
}

// FromFormula compiles one package formula.
func (c *Compiler) FromFormula(f PackageFormula) (map[unified.Ref]unified.VersionSet, error) {
	switch formula := f.(type) {
	case Direct:
		base := unified.Package{Kind: unified.KindOpam, Name: formula.Name}
		return c.compileFiltered(base, formula.Expr)
	case DepextDecl:
		base := unified.Package{Kind: unified.KindDepext, Names: formula.Names, Payload: formula.Expr}
		return c.compileFiltered(base, formula.Expr)
	case ConflictClassDecl:
		c.ctx.ObserveConflictMember(formula.Class, formula.Member)
		ref := c.interner.Intern(unified.Package{Kind: unified.KindConflictClass, Name: formula.Class})
		return map[unified.Ref]unified.VersionSet{
			ref: unified.SingletonOpam(version.OpamVersion(formula.Member)),
		}, nil
	case FAnd:
		lhs, err := c.FromFormula(formula.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := c.FromFormula(formula.RHS)
		if err != nil {
			return nil, err
		}
		return unified.Merge(lhs, rhs), nil
	case FOr:
		ref := c.interner.Intern(unified.Package{
			Kind:    unified.KindLor,
			Payload: lorPayload{lhs: formula.LHS, rhs: formula.RHS},
		})
		return map[unified.Ref]unified.VersionSet{ref: unified.FullSet()}, nil
	default:
		return nil, internalError("unknown package formula variant")
	}
}

// compileFiltered emits either a direct version-range constraint on base
// (case 1) or a two-valued Formula proxy wrapping it (case 2).
func (c *Compiler) compileFiltered(base unified.Package, expr VersionExpr) (map[unified.Ref]unified.VersionSet, error) {
	if r, ok := IsVersionOnly(expr); ok {
		ref := c.interner.Intern(base)
		return map[unified.Ref]unified.VersionSet{ref: unified.OpamSet(r)}, nil
	}
	baseRef := c.interner.Intern(base)
	ref := c.interner.Intern(unified.Package{
		Kind:    unified.KindFormula,
		Base:    baseRef,
		HasBase: true,
		Payload: expr,
	})
	return map[unified.Ref]unified.VersionSet{ref: unified.FullSet()}, nil
}

// FromVersionExpr compiles the constraints a filter expression asserts
// when it must evaluate true. If hasBase, the base package is additionally
// required (by the sub-range a VersionRange term names, Full otherwise).
func (c *Compiler) FromVersionExpr(base unified.Ref, hasBase bool, expr VersionExpr) (map[unified.Ref]unified.VersionSet, error) {
	out := map[unified.Ref]unified.VersionSet{}
	switch e := expr.(type) {
	case VersionRange:
		if hasBase {
			out[base] = unified.OpamSet(e.Range)
		}
		return out, nil
	case Variable:
		if hasBase {
			out[base] = unified.FullSet()
		}
		ref := c.interner.Intern(unified.Package{Kind: unified.KindVar, Name: e.Name})
		out[ref] = unified.SingletonOpam(TrueVersion)
		return out, nil
	case NotVariable:
		if hasBase {
			out[base] = unified.FullSet()
		}
		ref := c.interner.Intern(unified.Package{Kind: unified.KindVar, Name: e.Name})
		out[ref] = unified.SingletonOpam(FalseVersion)
		return out, nil
	case VOr:
		ref := c.internProxy(base, hasBase, e)
		out[ref] = unified.FullSet()
		return out, nil
	case VAnd:
		lhs, err := c.FromVersionExpr(base, hasBase, e.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := c.FromVersionExpr(base, hasBase, e.RHS)
		if err != nil {
			return nil, err
		}
		return unified.Merge(lhs, rhs), nil
	case Comparator:
		if hasBase {
			out[base] = unified.FullSet()
		}
		if name, lit, ok := variableLiteralComparison(e); ok {
			// case 6: record the literal as a candidate value, then
			// constrain the variable by the relop-mapped range.
			c.ctx.ObserveVariableValue(name, lit)
			ref := c.interner.Intern(unified.Package{Kind: unified.KindVar, Name: name})
			out[ref] = unified.OpamSet(RelOpToRange(e.Op, version.OpamVersion(lit)))
			return out, nil
		}
		if e.Op == RelOpEq || e.Op == RelOpNeq {
			ref := c.internProxy(base, hasBase, e)
			out[ref] = unified.FullSet()
			return out, nil
		}
		return nil, internalError(fmt.Sprintf("unsupported operator in filter expression %s", expr))
	case Lit:
		return nil, internalError(fmt.Sprintf("bare literal in filter expression: %s", e))
	default:
		return nil, internalError("unknown filter expression variant")
	}
}

// FromProxyExpr resolves a two-valued Proxy package: each version selects
// one branch of an OR, or one truth direction of a symbolic (in)equality.
func (c *Compiler) FromProxyExpr(base unified.Ref, hasBase bool, ver version.OpamVersion, expr VersionExpr) (map[unified.Ref]unified.VersionSet, error) {
	switch e := expr.(type) {
	case VOr:
		switch ver {
		case LhsVersion:
			return c.FromVersionExpr(base, hasBase, e.LHS)
		case RhsVersion:
			return c.FromVersionExpr(base, hasBase, e.RHS)
		default:
			return nil, internalError(fmt.Sprintf("unknown proxy version %q", ver))
		}
	case Comparator:
		switch e.Op {
		case RelOpEq:
			switch ver {
			case LhsVersion:
				return c.mergeBranches(base, hasBase, e.LHS, e.RHS, false, false)
			case RhsVersion:
				return c.mergeBranches(base, hasBase, e.LHS, e.RHS, true, true)
			default:
				return nil, internalError(fmt.Sprintf("unknown proxy version %q", ver))
			}
		case RelOpNeq:
			switch ver {
			case LhsVersion:
				return c.mergeBranches(base, hasBase, e.LHS, e.RHS, false, true)
			case RhsVersion:
				return c.mergeBranches(base, hasBase, e.LHS, e.RHS, true, false)
			default:
				return nil, internalError(fmt.Sprintf("unknown proxy version %q", ver))
			}
		default:
			return nil, internalError(fmt.Sprintf("unsupported operator in proxy expression %s", expr))
		}
	default:
		return nil, internalError(fmt.Sprintf("expression cannot back a proxy: %s", expr))
	}
}

// mergeBranches asserts both operands of a symbolic comparison, each
// possibly negated.
func (c *Compiler) mergeBranches(base unified.Ref, hasBase bool, lhs, rhs VersionExpr, negLHS, negRHS bool) (map[unified.Ref]unified.VersionSet, error) {
	l := lhs
	if negLHS {
		var err error
		if l, err = Negate(lhs); err != nil {
			return nil, err
		}
	}
	r := rhs
	if negRHS {
		var err error
		if r, err = Negate(rhs); err != nil {
			return nil, err
		}
	}
	left, err := c.FromVersionExpr(base, hasBase, l)
	if err != nil {
		return nil, err
	}
	right, err := c.FromVersionExpr(base, hasBase, r)
	if err != nil {
		return nil, err
	}
	return unified.Merge(left, right), nil
}

func (c *Compiler) internProxy(base unified.Ref, hasBase bool, expr VersionExpr) unified.Ref {
	return c.interner.Intern(unified.Package{
		Kind:    unified.KindProxy,
		Base:    base,
		HasBase: hasBase,
		Payload: expr,
	})
}

// variableLiteralComparison recognises `var relop "lit"` in either operand
// order.
func variableLiteralComparison(e Comparator) (name, lit string, ok bool) {
	if v, vok := e.LHS.(Variable); vok {
		if l, lok := e.RHS.(Lit); lok {
			return v.Name, l.Value, true
		}
	}
	if v, vok := e.RHS.(Variable); vok {
		if l, lok := e.LHS.(Lit); lok {
			return v.Name, l.Value, true
		}
	}
	return "", "", false
}
