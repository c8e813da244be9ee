// Package opam implements the OPAM version-formula expansion engine: the
// dependency formula AST, its textual parser, and the compiler that lowers
// formulas into solver-native `package -> version-set` constraints by
// introducing synthetic unified packages.
package opam

import (
	"fmt"
	"strings"

	"crossdep/internal/version"
)

// RelOp is a relational operator inside a version formula.
type RelOp int

const (
	RelOpEq RelOp = iota
	RelOpNeq
	RelOpGeq
	RelOpGt
	RelOpLeq
	RelOpLt
)

func (op RelOp) String() string {
	switch op {
	case RelOpEq:
		return "="
	case RelOpNeq:
		return "!="
	case RelOpGeq:
		return ">="
	case RelOpGt:
		return ">"
	case RelOpLeq:
		return "<="
	case RelOpLt:
		return "<"
	default:
		return "?"
	}
}

// NegateRelOp flips a relational operator: = and != swap, and each strict
// inequality becomes the opposite inclusive one.
func NegateRelOp(op RelOp) RelOp {
	switch op {
	case RelOpEq:
		return RelOpNeq
	case RelOpNeq:
		return RelOpEq
	case RelOpGeq:
		return RelOpLt
	case RelOpGt:
		return RelOpLeq
	case RelOpLeq:
		return RelOpGt
	case RelOpLt:
		return RelOpGeq
	default:
		return op
	}
}

// RelOpToRange maps `relop lit` to the version range it admits, across all
// candidate values of a variable or package version.
func RelOpToRange(op RelOp, lit version.OpamVersion) version.OpamRange {
	switch op {
	case RelOpEq:
		return version.Singleton(lit)
	case RelOpNeq:
		return version.Singleton(lit).Complement()
	case RelOpGeq:
		return version.AtLeast(lit)
	case RelOpGt:
		return version.GreaterThan(lit)
	case RelOpLeq:
		return version.AtMost(lit)
	case RelOpLt:
		return version.LessThan(lit)
	default:
		return version.Empty[version.OpamVersion]()
	}
}

// VersionExpr is the expression language inside `{ ... }` after a
// dependency name. Implementations are
// VersionRange, Variable, NotVariable, Lit, VAnd, VOr and Comparator.
type VersionExpr interface {
	fmt.Stringer
	versionExpr()
}

// VersionRange is a pure version constraint, e.g. `>= "1.0" & < "2.0"`
// collapsed to a single range.
type VersionRange struct {
	Range version.OpamRange
}

// Variable references a boolean-valued filter variable, e.g. `with-test`.
type Variable struct {
	Name string
}

// NotVariable is a negated variable reference, `!with-test`.
type NotVariable struct {
	Name string
}

// Lit is a quoted string literal, e.g. `"linux"`.
type Lit struct {
	Value string
}

// VAnd is conjunction of two version expressions.
type VAnd struct {
	LHS, RHS VersionExpr
}

// VOr is disjunction of two version expressions.
type VOr struct {
	LHS, RHS VersionExpr
}

// Comparator relates two sub-expressions, e.g. `os = "linux"`.
type Comparator struct {
	Op       RelOp
	LHS, RHS VersionExpr
}

func (VersionRange) versionExpr() {}
func (Variable) versionExpr()     {}
func (NotVariable) versionExpr()  {}
func (Lit) versionExpr()          {}
func (VAnd) versionExpr()         {}
func (VOr) versionExpr()          {}
func (Comparator) versionExpr()   {}

func (e VersionRange) String() string { return e.Range.String() }
func (e Variable) String() string     { return e.Name }
func (e NotVariable) String() string  { return "!" + e.Name }
func (e Lit) String() string          { return fmt.Sprintf("%q", e.Value) }
func (e VAnd) String() string         { return fmt.Sprintf("(%s & %s)", e.LHS, e.RHS) }
func (e VOr) String() string          { return fmt.Sprintf("(%s | %s)", e.LHS, e.RHS) }
func (e Comparator) String() string {
	return fmt.Sprintf("(%s %s %s)", e.LHS, e.Op, e.RHS)
}

// PackageFormula is the `depends:`-level formula: named dependencies with
// optional version expressions, combined with & and |, plus the depext and
// conflict-class declaration forms.
type PackageFormula interface {
	fmt.Stringer
	packageFormula()
}

// Direct is `name { v-expr }` (or a bare `name`, whose Expr is a full
// VersionRange).
type Direct struct {
	Name string
	Expr VersionExpr
}

// DepextDecl declares external-system packages wanted under a condition,
// e.g. `["libgmp-dev"] {os-family = "debian"}`.
type DepextDecl struct {
	Names []string
	Expr  VersionExpr
}

// ConflictClassDecl declares that Member belongs to conflict class Class.
type ConflictClassDecl struct {
	Class  string
	Member string
}

// FAnd is conjunction of two package formulas.
type FAnd struct {
	LHS, RHS PackageFormula
}

// FOr is the `A | B` package disjunction.
type FOr struct {
	LHS, RHS PackageFormula
}

func (Direct) packageFormula()            {}
func (DepextDecl) packageFormula()        {}
func (ConflictClassDecl) packageFormula() {}
func (FAnd) packageFormula()              {}
func (FOr) packageFormula()               {}

func (f Direct) String() string {
	if r, ok := f.Expr.(VersionRange); ok && r.Range.IsFull() {
		return f.Name
	}
	return fmt.Sprintf("%s {%s}", f.Name, f.Expr)
}

func (f DepextDecl) String() string {
	return fmt.Sprintf("[%s] {%s}", strings.Join(f.Names, " "), f.Expr)
}

func (f ConflictClassDecl) String() string {
	return fmt.Sprintf("conflict-class %s (%s)", f.Class, f.Member)
}

func (f FAnd) String() string { return fmt.Sprintf("%s & %s", f.LHS, f.RHS) }
func (f FOr) String() string  { return fmt.Sprintf("(%s | %s)", f.LHS, f.RHS) }

// IsVersionOnly reports whether e constrains versions alone, with no
// variables involved — the case the compiler lowers without a synthetic
// Formula proxy.
func IsVersionOnly(e VersionExpr) (version.OpamRange, bool) {
	r, ok := e.(VersionRange)
	if !ok {
		return version.OpamRange{}, false
	}
	return r.Range, true
}
