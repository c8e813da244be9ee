package opam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossdep/internal/unified"
	"crossdep/internal/version"
)

func newTestCompiler() (*Compiler, *unified.Interner, *unified.Context) {
	interner := unified.NewInterner()
	ctx := unified.NewContext()
	return NewCompiler(interner, ctx), interner, ctx
}

func mustFormula(t *testing.T, input string) PackageFormula {
	t.Helper()
	f, err := ParseFormula(input)
	require.NoError(t, err)
	return f
}

func TestCompileVersionRangeOnlyEmitsDirectConstraint(t *testing.T) {
	c, interner, _ := newTestCompiler()

	cons, err := c.FromFormula(mustFormula(t, `ocaml {>= "4.08" & < "5.0"}`))
	require.NoError(t, err)
	require.Len(t, cons, 1)

	ref := interner.Intern(unified.Package{Kind: unified.KindOpam, Name: "ocaml"})
	set, ok := cons[ref]
	require.True(t, ok)
	assert.True(t, set.Contains(version.OpamVersion("4.14.1")))
	assert.False(t, set.Contains(version.OpamVersion("5.0")))
}

func TestCompileBooleanFilterIntroducesFormulaProxy(t *testing.T) {
	c, interner, _ := newTestCompiler()

	cons, err := c.FromFormula(mustFormula(t, `alcotest {with-test}`))
	require.NoError(t, err)
	require.Len(t, cons, 1)

	for ref, set := range cons {
		pkg, ok := interner.Lookup(ref)
		require.True(t, ok)
		assert.Equal(t, unified.KindFormula, pkg.Kind)
		assert.True(t, pkg.HasBase)
		base, ok := interner.Lookup(pkg.Base)
		require.True(t, ok)
		assert.Equal(t, unified.KindOpam, base.Kind)
		assert.Equal(t, "alcotest", base.Name)
		assert.True(t, set.IsFull())
	}
}

func TestCompilePackageDisjunctionIntroducesLor(t *testing.T) {
	c, interner, _ := newTestCompiler()

	cons, err := c.FromFormula(mustFormula(t, `conf-gmp | conf-gmp-powm-sec`))
	require.NoError(t, err)
	require.Len(t, cons, 1)

	for ref := range cons {
		pkg, ok := interner.Lookup(ref)
		require.True(t, ok)
		assert.Equal(t, unified.KindLor, pkg.Kind)
	}
}

func TestCompileVariableComparisonPopulatesCache(t *testing.T) {
	c, interner, ctx := newTestCompiler()

	varRef := interner.Intern(unified.Package{Kind: unified.KindVar, Name: "os"})
	cons, err := c.FromVersionExpr(0, false, Comparator{
		Op: RelOpEq, LHS: Variable{Name: "os"}, RHS: Lit{Value: "linux"},
	})
	require.NoError(t, err)

	set, ok := cons[varRef]
	require.True(t, ok)
	assert.True(t, set.Contains(version.OpamVersion("linux")))
	assert.False(t, set.Contains(version.OpamVersion("macos")))
	assert.ElementsMatch(t, []string{"linux"}, ctx.VariableValues("os"))
}

func TestCompileConflictClassClaimsSingleton(t *testing.T) {
	c, interner, ctx := newTestCompiler()

	cons, err := c.FromFormula(ConflictClassDecl{Class: "ocaml-core-compiler", Member: "ocaml-base-compiler"})
	require.NoError(t, err)

	ref := interner.Intern(unified.Package{Kind: unified.KindConflictClass, Name: "ocaml-core-compiler"})
	set, ok := cons[ref]
	require.True(t, ok)
	assert.True(t, set.Contains(version.OpamVersion("ocaml-base-compiler")))
	assert.False(t, set.Contains(version.OpamVersion("ocaml-variants")))
	assert.ElementsMatch(t, []string{"ocaml-base-compiler"}, ctx.ConflictMembers("ocaml-core-compiler"))
}

func TestCompileIdenticalFormulasCollapseToOneRef(t *testing.T) {
	c, _, _ := newTestCompiler()

	first, err := c.FromFormula(mustFormula(t, `alcotest {with-test}`))
	require.NoError(t, err)
	second, err := c.FromFormula(mustFormula(t, `alcotest {with-test}`))
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	for ref := range first {
		_, ok := second[ref]
		assert.True(t, ok, "structurally identical formulas must intern to the same package")
	}
}

func TestCompileMergeIntersectsSharedDependencies(t *testing.T) {
	c, interner, _ := newTestCompiler()

	cons, err := c.FromFormulas([]PackageFormula{
		mustFormula(t, `ocaml {>= "4.08"}`),
		mustFormula(t, `ocaml {< "5.0"}`),
	})
	require.NoError(t, err)

	ref := interner.Intern(unified.Package{Kind: unified.KindOpam, Name: "ocaml"})
	set, ok := cons[ref]
	require.True(t, ok)
	assert.True(t, set.Contains(version.OpamVersion("4.14.1")))
	assert.False(t, set.Contains(version.OpamVersion("5.1")))
	assert.False(t, set.Contains(version.OpamVersion("4.02")))
}

func TestCompileVersionExprDisjunctionIntroducesProxy(t *testing.T) {
	c, interner, _ := newTestCompiler()

	baseRef := interner.Intern(unified.Package{Kind: unified.KindOpam, Name: "conf-foo"})
	expr := VOr{
		LHS: Comparator{Op: RelOpEq, LHS: Variable{Name: "os"}, RHS: Lit{Value: "linux"}},
		RHS: Comparator{Op: RelOpEq, LHS: Variable{Name: "os"}, RHS: Lit{Value: "macos"}},
	}
	cons, err := c.FromVersionExpr(baseRef, true, expr)
	require.NoError(t, err)

	found := false
	for ref := range cons {
		pkg, _ := interner.Lookup(ref)
		if pkg.Kind == unified.KindProxy {
			found = true
		}
	}
	require.True(t, found)

	// lhs branch asserts os = linux
	lhsCons, err := c.FromProxyExpr(baseRef, true, LhsVersion, expr)
	require.NoError(t, err)
	osRef := interner.Intern(unified.Package{Kind: unified.KindVar, Name: "os"})
	set, ok := lhsCons[osRef]
	require.True(t, ok)
	assert.True(t, set.Contains(version.OpamVersion("linux")))

	// rhs branch asserts os = macos
	rhsCons, err := c.FromProxyExpr(baseRef, true, RhsVersion, expr)
	require.NoError(t, err)
	set, ok = rhsCons[osRef]
	require.True(t, ok)
	assert.True(t, set.Contains(version.OpamVersion("macos")))
}

func TestProxySymbolicEqualityBranches(t *testing.T) {
	c, interner, _ := newTestCompiler()

	expr := Comparator{Op: RelOpEq, LHS: Variable{Name: "a"}, RHS: Variable{Name: "b"}}
	aRef := interner.Intern(unified.Package{Kind: unified.KindVar, Name: "a"})
	bRef := interner.Intern(unified.Package{Kind: unified.KindVar, Name: "b"})

	lhs, err := c.FromProxyExpr(0, false, LhsVersion, expr)
	require.NoError(t, err)
	assert.True(t, lhs[aRef].Contains(TrueVersion))
	assert.True(t, lhs[bRef].Contains(TrueVersion))

	rhs, err := c.FromProxyExpr(0, false, RhsVersion, expr)
	require.NoError(t, err)
	assert.True(t, rhs[aRef].Contains(FalseVersion))
	assert.True(t, rhs[bRef].Contains(FalseVersion))
}

func TestProxyUnknownVersionIsError(t *testing.T) {
	c, _, _ := newTestCompiler()
	expr := VOr{LHS: Variable{Name: "a"}, RHS: Variable{Name: "b"}}
	_, err := c.FromProxyExpr(0, false, version.OpamVersion("neither"), expr)
	assert.Error(t, err)
}
