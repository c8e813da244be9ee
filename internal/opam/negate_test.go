package opam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossdep/internal/version"
)

func TestNegateVariableFlips(t *testing.T) {
	neg, err := Negate(Variable{Name: "with-test"})
	require.NoError(t, err)
	assert.Equal(t, NotVariable{Name: "with-test"}, neg)

	back, err := Negate(neg)
	require.NoError(t, err)
	assert.Equal(t, Variable{Name: "with-test"}, back)
}

func TestNegateDeMorgan(t *testing.T) {
	expr := VAnd{LHS: Variable{Name: "a"}, RHS: Variable{Name: "b"}}
	neg, err := Negate(expr)
	require.NoError(t, err)
	assert.Equal(t, VOr{LHS: NotVariable{Name: "a"}, RHS: NotVariable{Name: "b"}}, neg)

	expr2 := VOr{LHS: Variable{Name: "a"}, RHS: NotVariable{Name: "b"}}
	neg2, err := Negate(expr2)
	require.NoError(t, err)
	assert.Equal(t, VAnd{LHS: NotVariable{Name: "a"}, RHS: Variable{Name: "b"}}, neg2)
}

func TestNegateComparatorFlipsRelop(t *testing.T) {
	cases := []struct {
		op, want RelOp
	}{
		{RelOpEq, RelOpNeq},
		{RelOpNeq, RelOpEq},
		{RelOpGeq, RelOpLt},
		{RelOpGt, RelOpLeq},
		{RelOpLeq, RelOpGt},
		{RelOpLt, RelOpGeq},
	}
	for _, tc := range cases {
		expr := Comparator{Op: tc.op, LHS: Variable{Name: "os"}, RHS: Lit{Value: "linux"}}
		neg, err := Negate(expr)
		require.NoError(t, err)
		cmp, ok := neg.(Comparator)
		require.True(t, ok)
		assert.Equal(t, tc.want, cmp.Op)
		assert.Equal(t, expr.LHS, cmp.LHS)
		assert.Equal(t, expr.RHS, cmp.RHS)
	}
}

func TestNegateStripsVersionSubTerms(t *testing.T) {
	// `>= "1.0" & with-test` negates to `!with-test`: the version half
	// answers "which version", not "is this dependency wanted".
	expr := VAnd{
		LHS: VersionRange{Range: version.AtLeast(version.OpamVersion("1.0"))},
		RHS: Variable{Name: "with-test"},
	}
	neg, err := Negate(expr)
	require.NoError(t, err)
	assert.Equal(t, NotVariable{Name: "with-test"}, neg)

	// symmetric position
	expr2 := VOr{
		LHS: Variable{Name: "with-test"},
		RHS: VersionRange{Range: version.AtLeast(version.OpamVersion("1.0"))},
	}
	neg2, err := Negate(expr2)
	require.NoError(t, err)
	assert.Equal(t, NotVariable{Name: "with-test"}, neg2)
}

func TestNegatePureVersionRangeIsInternalError(t *testing.T) {
	_, err := Negate(VersionRange{Range: version.Full[version.OpamVersion]()})
	assert.Error(t, err)
}

// Testable property 5: double negation is identity modulo stripped
// version sub-terms.
func TestNegateIdempotence(t *testing.T) {
	exprs := []VersionExpr{
		Variable{Name: "with-test"},
		NotVariable{Name: "build"},
		Lit{Value: "linux"},
		Comparator{Op: RelOpGeq, LHS: Variable{Name: "ocaml-version"}, RHS: Lit{Value: "4.08"}},
		VAnd{LHS: Variable{Name: "a"}, RHS: VOr{LHS: Variable{Name: "b"}, RHS: NotVariable{Name: "c"}}},
		VOr{
			LHS: Comparator{Op: RelOpEq, LHS: Variable{Name: "os"}, RHS: Lit{Value: "linux"}},
			RHS: Comparator{Op: RelOpEq, LHS: Variable{Name: "os"}, RHS: Lit{Value: "macos"}},
		},
	}
	for _, expr := range exprs {
		once, err := Negate(expr)
		require.NoError(t, err)
		twice, err := Negate(once)
		require.NoError(t, err)
		assert.Equal(t, expr, twice, "negate(negate(%s))", expr)
	}
}
