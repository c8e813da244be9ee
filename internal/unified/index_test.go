package unified

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossdep/internal/version"
)

// fakeSubIndex is a minimal in-memory SubIndex used only by these tests.
type fakeSubIndex struct {
	kind     PackageKind
	versions map[string][]version.Version
	deps     map[string][]Dep
}

func (f *fakeSubIndex) Kind() PackageKind { return f.kind }

func (f *fakeSubIndex) ListVersions(pkg Package) []version.Version {
	return f.versions[pkg.Name]
}

func (f *fakeSubIndex) GetDependencies(pkg Package, v version.Version) (bool, []Dep, string) {
	byName, ok := f.deps[pkg.Name]
	if !ok {
		return false, nil, "unknown package"
	}
	return true, byName, ""
}

func TestIndexDispatchesRealEcosystemsByKind(t *testing.T) {
	interner := NewInterner()
	ctx := NewContext()
	debianRef := interner.Intern(Package{Kind: KindDebian, Name: "curl"})

	debian := &fakeSubIndex{
		kind:     KindDebian,
		versions: map[string][]version.Version{"curl": {version.ParseDebianVersion("7.88.1-10")}},
		deps: map[string][]Dep{
			"curl": {{Name: "libc6", Set: DebianSet(version.AtLeast(version.ParseDebianVersion("2.36")))}},
		},
	}
	idx := NewIndex(interner, ctx, debian, nil, nil, nil)

	versions := idx.ListVersions(debianRef)
	require.Len(t, versions, 1)

	deps := idx.GetDependencies(debianRef, version.ParseDebianVersion("7.88.1-10"))
	require.True(t, deps.IsAvailable())
	require.Len(t, deps.Constraints(), 1)

	libc6Ref := interner.Intern(Package{Kind: KindDebian, Name: "libc6"})
	set, ok := deps.Constraints()[libc6Ref]
	require.True(t, ok)
	assert.True(t, set.Contains(version.ParseDebianVersion("2.38")))
}

func TestIndexMissingEcosystemIsUnavailableNotPanic(t *testing.T) {
	interner := NewInterner()
	ctx := NewContext()
	ref := interner.Intern(Package{Kind: KindAlpine, Name: "musl"})
	idx := NewIndex(interner, ctx, nil, nil, nil, nil)

	assert.Nil(t, idx.ListVersions(ref))
	deps := idx.GetDependencies(ref, version.ParseAlpineVersion("1.2.3-r0"))
	assert.False(t, deps.IsAvailable())
}

func TestIndexPlatformDependenciesPinVariablesAndRecordThem(t *testing.T) {
	interner := NewInterner()
	ctx := NewContext()
	idx := NewIndex(interner, ctx, nil, nil, nil, nil)
	platformRef := interner.Intern(Package{Kind: KindPlatform})

	versions := idx.ListVersions(platformRef)
	require.Len(t, versions, 2)
	assert.Equal(t, version.PlatformVersion("debian"), versions[0])
	assert.Equal(t, version.PlatformVersion("alpine"), versions[1])

	deps := idx.GetDependencies(platformRef, version.PlatformVersion("alpine"))
	require.True(t, deps.IsAvailable())
	assert.Len(t, deps.Constraints(), 3)

	assert.ElementsMatch(t, []string{"alpine"}, ctx.VariableValues("os-family"))
	assert.ElementsMatch(t, []string{"alpine"}, ctx.VariableValues("os-distribution"))
	assert.ElementsMatch(t, []string{"linux"}, ctx.VariableValues("os"))
}

func TestIndexRootChildrenPassThroughAndPinVariables(t *testing.T) {
	interner := NewInterner()
	ctx := NewContext()
	idx := NewIndex(interner, ctx, nil, nil, nil, nil)

	varRef := interner.Intern(Package{Kind: KindVar, Name: "with-test"})
	opamRef := interner.Intern(Package{Kind: KindOpam, Name: "dune"})

	root := Package{Kind: KindRoot, Children: []RootChild{
		{Child: varRef, Constraint: SingletonOpam("true")},
		{Child: opamRef, Constraint: OpamSet(version.AtLeast(version.ParseOpamVersion("3.0")))},
	}}
	rootRef := interner.Intern(root)

	versions := idx.ListVersions(rootRef)
	require.Len(t, versions, 1)
	assert.Equal(t, version.SingularVersion{}, versions[0])

	deps := idx.GetDependencies(rootRef, version.SingularVersion{})
	require.True(t, deps.IsAvailable())
	assert.Len(t, deps.Constraints(), 2)
	assert.Equal(t, []string{"true"}, ctx.VariableValues("with-test"))
}

func TestIndexRootNonSingletonVariablePinIsNotObserved(t *testing.T) {
	interner := NewInterner()
	ctx := NewContext()
	idx := NewIndex(interner, ctx, nil, nil, nil, nil)

	varRef := interner.Intern(Package{Kind: KindVar, Name: "arch"})
	root := Package{Kind: KindRoot, Children: []RootChild{
		{Child: varRef, Constraint: FullSet()},
	}}
	rootRef := interner.Intern(root)

	deps := idx.GetDependencies(rootRef, version.SingularVersion{})
	require.True(t, deps.IsAvailable())
	assert.Empty(t, ctx.VariableValues("arch"))
}
