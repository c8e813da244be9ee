package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossdep/internal/unified"
	"crossdep/internal/version"
)

func debianPkg(name string) unified.Package {
	return unified.Package{Kind: unified.KindDebian, Name: name}
}

func alpinePkg(name string) unified.Package {
	return unified.Package{Kind: unified.KindAlpine, Name: name}
}

func cargoPkg(name, bucket string) unified.Package {
	return unified.Package{Kind: unified.KindCargo, Name: name, CargoBucket: bucket}
}

func TestDebianListVersionsNewestFirst(t *testing.T) {
	idx := NewDebian(map[string][]DebianPackageVersion{
		"openssh-server": {
			{Version: version.ParseDebianVersion("1:7.4p1-10")},
			{Version: version.ParseDebianVersion("1:7.9p1-10+deb10u2")},
			{Version: version.ParseDebianVersion("1:7.9p1-10")},
		},
	}, false)

	versions := idx.ListVersions(debianPkg("openssh-server"))
	require.Len(t, versions, 3)
	assert.Equal(t, "1:7.9p1-10+deb10u2", versions[0].String())
	assert.Equal(t, "1:7.9p1-10", versions[1].String())
	assert.Equal(t, "1:7.4p1-10", versions[2].String())
}

func TestDebianAlternativesPreferFirstKnown(t *testing.T) {
	idx := NewDebian(map[string][]DebianPackageVersion{
		"sshd": {{
			Version: version.ParseDebianVersion("1.0"),
			Depends: []DebianDependency{{
				Alternatives: []DebianAlternative{
					{Name: "not-in-index", Range: version.Full[version.DebianVersion]()},
					{Name: "openssh-client", Range: version.AtLeast(version.ParseDebianVersion("1:7.0"))},
				},
			}},
		}},
		"openssh-client": {{Version: version.ParseDebianVersion("1:7.9p1-10")}},
	}, false)

	ok, deps, _ := idx.GetDependencies(debianPkg("sshd"), version.ParseDebianVersion("1.0"))
	require.True(t, ok)
	require.Len(t, deps, 1)
	assert.Equal(t, "openssh-client", deps[0].Name)
}

func TestDebianVirtualNameResolvesThroughProvides(t *testing.T) {
	idx := NewDebian(map[string][]DebianPackageVersion{
		"daemon": {{
			Version: version.ParseDebianVersion("1.0"),
			Depends: []DebianDependency{{
				Alternatives: []DebianAlternative{
					{Name: "mail-transport-agent", Range: version.Full[version.DebianVersion]()},
				},
			}},
		}},
		"postfix": {{
			Version:  version.ParseDebianVersion("3.4.14-0"),
			Provides: []string{"mail-transport-agent"},
		}},
	}, false)

	ok, deps, _ := idx.GetDependencies(debianPkg("daemon"), version.ParseDebianVersion("1.0"))
	require.True(t, ok)
	require.Len(t, deps, 1)
	assert.Equal(t, "postfix", deps[0].Name)
	assert.True(t, deps[0].Set.Contains(version.ParseDebianVersion("3.4.14-0")))
}

func TestDebianUnknownVersionIsNotOK(t *testing.T) {
	idx := NewDebian(map[string][]DebianPackageVersion{
		"libc6": {{Version: version.ParseDebianVersion("2.28-10")}},
	}, false)

	ok, _, reason := idx.GetDependencies(debianPkg("libc6"), version.ParseDebianVersion("9.9"))
	assert.False(t, ok)
	assert.Contains(t, reason, "no version")
}

func TestAlpineSharedObjectResolvesToProvider(t *testing.T) {
	idx := NewAlpine(map[string][]AlpinePackageVersion{
		"gmp-dev": {{
			Version: version.ParseAlpineVersion("6.1.2-r1"),
			Depends: []AlpineDependency{
				{Name: "so:libgmp.so.10", Range: version.Full[version.AlpineVersion]()},
			},
		}},
		"gmp": {{
			Version:  version.ParseAlpineVersion("6.1.2-r1"),
			Provides: []string{"so:libgmp.so.10=10.3.2"},
		}},
	}, false)

	ok, deps, _ := idx.GetDependencies(alpinePkg("gmp-dev"), version.ParseAlpineVersion("6.1.2-r1"))
	require.True(t, ok)
	require.Len(t, deps, 1)
	assert.Equal(t, "gmp", deps[0].Name)
}

func TestAlpineUnknownNamePassesThroughForCleanFailure(t *testing.T) {
	idx := NewAlpine(map[string][]AlpinePackageVersion{
		"app": {{
			Version: version.ParseAlpineVersion("1.0-r0"),
			Depends: []AlpineDependency{
				{Name: "missing-lib", Range: version.Full[version.AlpineVersion]()},
			},
		}},
	}, false)

	ok, deps, _ := idx.GetDependencies(alpinePkg("app"), version.ParseAlpineVersion("1.0-r0"))
	require.True(t, ok)
	require.Len(t, deps, 1)
	assert.Equal(t, "missing-lib", deps[0].Name)
	assert.Empty(t, idx.ListVersions(alpinePkg("missing-lib")))
}

func TestCargoListVersionsFiltersByBucket(t *testing.T) {
	v := func(raw string) version.CargoVersion {
		parsed, ok := version.ParseCargoVersion(raw)
		if !ok {
			t.Fatalf("bad semver %q", raw)
		}
		return parsed
	}
	idx := NewCargo(map[string][]CargoCrateVersion{
		"serde": {
			{Version: v("1.0.219")},
			{Version: v("1.0.100")},
			{Version: v("0.9.15")},
		},
	}, false)

	ones := idx.ListVersions(cargoPkg("serde", "1"))
	require.Len(t, ones, 2)
	assert.Equal(t, "1.0.219", ones[0].String())

	zeroNines := idx.ListVersions(cargoPkg("serde", "0.9"))
	require.Len(t, zeroNines, 1)
	assert.Equal(t, "0.9.15", zeroNines[0].String())

	all := idx.ListVersions(cargoPkg("serde", ""))
	assert.Len(t, all, 3)
}

func TestCargoDependenciesCarryBucketAndSkipOptional(t *testing.T) {
	v := func(raw string) version.CargoVersion {
		parsed, _ := version.ParseCargoVersion(raw)
		return parsed
	}
	idx := NewCargo(map[string][]CargoCrateVersion{
		"syn": {{
			Version: v("2.0.100"),
			Deps: []CargoDependency{
				{Name: "proc-macro2", Req: "^1.0.60"},
				{Name: "quote", Req: "^1", Optional: true},
				{Name: "trybuild", Req: "^1", Kind: "dev"},
			},
		}},
	}, false)

	ok, deps, _ := idx.GetDependencies(cargoPkg("syn", "2"), v("2.0.100"))
	require.True(t, ok)
	require.Len(t, deps, 1, "optional and dev dependencies are skipped")
	assert.Equal(t, "proc-macro2", deps[0].Name)
	assert.Equal(t, "1", deps[0].Bucket)
	assert.True(t, deps[0].Set.Contains(v("1.0.94")))
	assert.False(t, deps[0].Set.Contains(v("2.0.0")))
}
