package app

import (
	"context"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossdep/internal/repo"
)

// fixtureSnapshot is a small four-ecosystem repository exercising the
// end-to-end scenarios: OPAM transitive deps, depext routing per
// platform, Debian alternatives, and Cargo semver buckets.
func fixtureSnapshot() *repo.Snapshot {
	return &repo.Snapshot{
		Opam: repo.OpamSection{
			Packages: map[string]map[string]repo.OpamVersionEntry{
				"dune": {
					"3.17.2": {Depends: []string{`ocaml {>= "4.08"}`, `base-unix`}},
					"3.16.0": {Depends: []string{`ocaml {>= "4.08"}`, `base-unix`}},
				},
				"ocaml": {
					"5.1.0":  {},
					"4.14.1": {},
				},
				"base-unix": {
					"base.v0.16.0": {},
				},
				"conf-gmp": {
					"4": {
						Depexts: []repo.OpamDepextEntry{
							{Names: []string{"libgmp-dev"}, Condition: `os-family = "debian"`},
							{Names: []string{"gmp-dev"}, Condition: `os-family = "alpine"`},
						},
					},
				},
				"testy": {
					"1.0": {Depends: []string{`dune {>= "3.0"}`, `alcotest {with-test}`}},
				},
				"alcotest": {
					"1.8.0": {},
				},
				"either-or": {
					"1.0": {Depends: []string{`conf-gmp | conf-mpfr`}},
				},
			},
		},
		Debian: repo.DebianSection{
			Packages: map[string]map[string]repo.DebianVersionEntry{
				"libgmp-dev": {
					"2:6.1.2+dfsg-4": {Depends: "libgmp10 (= 2:6.1.2+dfsg-4)"},
				},
				"libgmp10": {
					"2:6.1.2+dfsg-4": {Depends: "libc6 (>= 2.14)"},
				},
				"libc6": {
					"2.28-10": {},
				},
				"openssh-server": {
					"1:7.9p1-10+deb10u2": {Depends: "libc6 (>= 2.26), openssh-client | ssh-client, runit-helper"},
					"1:7.4p1-10":         {Depends: "libc6 (>= 2.26)"},
				},
				"openssh-client": {
					"1:7.9p1-10+deb10u2": {Depends: "libc6 (>= 2.26)"},
				},
			},
		},
		Alpine: repo.AlpineSection{
			Packages: map[string]map[string]repo.AlpineVersionEntry{
				"gmp-dev": {
					"6.1.2-r1": {Depends: []string{"gmp=6.1.2-r1", "so:libgmp.so.10"}},
				},
				"gmp": {
					"6.1.2-r1": {Provides: []string{"so:libgmp.so.10=10.3.2"}},
				},
				"musl": {
					"1.2.4-r2": {},
				},
			},
		},
		Cargo: repo.CargoSection{
			Crates: map[string][]repo.CargoVersionEntry{
				"serde": {
					{Version: "1.0.219", Deps: []repo.CargoDepEntry{
						{Name: "serde_derive", Req: "=1.0.219"},
					}},
					{Version: "1.0.100", Deps: nil},
					{Version: "0.9.15", Deps: nil},
				},
				"serde_derive": {
					{Version: "1.0.219", Deps: []repo.CargoDepEntry{
						{Name: "proc-macro2", Req: "^1"},
						{Name: "quote", Req: "^1"},
						{Name: "syn", Req: "^2"},
					}},
				},
				"proc-macro2": {
					{Version: "1.0.94", Deps: nil},
					{Version: "0.4.30", Deps: nil},
				},
				"quote": {
					{Version: "1.0.40", Deps: []repo.CargoDepEntry{{Name: "proc-macro2", Req: "^1.0.80"}}},
				},
				"syn": {
					{Version: "2.0.100", Deps: []repo.CargoDepEntry{
						{Name: "proc-macro2", Req: "^1"},
						{Name: "quote", Req: "^1", Optional: true},
					}},
					{Version: "1.0.109", Deps: nil},
				},
			},
		},
	}
}

func newFixtureService(t *testing.T) *Service {
	t.Helper()
	indices, err := repo.Build(fixtureSnapshot(), false)
	require.NoError(t, err)
	return NewService(indices)
}

func dependencyNames(resp Response) map[string]string {
	out := make(map[string]string, len(resp.Dependencies))
	for _, dep := range resp.Dependencies {
		out[dep.Ecosystem+"/"+dep.Name] = dep.Version
	}
	return out
}

func TestResolveOpamTransitiveNoPlatform(t *testing.T) {
	service := newFixtureService(t)

	resp, err := service.Resolve(context.Background(), Request{
		Ecosystem: "opam", Package: "dune", Version: "3.17.2",
	})
	require.NoError(t, err)
	assert.True(t, resp.Resolved)
	assert.Equal(t, "dune", resp.Package)
	assert.Equal(t, "3.17.2", resp.Version)

	deps := dependencyNames(resp)
	assert.Equal(t, "5.1.0", deps["opam/ocaml"], "newest ocaml satisfying >= 4.08")
	assert.Contains(t, deps, "opam/base-unix")
	for key := range deps {
		assert.NotContains(t, key, "debian/")
		assert.NotContains(t, key, "alpine/")
	}
}

func TestResolveGoldenResponseShape(t *testing.T) {
	service := newFixtureService(t)

	resp, err := service.Resolve(context.Background(), Request{
		Ecosystem: "opam", Package: "dune", Version: "3.17.2",
	})
	require.NoError(t, err)

	want := Response{
		Ecosystem: "opam",
		Package:   "dune",
		Version:   "3.17.2",
		Resolved:  true,
		Dependencies: []ResolvedPackage{
			{Ecosystem: "opam", Name: "base-unix", Version: "base.v0.16.0"},
			{Ecosystem: "opam", Name: "ocaml", Version: "5.1.0"},
		},
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveDepextOnDebianPlatform(t *testing.T) {
	service := newFixtureService(t)

	resp, err := service.Resolve(context.Background(), Request{
		Ecosystem: "opam", Package: "conf-gmp", Version: "4", Platform: "debian",
	})
	require.NoError(t, err)

	deps := dependencyNames(resp)
	assert.Contains(t, deps, "debian/libgmp-dev")
	assert.Contains(t, deps, "debian/libgmp10", "transitive debian closure")
	assert.Contains(t, deps, "debian/libc6")
	for key := range deps {
		assert.NotContains(t, key, "alpine/")
	}
}

func TestResolveDepextOnAlpinePlatform(t *testing.T) {
	service := newFixtureService(t)

	resp, err := service.Resolve(context.Background(), Request{
		Ecosystem: "opam", Package: "conf-gmp", Version: "4", Platform: "alpine",
	})
	require.NoError(t, err)

	deps := dependencyNames(resp)
	assert.Contains(t, deps, "alpine/gmp-dev")
	assert.Contains(t, deps, "alpine/gmp", "so: marker resolves to its provider")
	for key := range deps {
		assert.NotContains(t, key, "debian/")
	}
}

func TestResolveDebianWithAlternatives(t *testing.T) {
	service := newFixtureService(t)

	resp, err := service.Resolve(context.Background(), Request{
		Ecosystem: "debian", Package: "openssh-server", Version: "1:7.9p1-10+deb10u2",
	})
	require.NoError(t, err)

	deps := dependencyNames(resp)
	assert.Contains(t, deps, "debian/libc6")
	assert.Contains(t, deps, "debian/openssh-client", "first listed alternative wins")
}

func TestResolveCargoSemverUnification(t *testing.T) {
	service := newFixtureService(t)

	resp, err := service.Resolve(context.Background(), Request{
		Ecosystem: "cargo", Package: "serde", Version: "1.0.219",
	})
	require.NoError(t, err)

	deps := dependencyNames(resp)
	assert.Equal(t, "1.0.219", deps["cargo/serde_derive"])
	assert.Equal(t, "1.0.94", deps["cargo/proc-macro2"], "one version unifies ^1 and ^1.0.80")
	assert.Equal(t, "1.0.40", deps["cargo/quote"])
	assert.Equal(t, "2.0.100", deps["cargo/syn"])

	counts := map[string]int{}
	for _, dep := range resp.Dependencies {
		counts[dep.Ecosystem+"/"+dep.Name]++
	}
	for name, n := range counts {
		assert.Equal(t, 1, n, "exactly one version of %s", name)
	}
}

func TestResolveNonexistentPackageExplains(t *testing.T) {
	service := newFixtureService(t)

	_, err := service.Resolve(context.Background(), Request{
		Ecosystem: "opam", Package: "nonexistent-pkg", Version: "1.0.0",
	})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "dep_resolution_error")
	assert.Contains(t, err.Error(), "no versions of nonexistent-pkg")
}

func TestResolveRejectsUnknownPlatformBeforeSolving(t *testing.T) {
	service := newFixtureService(t)

	_, err := service.Resolve(context.Background(), Request{
		Ecosystem: "opam", Package: "dune", Version: "3.17.2", Platform: "windows",
	})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "unsupported platform")
}

func TestResolveRejectsUnknownEcosystem(t *testing.T) {
	service := newFixtureService(t)

	_, err := service.Resolve(context.Background(), Request{
		Ecosystem: "homebrew", Package: "gmp", Version: "6.3.0",
	})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "unsupported ecosystem")
}

func TestResolveRejectsInvalidCargoVersion(t *testing.T) {
	service := newFixtureService(t)

	_, err := service.Resolve(context.Background(), Request{
		Ecosystem: "cargo", Package: "serde", Version: "not-semver",
	})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestResolveOptionalDependencyDefaultsOff(t *testing.T) {
	service := newFixtureService(t)

	resp, err := service.Resolve(context.Background(), Request{
		Ecosystem: "opam", Package: "testy", Version: "1.0",
	})
	require.NoError(t, err)

	deps := dependencyNames(resp)
	assert.Contains(t, deps, "opam/dune")
	assert.NotContains(t, deps, "opam/alcotest",
		"with-test defaults to false, so the filtered dependency stays out")
}

func TestResolvePackageDisjunctionPicksLeftBranch(t *testing.T) {
	service := newFixtureService(t)

	resp, err := service.Resolve(context.Background(), Request{
		Ecosystem: "opam", Package: "either-or", Version: "1.0",
	})
	require.NoError(t, err)

	deps := dependencyNames(resp)
	assert.Contains(t, deps, "opam/conf-gmp", "lhs branch preferred")
	assert.NotContains(t, deps, "opam/conf-mpfr")
}

func TestResolveVerifySATConfirmsSolution(t *testing.T) {
	service := newFixtureService(t)
	service.VerifySAT = true

	resp, err := service.Resolve(context.Background(), Request{
		Ecosystem: "opam", Package: "dune", Version: "3.17.2",
	})
	require.NoError(t, err)
	assert.True(t, resp.Resolved)
}

func TestResolveCancelledContext(t *testing.T) {
	service := newFixtureService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := service.Resolve(ctx, Request{
		Ecosystem: "opam", Package: "dune", Version: "3.17.2",
	})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeCanceled, errbuilder.CodeOf(err))
}

func TestSearchIsNotImplemented(t *testing.T) {
	service := newFixtureService(t)
	err := service.Search(context.Background(), "gmp")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeUnimplemented, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "not_implemented")
}

func TestConcurrentResolutionsAreIsolated(t *testing.T) {
	service := newFixtureService(t)

	done := make(chan error, 2)
	go func() {
		_, err := service.Resolve(context.Background(), Request{
			Ecosystem: "opam", Package: "conf-gmp", Version: "4", Platform: "debian",
		})
		done <- err
	}()
	go func() {
		_, err := service.Resolve(context.Background(), Request{
			Ecosystem: "opam", Package: "conf-gmp", Version: "4", Platform: "alpine",
		})
		done <- err
	}()
	require.NoError(t, <-done)
	require.NoError(t, <-done)
}
