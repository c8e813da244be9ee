package index

import (
	"fmt"
	"sort"

	"crossdep/internal/unified"
	"crossdep/internal/version"
)

// CargoDependency is one crates-index dependency row.
type CargoDependency struct {
	Name     string
	Req      string
	Optional bool
	Kind     string // "normal" (or empty), "build", "dev"
}

// CargoCrateVersion is the payload for one published crate version.
// Yanked records are filtered before the index is built.
type CargoCrateVersion struct {
	Version version.CargoVersion
	Deps    []CargoDependency
}

// Cargo is the crates.io sub-index. A unified Cargo package carries a
// SemVer compatibility bucket; listing dispatches on it so that two
// buckets of the same crate resolve as independent solver packages.
type Cargo struct {
	crates map[string][]CargoCrateVersion // newest first
	debug  bool
}

// NewCargo builds the index, sorting each crate's versions newest-first.
func NewCargo(crates map[string][]CargoCrateVersion, debug bool) *Cargo {
	for name, entries := range crates {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Version.Compare(entries[j].Version) > 0
		})
		crates[name] = entries
	}
	return &Cargo{crates: crates, debug: debug}
}

func (c *Cargo) Kind() unified.PackageKind { return unified.KindCargo }

// ListVersions lists the crate's versions in pkg's compatibility bucket,
// newest first. An empty bucket lists every version.
func (c *Cargo) ListVersions(pkg unified.Package) []version.Version {
	entries := c.crates[pkg.Name]
	out := make([]version.Version, 0, len(entries))
	for _, e := range entries {
		if pkg.CargoBucket != "" && e.Version.Bucket() != pkg.CargoBucket {
			continue
		}
		out = append(out, e.Version)
	}
	return out
}

// GetDependencies returns the normal, non-optional dependencies of
// pkg@v, each keyed by the bucket its requirement selects. Feature
// resolution is out of scope; the all-features flag rides along on the
// package identity untouched.
func (c *Cargo) GetDependencies(pkg unified.Package, v version.Version) (bool, []unified.Dep, string) {
	entries, ok := c.crates[pkg.Name]
	if !ok {
		return false, nil, fmt.Sprintf("crate %q not in index", pkg.Name)
	}
	for _, entry := range entries {
		if entry.Version.Compare(v) != 0 {
			continue
		}
		var deps []unified.Dep
		for _, dep := range entry.Deps {
			if dep.Optional || (dep.Kind != "" && dep.Kind != "normal") {
				continue
			}
			rng, lower, ok := version.ParseCargoRequirement(dep.Req)
			if !ok {
				// an unparseable requirement must fail cleanly, not panic:
				// require the impossible set
				deps = append(deps, unified.Dep{Name: dep.Name, Set: unified.CargoSet(version.Empty[version.CargoVersion]())})
				continue
			}
			deps = append(deps, unified.Dep{
				Name:        dep.Name,
				Bucket:      lower.Bucket(),
				AllFeatures: pkg.CargoAllFeatures,
				Set:         unified.CargoSet(rng),
			})
		}
		return true, deps, ""
	}
	return false, nil, fmt.Sprintf("crate %q has no version %s", pkg.Name, v)
}
