package index

import (
	"fmt"
	"sort"
	"strings"

	"crossdep/internal/unified"
	"crossdep/internal/version"
)

// AlpineDependency is one parsed `D:` entry: `name[op version]`. Name may
// be a shared-object marker (`so:libfoo.so.1`), satisfied through the
// provides table.
type AlpineDependency struct {
	Name  string
	Range version.AlpineRange
}

// AlpinePackageVersion is the payload for one (package, version) pair.
type AlpinePackageVersion struct {
	Version  version.AlpineVersion
	Depends  []AlpineDependency
	Provides []string // `p:` entries, `name[=version]`
}

// Alpine is the APKINDEX sub-index.
type Alpine struct {
	packages map[string][]AlpinePackageVersion // newest first
	provides map[string][]string
	debug    bool
}

// NewAlpine builds the index, sorting versions newest-first and inverting
// the provides table (so `so:` markers and virtual names resolve to their
// providers).
func NewAlpine(packages map[string][]AlpinePackageVersion, debug bool) *Alpine {
	provides := make(map[string][]string)
	for name, entries := range packages {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Version.Compare(entries[j].Version) > 0
		})
		packages[name] = entries
		for _, entry := range entries {
			for _, p := range entry.Provides {
				virtual := p
				if i := strings.IndexByte(p, '='); i >= 0 {
					virtual = p[:i]
				}
				provides[virtual] = append(provides[virtual], name)
			}
		}
	}
	for virtual := range provides {
		sort.Strings(provides[virtual])
		provides[virtual] = dedupeSorted(provides[virtual])
	}
	return &Alpine{packages: packages, provides: provides, debug: debug}
}

func (a *Alpine) Kind() unified.PackageKind { return unified.KindAlpine }

func (a *Alpine) ListVersions(pkg unified.Package) []version.Version {
	entries := a.packages[pkg.Name]
	out := make([]version.Version, len(entries))
	for i, e := range entries {
		out[i] = e.Version
	}
	return out
}

func (a *Alpine) GetDependencies(pkg unified.Package, v version.Version) (bool, []unified.Dep, string) {
	entries, ok := a.packages[pkg.Name]
	if !ok {
		return false, nil, fmt.Sprintf("alpine package %q not in index", pkg.Name)
	}
	for _, entry := range entries {
		if entry.Version.Compare(v) != 0 {
			continue
		}
		deps := make([]unified.Dep, 0, len(entry.Depends))
		for _, dep := range entry.Depends {
			name, rng := a.resolveName(dep)
			deps = append(deps, unified.Dep{Name: name, Set: unified.AlpineSet(rng)})
		}
		return true, deps, ""
	}
	return false, nil, fmt.Sprintf("alpine package %q has no version %s", pkg.Name, v)
}

// resolveName rewrites a dependency on a name the index does not list
// directly — a `so:` marker or a virtual name — to its first provider.
// Unknown names pass through verbatim for a clean no-versions failure.
func (a *Alpine) resolveName(dep AlpineDependency) (string, version.AlpineRange) {
	if _, ok := a.packages[dep.Name]; ok {
		return dep.Name, dep.Range
	}
	if providers, ok := a.provides[dep.Name]; ok && len(providers) > 0 {
		return providers[0], version.Full[version.AlpineVersion]()
	}
	return dep.Name, dep.Range
}
