// Package index holds the per-ecosystem sub-indices behind the unified
// dependency provider: immutable package→version→payload
// maps built once per query from a repository snapshot, listing versions
// newest-first.
package index

import (
	"fmt"
	"sort"

	"crossdep/internal/unified"
	"crossdep/internal/version"
)

// DebianDependency is one parsed Depends/Pre-Depends group: a list of
// alternatives (`pkg1 (>= 1.0) | pkg2`), of which installing any one
// satisfies the group.
type DebianDependency struct {
	Alternatives []DebianAlternative
}

// DebianAlternative is a single `name (op version)` clause.
type DebianAlternative struct {
	Name  string
	Range version.DebianRange
}

// DebianPackageVersion is the payload for one (package, version) pair.
type DebianPackageVersion struct {
	Version  version.DebianVersion
	Depends  []DebianDependency
	Provides []string
}

// Debian is the Debian Packages sub-index.
type Debian struct {
	packages map[string][]DebianPackageVersion // newest first
	provides map[string][]string               // virtual name -> concrete providers
	debug    bool
}

// NewDebian builds the index from loaded stanzas. Versions are sorted
// newest-first and the provides table inverted once, up front.
func NewDebian(packages map[string][]DebianPackageVersion, debug bool) *Debian {
	provides := make(map[string][]string)
	for name, entries := range packages {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Version.Compare(entries[j].Version) > 0
		})
		packages[name] = entries
		for _, entry := range entries {
			for _, virtual := range entry.Provides {
				provides[virtual] = append(provides[virtual], name)
			}
		}
	}
	for virtual := range provides {
		sort.Strings(provides[virtual])
		provides[virtual] = dedupeSorted(provides[virtual])
	}
	return &Debian{packages: packages, provides: provides, debug: debug}
}

func (d *Debian) Kind() unified.PackageKind { return unified.KindDebian }

func (d *Debian) ListVersions(pkg unified.Package) []version.Version {
	entries := d.packages[pkg.Name]
	out := make([]version.Version, len(entries))
	for i, e := range entries {
		out[i] = e.Version
	}
	return out
}

func (d *Debian) GetDependencies(pkg unified.Package, v version.Version) (bool, []unified.Dep, string) {
	entries, ok := d.packages[pkg.Name]
	if !ok {
		return false, nil, fmt.Sprintf("debian package %q not in index", pkg.Name)
	}
	for _, entry := range entries {
		if entry.Version.Compare(v) != 0 {
			continue
		}
		deps := make([]unified.Dep, 0, len(entry.Depends))
		for _, group := range entry.Depends {
			alt, found := d.selectAlternative(group)
			if !found {
				continue
			}
			deps = append(deps, unified.Dep{Name: alt.Name, Set: unified.DebianSet(alt.Range)})
		}
		return true, deps, ""
	}
	return false, nil, fmt.Sprintf("debian package %q has no version %s", pkg.Name, v)
}

// selectAlternative picks the group member to require: the first
// alternative the index knows directly, else the first with a provider
// (rewritten to that provider, unversioned, since Debian Provides carry no
// version here), else the first alternative verbatim so the solver reports
// a clean no-versions failure.
func (d *Debian) selectAlternative(group DebianDependency) (DebianAlternative, bool) {
	if len(group.Alternatives) == 0 {
		return DebianAlternative{}, false
	}
	for _, alt := range group.Alternatives {
		if _, ok := d.packages[alt.Name]; ok {
			return alt, true
		}
	}
	for _, alt := range group.Alternatives {
		if providers, ok := d.provides[alt.Name]; ok && len(providers) > 0 {
			return DebianAlternative{Name: providers[0], Range: version.Full[version.DebianVersion]()}, true
		}
	}
	return group.Alternatives[0], true
}

func dedupeSorted(values []string) []string {
	out := values[:0]
	for i, v := range values {
		if i == 0 || values[i-1] != v {
			out = append(out, v)
		}
	}
	return out
}
