package app

import (
	"sort"

	"crossdep/internal/solve"
	"crossdep/internal/unified"
)

// present flattens a solution for the response: real packages only, the
// queried package excluded (it heads the response), synthetics and
// `so:` shared-object markers hidden,
// sorted by ecosystem then name for stable output.
func present(interner *unified.Interner, result *solve.Result, rootPkg unified.Ref) []ResolvedPackage {
	out := make([]ResolvedPackage, 0, len(result.Selected))
	for ref, ver := range result.Selected {
		if ref == rootPkg {
			continue
		}
		pkg, ok := interner.Lookup(ref)
		if !ok {
			continue
		}
		eco, real := ecosystemName(pkg.Kind)
		if !real || sharedObjectMarker(pkg) {
			continue
		}
		out = append(out, ResolvedPackage{
			Ecosystem: eco,
			Name:      pkg.Name,
			Version:   ver.String(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ecosystem != out[j].Ecosystem {
			return out[i].Ecosystem < out[j].Ecosystem
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out
}
