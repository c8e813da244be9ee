package unified

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"crossdep/internal/version"
)

// Dep is one dependency edge as reported by a SubIndex, before the Index
// interns it into a unified package. Bucket and AllFeatures are only
// meaningful for Cargo, whose package identity includes the SemVer
// compatibility bucket; Debian and Alpine leave them zero.
type Dep struct {
	Name        string
	Bucket      string
	AllFeatures bool
	Set         VersionSet
}

// SubIndex is the per-ecosystem, real-package half of the dependency
// provider contract: the three plain ecosystems
// (Debian, Alpine, Cargo) implement it directly against their loaded repo
// snapshot; OPAM does not, because every OPAM dependency answer must pass
// through the formula compiler first (see OpamDelegate below).
type SubIndex interface {
	// Kind identifies which PackageKind this index answers for, used to
	// intern a dependency's name back into the right ecosystem.
	Kind() PackageKind

	// ListVersions returns every known version of pkg, newest first.
	ListVersions(pkg Package) []version.Version

	// GetDependencies returns pkg@v's declared dependencies as unified
	// version sets (not yet interned — Index does that uniformly for
	// every SubIndex).
	GetDependencies(pkg Package, v version.Version) (ok bool, deps []Dep, reason string)
}

// OpamDelegate answers every OPAM-flavoured PackageKind: the real OPAM
// packages plus the synthetic ones the formula compiler introduces
// (Formula, Proxy, Lor, Var, Depext, ConflictClass). It is implemented by
// internal/opam, kept one-directional (opam imports unified, never the
// reverse) via Package's opaque Payload field.
type OpamDelegate interface {
	ListVersions(pkg Package) []version.Version
	GetDependencies(pkg Package, v version.Version) Dependencies
}

// Index is the unified dependency provider: it receives a
// Ref into a shared Interner and dispatches to the right ecosystem index,
// the OPAM delegate, or its own Root/Platform handling.
type Index struct {
	Debian SubIndex
	Alpine SubIndex
	Cargo  SubIndex
	Opam   OpamDelegate

	Interner *Interner
	Ctx      *Context
}

// NewIndex assembles a dispatch table. Any of the four provider arguments
// may be nil if that ecosystem is absent from the query's repo snapshots;
// dispatching to a nil provider reports Unavailable rather than panicking.
func NewIndex(interner *Interner, ctx *Context, debian, alpine, cargo SubIndex, opam OpamDelegate) *Index {
	return &Index{Debian: debian, Alpine: alpine, Cargo: cargo, Opam: opam, Interner: interner, Ctx: ctx}
}

// ListVersions is the list_versions half of the dispatch table.
func (idx *Index) ListVersions(ref Ref) []version.Version {
	pkg, ok := idx.Interner.Lookup(ref)
	if !ok {
		return nil
	}
	switch pkg.Kind {
	case KindDebian:
		return idx.listReal(idx.Debian, pkg)
	case KindAlpine:
		return idx.listReal(idx.Alpine, pkg)
	case KindCargo:
		return idx.listReal(idx.Cargo, pkg)
	case KindRoot:
		return []version.Version{version.SingularVersion{}}
	case KindPlatform:
		// Platform(OS) enumerates ["debian", "alpine"].
		return []version.Version{version.PlatformVersion("debian"), version.PlatformVersion("alpine")}
	default:
		// KindOpam, KindVar, KindDepext, KindConflictClass, KindLor,
		// KindFormula, KindProxy all belong to the OPAM delegate. Depext's
		// own candidate list is ["alpine", "debian"], in that order — a
		// deliberate asymmetry with Platform(OS).
		if idx.Opam == nil {
			return nil
		}
		return idx.Opam.ListVersions(pkg)
	}
}

// GetDependencies is the get_dependencies half of the dispatch table.
func (idx *Index) GetDependencies(ref Ref, v version.Version) Dependencies {
	pkg, ok := idx.Interner.Lookup(ref)
	if !ok {
		return Unavailable(fmt.Sprintf("unknown package ref %d", ref))
	}
	switch pkg.Kind {
	case KindDebian:
		return idx.liftReal(idx.Debian, pkg, v)
	case KindAlpine:
		return idx.liftReal(idx.Alpine, pkg, v)
	case KindCargo:
		return idx.liftReal(idx.Cargo, pkg, v)
	case KindRoot:
		return idx.rootDependencies(pkg)
	case KindPlatform:
		return idx.platformDependencies(v)
	default:
		if idx.Opam == nil {
			return Unavailable("no opam delegate configured")
		}
		return idx.Opam.GetDependencies(pkg, v)
	}
}

func (idx *Index) listReal(sub SubIndex, pkg Package) []version.Version {
	if sub == nil {
		return nil
	}
	return sub.ListVersions(pkg)
}

func (idx *Index) liftReal(sub SubIndex, pkg Package, v version.Version) Dependencies {
	if sub == nil {
		return Unavailable(fmt.Sprintf("no index loaded for %q", pkg.Name))
	}
	ok, deps, reason := sub.GetDependencies(pkg, v)
	if !ok {
		return Unavailable(reason)
	}
	out := make(map[Ref]VersionSet, len(deps))
	for _, dep := range deps {
		ref := idx.Interner.Intern(Package{
			Kind:             sub.Kind(),
			Name:             dep.Name,
			CargoBucket:      dep.Bucket,
			CargoAllFeatures: dep.AllFeatures,
		})
		if existing, dup := out[ref]; dup {
			out[ref] = existing.Intersection(dep.Set)
			continue
		}
		out[ref] = dep.Set
	}
	return Available(out)
}

// rootDependencies returns a Root package's precomputed children verbatim
// and, as a side effect, feeds any child that is an OPAM variable pinned
// to a single literal into the query's variable cache.
func (idx *Index) rootDependencies(pkg Package) Dependencies {
	out := make(map[Ref]VersionSet, len(pkg.Children))
	for _, child := range pkg.Children {
		out[child.Child] = child.Constraint
		childPkg, ok := idx.Interner.Lookup(child.Child)
		if !ok || childPkg.Kind != KindVar {
			continue
		}
		lit, isSingleton := singletonOpamLiteral(child.Constraint)
		if !isSingleton {
			// A union pin like `os in {linux, macos}` has no singleton
			// value to record; the constraint itself still binds, only
			// the cache misses it.
			log.Warn().Str("variable", childPkg.Name).Str("constraint", child.Constraint.String()).
				Msg("root pins a variable to a non-singleton range; value left unobserved")
			continue
		}
		idx.Ctx.ObserveVariableValue(childPkg.Name, lit)
	}
	return Available(out)
}

// platformDependencies handles the Platform(OS) row: pinning
// the platform to "debian" or "alpine" forces the matching os/os-family/
// os-distribution OPAM variables, and records them as observed so that
// list_versions(Var(...)) later offers them as candidates.
func (idx *Index) platformDependencies(v version.Version) Dependencies {
	pv, ok := v.(version.PlatformVersion)
	if !ok {
		return Unavailable(fmt.Sprintf("platform package given non-platform version %v", v))
	}
	var osFamily string
	switch string(pv) {
	case "debian":
		osFamily = "debian"
	case "alpine":
		osFamily = "alpine"
	default:
		return Unavailable(fmt.Sprintf("unsupported platform %q", pv))
	}
	pins := []struct{ name, value string }{
		{"os-distribution", osFamily},
		{"os-family", osFamily},
		{"os", "linux"},
	}
	out := make(map[Ref]VersionSet, len(pins))
	for _, pin := range pins {
		ref := idx.Interner.Intern(Package{Kind: KindVar, Name: pin.name})
		out[ref] = SingletonOpam(version.OpamVersion(pin.value))
		idx.Ctx.ObserveVariableValue(pin.name, pin.value)
	}
	return Available(out)
}

func singletonOpamLiteral(set VersionSet) (string, bool) {
	if set.tag != tagOpam {
		return "", false
	}
	v, ok := set.opam.AsSingleton()
	if !ok {
		return "", false
	}
	return v.String(), true
}
