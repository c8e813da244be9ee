package opam

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"crossdep/internal/unified"
	"crossdep/internal/version"
)

// osVariableValues are the values `os` enumerates when nothing has pinned
// it, in preference order: the solver's first-candidate
// bias makes "linux" the default.
var osVariableValues = []version.OpamVersion{
	"linux", "macos", "win32", "cygwin", "freebsd", "openbsd", "netbsd", "dragonfly",
}

var archVariableValues = []version.OpamVersion{
	"arm64", "x86_32", "x86_64", "ppc32", "ppc64", "arm32",
}

// depextFamilies are the OS families a Depext package enumerates as its
// versions.
var depextFamilies = []version.OpamVersion{"alpine", "debian"}

// Delegate answers every OPAM-flavoured unified package: real packages
// from the Store, and the synthetic Formula/Proxy/Lor/Var/Depext/
// ConflictClass packages the compiler introduces. It
// implements unified.OpamDelegate.
type Delegate struct {
	store    *Store
	interner *unified.Interner
	ctx      *unified.Context
	compiler *Compiler
	debug    bool
}

// NewDelegate binds a store to one query's interner and cache context.
// debug is fixed at construction.
func NewDelegate(store *Store, interner *unified.Interner, ctx *unified.Context, debug bool) *Delegate {
	return &Delegate{
		store:    store,
		interner: interner,
		ctx:      ctx,
		compiler: NewCompiler(interner, ctx),
		debug:    debug,
	}
}

// Compiler exposes the delegate's compiler for callers that pre-compile
// root constraints.
func (d *Delegate) Compiler() *Compiler { return d.compiler }

// ListVersions enumerates a package's candidate versions newest-first /
// preference-first.
func (d *Delegate) ListVersions(pkg unified.Package) []version.Version {
	var out []version.Version
	switch pkg.Kind {
	case unified.KindOpam:
		for _, v := range d.store.Versions(pkg.Name) {
			out = append(out, v)
		}
	case unified.KindVar:
		out = d.variableValues(pkg.Name)
	case unified.KindFormula:
		out = []version.Version{FalseVersion, TrueVersion}
	case unified.KindLor, unified.KindProxy:
		out = []version.Version{LhsVersion, RhsVersion}
	case unified.KindConflictClass:
		members := d.ctx.ConflictMembers(pkg.Name)
		sort.Strings(members)
		for _, m := range members {
			out = append(out, version.OpamVersion(m))
		}
	case unified.KindDepext:
		for _, f := range depextFamilies {
			out = append(out, f)
		}
	}
	if d.debug {
		log.Debug().Str("package", pkg.String()).Int("count", len(out)).Msg("list versions")
	}
	return out
}

// variableValues lists a Var package's versions: the fixed os/arch value
// sets, or the literals observed in the query cache, falling back to the
// boolean defaults only when none were observed. Cache values are sorted so repeated queries enumerate identically.
func (d *Delegate) variableValues(name string) []version.Version {
	switch name {
	case "os":
		out := make([]version.Version, len(osVariableValues))
		for i, v := range osVariableValues {
			out[i] = v
		}
		return out
	case "arch":
		out := make([]version.Version, len(archVariableValues))
		for i, v := range archVariableValues {
			out[i] = v
		}
		return out
	default:
		cached := d.ctx.VariableValues(name)
		if len(cached) == 0 {
			return []version.Version{FalseVersion, TrueVersion}
		}
		sort.Strings(cached)
		out := make([]version.Version, len(cached))
		for i, v := range cached {
			out[i] = version.OpamVersion(v)
		}
		return out
	}
}

// GetDependencies resolves an OPAM-flavoured package at a version into
// constraints. Shapes the compiler considers
// impossible surface as Unavailable with an internal reason rather than a
// panic.
func (d *Delegate) GetDependencies(pkg unified.Package, v version.Version) unified.Dependencies {
	deps, err := d.dependencies(pkg, v)
	if err != nil {
		return unified.Unavailable(fmt.Sprintf("internal: %v", err))
	}
	if d.debug {
		log.Debug().Str("package", pkg.String()).Str("version", v.String()).
			Int("constraints", len(deps.Constraints())).Msg("get dependencies")
	}
	return deps
}

func (d *Delegate) dependencies(pkg unified.Package, v version.Version) (unified.Dependencies, error) {
	switch pkg.Kind {
	case unified.KindOpam:
		ov, ok := v.(version.OpamVersion)
		if !ok {
			return unified.Dependencies{}, internalError(fmt.Sprintf("opam package %s given non-opam version %s", pkg.Name, v))
		}
		meta, found := d.store.Metadata(pkg.Name, ov)
		if !found {
			return unified.Unavailable(fmt.Sprintf("%s has no version %s", pkg.Name, ov)), nil
		}
		return d.realDependencies(pkg.Name, meta)
	case unified.KindVar, unified.KindConflictClass:
		return unified.Available(nil), nil
	case unified.KindLor:
		payload, ok := pkg.Payload.(lorPayload)
		if !ok {
			return unified.Dependencies{}, internalError("lor package without branch payload")
		}
		var branch PackageFormula
		switch v {
		case LhsVersion:
			branch = payload.lhs
		case RhsVersion:
			branch = payload.rhs
		default:
			return unified.Dependencies{}, internalError(fmt.Sprintf("unknown or-branch version %q", v))
		}
		cons, err := d.compiler.FromFormula(branch)
		if err != nil {
			return unified.Dependencies{}, err
		}
		return unified.Available(cons), nil
	case unified.KindFormula:
		expr, ok := pkg.Payload.(VersionExpr)
		if !ok {
			return unified.Dependencies{}, internalError("formula package without expression payload")
		}
		switch v {
		case TrueVersion:
			cons, err := d.compiler.FromVersionExpr(pkg.Base, pkg.HasBase, expr)
			if err != nil {
				return unified.Dependencies{}, err
			}
			d.pinDepextFamily(pkg, expr, cons)
			return unified.Available(cons), nil
		case FalseVersion:
			negated, err := Negate(expr)
			if err != nil {
				return unified.Dependencies{}, err
			}
			cons, err := d.compiler.FromVersionExpr(0, false, negated)
			if err != nil {
				return unified.Dependencies{}, err
			}
			return unified.Available(cons), nil
		default:
			return unified.Dependencies{}, internalError(fmt.Sprintf("unknown formula version %q", v))
		}
	case unified.KindProxy:
		expr, ok := pkg.Payload.(VersionExpr)
		if !ok {
			return unified.Dependencies{}, internalError("proxy package without expression payload")
		}
		ov, ok := v.(version.OpamVersion)
		if !ok {
			return unified.Dependencies{}, internalError(fmt.Sprintf("proxy given non-opam version %s", v))
		}
		cons, err := d.compiler.FromProxyExpr(pkg.Base, pkg.HasBase, ov, expr)
		if err != nil {
			return unified.Dependencies{}, err
		}
		return unified.Available(cons), nil
	case unified.KindDepext:
		return d.depextDependencies(pkg, v)
	default:
		return unified.Dependencies{}, internalError(fmt.Sprintf("package kind %s does not belong to the opam delegate", pkg.Kind))
	}
}

// realDependencies compiles a real package's depends, depexts and
// conflict-class declarations into one merged constraint map.
func (d *Delegate) realDependencies(name string, meta Metadata) (unified.Dependencies, error) {
	cons, err := d.compiler.FromFormulas(meta.Depends)
	if err != nil {
		return unified.Dependencies{}, err
	}
	for _, depext := range meta.Depexts {
		more, err := d.compiler.FromFormula(depext)
		if err != nil {
			return unified.Dependencies{}, err
		}
		cons = unified.Merge(cons, more)
	}
	for _, class := range meta.ConflictClasses {
		more, err := d.compiler.FromFormula(ConflictClassDecl{Class: class, Member: name})
		if err != nil {
			return unified.Dependencies{}, err
		}
		cons = unified.Merge(cons, more)
	}
	return unified.Available(cons), nil
}

// depextDependencies maps a Depext package resolved to an OS family onto
// that family's native packages: at "debian", a formula
// matching `os-distribution|os-family = "debian"` emits Debian(n) for
// every listed name, and symmetrically for alpine.
func (d *Delegate) depextDependencies(pkg unified.Package, v version.Version) (unified.Dependencies, error) {
	family, ok := v.(version.OpamVersion)
	if !ok {
		return unified.Dependencies{}, internalError(fmt.Sprintf("depext given non-opam version %s", v))
	}
	var kind unified.PackageKind
	switch family {
	case "debian":
		kind = unified.KindDebian
	case "alpine":
		kind = unified.KindAlpine
	default:
		return unified.Available(nil), nil
	}
	// A version-only (or absent) condition is unconditional: it applies to
	// whichever family the solver lands on.
	expr, _ := pkg.Payload.(VersionExpr)
	if expr != nil {
		if _, versionOnly := expr.(VersionRange); !versionOnly && !ContainsOSCondition(expr, string(family)) {
			return unified.Available(nil), nil
		}
	}
	out := make(map[unified.Ref]unified.VersionSet, len(pkg.Names))
	for _, name := range pkg.Names {
		ref := d.interner.Intern(unified.Package{Kind: kind, Name: name})
		var set unified.VersionSet
		if kind == unified.KindDebian {
			set = unified.DebianSet(version.Full[version.DebianVersion]())
		} else {
			set = unified.AlpineSet(version.Full[version.AlpineVersion]())
		}
		out[ref] = set
	}
	return unified.Available(out), nil
}

// pinDepextFamily narrows a Depext base to the OS families its condition
// names, so that selecting the formula actually routes the depext to the
// matching ecosystem. Left unconstrained, the solver could pick a family
// whose condition does not match and silently emit nothing (see
// DESIGN.md).
func (d *Delegate) pinDepextFamily(pkg unified.Package, expr VersionExpr, cons map[unified.Ref]unified.VersionSet) {
	if !pkg.HasBase {
		return
	}
	basePkg, ok := d.interner.Lookup(pkg.Base)
	if !ok || basePkg.Kind != unified.KindDepext {
		return
	}
	var familySet unified.VersionSet
	matched := false
	for _, family := range depextFamilies {
		if ContainsOSCondition(expr, string(family)) {
			single := unified.SingletonOpam(family)
			if !matched {
				familySet = single
			} else {
				familySet = familySet.Union(single)
			}
			matched = true
		}
	}
	if matched {
		cons[pkg.Base] = familySet
	}
}

// ContainsOSCondition reports whether expr requires `os-distribution` or
// `os-family` to equal osName anywhere in its tree.
func ContainsOSCondition(expr VersionExpr, osName string) bool {
	switch e := expr.(type) {
	case Comparator:
		if e.Op != RelOpEq {
			return false
		}
		if v, ok := e.LHS.(Variable); ok && (v.Name == "os-distribution" || v.Name == "os-family") {
			if l, ok := e.RHS.(Lit); ok {
				return l.Value == osName
			}
		}
		if v, ok := e.RHS.(Variable); ok && (v.Name == "os-distribution" || v.Name == "os-family") {
			if l, ok := e.LHS.(Lit); ok {
				return l.Value == osName
			}
		}
		return false
	case VAnd:
		return ContainsOSCondition(e.LHS, osName) || ContainsOSCondition(e.RHS, osName)
	case VOr:
		return ContainsOSCondition(e.LHS, osName) || ContainsOSCondition(e.RHS, osName)
	default:
		return false
	}
}
