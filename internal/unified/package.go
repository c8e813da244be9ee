// Package unified implements the cross-ecosystem package/version-set sum
// type and its interning arena. It knows nothing about OPAM formula syntax itself — the OPAM
// compiler (internal/opam) builds the synthetic Formula/Proxy/Lor/Depext
// packages and hands this package only an opaque, Stringer-shaped payload
// it can use for structural interning and delegate back to the compiler
// at resolution time.
package unified

import (
	"fmt"
	"strings"
)

// PackageKind tags the variant of a unified Package.
type PackageKind int

const (
	KindOpam PackageKind = iota
	KindDebian
	KindAlpine
	KindCargo
	KindRoot
	KindPlatform
	KindVar
	KindDepext
	KindConflictClass
	KindLor
	KindFormula
	KindProxy
)

func (k PackageKind) String() string {
	switch k {
	case KindOpam:
		return "opam"
	case KindDebian:
		return "debian"
	case KindAlpine:
		return "alpine"
	case KindCargo:
		return "cargo"
	case KindRoot:
		return "root"
	case KindPlatform:
		return "platform"
	case KindVar:
		return "var"
	case KindDepext:
		return "depext"
	case KindConflictClass:
		return "conflict-class"
	case KindLor:
		return "lor"
	case KindFormula:
		return "formula"
	case KindProxy:
		return "proxy"
	default:
		return "unknown"
	}
}

// RootChild is one `(Package, VersionSet)` entry of a synthetic Root
// package. Child is a Ref into the query's Interner, not an inline
// Package, so that Root's canonical string depends only on already
// -deduplicated identities.
type RootChild struct {
	Child      Ref
	Constraint VersionSet
}

// Package is the tagged sum spanning every ecosystem plus the synthetic
// solver-only packages. Not every field is populated
// for every Kind — see the per-Kind comments below. Payload carries
// whatever opaque, Stringer-shaped data the OPAM formula compiler needs to
// resolve Formula/Proxy/Lor/Depext packages later; unified never inspects
// it beyond calling String().
type Package struct {
	Kind PackageKind

	// KindOpam, KindDebian, KindAlpine, KindCargo, KindVar, KindConflictClass
	Name string

	// KindCargo
	CargoBucket      string
	CargoAllFeatures bool

	// KindRoot
	Children []RootChild

	// KindFormula, KindProxy: the base package. A Formula requires it when
	// it resolves "true"; a Proxy requires it on whichever branch ("lhs"
	// or "rhs") it resolves to. HasBase distinguishes a Proxy with no base
	// (pure filter-variable assertion) from one with a real base package.
	Base    Ref
	HasBase bool

	// KindDepext
	Names []string

	// KindFormula, KindProxy, KindLor, KindDepext: opaque payload from
	// internal/opam (the filter expression, or the raw `A | B` formula
	// subtrees for Lor) used only for canonical stringification here.
	Payload fmt.Stringer
}

// String returns the canonical structural representation used as the
// Interner's dedup key: two synthetic expansions of the same subtree must
// produce the same string.
func (p Package) String() string {
	switch p.Kind {
	case KindOpam:
		return "opam:" + p.Name
	case KindDebian:
		return "debian:" + p.Name
	case KindAlpine:
		return "alpine:" + p.Name
	case KindCargo:
		return fmt.Sprintf("cargo:%s@%s:all=%v", p.Name, p.CargoBucket, p.CargoAllFeatures)
	case KindRoot:
		parts := make([]string, len(p.Children))
		for i, c := range p.Children {
			parts[i] = fmt.Sprintf("%d=%s", c.Child, c.Constraint.String())
		}
		return "root(" + strings.Join(parts, ",") + ")"
	case KindPlatform:
		return "platform:OS"
	case KindVar:
		return "var:" + p.Name
	case KindDepext:
		return fmt.Sprintf("depext:%s{%s}", strings.Join(p.Names, "+"), stringerOrEmpty(p.Payload))
	case KindConflictClass:
		return "conflict-class:" + p.Name
	case KindLor:
		return fmt.Sprintf("lor{%s}", stringerOrEmpty(p.Payload))
	case KindFormula:
		return fmt.Sprintf("formula(base=%d){%s}", p.Base, stringerOrEmpty(p.Payload))
	case KindProxy:
		if p.HasBase {
			return fmt.Sprintf("proxy(base=%d){%s}", p.Base, stringerOrEmpty(p.Payload))
		}
		return fmt.Sprintf("proxy(base=none){%s}", stringerOrEmpty(p.Payload))
	default:
		return "invalid-package"
	}
}

func stringerOrEmpty(s fmt.Stringer) string {
	if s == nil {
		return ""
	}
	return s.String()
}
