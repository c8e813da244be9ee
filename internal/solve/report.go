package solve

import (
	"fmt"
	"strings"

	"crossdep/internal/unified"
)

// DerivationTree is the proof of unsatisfiability the solver leaves
// behind: the derived incompatibility graph rooted at the terminal
// conflict. It renders through StringReporter and supports
// CollapseNoVersions to drop redundant "no version satisfies" nodes.
type DerivationTree struct {
	root     *incompatibility
	interner *unified.Interner
}

func newDerivationTree(root *incompatibility, interner *unified.Interner) *DerivationTree {
	return &DerivationTree{root: root, interner: interner}
}

// CollapseNoVersions removes a derived node when one of its causes is a
// NoVersions external for a package that the walk already reported
// earlier (at a shallower node, or in a branch visited before), and puts
// the node's other cause in its place. A NoVersions fact that only a
// deeper node implies is left in the tree.
func (t *DerivationTree) CollapseNoVersions() {
	t.root = collapseNoVersions(t.root, map[unified.Ref]bool{})
}

func collapseNoVersions(ic *incompatibility, seen map[unified.Ref]bool) *incompatibility {
	if ic.kind != icDerived {
		return ic
	}
	if dropped, ok := collapseChild(ic.cause1, ic.cause2, seen); ok {
		return dropped
	}
	if dropped, ok := collapseChild(ic.cause2, ic.cause1, seen); ok {
		return dropped
	}
	if ic.cause1.kind == icNoVersions {
		seen[ic.cause1.pkg] = true
	}
	if ic.cause2.kind == icNoVersions {
		seen[ic.cause2.pkg] = true
	}
	out := &incompatibility{
		terms:  ic.terms,
		kind:   icDerived,
		cause1: collapseNoVersions(ic.cause1, seen),
		cause2: collapseNoVersions(ic.cause2, seen),
	}
	return out
}

// collapseChild drops a NoVersions cause whose package was already
// explained by a shallower NoVersions node, replacing the derivation with
// its sibling.
func collapseChild(candidate, sibling *incompatibility, seen map[unified.Ref]bool) (*incompatibility, bool) {
	if candidate.kind != icNoVersions || !seen[candidate.pkg] {
		return nil, false
	}
	return collapseNoVersions(sibling, seen), true
}

// StringReporter renders a derivation tree as a numbered human-readable
// trace, shared derived conclusions referenced by line number.
type StringReporter struct{}

// Report renders the whole tree.
func (StringReporter) Report(t *DerivationTree) string {
	r := &reportState{
		interner: t.interner,
		shared:   map[*incompatibility]int{},
		refCount: map[*incompatibility]int{},
	}
	countSharedNodes(t.root, r.refCount)
	r.explain(t.root)
	return strings.Join(r.lines, "\n")
}

func countSharedNodes(ic *incompatibility, counts map[*incompatibility]int) {
	counts[ic]++
	if counts[ic] > 1 || ic.kind != icDerived {
		return
	}
	countSharedNodes(ic.cause1, counts)
	countSharedNodes(ic.cause2, counts)
}

type reportState struct {
	interner *unified.Interner
	lines    []string
	shared   map[*incompatibility]int
	refCount map[*incompatibility]int
}

// explain emits lines for a derived node's causes and then its
// conclusion, returning the phrase later lines use to reference it.
func (r *reportState) explain(ic *incompatibility) string {
	if ic.kind != icDerived {
		return r.external(ic)
	}
	if line, done := r.shared[ic]; done {
		return fmt.Sprintf("(%d)", line)
	}
	lhs := r.explain(ic.cause1)
	rhs := r.explain(ic.cause2)
	sentence := fmt.Sprintf("Because %s and %s, %s.", lhs, rhs, r.conclusion(ic))
	r.lines = append(r.lines, fmt.Sprintf("%d. %s", len(r.lines)+1, sentence))
	line := len(r.lines)
	if r.refCount[ic] > 1 {
		r.shared[ic] = line
	}
	return r.conclusion(ic)
}

func (r *reportState) external(ic *incompatibility) string {
	switch ic.kind {
	case icNotRoot:
		return fmt.Sprintf("%s is the root", r.label(ic.pkg))
	case icNoVersions:
		return fmt.Sprintf("there are no versions of %s satisfying %s", r.label(ic.pkg), ic.set)
	case icUnavailable:
		return fmt.Sprintf("dependencies of %s at %s are unavailable (%s)", r.label(ic.pkg), ic.ver, ic.reason)
	case icFromDependency:
		return fmt.Sprintf("%s %s depends on %s %s", r.label(ic.pkg), ic.set, r.label(ic.dep), ic.depSet)
	default:
		return "an unknown fact holds"
	}
}

// conclusion phrases what a derived incompatibility forbids.
func (r *reportState) conclusion(ic *incompatibility) string {
	if len(ic.terms) == 0 {
		return "version solving failed"
	}
	parts := make([]string, 0, len(ic.terms))
	for _, pkg := range ic.packages() {
		t := ic.terms[pkg]
		if t.positive {
			parts = append(parts, fmt.Sprintf("%s %s is forbidden", r.label(pkg), t.set))
		} else {
			parts = append(parts, fmt.Sprintf("%s %s is required", r.label(pkg), t.set))
		}
	}
	return strings.Join(parts, " or ")
}

func (r *reportState) label(ref unified.Ref) string {
	return PackageLabel(r.interner, ref)
}

// PackageLabel renders a unified package for humans: bare names for OPAM
// (the query's native namespace), prefixed names elsewhere, and the
// synthetic structure for proxies.
func PackageLabel(interner *unified.Interner, ref unified.Ref) string {
	pkg, ok := interner.Lookup(ref)
	if !ok {
		return fmt.Sprintf("package#%d", ref)
	}
	switch pkg.Kind {
	case unified.KindOpam:
		return pkg.Name
	case unified.KindDebian:
		return "debian/" + pkg.Name
	case unified.KindAlpine:
		return "alpine/" + pkg.Name
	case unified.KindCargo:
		return "cargo/" + pkg.Name
	case unified.KindVar:
		return "`" + pkg.Name + "`"
	case unified.KindRoot:
		return "root"
	default:
		return pkg.String()
	}
}
