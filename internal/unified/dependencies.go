package unified

// Dependencies is the dependency-provider contract's result sum:
// Available carries a dependency-package-to-version-set map; Unavailable
// carries a human-readable reason. It is never both.
type Dependencies struct {
	ok          bool
	constraints map[Ref]VersionSet
	reason      string
}

// Available builds the successful case: a package exists at this version
// and constraints names its dependencies.
func Available(constraints map[Ref]VersionSet) Dependencies {
	if constraints == nil {
		constraints = map[Ref]VersionSet{}
	}
	return Dependencies{ok: true, constraints: constraints}
}

// Unavailable builds the failure case: the package or version has no
// dependency data, e.g. the version does not exist in the index.
func Unavailable(reason string) Dependencies {
	return Dependencies{ok: false, reason: reason}
}

func (d Dependencies) IsAvailable() bool { return d.ok }

// Constraints returns the dependency map; it is empty (never nil) when
// IsAvailable is false.
func (d Dependencies) Constraints() map[Ref]VersionSet {
	if !d.ok {
		return map[Ref]VersionSet{}
	}
	return d.constraints
}

func (d Dependencies) Reason() string { return d.reason }

// Merge combines two Available dependency maps, intersecting the version
// set whenever both sides constrain the same Ref (OPAM's `And`
// combinator).
func Merge(a, b map[Ref]VersionSet) map[Ref]VersionSet {
	out := make(map[Ref]VersionSet, len(a)+len(b))
	for ref, set := range a {
		out[ref] = set
	}
	for ref, set := range b {
		if existing, ok := out[ref]; ok {
			out[ref] = existing.Intersection(set)
		} else {
			out[ref] = set
		}
	}
	return out
}
