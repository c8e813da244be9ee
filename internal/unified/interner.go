package unified

// Ref is an opaque handle into a per-query Interner. It is the only thing
// that ever participates in a Dependencies map or a RootChild — never a
// bare Package — so that identical compiled subtrees collapse onto one
// solver variable regardless of how many times they were synthesised.
type Ref int

// Interner is a process-local, per-query arena: one is created per
// resolution call and discarded at the end.
type Interner struct {
	byKey map[string]Ref
	byRef []Package
}

// NewInterner returns an empty arena.
func NewInterner() *Interner {
	return &Interner{byKey: make(map[string]Ref)}
}

// Intern returns the Ref for p, reusing an existing entry whenever p's
// canonical String() matches one already interned.
func (in *Interner) Intern(p Package) Ref {
	key := p.String()
	if ref, ok := in.byKey[key]; ok {
		return ref
	}
	ref := Ref(len(in.byRef))
	in.byRef = append(in.byRef, p)
	in.byKey[key] = ref
	return ref
}

// Lookup returns the Package a Ref was interned from.
func (in *Interner) Lookup(ref Ref) (Package, bool) {
	if int(ref) < 0 || int(ref) >= len(in.byRef) {
		return Package{}, false
	}
	return in.byRef[ref], true
}

// Len reports how many distinct packages have been interned so far.
func (in *Interner) Len() int { return len(in.byRef) }
