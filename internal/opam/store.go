package opam

import (
	"sort"

	"crossdep/internal/version"
)

// Metadata is the dependency payload attached to one (package, version)
// pair: the parsed depends/depopts formulas, depext declarations, and the
// conflict classes the package declares.
type Metadata struct {
	Depends         []PackageFormula
	Depexts         []DepextDecl
	ConflictClasses []string
}

// Store is an immutable OPAM sub-index: package name to versions
// (newest first) to metadata. It is built once per query by the repo
// loader and read-only afterwards.
type Store struct {
	packages map[string]*storeEntry
}

type storeEntry struct {
	versions []version.OpamVersion // newest first
	metadata map[version.OpamVersion]Metadata
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{packages: make(map[string]*storeEntry)}
}

// Add records metadata for name@ver. Versions are re-sorted newest-first
// on every insert; loaders call Add during construction only.
func (s *Store) Add(name string, ver version.OpamVersion, meta Metadata) {
	entry, ok := s.packages[name]
	if !ok {
		entry = &storeEntry{metadata: make(map[version.OpamVersion]Metadata)}
		s.packages[name] = entry
	}
	if _, exists := entry.metadata[ver]; !exists {
		entry.versions = append(entry.versions, ver)
		sort.Slice(entry.versions, func(i, j int) bool {
			return entry.versions[i].Compare(entry.versions[j]) > 0
		})
	}
	entry.metadata[ver] = meta
}

// Versions lists name's known versions newest first.
func (s *Store) Versions(name string) []version.OpamVersion {
	entry, ok := s.packages[name]
	if !ok {
		return nil
	}
	return entry.versions
}

// Metadata returns the payload for name@ver.
func (s *Store) Metadata(name string, ver version.OpamVersion) (Metadata, bool) {
	entry, ok := s.packages[name]
	if !ok {
		return Metadata{}, false
	}
	meta, ok := entry.metadata[ver]
	return meta, ok
}

// Len reports how many packages the store holds.
func (s *Store) Len() int { return len(s.packages) }
