// Package repo loads repository snapshot files into the per-ecosystem
// indices. The snapshot is this project's own YAML serialization of the
// indexer output contract: the on-disk APKINDEX / Packages
// / opam / crates-index grammars themselves are out of core scope, so the
// loaders consume their already-extracted fields.
package repo

// Snapshot is the top-level YAML document: one optional section per
// ecosystem.
type Snapshot struct {
	Opam   OpamSection   `yaml:"opam,omitempty"`
	Debian DebianSection `yaml:"debian,omitempty"`
	Alpine AlpineSection `yaml:"alpine,omitempty"`
	Cargo  CargoSection  `yaml:"cargo,omitempty"`
}

// OpamSection maps package name -> version -> metadata.
type OpamSection struct {
	Packages map[string]map[string]OpamVersionEntry `yaml:"packages,omitempty"`
}

// OpamVersionEntry carries the dependency formulas of one OPAM package
// version, in the textual formula grammar of internal/opam.
type OpamVersionEntry struct {
	Depends         []string          `yaml:"depends,omitempty"`
	Depexts         []OpamDepextEntry `yaml:"depexts,omitempty"`
	ConflictClasses []string          `yaml:"conflict_classes,omitempty"`
}

// OpamDepextEntry is one external-dependency declaration: the OS-level
// package names plus the filter condition under which they apply.
type OpamDepextEntry struct {
	Names     []string `yaml:"names"`
	Condition string   `yaml:"condition,omitempty"`
}

// DebianSection maps package name -> version -> stanza fields
// (`Package`/`Version`/`Depends`/`Pre-Depends`/`Provides`).
type DebianSection struct {
	Packages map[string]map[string]DebianVersionEntry `yaml:"packages,omitempty"`
}

type DebianVersionEntry struct {
	Depends    string `yaml:"depends,omitempty"`
	PreDepends string `yaml:"pre_depends,omitempty"`
	Provides   string `yaml:"provides,omitempty"`
	Arch       string `yaml:"arch,omitempty"`
}

// AlpineSection maps package name -> version -> APKINDEX fields
// (`P`/`V`/`A`/`D`/`p`).
type AlpineSection struct {
	Packages map[string]map[string]AlpineVersionEntry `yaml:"packages,omitempty"`
}

type AlpineVersionEntry struct {
	Depends  []string `yaml:"depends,omitempty"`
	Provides []string `yaml:"provides,omitempty"`
	Arch     string   `yaml:"arch,omitempty"`
}

// CargoSection maps crate name -> the crates-index rows of its published
// versions.
type CargoSection struct {
	Crates map[string][]CargoVersionEntry `yaml:"crates,omitempty"`
}

type CargoVersionEntry struct {
	Version string          `yaml:"vers"`
	Yanked  bool            `yaml:"yanked,omitempty"`
	Deps    []CargoDepEntry `yaml:"deps,omitempty"`
}

type CargoDepEntry struct {
	Name     string `yaml:"name"`
	Req      string `yaml:"req"`
	Optional bool   `yaml:"optional,omitempty"`
	Kind     string `yaml:"kind,omitempty"`
}
