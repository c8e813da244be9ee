// Package compat maps abstract dependency keys onto concrete ecosystem
// packages before a query reaches the resolver: layered schema.yaml files
// translate names like "gmp" or a Python module into `(ecosystem,
// package)` pairs, the way rosdep-style mapping tables translate
// package.xml tags. It is an optional pre-pass, disabled unless schema
// files are supplied.
package compat

import (
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	pep440 "github.com/aquasecurity/go-pep440-version"

	"crossdep/internal/shared"
)

// Mapping translates one abstract key to a concrete installable package.
type Mapping struct {
	// Type is the target: "opam", "debian", "alpine", "cargo", or "pip".
	// Pip mappings are translated to the Debian python3-* packaging of
	// the module; their Version field must be a PEP 440 specifier set.
	Type string `yaml:"type"`

	// Package is the concrete package name in the target ecosystem. For
	// pip it is the module's distribution name before normalization.
	Package string `yaml:"package"`

	// Version is an optional version-constraint string, in the target
	// ecosystem's own syntax.
	Version string `yaml:"version,omitempty"`
}

// SchemaFile is the top-level structure of one schema.yaml layer.
type SchemaFile struct {
	SchemaVersion string             `yaml:"schema_version"`
	Mappings      map[string]Mapping `yaml:"mappings"`
}

// Dependency is a resolved abstract key: the ecosystem to query plus the
// concrete package name and raw constraint.
type Dependency struct {
	Ecosystem  string
	Package    string
	Constraint string
}

var validMappingTypes = map[string]struct{}{
	"opam":   {},
	"debian": {},
	"alpine": {},
	"cargo":  {},
	"pip":    {},
}

// Resolver holds the flattened mapping table after layering. Later loads
// override earlier ones per key.
type Resolver struct {
	merged map[string]Mapping
	layers []string
}

// NewResolver returns an empty resolver ready for schema loading.
func NewResolver() *Resolver {
	return &Resolver{merged: make(map[string]Mapping)}
}

// LoadSchema reads one schema.yaml layer and merges its mappings
// (last-write wins per key).
func (r *Resolver) LoadSchema(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to read schema file: " + path).
			WithCause(err)
	}
	var schema SchemaFile
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse schema file: " + path).
			WithCause(err)
	}
	if schema.SchemaVersion == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("schema file missing schema_version: " + path)
	}
	for key, mapping := range schema.Mappings {
		normalizedKey := strings.TrimSpace(key)
		if normalizedKey == "" {
			continue
		}
		if mapping.Package == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("schema key '" + normalizedKey + "' has empty package in " + path)
		}
		if _, ok := validMappingTypes[mapping.Type]; !ok {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("schema key '" + normalizedKey + "' has invalid type '" + mapping.Type + "' in " + path)
		}
		if mapping.Type == "pip" && mapping.Version != "" {
			if _, err := pep440.NewSpecifiers(mapping.Version); err != nil {
				return errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg("schema key '" + normalizedKey + "' has invalid PEP 440 specifier in " + path).
					WithCause(err)
			}
		}
		if _, exists := r.merged[normalizedKey]; exists {
			log.Debug().
				Str("key", normalizedKey).
				Str("layer", path).
				Msg("schema key overridden by later layer")
		}
		r.merged[normalizedKey] = mapping
	}
	r.layers = append(r.layers, path)
	log.Debug().
		Str("path", path).
		Int("keys", len(schema.Mappings)).
		Int("total", len(r.merged)).
		Msg("schema layer loaded")
	return nil
}

// Resolve maps one abstract key. Pip mappings become the Debian
// `python3-<name>` packaging of the module, with the distribution name
// normalized per PEP 503.
func (r *Resolver) Resolve(key string) (Dependency, bool) {
	mapping, ok := r.merged[strings.TrimSpace(key)]
	if !ok {
		return Dependency{}, false
	}
	if mapping.Type == "pip" {
		return Dependency{
			Ecosystem:  "debian",
			Package:    "python3-" + shared.NormalizePipName(mapping.Package),
			Constraint: mapping.Version,
		}, true
	}
	return Dependency{
		Ecosystem:  mapping.Type,
		Package:    mapping.Package,
		Constraint: mapping.Version,
	}, true
}

// Layers reports the load order, for provenance logging.
func (r *Resolver) Layers() []string { return r.layers }
