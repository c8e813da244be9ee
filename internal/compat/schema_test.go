package compat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchema(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSchemaAndResolve(t *testing.T) {
	resolver := NewResolver()
	err := resolver.LoadSchema(writeSchema(t, "schema.yaml", `
schema_version: "1"
mappings:
  gmp:
    type: opam
    package: conf-gmp
  ssl-dev:
    type: debian
    package: libssl-dev
  numpy:
    type: pip
    package: NumPy
    version: ">=1.26"
`))
	require.NoError(t, err)

	dep, ok := resolver.Resolve("gmp")
	require.True(t, ok)
	assert.Equal(t, "opam", dep.Ecosystem)
	assert.Equal(t, "conf-gmp", dep.Package)

	dep, ok = resolver.Resolve("numpy")
	require.True(t, ok)
	assert.Equal(t, "debian", dep.Ecosystem, "pip mappings route to debian packaging")
	assert.Equal(t, "python3-numpy", dep.Package, "PEP 503 normalization applies")
	assert.Equal(t, ">=1.26", dep.Constraint)

	_, ok = resolver.Resolve("unknown-key")
	assert.False(t, ok)
}

func TestLoadSchemaLayeringLastWins(t *testing.T) {
	resolver := NewResolver()
	require.NoError(t, resolver.LoadSchema(writeSchema(t, "base.yaml", `
schema_version: "1"
mappings:
  gmp:
    type: debian
    package: libgmp-dev
`)))
	require.NoError(t, resolver.LoadSchema(writeSchema(t, "override.yaml", `
schema_version: "1"
mappings:
  gmp:
    type: alpine
    package: gmp-dev
`)))

	dep, ok := resolver.Resolve("gmp")
	require.True(t, ok)
	assert.Equal(t, "alpine", dep.Ecosystem)
	assert.Equal(t, "gmp-dev", dep.Package)
	assert.Len(t, resolver.Layers(), 2)
}

func TestLoadSchemaValidation(t *testing.T) {
	resolver := NewResolver()

	err := resolver.LoadSchema(writeSchema(t, "noversion.yaml", `
mappings:
  gmp: {type: opam, package: conf-gmp}
`))
	assert.Error(t, err, "missing schema_version")

	err = resolver.LoadSchema(writeSchema(t, "badtype.yaml", `
schema_version: "1"
mappings:
  gmp: {type: homebrew, package: gmp}
`))
	assert.Error(t, err, "invalid mapping type")

	err = resolver.LoadSchema(writeSchema(t, "badpep.yaml", `
schema_version: "1"
mappings:
  numpy: {type: pip, package: numpy, version: "not a specifier"}
`))
	assert.Error(t, err, "invalid PEP 440 specifier")

	err = resolver.LoadSchema(writeSchema(t, "empty.yaml", `
schema_version: "1"
mappings:
  gmp: {type: opam, package: ""}
`))
	assert.Error(t, err, "empty package")
}
