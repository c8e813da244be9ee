package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every ecosystem's String must return the exact parsed input, never a
// normalized form.
func TestVersionStringRoundTrips(t *testing.T) {
	opam := []string{"3.17.2", "1.0~beta", "base.v0.16.0", "5.3.1+trunk"}
	for _, raw := range opam {
		assert.Equal(t, raw, ParseOpamVersion(raw).String())
	}

	debian := []string{"1:7.9p1-10+deb10u2", "2:6.1.2+dfsg-4", "2.28-10", "0.0~git20200101-1"}
	for _, raw := range debian {
		assert.Equal(t, raw, ParseDebianVersion(raw).String())
	}

	alpine := []string{"6.1.2-r1", "1.0_alpha", "1.2.4_git20230717-r4"}
	for _, raw := range alpine {
		assert.Equal(t, raw, ParseAlpineVersion(raw).String())
	}

	cargo := []string{"1.0.219", "2.0.0-beta.3", "0.9.8+build.7"}
	for _, raw := range cargo {
		v, ok := ParseCargoVersion(raw)
		require.True(t, ok, raw)
		assert.Equal(t, raw, v.String())
	}

	assert.Equal(t, "debian", PlatformVersion("debian").String())
}
