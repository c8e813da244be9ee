package version

import (
	debversion "github.com/knqyf263/go-deb-version"
)

// DebianVersion wraps go-deb-version, which implements Debian policy
// §2.1's epoch:upstream-revision split and alternating-token ordering.
type DebianVersion struct {
	raw    string
	parsed debversion.Version
	valid  bool
}

// ParseDebianVersion never fails: an unparseable string is kept for
// round-trip and string-literal fallback comparison.
func ParseDebianVersion(raw string) DebianVersion {
	parsed, err := debversion.NewVersion(raw)
	return DebianVersion{raw: raw, parsed: parsed, valid: err == nil}
}

func (v DebianVersion) String() string { return v.raw }

func (v DebianVersion) Compare(other Version) int {
	o, ok := other.(DebianVersion)
	if !ok {
		return compareFallback(v.raw, other.String())
	}
	if v.valid && o.valid {
		return v.parsed.Compare(o.parsed)
	}
	return compareFallback(v.raw, o.raw)
}

// DebianRange is the discrete-interval version set over DebianVersion.
type DebianRange = Range[DebianVersion]
