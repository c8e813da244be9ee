package version

import (
	"strconv"
	"strings"
)

// CargoVersion is a hand-rolled SemVer 2.0 implementation: no semver
// library (e.g. Masterminds/semver) turned up anywhere in the retrieval
// pack, so this is implemented directly from the spec rather than wired
// to a third party — see DESIGN.md.
type CargoVersion struct {
	raw                 string
	major, minor, patch uint64
	pre                 []string
	build               string
	valid               bool
}

// ParseCargoVersion parses a SemVer 2.0 string. Unlike the other
// ecosystems, Cargo is the one ecosystem whose version parser is load
// bearing for validation.
func ParseCargoVersion(raw string) (CargoVersion, bool) {
	v := CargoVersion{raw: raw}
	core := raw
	if i := strings.IndexByte(core, '+'); i >= 0 {
		v.build = core[i+1:]
		core = core[:i]
	}
	if i := strings.IndexByte(core, '-'); i >= 0 {
		pre := core[i+1:]
		core = core[:i]
		if pre == "" {
			return v, false
		}
		v.pre = strings.Split(pre, ".")
	}
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return v, false
	}
	nums := make([]uint64, 3)
	for i, p := range parts {
		if p == "" || (len(p) > 1 && p[0] == '0') {
			return v, false
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return v, false
		}
		nums[i] = n
	}
	v.major, v.minor, v.patch = nums[0], nums[1], nums[2]
	v.valid = true
	return v, true
}

func (v CargoVersion) String() string { return v.raw }

// Bucket returns the SemVer compatibility bucket `^major.minor.patch`
// picks (the glossary's "compatibility bucket"): the leading non-zero
// component, or "0.minor" / "0.0.patch" for 0.x releases per Cargo's caret
// rule.
func (v CargoVersion) Bucket() string {
	switch {
	case v.major != 0:
		return strconv.FormatUint(v.major, 10)
	case v.minor != 0:
		return "0." + strconv.FormatUint(v.minor, 10)
	default:
		return "0.0." + strconv.FormatUint(v.patch, 10)
	}
}

func (v CargoVersion) Compare(other Version) int {
	o, ok := other.(CargoVersion)
	if !ok {
		return compareFallback(v.raw, other.String())
	}
	if !v.valid || !o.valid {
		return compareFallback(v.raw, o.raw)
	}
	if c := compareInts(int(v.major), int(o.major)); c != 0 {
		return c
	}
	if c := compareInts(int(v.minor), int(o.minor)); c != 0 {
		return c
	}
	if c := compareInts(int(v.patch), int(o.patch)); c != 0 {
		return c
	}
	return comparePrerelease(v.pre, o.pre)
}

// comparePrerelease implements SemVer 2.0's precedence rule: a version
// with a pre-release is lower than the same version without one, and
// pre-release identifiers compare left to right, numeric identifiers
// numerically, alphanumeric lexicographically, numeric < alphanumeric.
func comparePrerelease(a, b []string) int {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	if len(a) == 0 {
		return 1
	}
	if len(b) == 0 {
		return -1
	}
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if i >= len(a) {
			return -1
		}
		if i >= len(b) {
			return 1
		}
		if c := comparePrereleaseIdent(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func comparePrereleaseIdent(a, b string) int {
	na, aNum := isNumericIdent(a)
	nb, bNum := isNumericIdent(b)
	switch {
	case aNum && bNum:
		return compareInts(int(na), int(nb))
	case aNum:
		return -1
	case bNum:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func isNumericIdent(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CargoRange is the discrete-interval version set over CargoVersion.
type CargoRange = Range[CargoVersion]
