package version

import (
	"github.com/alowayed/go-univers/pkg/ecosystem/debian"
)

// CompareDebianWithUnivers cross-validates go-deb-version against a second,
// independent Debian comparator (go-univers's debian ecosystem package).
// It exists only for the ordering cross-check tests — production code
// always goes through DebianVersion.Compare, never this path.
func CompareDebianWithUnivers(a, b string) (int, error) {
	eco := &debian.Ecosystem{}
	va, err := eco.NewVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := eco.NewVersion(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}
