package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlpineOrdering(t *testing.T) {
	// An ascending corpus covering suffixes, revisions and dotted parts.
	ordered := []string{
		"1.0_alpha",
		"1.0_beta",
		"1.0_pre",
		"1.0_rc",
		"1.0",
		"1.0_p1",
		"1.0-r1",
		"1.0.1",
		"1.1",
	}
	for i := range ordered {
		for j := range ordered {
			a := AlpineVersion(ordered[i])
			b := AlpineVersion(ordered[j])
			switch {
			case i < j:
				assert.Negative(t, a.Compare(b), "%s vs %s", ordered[i], ordered[j])
			case i > j:
				assert.Positive(t, a.Compare(b), "%s vs %s", ordered[i], ordered[j])
			default:
				assert.Zero(t, a.Compare(b), "%s vs %s", ordered[i], ordered[j])
			}
		}
	}
}

func TestAlpineEmptyStringIsLowest(t *testing.T) {
	assert.Negative(t, AlpineVersion("").Compare(AlpineVersion("1.0")))
	assert.Zero(t, AlpineVersion("").Compare(AlpineVersion("")))
}

func TestAlpineLeadingZeroLexicographicTieBreak(t *testing.T) {
	// idx != 0 and a leading zero forces lexicographic comparison instead
	// of numeric, per the Alpine version rule.
	assert.Negative(t, AlpineVersion("1.09").Compare(AlpineVersion("1.2")))
}
