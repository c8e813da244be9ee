package version

import (
	"fmt"
	"strings"
)

// Range is a discrete union of half-open intervals over a single ecosystem's
// Version type: the generic engine behind OpamRange/DebianRange/AlpineRange/
// CargoRange. Segments are kept sorted, non-overlapping
// and non-touching (adjacent touching segments are always merged), so two
// Ranges holding the same set of versions always compare structurally equal.
type Range[V Version] struct {
	segments []segment[V]
}

type lowBound[V Version] struct {
	present   bool
	value     V
	inclusive bool
}

type highBound[V Version] struct {
	present   bool
	value     V
	inclusive bool
}

type segment[V Version] struct {
	low  lowBound[V]
	high highBound[V]
}

// Empty returns the range containing no versions.
func Empty[V Version]() Range[V] { return Range[V]{} }

// Full returns the range containing every version of the ecosystem.
func Full[V Version]() Range[V] {
	return Range[V]{segments: []segment[V]{{low: lowBound[V]{}, high: highBound[V]{}}}}
}

// Singleton returns the range containing exactly v.
func Singleton[V Version](v V) Range[V] {
	return Range[V]{segments: []segment[V]{{
		low:  lowBound[V]{present: true, value: v, inclusive: true},
		high: highBound[V]{present: true, value: v, inclusive: true},
	}}}
}

// AtLeast returns the range `>= v`.
func AtLeast[V Version](v V) Range[V] {
	return Range[V]{segments: []segment[V]{{low: lowBound[V]{present: true, value: v, inclusive: true}, high: highBound[V]{}}}}
}

// GreaterThan returns the range `> v`.
func GreaterThan[V Version](v V) Range[V] {
	return Range[V]{segments: []segment[V]{{low: lowBound[V]{present: true, value: v, inclusive: false}, high: highBound[V]{}}}}
}

// AtMost returns the range `<= v`.
func AtMost[V Version](v V) Range[V] {
	return Range[V]{segments: []segment[V]{{low: lowBound[V]{}, high: highBound[V]{present: true, value: v, inclusive: true}}}}
}

// LessThan returns the range `< v`.
func LessThan[V Version](v V) Range[V] {
	return Range[V]{segments: []segment[V]{{low: lowBound[V]{}, high: highBound[V]{present: true, value: v, inclusive: false}}}}
}

// Between returns the range bounded below by lo (inclusive iff loIncl) and
// above by hi (inclusive iff hiIncl). An invalid bound pair yields Empty.
func Between[V Version](lo V, loIncl bool, hi V, hiIncl bool) Range[V] {
	low := lowBound[V]{present: true, value: lo, inclusive: loIncl}
	high := highBound[V]{present: true, value: hi, inclusive: hiIncl}
	if !validSegment(low, high) {
		return Empty[V]()
	}
	return Range[V]{segments: []segment[V]{{low: low, high: high}}}
}

// AsSingleton reports whether r contains exactly one version, returning
// it.
func (r Range[V]) AsSingleton() (V, bool) {
	var zero V
	if len(r.segments) != 1 {
		return zero, false
	}
	seg := r.segments[0]
	if seg.low.present && seg.high.present && seg.low.inclusive && seg.high.inclusive &&
		seg.low.value.Compare(seg.high.value) == 0 {
		return seg.low.value, true
	}
	return zero, false
}

func (r Range[V]) IsEmpty() bool { return len(r.segments) == 0 }

func (r Range[V]) IsFull() bool {
	return len(r.segments) == 1 && !r.segments[0].low.present && !r.segments[0].high.present
}

// Contains reports whether v is a member of the range.
func (r Range[V]) Contains(v V) bool {
	for _, seg := range r.segments {
		if segContains(seg, v) {
			return true
		}
	}
	return false
}

func segContains[V Version](seg segment[V], v V) bool {
	if seg.low.present {
		c := v.Compare(seg.low.value)
		if c < 0 || (c == 0 && !seg.low.inclusive) {
			return false
		}
	}
	if seg.high.present {
		c := v.Compare(seg.high.value)
		if c > 0 || (c == 0 && !seg.high.inclusive) {
			return false
		}
	}
	return true
}

// Complement returns every version not in r.
func (r Range[V]) Complement() Range[V] {
	var out []segment[V]
	cursor := lowBound[V]{present: false}
	for _, seg := range r.segments {
		if seg.low.present {
			gapHigh := highBound[V]{present: true, value: seg.low.value, inclusive: !seg.low.inclusive}
			if validSegment(cursor, gapHigh) {
				out = append(out, segment[V]{low: cursor, high: gapHigh})
			}
		}
		if !seg.high.present {
			return Range[V]{segments: out}
		}
		cursor = lowBound[V]{present: true, value: seg.high.value, inclusive: !seg.high.inclusive}
	}
	out = append(out, segment[V]{low: cursor, high: highBound[V]{}})
	return Range[V]{segments: out}
}

// Union returns the set of versions in r or other.
func (r Range[V]) Union(other Range[V]) Range[V] {
	all := make([]segment[V], 0, len(r.segments)+len(other.segments))
	all = append(all, r.segments...)
	all = append(all, other.segments...)
	sortSegments(all)

	var merged []segment[V]
	for _, seg := range all {
		if len(merged) == 0 {
			merged = append(merged, seg)
			continue
		}
		last := &merged[len(merged)-1]
		if touchesOrOverlaps(last.high, seg.low) {
			if cmpHigh(seg.high, last.high) > 0 {
				last.high = seg.high
			}
			continue
		}
		merged = append(merged, seg)
	}
	return Range[V]{segments: merged}
}

// Intersection returns the set of versions in both r and other.
func (r Range[V]) Intersection(other Range[V]) Range[V] {
	var out []segment[V]
	for _, a := range r.segments {
		for _, b := range other.segments {
			low := a.low
			if cmpLow(b.low, low) > 0 {
				low = b.low
			}
			high := a.high
			if cmpHigh(b.high, high) < 0 {
				high = b.high
			}
			if validSegment(low, high) {
				out = append(out, segment[V]{low: low, high: high})
			}
		}
	}
	sortSegments(out)
	return Range[V]{segments: out}.coalesce()
}

func (r Range[V]) coalesce() Range[V] {
	var merged []segment[V]
	for _, seg := range r.segments {
		if len(merged) == 0 {
			merged = append(merged, seg)
			continue
		}
		last := &merged[len(merged)-1]
		if touchesOrOverlaps(last.high, seg.low) {
			if cmpHigh(seg.high, last.high) > 0 {
				last.high = seg.high
			}
			continue
		}
		merged = append(merged, seg)
	}
	return Range[V]{segments: merged}
}

// IsDisjoint reports whether r and other share no version.
func (r Range[V]) IsDisjoint(other Range[V]) bool {
	return r.Intersection(other).IsEmpty()
}

// SubsetOf reports whether every version in r is also in other.
func (r Range[V]) SubsetOf(other Range[V]) bool {
	return r.Intersection(other.Complement()).IsEmpty()
}

func (r Range[V]) String() string {
	if r.IsEmpty() {
		return "∅"
	}
	if r.IsFull() {
		return "*"
	}
	parts := make([]string, 0, len(r.segments))
	for _, seg := range r.segments {
		parts = append(parts, segString(seg))
	}
	return strings.Join(parts, " || ")
}

func segString[V Version](seg segment[V]) string {
	if seg.low.present && seg.high.present && seg.low.inclusive && seg.high.inclusive &&
		seg.low.value.Compare(seg.high.value) == 0 {
		return fmt.Sprintf("= %s", seg.low.value.String())
	}
	var b strings.Builder
	switch {
	case !seg.low.present && !seg.high.present:
		return "*"
	case !seg.low.present:
		op := "<"
		if seg.high.inclusive {
			op = "<="
		}
		fmt.Fprintf(&b, "%s %s", op, seg.high.value.String())
	case !seg.high.present:
		op := ">"
		if seg.low.inclusive {
			op = ">="
		}
		fmt.Fprintf(&b, "%s %s", op, seg.low.value.String())
	default:
		loOp := ">"
		if seg.low.inclusive {
			loOp = ">="
		}
		hiOp := "<"
		if seg.high.inclusive {
			hiOp = "<="
		}
		fmt.Fprintf(&b, "%s %s & %s %s", loOp, seg.low.value.String(), hiOp, seg.high.value.String())
	}
	return b.String()
}

func validSegment[V Version](low lowBound[V], high highBound[V]) bool {
	if !low.present || !high.present {
		return true
	}
	c := low.value.Compare(high.value)
	if c > 0 {
		return false
	}
	if c == 0 {
		return low.inclusive && high.inclusive
	}
	return true
}

func touchesOrOverlaps[V Version](a highBound[V], b lowBound[V]) bool {
	if !a.present || !b.present {
		return true
	}
	c := a.value.Compare(b.value)
	if c > 0 {
		return true
	}
	if c < 0 {
		return false
	}
	return a.inclusive || b.inclusive
}

func cmpLow[V Version](a, b lowBound[V]) int {
	if !a.present && !b.present {
		return 0
	}
	if !a.present {
		return -1
	}
	if !b.present {
		return 1
	}
	if c := a.value.Compare(b.value); c != 0 {
		return c
	}
	if a.inclusive == b.inclusive {
		return 0
	}
	if a.inclusive {
		return -1
	}
	return 1
}

func cmpHigh[V Version](a, b highBound[V]) int {
	if !a.present && !b.present {
		return 0
	}
	if !a.present {
		return 1
	}
	if !b.present {
		return -1
	}
	if c := a.value.Compare(b.value); c != 0 {
		return c
	}
	if a.inclusive == b.inclusive {
		return 0
	}
	if a.inclusive {
		return 1
	}
	return -1
}

func sortSegments[V Version](segs []segment[V]) {
	for i := 1; i < len(segs); i++ {
		for j := i; j > 0 && cmpLow(segs[j].low, segs[j-1].low) < 0; j-- {
			segs[j], segs[j-1] = segs[j-1], segs[j]
		}
	}
}
