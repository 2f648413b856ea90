package presence

import "sort"

// SecondsPerDay is the length of a simulated day.
const SecondsPerDay int64 = 86400

// Interval is a half-open span [Start, End) in seconds.
// Depending on context the bounds are seconds of a day or absolute
// simulation seconds.
type Interval struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Len returns the length of the interval in seconds (0 for empty intervals).
func (i Interval) Len() int64 {
	if i.End <= i.Start {
		return 0
	}
	return i.End - i.Start
}

// Empty reports whether the interval covers no time.
func (i Interval) Empty() bool {
	return i.End <= i.Start
}

// Contains reports whether o lies fully inside i.
func (i Interval) Contains(o Interval) bool {
	return o.Start >= i.Start && o.End <= i.End
}

// Overlaps reports whether i and o share at least one second.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

// Shift moves the interval by d seconds.
func (i Interval) Shift(d int64) Interval {
	return Interval{Start: i.Start + d, End: i.End + d}
}

// Normalize returns a sorted copy of ivs with empty intervals removed and
// overlapping or touching intervals merged.
func Normalize(ivs []Interval) []Interval {
	out := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if !iv.Empty() {
			out = append(out, iv)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].Start < out[b].Start
	})

	merged := out[:0]
	for _, iv := range out {
		if n := len(merged); n > 0 && iv.Start <= merged[n-1].End {
			if iv.End > merged[n-1].End {
				merged[n-1].End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Intersect returns the intersection of two normalized interval lists.
func Intersect(a, b []Interval) []Interval {
	var out []Interval
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := max(a[i].Start, b[j].Start)
		end := min(a[i].End, b[j].End)
		if start < end {
			out = append(out, Interval{Start: start, End: end})
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

// Total returns the summed length of the intervals.
func Total(ivs []Interval) int64 {
	var total int64
	for _, iv := range ivs {
		total += iv.Len()
	}
	return total
}

// Covers reports whether span lies fully inside one interval of the
// normalized list ivs.
func Covers(ivs []Interval, span Interval) bool {
	idx := sort.Search(len(ivs), func(k int) bool {
		return ivs[k].End >= span.End
	})
	return idx < len(ivs) && ivs[idx].Contains(span)
}

// AnyOverlap reports whether span overlaps any interval in ivs.
func AnyOverlap(ivs []Interval, span Interval) bool {
	for _, iv := range ivs {
		if iv.Overlaps(span) {
			return true
		}
	}
	return false
}
