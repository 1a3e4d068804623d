package selector

import "sort"

// Interval is a half-open byte range [Start, End).
type Interval struct {
	Start int
	End   int
}

// IntervalMode controls how excluded intervals reject candidates.
type IntervalMode int

const (
	// Overlap rejects any candidate that intersects an excluded interval.
	Overlap IntervalMode = iota
	// StartOnly rejects a candidate only when its first byte lies inside an excluded interval.
	StartOnly
)

// ParseIntervalMode maps the config spelling to a mode. Unknown values fall back to Overlap.
func ParseIntervalMode(s string) IntervalMode {
	switch s {
	case "start", "start_only", "once":
		return StartOnly
	default:
		return Overlap
	}
}

func (m IntervalMode) String() string {
	if m == StartOnly {
		return "start"
	}
	return "overlap"
}

// Intervals is a sorted, merged set of excluded ranges.
type Intervals []Interval

// NewIntervals sorts and merges the given ranges. Empty ranges are dropped.
func NewIntervals(in ...Interval) Intervals {
	out := make(Intervals, 0, len(in))
	for _, iv := range in {
		if iv.End > iv.Start {
			out = append(out, iv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })

	merged := out[:0]
	for _, iv := range out {
		if k := len(merged); k > 0 && iv.Start <= merged[k-1].End {
			if iv.End > merged[k-1].End {
				merged[k-1].End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Add returns a new set that also covers extra.
func (s Intervals) Add(extra ...Interval) Intervals {
	all := make([]Interval, 0, len(s)+len(extra))
	all = append(all, s...)
	all = append(all, extra...)
	return NewIntervals(all...)
}

// Contains reports whether pos lies inside an interval.
func (s Intervals) Contains(pos int) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i].End > pos })
	return i < len(s) && s[i].Start <= pos
}

// Intersects reports whether [start, end) overlaps an interval.
func (s Intervals) Intersects(start, end int) bool {
	if end <= start {
		return s.Contains(start)
	}
	i := sort.Search(len(s), func(i int) bool { return s[i].End > start })
	return i < len(s) && s[i].Start < end
}

// Blocks applies mode to the span [start, end).
func (s Intervals) Blocks(start, end int, mode IntervalMode) bool {
	if len(s) == 0 {
		return false
	}
	if mode == StartOnly {
		return s.Contains(start)
	}
	return s.Intersects(start, end)
}
