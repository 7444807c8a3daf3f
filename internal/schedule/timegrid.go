package schedule

import (
	"fmt"
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End). All comparisons happen at
// second resolution; instants are truncated on construction so sub-second
// noise from clients or the store never affects overlap tests.
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start, end time.Time) (Interval, error) {
	iv := Interval{Start: start.Truncate(time.Second), End: end.Truncate(time.Second)}
	if !iv.Start.Before(iv.End) {
		return Interval{}, fmt.Errorf("invalid interval: start %s not before end %s", start, end)
	}
	return iv, nil
}

// Overlaps reports whether two half-open intervals intersect. A booking
// ending at 10:00 does not conflict with one starting at 10:00.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether the instant falls inside [Start, End).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Covers reports whether other lies entirely within iv.
func (iv Interval) Covers(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Expand widens the interval by the given paddings.
func (iv Interval) Expand(before, after time.Duration) Interval {
	return Interval{Start: iv.Start.Add(-before), End: iv.End.Add(after)}
}

// GenerateCandidates returns evenly spaced instants in [dayStart, dayEnd),
// used for slot start candidates and UI time pickers.
func GenerateCandidates(dayStart, dayEnd time.Time, step time.Duration) []time.Time {
	if step <= 0 || !dayStart.Before(dayEnd) {
		return nil
	}
	var out []time.Time
	for t := dayStart; t.Before(dayEnd); t = t.Add(step) {
		out = append(out, t)
	}
	return out
}

// MergeIntervals coalesces overlapping and adjacent intervals and returns
// them in ascending order. Input order does not matter.
func MergeIntervals(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return nil
	}
	sorted := make([]Interval, len(ivs))
	copy(sorted, ivs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// SubtractBusy removes busy intervals from a set of disjoint ascending free
// intervals and returns the disjoint ascending remainder. A busy interval in
// the middle of a free one splits it; one overlapping an edge truncates it;
// one covering it removes it entirely.
func SubtractBusy(free, busy []Interval) ([]Interval, error) {
	for _, iv := range append(append([]Interval{}, free...), busy...) {
		if !iv.Start.Before(iv.End) {
			return nil, fmt.Errorf("invalid interval: start %s not before end %s", iv.Start, iv.End)
		}
	}

	remaining := MergeIntervals(free)
	for _, b := range MergeIntervals(busy) {
		var next []Interval
		for _, f := range remaining {
			if !f.Overlaps(b) {
				next = append(next, f)
				continue
			}
			if b.Start.After(f.Start) {
				next = append(next, Interval{Start: f.Start, End: b.Start})
			}
			if b.End.Before(f.End) {
				next = append(next, Interval{Start: b.End, End: f.End})
			}
		}
		remaining = next
	}
	return remaining, nil
}
