package interval

import (
	"sort"
	"time"
)

// TimeRange is a half-open interval [Start, End) on a single absolute timeline.
// Callers are expected to construct ranges with Start <= End.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Overlaps reports whether two half-open ranges intersect. Ranges that only
// share a boundary point do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// OverlapDuration returns the length of the intersection of two ranges,
// or zero when they do not overlap.
func (r TimeRange) OverlapDuration(other TimeRange) time.Duration {
	start := r.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := r.End
	if other.End.Before(end) {
		end = other.End
	}
	if start.Before(end) {
		return end.Sub(start)
	}
	return 0
}

// Merge folds a set of ranges into the minimal sorted list of non-overlapping
// ranges. Adjacent ranges (shared boundary) are merged as well.
func Merge(ranges []TimeRange) []TimeRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]TimeRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []TimeRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !r.Start.After(last.End) {
			if r.End.After(last.End) {
				last.End = r.End
			}
		} else {
			merged = append(merged, r)
		}
	}
	return merged
}

// FindFreeSlots returns the gaps of at least minDuration between the given
// busy ranges, clipped to searchRange. Busy ranges may overlap and be
// unsorted; they are merged first.
func FindFreeSlots(busy []TimeRange, searchRange TimeRange, minDuration time.Duration) []TimeRange {
	merged := Merge(busy)

	var free []TimeRange
	cursor := searchRange.Start

	for _, period := range merged {
		if period.Start.After(cursor) {
			gapEnd := period.Start
			if searchRange.End.Before(gapEnd) {
				gapEnd = searchRange.End
			}
			gap := TimeRange{Start: cursor, End: gapEnd}
			if gap.Duration() >= minDuration && gap.Start.Before(gap.End) {
				free = append(free, gap)
			}
		}
		if period.End.After(cursor) {
			cursor = period.End
		}
		if !cursor.Before(searchRange.End) {
			break
		}
	}

	if cursor.Before(searchRange.End) {
		gap := TimeRange{Start: cursor, End: searchRange.End}
		if gap.Duration() >= minDuration {
			free = append(free, gap)
		}
	}

	return free
}
