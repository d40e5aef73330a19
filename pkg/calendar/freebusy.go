package calendar

import (
	"sort"

	"github.com/tempora/tempora/pkg/interval"
)

// BusyPeriod is a merged, non-overlapping interval covering one or more
// occurrences, with the contributing event titles attached (deduplicated).
type BusyPeriod struct {
	Range       interval.TimeRange
	EventTitles []string
}

// FreeBusyResult partitions a query range exactly into busy and free
// periods: the busy and free durations always sum to the range duration.
type FreeBusyResult struct {
	BusyPeriods      []BusyPeriod
	FreePeriods      []interval.TimeRange
	TotalBusyMinutes int64
	TotalFreeMinutes int64
}

// ComputeFreeBusy aggregates occurrences into busy periods within the range
// and derives the complementary free periods.
func ComputeFreeBusy(occurrences []Occurrence, queryRange interval.TimeRange) FreeBusyResult {
	if len(occurrences) == 0 {
		return FreeBusyResult{
			FreePeriods:      []interval.TimeRange{queryRange},
			TotalFreeMinutes: int64(queryRange.Duration().Minutes()),
		}
	}

	type clipped struct {
		r     interval.TimeRange
		title string
	}
	var clippedRanges []clipped
	for _, occ := range occurrences {
		occRange := interval.TimeRange{Start: occ.Start, End: occ.End}
		if !occRange.Overlaps(queryRange) {
			continue
		}
		if occRange.Start.Before(queryRange.Start) {
			occRange.Start = queryRange.Start
		}
		if occRange.End.After(queryRange.End) {
			occRange.End = queryRange.End
		}
		clippedRanges = append(clippedRanges, clipped{r: occRange, title: occ.Title})
	}

	sort.SliceStable(clippedRanges, func(i, j int) bool {
		return clippedRanges[i].r.Start.Before(clippedRanges[j].r.Start)
	})

	var busyPeriods []BusyPeriod
	for _, c := range clippedRanges {
		if len(busyPeriods) > 0 {
			last := &busyPeriods[len(busyPeriods)-1]
			if !c.r.Start.After(last.Range.End) {
				if c.r.End.After(last.Range.End) {
					last.Range.End = c.r.End
				}
				if !containsTitle(last.EventTitles, c.title) {
					last.EventTitles = append(last.EventTitles, c.title)
				}
				continue
			}
		}
		busyPeriods = append(busyPeriods, BusyPeriod{
			Range:       c.r,
			EventTitles: []string{c.title},
		})
	}

	busyOnly := make([]interval.TimeRange, 0, len(busyPeriods))
	var totalBusyMinutes int64
	for _, bp := range busyPeriods {
		busyOnly = append(busyOnly, bp.Range)
		totalBusyMinutes += int64(bp.Range.Duration().Minutes())
	}

	freePeriods := interval.FindFreeSlots(busyOnly, queryRange, 0)

	return FreeBusyResult{
		BusyPeriods:      busyPeriods,
		FreePeriods:      freePeriods,
		TotalBusyMinutes: totalBusyMinutes,
		TotalFreeMinutes: int64(queryRange.Duration().Minutes()) - totalBusyMinutes,
	}
}

func containsTitle(titles []string, title string) bool {
	for _, t := range titles {
		if t == title {
			return true
		}
	}
	return false
}
