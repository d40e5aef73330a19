package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempora/tempora/pkg/interval"
)

func makeOccurrence(title string, start, end time.Time) Occurrence {
	return Occurrence{
		EventID: NewEventID(),
		Title:   title,
		Start:   start,
		End:     end,
	}
}

func TestComputeFreeBusy_NoOccurrences(t *testing.T) {
	queryRange := interval.TimeRange{Start: utc(1, 8), End: utc(1, 17)}
	result := ComputeFreeBusy(nil, queryRange)

	assert.Empty(t, result.BusyPeriods)
	require.Len(t, result.FreePeriods, 1)
	assert.Equal(t, queryRange, result.FreePeriods[0])
	assert.Equal(t, int64(0), result.TotalBusyMinutes)
	assert.Equal(t, int64(540), result.TotalFreeMinutes)
}

func TestComputeFreeBusy_SingleOccurrence(t *testing.T) {
	queryRange := interval.TimeRange{Start: utc(1, 8), End: utc(1, 12)}
	occs := []Occurrence{makeOccurrence("Meeting", utc(1, 9), utc(1, 10))}

	result := ComputeFreeBusy(occs, queryRange)

	require.Len(t, result.BusyPeriods, 1)
	assert.Equal(t, []string{"Meeting"}, result.BusyPeriods[0].EventTitles)
	assert.Equal(t, int64(60), result.TotalBusyMinutes)
	assert.Equal(t, int64(180), result.TotalFreeMinutes)
	require.Len(t, result.FreePeriods, 2)
}

func TestComputeFreeBusy_OverlappingOccurrencesMerged(t *testing.T) {
	queryRange := interval.TimeRange{Start: utc(1, 8), End: utc(1, 14)}
	occs := []Occurrence{
		makeOccurrence("Standup", utc(1, 9), utc(1, 11)),
		makeOccurrence("Review", utc(1, 10), utc(1, 12)),
	}

	result := ComputeFreeBusy(occs, queryRange)

	require.Len(t, result.BusyPeriods, 1)
	assert.Equal(t, utc(1, 9), result.BusyPeriods[0].Range.Start)
	assert.Equal(t, utc(1, 12), result.BusyPeriods[0].Range.End)
	assert.ElementsMatch(t, []string{"Standup", "Review"}, result.BusyPeriods[0].EventTitles)
}

func TestComputeFreeBusy_DuplicateTitlesDeduplicated(t *testing.T) {
	queryRange := interval.TimeRange{Start: utc(1, 8), End: utc(1, 14)}
	occs := []Occurrence{
		makeOccurrence("Standup", utc(1, 9), utc(1, 10)),
		makeOccurrence("Standup", time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC), time.Date(2026, 1, 1, 10, 30, 0, 0, time.UTC)),
	}

	result := ComputeFreeBusy(occs, queryRange)

	require.Len(t, result.BusyPeriods, 1)
	assert.Equal(t, []string{"Standup"}, result.BusyPeriods[0].EventTitles)
}

func TestComputeFreeBusy_ClipsToRange(t *testing.T) {
	queryRange := interval.TimeRange{Start: utc(1, 9), End: utc(1, 10)}
	occs := []Occurrence{makeOccurrence("Long", utc(1, 7), utc(1, 12))}

	result := ComputeFreeBusy(occs, queryRange)

	require.Len(t, result.BusyPeriods, 1)
	assert.Equal(t, queryRange, result.BusyPeriods[0].Range)
	assert.Empty(t, result.FreePeriods)
	assert.Equal(t, int64(60), result.TotalBusyMinutes)
	assert.Equal(t, int64(0), result.TotalFreeMinutes)
}

func TestComputeFreeBusy_DiscardsNonOverlapping(t *testing.T) {
	queryRange := interval.TimeRange{Start: utc(1, 9), End: utc(1, 10)}
	occs := []Occurrence{makeOccurrence("Elsewhere", utc(1, 14), utc(1, 15))}

	result := ComputeFreeBusy(occs, queryRange)

	assert.Empty(t, result.BusyPeriods)
	require.Len(t, result.FreePeriods, 1)
}

func TestComputeFreeBusy_PartitionInvariant(t *testing.T) {
	queryRange := interval.TimeRange{Start: utc(1, 6), End: utc(1, 20)}
	testCases := []struct {
		name string
		occs []Occurrence
	}{
		{
			name: "empty",
			occs: nil,
		},
		{
			name: "disjoint",
			occs: []Occurrence{
				makeOccurrence("A", utc(1, 8), utc(1, 9)),
				makeOccurrence("B", utc(1, 12), utc(1, 14)),
			},
		},
		{
			name: "overlapping and clipped",
			occs: []Occurrence{
				makeOccurrence("A", utc(1, 5), utc(1, 9)),
				makeOccurrence("B", utc(1, 8), utc(1, 11)),
				makeOccurrence("C", utc(1, 19), utc(1, 22)),
			},
		},
		{
			name: "back to back",
			occs: []Occurrence{
				makeOccurrence("A", utc(1, 8), utc(1, 9)),
				makeOccurrence("B", utc(1, 9), utc(1, 10)),
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ComputeFreeBusy(tc.occs, queryRange)

			var busy, free time.Duration
			for _, bp := range result.BusyPeriods {
				busy += bp.Range.Duration()
			}
			for _, fp := range result.FreePeriods {
				free += fp.Duration()
			}
			assert.Equal(t, queryRange.Duration(), busy+free)
			assert.Equal(t, int64(queryRange.Duration().Minutes()), result.TotalBusyMinutes+result.TotalFreeMinutes)
		})
	}
}
