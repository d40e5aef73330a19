package proposal

import (
	"time"

	"github.com/tempora/tempora/pkg/calendar"
	"github.com/tempora/tempora/pkg/interval"
)

// Conflict records one detected pairwise overlap. ConflictingEventID is nil
// when the conflict is between two events of the same proposal.
type Conflict struct {
	ProposedEventTitle    string
	ProposedStart         time.Time
	ProposedEnd           time.Time
	ConflictingEventID    *calendar.EventID
	ConflictingEventTitle string
	ConflictingStart      time.Time
	ConflictingEnd        time.Time
	OverlapMinutes        int64
}

// ConflictReport is the result of checking one proposal.
type ConflictReport struct {
	ProposalID   ProposalID
	HasConflicts bool
	Conflicts    []Conflict
}

// DetectConflicts compares proposed occurrences against existing ones and,
// when checkInternal is set, against each other. Pairwise comparison,
// O(P*E + P^2). Existing conflicts are listed before internal ones; within
// each group the input order is followed. Each internal pair is reported
// once, in index order.
func DetectConflicts(proposed, existing []calendar.Occurrence, checkInternal bool) []Conflict {
	var conflicts []Conflict

	for _, prop := range proposed {
		propRange := interval.TimeRange{Start: prop.Start, End: prop.End}
		for _, exist := range existing {
			existRange := interval.TimeRange{Start: exist.Start, End: exist.End}
			overlap := propRange.OverlapDuration(existRange)
			if minutes := int64(overlap.Minutes()); minutes > 0 {
				eventID := exist.EventID
				conflicts = append(conflicts, Conflict{
					ProposedEventTitle:    prop.Title,
					ProposedStart:         prop.Start,
					ProposedEnd:           prop.End,
					ConflictingEventID:    &eventID,
					ConflictingEventTitle: exist.Title,
					ConflictingStart:      exist.Start,
					ConflictingEnd:        exist.End,
					OverlapMinutes:        minutes,
				})
			}
		}
	}

	if checkInternal && len(proposed) > 1 {
		for i := 0; i < len(proposed); i++ {
			aRange := interval.TimeRange{Start: proposed[i].Start, End: proposed[i].End}
			for j := i + 1; j < len(proposed); j++ {
				bRange := interval.TimeRange{Start: proposed[j].Start, End: proposed[j].End}
				overlap := aRange.OverlapDuration(bRange)
				if minutes := int64(overlap.Minutes()); minutes > 0 {
					conflicts = append(conflicts, Conflict{
						ProposedEventTitle:    proposed[i].Title,
						ProposedStart:         proposed[i].Start,
						ProposedEnd:           proposed[i].End,
						ConflictingEventID:    nil,
						ConflictingEventTitle: proposed[j].Title,
						ConflictingStart:      proposed[j].Start,
						ConflictingEnd:        proposed[j].End,
						OverlapMinutes:        minutes,
					})
				}
			}
		}
	}

	return conflicts
}
