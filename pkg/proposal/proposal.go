package proposal

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tempora/tempora/pkg/calendar"
)

var ErrProposalNotFound = errors.New("proposal not found")

// ProposalID identifies an open proposal. Like event IDs, proposal IDs are
// random 128-bit values and never reused.
type ProposalID uuid.UUID

func NewProposalID() ProposalID {
	return ProposalID(uuid.New())
}

func ParseProposalID(s string) (ProposalID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ProposalID{}, err
	}
	return ProposalID(id), nil
}

func (id ProposalID) String() string {
	return uuid.UUID(id).String()
}

// ProposedEvent is a draft event: structurally an Event without an ID.
// An ID is minted only when the containing proposal is committed.
type ProposedEvent struct {
	Title    string
	Start    time.Time
	End      time.Time
	Timezone string
	RRule    string
	Metadata map[string]string
}

// Proposal is a named batch of draft events awaiting conflict review.
// It is terminated by exactly one of commit or withdraw; no committed
// state is retained.
type Proposal struct {
	ID        ProposalID
	Name      string
	Events    []ProposedEvent
	CreatedAt time.Time
}

// ToOccurrence projects a draft event onto an occurrence for conflict
// detection, using a throwaway event ID.
func (p ProposedEvent) ToOccurrence() calendar.Occurrence {
	return calendar.Occurrence{
		EventID:     calendar.NewEventID(),
		Title:       p.Title,
		Start:       p.Start,
		End:         p.End,
		IsRecurring: p.RRule != "",
		Metadata:    p.Metadata,
	}
}

// TimeBounds returns the window spanning all proposed events, or false when
// the proposal is empty.
func TimeBounds(events []ProposedEvent) (time.Time, time.Time, bool) {
	if len(events) == 0 {
		return time.Time{}, time.Time{}, false
	}
	start := events[0].Start
	end := events[0].End
	for _, e := range events[1:] {
		if e.Start.Before(start) {
			start = e.Start
		}
		if e.End.After(end) {
			end = e.End
		}
	}
	return start, end, true
}
