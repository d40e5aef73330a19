package calendar

import (
	"time"

	"github.com/google/uuid"
)

// EventID identifies a stored event. IDs are random 128-bit values minted at
// insertion time and never reused.
type EventID uuid.UUID

func NewEventID() EventID {
	return EventID(uuid.New())
}

func ParseEventID(s string) (EventID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return EventID{}, err
	}
	return EventID(id), nil
}

func (id EventID) String() string {
	return uuid.UUID(id).String()
}

// Event is a stored calendar entry, possibly recurring. Start and End are
// absolute instants on a single timeline; Timezone is a display label only
// and never participates in interval math. RRule is an opaque recurrence
// specification anchored at Start; empty means the event does not recur.
// Callers validate Start <= End before insertion.
type Event struct {
	ID       EventID
	Title    string
	Start    time.Time
	End      time.Time
	Timezone string
	RRule    string
	Metadata map[string]string
}

func (e Event) IsRecurring() bool {
	return e.RRule != ""
}

// Occurrence is one concrete instantiation of an Event within a query window.
// Occurrences are computed on demand and never stored; a recurring event
// yields many occurrences sharing the same EventID.
type Occurrence struct {
	EventID     EventID
	Title       string
	Start       time.Time
	End         time.Time
	IsRecurring bool
	Metadata    map[string]string
}

// ToOccurrence projects a non-expanded event onto its single occurrence.
func (e Event) ToOccurrence() Occurrence {
	return Occurrence{
		EventID:     e.ID,
		Title:       e.Title,
		Start:       e.Start,
		End:         e.End,
		IsRecurring: e.IsRecurring(),
		Metadata:    e.Metadata,
	}
}
