package event_bus

import "time"

const (
	EventAddedType        EventType = "calendar.event.added"
	EventRemovedType      EventType = "calendar.event.removed"
	CalendarClearedType   EventType = "calendar.cleared"
	ProposalCommittedType EventType = "proposal.committed"
	ProposalWithdrawnType EventType = "proposal.withdrawn"
)

type CalendarEventAdded struct {
	CalendarName string
	EventID      string
	Title        string
	StartTime    time.Time
	EndTime      time.Time
}

type CalendarEventRemoved struct {
	CalendarName string
	EventID      string
}

type CalendarCleared struct {
	CalendarName string
}

type ProposalCommitted struct {
	ProposalID   string
	CalendarName string
	EventIDs     []string
}

type ProposalWithdrawn struct {
	ProposalID string
	Name       string
}
