package calendar

import (
	"sort"
	"time"

	"github.com/tempora/tempora/pkg/interval"
)

// Calendar is a named collection of events. It is not safe for concurrent
// use on its own; the owning store serializes access.
type Calendar struct {
	name   string
	events map[EventID]Event
	eval   RecurrenceEvaluator
}

func New(name string, eval RecurrenceEvaluator) *Calendar {
	return &Calendar{
		name:   name,
		events: make(map[EventID]Event),
		eval:   eval,
	}
}

func (c *Calendar) Name() string {
	return c.name
}

// AddEvent inserts an event keyed by its own ID. An existing event with the
// same ID is overwritten; IDs are minted fresh per insertion, so a collision
// is unreachable in practice.
func (c *Calendar) AddEvent(event Event) EventID {
	c.events[event.ID] = event
	return event.ID
}

// RemoveEvent removes and returns the event, or reports absence.
func (c *Calendar) RemoveEvent(id EventID) (Event, bool) {
	event, ok := c.events[id]
	if ok {
		delete(c.events, id)
	}
	return event, ok
}

// Clear drops all events.
func (c *Calendar) Clear() {
	c.events = make(map[EventID]Event)
}

func (c *Calendar) Size() int {
	return len(c.events)
}

// Events returns a snapshot of all stored events in unspecified order.
func (c *Calendar) Events() []Event {
	events := make([]Event, 0, len(c.events))
	for _, e := range c.events {
		events = append(events, e)
	}
	return events
}

// OccurrencesInRange expands every stored event into the half-open window
// [start, end) and returns the occurrences sorted by start time.
func (c *Calendar) OccurrencesInRange(start, end time.Time) ([]Occurrence, error) {
	window := interval.TimeRange{Start: start, End: end}
	var occurrences []Occurrence
	for _, event := range c.events {
		expanded, err := expandEvent(event, window, c.eval)
		if err != nil {
			return nil, err
		}
		occurrences = append(occurrences, expanded...)
	}
	SortOccurrences(occurrences)
	return occurrences, nil
}

// SortOccurrences orders occurrences by start time ascending.
func SortOccurrences(occurrences []Occurrence) {
	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].Start.Before(occurrences[j].Start)
	})
}
